package engine

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	got := Config{}.Normalize()
	if got != DefaultConfig() {
		t.Errorf("Config{}.Normalize() = %+v, want %+v", got, DefaultConfig())
	}
}

func TestNormalizeClamps(t *testing.T) {
	cfg := Config{
		Pass1PerDim:  50,
		Pass2PerDim:  -4,
		Pass2TopK:    99,
		SoftmaxTau:   0.001,
		GapStopP1:    1.7,
		Top1MinP1:    -0.2,
		SJTDelta:     -1,
		ContextDelta: 9,
	}.Normalize()

	if cfg.Pass1PerDim != 10 {
		t.Errorf("Pass1PerDim = %d, want 10", cfg.Pass1PerDim)
	}
	if cfg.Pass2PerDim != 1 {
		t.Errorf("Pass2PerDim = %d, want 1", cfg.Pass2PerDim)
	}
	if cfg.Pass2TopK != 20 {
		t.Errorf("Pass2TopK = %d, want 20", cfg.Pass2TopK)
	}
	if cfg.SoftmaxTau != 0.05 {
		t.Errorf("SoftmaxTau = %f, want 0.05", cfg.SoftmaxTau)
	}
	if cfg.GapStopP1 != 1 {
		t.Errorf("GapStopP1 = %f, want 1", cfg.GapStopP1)
	}
	if cfg.Top1MinP1 != 0 {
		t.Errorf("Top1MinP1 = %f, want 0", cfg.Top1MinP1)
	}
	if cfg.SJTDelta != 0 {
		t.Errorf("SJTDelta = %f, want 0", cfg.SJTDelta)
	}
	if cfg.ContextDelta != 5 {
		t.Errorf("ContextDelta = %f, want 5", cfg.ContextDelta)
	}
}

func TestClampTau(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0.8},
		{0.01, 0.05},
		{1.2, 1.2},
		{12, 5},
		{-3, 0.05},
	}
	for _, tt := range tests {
		if got := ClampTau(tt.in); got != tt.want {
			t.Errorf("ClampTau(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
