package engine

// Config holds the tuning knobs of the refinement flow. A zero value for any
// field means "use the default"; out-of-range values are clamped by Normalize.
type Config struct {
	Pass1PerDim  int
	Pass2PerDim  int
	Pass2TopK    int
	SoftmaxTau   float64
	GapStopP1    float64
	Top1MinP1    float64
	GapStopP2    float64
	Top1MinP2    float64
	SJTDelta     float64
	ContextDelta float64
}

const (
	DefaultPass1PerDim  = 2
	DefaultPass2PerDim  = 3
	DefaultPass2TopK    = 5
	DefaultSoftmaxTau   = 0.8
	DefaultGapStopP1    = 0.20
	DefaultTop1MinP1    = 0.35
	DefaultGapStopP2    = 0.15
	DefaultTop1MinP2    = 0.32
	DefaultSJTDelta     = 0.30
	DefaultContextDelta = 0.20

	minTau = 0.05
	maxTau = 5.0
)

func DefaultConfig() Config {
	return Config{
		Pass1PerDim:  DefaultPass1PerDim,
		Pass2PerDim:  DefaultPass2PerDim,
		Pass2TopK:    DefaultPass2TopK,
		SoftmaxTau:   DefaultSoftmaxTau,
		GapStopP1:    DefaultGapStopP1,
		Top1MinP1:    DefaultTop1MinP1,
		GapStopP2:    DefaultGapStopP2,
		Top1MinP2:    DefaultTop1MinP2,
		SJTDelta:     DefaultSJTDelta,
		ContextDelta: DefaultContextDelta,
	}
}

// Normalize fills unset fields with defaults and clamps the rest into their
// valid ranges. It never rejects a configuration.
func (c Config) Normalize() Config {
	c.Pass1PerDim = clampInt(orInt(c.Pass1PerDim, DefaultPass1PerDim), 1, 10)
	c.Pass2PerDim = clampInt(orInt(c.Pass2PerDim, DefaultPass2PerDim), 1, 20)
	c.Pass2TopK = clampInt(orInt(c.Pass2TopK, DefaultPass2TopK), 1, 20)
	c.SoftmaxTau = ClampTau(c.SoftmaxTau)
	c.GapStopP1 = clampFloat(orFloat(c.GapStopP1, DefaultGapStopP1), 0, 1)
	c.Top1MinP1 = clampFloat(orFloat(c.Top1MinP1, DefaultTop1MinP1), 0, 1)
	c.GapStopP2 = clampFloat(orFloat(c.GapStopP2, DefaultGapStopP2), 0, 1)
	c.Top1MinP2 = clampFloat(orFloat(c.Top1MinP2, DefaultTop1MinP2), 0, 1)
	c.SJTDelta = clampFloat(orFloat(c.SJTDelta, DefaultSJTDelta), 0, 5)
	c.ContextDelta = clampFloat(orFloat(c.ContextDelta, DefaultContextDelta), 0, 5)
	return c
}

// ClampTau returns tau bounded to [0.05, 5.0]; zero selects the default.
func ClampTau(tau float64) float64 {
	return clampFloat(orFloat(tau, DefaultSoftmaxTau), minTau, maxTau)
}

func orInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
