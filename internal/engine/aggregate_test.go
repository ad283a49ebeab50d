package engine

import (
	"testing"

	"github.com/escolanoar/vocacional/internal/models"
)

func TestSoftmaxNormalization(t *testing.T) {
	cases := []map[string]float64{
		{"a": 1},
		{"a": 5, "b": 1, "c": 1},
		{"a": 3, "b": 3},
		{"a": 1000, "b": -1000, "c": 0},
		{"a": 2.5, "b": 2.4, "c": 2.3, "d": 4.9, "e": 1},
	}
	for _, means := range cases {
		for _, tau := range []float64{0.05, 0.8, 5} {
			probs := Softmax(means, tau)
			var sum float64
			for k, p := range probs {
				if p < 0 || p > 1 {
					t.Errorf("Softmax(%v, %f)[%s] = %f, outside [0,1]", means, tau, k, p)
				}
				sum += p
			}
			if !approx(sum, 1, 1e-9) {
				t.Errorf("Softmax(%v, %f) sums to %f, want 1", means, tau, sum)
			}
		}
	}

	if got := Softmax(nil, 0.8); len(got) != 0 {
		t.Errorf("Softmax(nil) = %v, want empty", got)
	}
}

func TestSoftmaxTemperature(t *testing.T) {
	means := map[string]float64{"a": 4, "b": 3}
	sharp := Softmax(means, 0.2)["a"]
	flat := Softmax(means, 3)["a"]
	if sharp <= flat {
		t.Errorf("lower tau should concentrate probability: p(0.2)=%f p(3)=%f", sharp, flat)
	}
}

func TestRankSlugsTieBreak(t *testing.T) {
	got := RankSlugs(map[string]float64{"b": 0.3, "a": 0.3, "c": 0.4})
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RankSlugs = %v, want %v", got, want)
		}
	}
}

// Scenario A: X answered 5, Y and Z answered 1 across a full stage 1.
func TestScenarioStrongLeaderStopsAfterStage1(t *testing.T) {
	bank := likertBank([]string{"x", "y", "z"}, 2)
	a := newAssessment(bank, 1, 1)
	cfg := DefaultConfig()

	qids, _ := PassQIDs(bank, a, 1, cfg)
	if len(qids) != 6 {
		t.Fatalf("stage 1 size = %d, want 6", len(qids))
	}
	answers := answerAll(bank, qids, func(slug string) int {
		if slug == "x" {
			return 5
		}
		return 1
	})

	stats := ComputePassStats(bank, answers, qids, 1, cfg)
	if stats.Top[0] != "x" {
		t.Errorf("top = %v, want x first", stats.Top)
	}
	if stats.Top1P <= 0.5 {
		t.Errorf("top1p = %f, want > 0.5", stats.Top1P)
	}
	if stats.CoverageRatio != 1 {
		t.Errorf("coverage = %f, want 1", stats.CoverageRatio)
	}
	if stop, reason := ShouldStop(a.Refinement, 1, stats, cfg); !stop {
		t.Errorf("ShouldStop = false (%s), want true", reason)
	}
}

// Scenario B: an inverted Likert item answered 5 counts as 1.
func TestScenarioInvertedLikert(t *testing.T) {
	dims := []models.Dimension{{ID: 1, Slug: "artes", Weight: 1}}
	qs := []models.Question{{ID: 1, DimensionID: 1, Type: models.QuestionLikert, Active: true, Invert: true}}
	bank := NewBank(dims, qs)

	means, counts := ComputeScores(bank, []models.Answer{{QuestionID: 1, Value: 5}}, []int64{1})
	if means["artes"] != 1 || counts["artes"] != 1 {
		t.Errorf("inverted 5 → mean %f count %d, want 1 and 1", means["artes"], counts["artes"])
	}

	results := Finalize(bank, []models.Answer{{QuestionID: 1, Value: 5}})
	if len(results) != 1 || results[0].Score != 1 {
		t.Errorf("Finalize score = %+v, want 1", results)
	}

	// An unanswered (zero) Likert value is not reflected.
	v, ok := EffectiveValue(bank.Question(1), models.Answer{QuestionID: 1, Value: 0})
	if !ok || v != 0 {
		t.Errorf("EffectiveValue(0) = %d, %v, want 0, true", v, ok)
	}
}

func TestComputeScoresSkipsBadAnswers(t *testing.T) {
	bank := likertBank([]string{"a", "b"}, 2)
	qids := []int64{101, 102, 201}
	answers := []models.Answer{
		{QuestionID: 101, Value: 4},
		{QuestionID: 102, Value: 9}, // out of range
		{QuestionID: 201, Value: 2},
		{QuestionID: 202, Value: 5}, // not in this pass
		{QuestionID: 999, Value: 5}, // unknown question
	}

	means, counts := ComputeScores(bank, answers, qids)
	if means["a"] != 4 || counts["a"] != 1 {
		t.Errorf("a: mean %f count %d, want 4 and 1", means["a"], counts["a"])
	}
	if means["b"] != 2 || counts["b"] != 1 {
		t.Errorf("b: mean %f count %d, want 2 and 1", means["b"], counts["b"])
	}

	empty, _ := ComputeScores(bank, answers, nil)
	if len(empty) != 0 {
		t.Errorf("ComputeScores with no qids = %v, want empty", empty)
	}
}

func TestComputePassStatsEmpty(t *testing.T) {
	bank := likertBank([]string{"a", "b"}, 2)
	stats := ComputePassStats(bank, nil, []int64{101, 201}, 1, DefaultConfig())

	if len(stats.Top) != 0 || stats.Gap != 0 || stats.Top1P != 0 || stats.CoverageRatio != 0 {
		t.Errorf("stats with no answers = %+v, want zero values", stats)
	}
}

func TestComputePassStatsCoverage(t *testing.T) {
	bank := likertBank([]string{"a", "b", "c", "d"}, 2)
	qids := []int64{101, 201}
	answers := []models.Answer{{QuestionID: 101, Value: 5}, {QuestionID: 201, Value: 2}}

	stats := ComputePassStats(bank, answers, qids, 1, DefaultConfig())
	if !approx(stats.CoverageRatio, 0.5, eps) {
		t.Errorf("coverage = %f, want 0.5", stats.CoverageRatio)
	}
	if !approx(stats.Gap, stats.Probs["a"]-stats.Probs["b"], 1e-6) {
		t.Errorf("gap = %f, want p(a)-p(b)", stats.Gap)
	}
}

func TestComputePassStatsTopTruncated(t *testing.T) {
	slugs := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	bank := likertBank(slugs, 1)
	qids := bank.QuestionIDs()
	answers := answerAll(bank, qids, func(string) int { return 3 })

	stats := ComputePassStats(bank, answers, qids, 1, DefaultConfig())
	if len(stats.Top) != 10 {
		t.Errorf("len(top) = %d, want 10", len(stats.Top))
	}
	if stats.Gap != 0 {
		t.Errorf("gap with equal means = %f, want 0", stats.Gap)
	}
}
