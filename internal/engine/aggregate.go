package engine

import (
	"math"
	"sort"

	"github.com/escolanoar/vocacional/internal/models"
)

// maxTop bounds the ranked dimension list kept in pass statistics.
const maxTop = 10

// EffectiveValue resolves an answer into the value that counts towards its
// dimension. ok is false when the answer cannot be scored.
func EffectiveValue(q *models.Question, ans models.Answer) (int, bool) {
	if q == nil {
		return 0, false
	}
	switch q.Type {
	case models.QuestionLikert:
		v := ans.Value
		if v < 0 || v > models.LikertMax {
			return 0, false
		}
		if q.Invert && v != 0 {
			v = models.LikertMax + 1 - v
		}
		return v, true
	case models.QuestionSingle:
		if ans.OptionID != nil {
			if o := q.Option(*ans.OptionID); o != nil {
				return o.Value, true
			}
		}
		// The option row may be gone while the answer keeps the points it
		// was recorded with.
		v := ans.Value
		if v < 0 {
			v = 0
		}
		if m := q.MaxOptionValue(); v > m {
			v = m
		}
		return v, true
	}
	return 0, false
}

// ComputeScores averages the effective values of the answers whose question
// is in qids, per dimension slug. Answers for questions outside the bank are
// skipped.
func ComputeScores(bank *Bank, answers []models.Answer, qids []int64) (map[string]float64, map[string]int) {
	means := make(map[string]float64)
	counts := make(map[string]int)
	if len(qids) == 0 {
		return means, counts
	}

	want := make(map[int64]bool, len(qids))
	for _, id := range qids {
		want[id] = true
	}

	sums := make(map[string]float64)
	for _, ans := range answers {
		if !want[ans.QuestionID] {
			continue
		}
		q := bank.Question(ans.QuestionID)
		d := bank.DimensionOf(q)
		if d == nil {
			continue
		}
		v, ok := EffectiveValue(q, ans)
		if !ok {
			continue
		}
		sums[d.Slug] += float64(v)
		counts[d.Slug]++
	}

	for slug, sum := range sums {
		means[slug] = sum / float64(counts[slug])
	}
	return means, counts
}

// Softmax turns means into a probability distribution. The maximum is
// subtracted before exponentiation; tau is clamped to [0.05, 5].
func Softmax(means map[string]float64, tau float64) map[string]float64 {
	probs := make(map[string]float64, len(means))
	if len(means) == 0 {
		return probs
	}
	tau = ClampTau(tau)

	best := math.Inf(-1)
	for _, v := range means {
		if v > best {
			best = v
		}
	}

	var total float64
	for k, v := range means {
		e := math.Exp((v - best) / tau)
		probs[k] = e
		total += e
	}
	if total == 0 {
		total = 1
	}
	for k := range probs {
		probs[k] /= total
	}
	return probs
}

// RankSlugs orders slugs by probability, highest first. Ties go to the
// lexically smaller slug.
func RankSlugs(probs map[string]float64) []string {
	slugs := make([]string, 0, len(probs))
	for k := range probs {
		slugs = append(slugs, k)
	}
	sort.Slice(slugs, func(i, j int) bool {
		pi, pj := probs[slugs[i]], probs[slugs[j]]
		if pi != pj {
			return pi > pj
		}
		return slugs[i] < slugs[j]
	})
	return slugs
}

// ComputePassStats aggregates the answers of one pass into the statistics the
// stopping rule consumes.
func ComputePassStats(bank *Bank, answers []models.Answer, qids []int64, stage int, cfg Config) models.PassStats {
	cfg = cfg.Normalize()

	means, counts := ComputeScores(bank, answers, qids)
	probs := Softmax(means, cfg.SoftmaxTau)
	ordered := RankSlugs(probs)

	var gap, top1p float64
	if len(ordered) >= 1 {
		top1p = probs[ordered[0]]
	}
	if len(ordered) >= 2 {
		gap = probs[ordered[0]] - probs[ordered[1]]
	}

	covered := 0
	for _, c := range counts {
		if c > 0 {
			covered++
		}
	}
	var coverage float64
	if n := len(bank.Dimensions()); n > 0 {
		coverage = float64(covered) / float64(n)
	}

	top := ordered
	if len(top) > maxTop {
		top = top[:maxTop]
	}

	roundedMeans := make(map[string]float64, len(means))
	for k, v := range means {
		roundedMeans[k] = round(v, 4)
	}
	roundedProbs := make(map[string]float64, len(probs))
	for k, v := range probs {
		roundedProbs[k] = round(v, 6)
	}

	return models.PassStats{
		Stage:         stage,
		QIDs:          append([]int64{}, qids...),
		Means:         roundedMeans,
		Counts:        counts,
		Probs:         roundedProbs,
		Top:           top,
		Gap:           round(gap, 6),
		Top1P:         round(top1p, 6),
		CoverageRatio: round(coverage, 6),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
