package engine

import (
	"math"
	"sort"

	"github.com/escolanoar/vocacional/internal/models"
)

const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"

	// DefaultSimilarDelta is the largest percentage difference between
	// neighbouring results that still groups them as similar.
	DefaultSimilarDelta = 3.0
)

type levelBucket struct {
	min   float64
	label string
}

var levelBuckets = []levelBucket{
	{0, LevelLow},
	{40, LevelMedium},
	{70, LevelHigh},
}

// Classify maps a percentage to its level: the last bucket whose lower bound
// the percentage reaches.
func Classify(pct float64) string {
	level := levelBuckets[0].label
	for _, b := range levelBuckets {
		if pct < b.min {
			break
		}
		level = b.label
	}
	return level
}

// Finalize computes one Result per answered dimension using the weighted-sum
// model: the sum of effective value x weight, as a percentage of the
// dimension's theoretical maximum over all its active questions.
func Finalize(bank *Bank, answers []models.Answer) []models.Result {
	sums := make(map[int64]int)
	answered := make(map[int64]bool)
	for _, ans := range answers {
		q := bank.Question(ans.QuestionID)
		d := bank.DimensionOf(q)
		if d == nil {
			continue
		}
		v, ok := EffectiveValue(q, ans)
		if !ok {
			continue
		}
		sums[d.ID] += v * d.Weight
		answered[d.ID] = true
	}

	maxima := make(map[int64]int)
	for i := range bank.Questions() {
		q := &bank.Questions()[i]
		maxima[q.DimensionID] += bank.MaxScore(q)
	}

	var results []models.Result
	for _, d := range bank.Dimensions() {
		if !answered[d.ID] {
			continue
		}
		score := sums[d.ID]
		var pct float64
		if m := maxima[d.ID]; m > 0 {
			pct = float64(score) * 100 / float64(m)
		}
		pct = math.Max(0, math.Min(100, round(pct, 2)))

		results = append(results, models.Result{
			DimensionID:   d.ID,
			DimensionSlug: d.Slug,
			DimensionName: d.Name,
			Score:         score,
			Percentage:    pct,
			Level:         Classify(pct),
		})
	}
	return results
}

// Rank orders results by percentage (highest first) and derives the top and
// bottom three plus groups of neighbours whose percentages differ by at most
// delta. A non-positive delta selects DefaultSimilarDelta.
func Rank(results []models.Result, delta float64) models.Ranking {
	if delta <= 0 {
		delta = DefaultSimilarDelta
	}

	ranking := append([]models.Result{}, results...)
	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].Percentage != ranking[j].Percentage {
			return ranking[i].Percentage > ranking[j].Percentage
		}
		return ranking[i].DimensionID < ranking[j].DimensionID
	})

	top3 := append([]models.Result{}, ranking[:min(3, len(ranking))]...)

	bottom3 := []models.Result{}
	for i := len(ranking) - 1; i >= 0 && len(bottom3) < 3; i-- {
		bottom3 = append(bottom3, ranking[i])
	}

	groups := [][]models.Result{}
	var bucket []models.Result
	for i, r := range ranking {
		if i > 0 && math.Abs(r.Percentage-ranking[i-1].Percentage) > delta {
			if len(bucket) >= 2 {
				groups = append(groups, bucket)
			}
			bucket = nil
		}
		bucket = append(bucket, r)
	}
	if len(bucket) >= 2 {
		groups = append(groups, bucket)
	}

	return models.Ranking{
		Ranking:       ranking,
		Top3:          top3,
		Bottom3:       bottom3,
		SimilarGroups: groups,
		Delta:         delta,
	}
}
