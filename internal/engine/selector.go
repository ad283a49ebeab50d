package engine

import (
	"sort"

	"github.com/escolanoar/vocacional/internal/models"
)

// PassQIDs returns the question ids presented in the given stage (1 or 2).
// When the assessment already holds a list for the stage it is returned
// unchanged and the second result is false. Otherwise a fresh selection is
// made, recorded in a.Refinement.PassQIDs and the second result is true so the
// caller knows to persist the assessment.
func PassQIDs(bank *Bank, a *models.Assessment, stage int, cfg Config) ([]int64, bool) {
	if ids, ok := a.Refinement.PassQIDs[stage]; ok {
		return append([]int64(nil), ids...), false
	}

	cfg = cfg.Normalize()
	used := a.Refinement.UsedIDs(stage)

	var ids []int64
	if stage == 1 {
		ids = SelectBalanced(bank, a, used, cfg.Pass1PerDim)
	} else {
		var top []string
		if prev := a.Refinement.Pass(1); prev != nil {
			top = prev.Top
		}
		ids = SelectFocused(bank, a, used, top, cfg.Pass2TopK, cfg.Pass2PerDim)
	}
	if ids == nil {
		ids = []int64{}
	}

	if a.Refinement.PassQIDs == nil {
		a.Refinement.PassQIDs = make(map[int][]int64)
	}
	a.Refinement.PassQIDs[stage] = ids
	return append([]int64(nil), ids...), true
}

// SelectBalanced picks up to perDim unused questions from every dimension of
// the bank and shuffles the concatenation with the assessment's pass seed.
func SelectBalanced(bank *Bank, a *models.Assessment, used map[int64]bool, perDim int) []int64 {
	perDim = clampInt(perDim, 1, 10)

	dimIDs := make([]int64, 0, len(bank.Dimensions()))
	for _, d := range bank.Dimensions() {
		dimIDs = append(dimIDs, d.ID)
	}
	return pick(bank, a, used, dimIDs, perDim)
}

// SelectFocused picks up to perDim unused questions from each of the first
// topK dimensions named in top. Slugs unknown to the bank are ignored; when
// none remain the first topK dimensions in canonical order are used instead.
func SelectFocused(bank *Bank, a *models.Assessment, used map[int64]bool, top []string, topK, perDim int) []int64 {
	perDim = clampInt(perDim, 1, 20)
	topK = clampInt(topK, 1, 20)

	if len(top) > topK {
		top = top[:topK]
	}
	var dimIDs []int64
	seen := make(map[int64]bool)
	for _, slug := range top {
		if d := bank.DimensionBySlug(slug); d != nil && !seen[d.ID] {
			seen[d.ID] = true
			dimIDs = append(dimIDs, d.ID)
		}
	}

	if len(dimIDs) == 0 {
		for _, d := range bank.Dimensions() {
			if len(dimIDs) == topK {
				break
			}
			dimIDs = append(dimIDs, d.ID)
		}
	}
	return pick(bank, a, used, dimIDs, perDim)
}

// pick walks dimIDs in order, takes up to perDim unused candidates from each
// (sorted by their slot in the assessment's question order) and applies the
// pass shuffle.
func pick(bank *Bank, a *models.Assessment, used map[int64]bool, dimIDs []int64, perDim int) []int64 {
	pos := make(map[int64]int, len(a.QuestionOrder))
	for i, id := range a.QuestionOrder {
		pos[id] = i
	}
	slot := func(id int64) int {
		if p, ok := pos[id]; ok {
			return p
		}
		return len(a.QuestionOrder) + 1_000_000_000
	}

	byDim := make(map[int64][]int64)
	for _, q := range bank.Questions() {
		if used[q.ID] {
			continue
		}
		byDim[q.DimensionID] = append(byDim[q.DimensionID], q.ID)
	}

	ids := []int64{}
	for _, dimID := range dimIDs {
		cand := byDim[dimID]
		sort.SliceStable(cand, func(i, j int) bool { return slot(cand[i]) < slot(cand[j]) })
		if len(cand) > perDim {
			cand = cand[:perDim]
		}
		ids = append(ids, cand...)
	}

	NewShuffler(PassSeed(a.ID, a.UserID)).ShuffleIDs(ids)
	return ids
}
