package engine

import "math/rand"

// Shuffler wraps a seeded source so the same seed always yields the same
// permutation. Never share one across goroutines.
type Shuffler struct {
	rnd *rand.Rand
}

func NewShuffler(seed int64) *Shuffler {
	return &Shuffler{rnd: rand.New(rand.NewSource(seed))}
}

// ShuffleIDs permutes ids in place.
func (s *Shuffler) ShuffleIDs(ids []int64) {
	s.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// OrderSeed seeds the one-time question order of an assessment.
func OrderSeed(assessmentID, userID int64) int64 {
	return assessmentID + userID
}

// PassSeed seeds the per-pass shuffle of selected questions.
func PassSeed(assessmentID, userID int64) int64 {
	return assessmentID*1000003 + userID
}

// InitialOrder returns every active question id shuffled with the
// assessment's order seed. It is computed once, when the assessment is created.
func InitialOrder(bank *Bank, assessmentID, userID int64) []int64 {
	ids := bank.QuestionIDs()
	NewShuffler(OrderSeed(assessmentID, userID)).ShuffleIDs(ids)
	return ids
}
