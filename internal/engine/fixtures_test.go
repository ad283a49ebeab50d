package engine

import (
	"math"

	"github.com/escolanoar/vocacional/internal/models"
)

const eps = 1e-9

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// likertBank builds a bank with the given dimension slugs, perDim Likert
// questions each. Dimension ids start at 1; question ids are dim*100+n.
func likertBank(slugs []string, perDim int) *Bank {
	var dims []models.Dimension
	var qs []models.Question
	for i, slug := range slugs {
		dimID := int64(i + 1)
		dims = append(dims, models.Dimension{ID: dimID, Slug: slug, Name: slug, Weight: 1})
		for n := 1; n <= perDim; n++ {
			qs = append(qs, models.Question{
				ID:          dimID*100 + int64(n),
				DimensionID: dimID,
				Text:        slug,
				Position:    n,
				Type:        models.QuestionLikert,
				Active:      true,
			})
		}
	}
	return NewBank(dims, qs)
}

func newAssessment(bank *Bank, id, userID int64) *models.Assessment {
	return &models.Assessment{
		ID:            id,
		UserID:        userID,
		Status:        models.StatusDraft,
		QuestionOrder: InitialOrder(bank, id, userID),
	}
}

// answerAll answers every id in qids with the value chosen by valueFor.
func answerAll(bank *Bank, qids []int64, valueFor func(slug string) int) []models.Answer {
	var out []models.Answer
	for _, id := range qids {
		q := bank.Question(id)
		d := bank.DimensionOf(q)
		out = append(out, models.Answer{QuestionID: id, Value: valueFor(d.Slug)})
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }
