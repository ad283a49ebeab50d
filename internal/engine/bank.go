package engine

import (
	"sort"

	"github.com/escolanoar/vocacional/internal/models"
)

// Bank is a read-only view of the active question bank. Dimensions are kept in
// ascending id order; questions follow their dimension, then ordinal, then id.
type Bank struct {
	dims      []models.Dimension
	dimByID   map[int64]*models.Dimension
	dimBySlug map[string]*models.Dimension
	questions []models.Question
	byID      map[int64]*models.Question
}

// NewBank builds a bank from raw rows. Inactive questions and questions whose
// dimension is unknown are dropped. Only dimensions with at least one active
// question are kept.
func NewBank(dims []models.Dimension, questions []models.Question) *Bank {
	known := make(map[int64]models.Dimension, len(dims))
	for _, d := range dims {
		if d.Weight <= 0 {
			d.Weight = 1
		}
		known[d.ID] = d
	}

	b := &Bank{
		dimByID:   make(map[int64]*models.Dimension),
		dimBySlug: make(map[string]*models.Dimension),
		byID:      make(map[int64]*models.Question),
	}

	used := make(map[int64]bool)
	for _, q := range questions {
		if !q.Active {
			continue
		}
		if _, ok := known[q.DimensionID]; !ok {
			continue
		}
		opts := append([]models.Option(nil), q.Options...)
		sort.SliceStable(opts, func(i, j int) bool {
			if opts[i].Position != opts[j].Position {
				return opts[i].Position < opts[j].Position
			}
			return opts[i].ID < opts[j].ID
		})
		q.Options = opts
		b.questions = append(b.questions, q)
		used[q.DimensionID] = true
	}

	for id := range used {
		b.dims = append(b.dims, known[id])
	}
	sort.Slice(b.dims, func(i, j int) bool { return b.dims[i].ID < b.dims[j].ID })

	rank := make(map[int64]int, len(b.dims))
	for i := range b.dims {
		d := &b.dims[i]
		rank[d.ID] = i
		b.dimByID[d.ID] = d
		b.dimBySlug[d.Slug] = d
	}

	sort.SliceStable(b.questions, func(i, j int) bool {
		qi, qj := b.questions[i], b.questions[j]
		if qi.DimensionID != qj.DimensionID {
			return rank[qi.DimensionID] < rank[qj.DimensionID]
		}
		if qi.Position != qj.Position {
			return qi.Position < qj.Position
		}
		return qi.ID < qj.ID
	})
	for i := range b.questions {
		b.byID[b.questions[i].ID] = &b.questions[i]
	}

	return b
}

// Len returns the number of active questions.
func (b *Bank) Len() int { return len(b.questions) }

func (b *Bank) Questions() []models.Question { return b.questions }

func (b *Bank) Dimensions() []models.Dimension { return b.dims }

// Question returns the active question with the given id, or nil.
func (b *Bank) Question(id int64) *models.Question { return b.byID[id] }

// Dimension returns the dimension with the given id, or nil.
func (b *Bank) Dimension(id int64) *models.Dimension { return b.dimByID[id] }

// DimensionBySlug returns the dimension with the given slug, or nil.
func (b *Bank) DimensionBySlug(slug string) *models.Dimension { return b.dimBySlug[slug] }

// DimensionOf returns the dimension a question belongs to, or nil.
func (b *Bank) DimensionOf(q *models.Question) *models.Dimension {
	if q == nil {
		return nil
	}
	return b.dimByID[q.DimensionID]
}

// QuestionIDs returns every active question id in canonical order.
func (b *Bank) QuestionIDs() []int64 {
	ids := make([]int64, len(b.questions))
	for i, q := range b.questions {
		ids[i] = q.ID
	}
	return ids
}

// MaxScore is the highest weighted score a single question can contribute:
// 5 x weight for Likert items, the best option value x weight otherwise.
func (b *Bank) MaxScore(q *models.Question) int {
	d := b.DimensionOf(q)
	if d == nil {
		return 0
	}
	if q.Type == models.QuestionLikert {
		return models.LikertMax * d.Weight
	}
	return q.MaxOptionValue() * d.Weight
}
