package vocacional

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/escolanoar/vocacional/internal/models"
)

// memRepo is an in-memory Repository. Assessments are cloned on every read
// and write so callers cannot mutate stored state outside UpdateLocked.
type memRepo struct {
	mu          sync.Mutex
	snap        *models.BankSnapshot
	bankLoads   int
	nextID      int64
	assessments map[int64]*models.Assessment
	answers     map[int64]map[int64]models.Answer
	results     map[int64][]models.Result
	users       map[int64]*models.User
}

func newMemRepo(snap *models.BankSnapshot) *memRepo {
	return &memRepo{
		snap:        snap,
		nextID:      1,
		assessments: make(map[int64]*models.Assessment),
		answers:     make(map[int64]map[int64]models.Answer),
		results:     make(map[int64][]models.Result),
		users:       make(map[int64]*models.User),
	}
}

func clone(a *models.Assessment) *models.Assessment {
	data, err := json.Marshal(a)
	if err != nil {
		panic(err)
	}
	var out models.Assessment
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

func (m *memRepo) LoadBank(ctx context.Context) (*models.BankSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bankLoads++
	return m.snap, nil
}

// StartAssessment holds the mutex across the draft check, the attempt count
// and the insert, like the advisory lock of the SQL store.
func (m *memRepo) StartAssessment(ctx context.Context, userID int64, maxCompleted int, order func(a *models.Assessment) []int64) (*models.Assessment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *models.Assessment
	done := 0
	for _, a := range m.assessments {
		if a.UserID != userID {
			continue
		}
		switch a.Status {
		case models.StatusDraft:
			if latest == nil || a.ID > latest.ID {
				latest = a
			}
		case models.StatusCompleted:
			done++
		}
	}
	if latest != nil {
		return clone(latest), false, nil
	}
	if done >= maxCompleted {
		return nil, false, ErrAttemptLimit
	}

	a := &models.Assessment{
		ID:        m.nextID,
		UserID:    userID,
		Status:    models.StatusDraft,
		StartedAt: time.Now(),
	}
	m.nextID++
	a.QuestionOrder = order(a)
	m.assessments[a.ID] = clone(a)
	return a, true, nil
}

func (m *memRepo) GetAssessment(ctx context.Context, userID, assessmentID int64) (*models.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[assessmentID]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (m *memRepo) UpdateLocked(ctx context.Context, userID, assessmentID int64, fn func(a *models.Assessment) (bool, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.assessments[assessmentID]
	if !ok || stored.UserID != userID {
		return ErrNotFound
	}
	a := clone(stored)
	changed, err := fn(a)
	if err != nil {
		return err
	}
	if changed {
		m.assessments[assessmentID] = clone(a)
	}
	return nil
}

func (m *memRepo) SetStatus(ctx context.Context, assessmentID int64, status models.AssessmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[assessmentID]
	if !ok {
		return ErrNotFound
	}
	if a.Status != models.StatusDraft {
		return ErrNotDraft
	}
	a.Status = status
	return nil
}

func (m *memRepo) UpsertAnswers(ctx context.Context, assessmentID int64, answers []models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byQ, ok := m.answers[assessmentID]
	if !ok {
		byQ = make(map[int64]models.Answer)
		m.answers[assessmentID] = byQ
	}
	for _, a := range answers {
		byQ[a.QuestionID] = a
	}
	return nil
}

func (m *memRepo) ListAnswers(ctx context.Context, assessmentID int64) ([]models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Answer
	for _, a := range m.answers[assessmentID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (m *memRepo) CompleteWithResults(ctx context.Context, assessmentID int64, results []models.Result, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[assessmentID]
	if !ok {
		return ErrNotFound
	}
	if a.Status != models.StatusDraft {
		return ErrNotDraft
	}
	m.results[assessmentID] = append([]models.Result(nil), results...)
	a.Status = models.StatusCompleted
	a.CompletedAt = &completedAt
	return nil
}

func (m *memRepo) ListResults(ctx context.Context, assessmentID int64) ([]models.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Result(nil), m.results[assessmentID]...), nil
}

func (m *memRepo) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *memRepo) status(id int64) models.AssessmentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assessments[id].Status
}

type memCache struct {
	snap *models.BankSnapshot
	sets int
}

func (c *memCache) GetBank(ctx context.Context) (*models.BankSnapshot, error) { return c.snap, nil }

func (c *memCache) SetBank(ctx context.Context, snap *models.BankSnapshot) error {
	c.snap = snap
	c.sets++
	return nil
}

type recordingPublisher struct {
	events []models.FinalizedEvent
}

func (p *recordingPublisher) PublishFinalized(ctx context.Context, evt models.FinalizedEvent) error {
	p.events = append(p.events, evt)
	return nil
}

type stubSummarizer struct {
	firstName string
	top       []models.Result
}

func (s *stubSummarizer) Summarize(ctx context.Context, firstName string, top []models.Result) (string, string, error) {
	s.firstName = firstName
	s.top = top
	return "summary for " + firstName, "stub", nil
}

// testBank returns dimensions x, y and z with perDim Likert questions each.
// Question ids are dim*100+n.
func testBank(perDim int) *models.BankSnapshot {
	snap := &models.BankSnapshot{}
	for i, slug := range []string{"x", "y", "z"} {
		dimID := int64(i + 1)
		snap.Dimensions = append(snap.Dimensions, models.Dimension{ID: dimID, Slug: slug, Name: slug, Weight: 1})
		for n := 1; n <= perDim; n++ {
			snap.Questions = append(snap.Questions, models.Question{
				ID:          dimID*100 + int64(n),
				DimensionID: dimID,
				Text:        slug,
				Position:    n,
				Type:        models.QuestionLikert,
				Active:      true,
			})
		}
	}
	return snap
}
