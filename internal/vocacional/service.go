package vocacional

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/escolanoar/vocacional/internal/engine"
	"github.com/escolanoar/vocacional/internal/models"
)

var (
	ErrNotFound      = errors.New("assessment not found")
	ErrAttemptLimit  = errors.New("completed assessment limit reached")
	ErrNotDraft      = errors.New("assessment is not in progress")
	ErrInvalidStage  = errors.New("stage not available")
	ErrNotCompleted  = errors.New("assessment has no results yet")
	ErrNoValidAnswer = errors.New("no valid answers submitted")
)

// ReasonEmpty marks a pass that had no questions to present.
const ReasonEmpty = "EMPTY"

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	LoadBank(ctx context.Context) (*models.BankSnapshot, error)
	StartAssessment(ctx context.Context, userID int64, maxCompleted int, order func(a *models.Assessment) []int64) (*models.Assessment, bool, error)
	GetAssessment(ctx context.Context, userID, assessmentID int64) (*models.Assessment, error)
	UpdateLocked(ctx context.Context, userID, assessmentID int64, fn func(a *models.Assessment) (bool, error)) error
	SetStatus(ctx context.Context, assessmentID int64, status models.AssessmentStatus) error
	UpsertAnswers(ctx context.Context, assessmentID int64, answers []models.Answer) error
	ListAnswers(ctx context.Context, assessmentID int64) ([]models.Answer, error)
	CompleteWithResults(ctx context.Context, assessmentID int64, results []models.Result, completedAt time.Time) error
	ListResults(ctx context.Context, assessmentID int64) ([]models.Result, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// BankCache holds a snapshot of the active question bank between requests.
// A miss returns nil, nil.
type BankCache interface {
	GetBank(ctx context.Context) (*models.BankSnapshot, error)
	SetBank(ctx context.Context, snap *models.BankSnapshot) error
}

// EventPublisher announces finalized assessments.
type EventPublisher interface {
	PublishFinalized(ctx context.Context, evt models.FinalizedEvent) error
}

// Summarizer writes the human-readable result summary.
type Summarizer interface {
	Summarize(ctx context.Context, firstName string, top []models.Result) (text, source string, err error)
}

type Service struct {
	repo         Repository
	cfg          engine.Config
	maxCompleted int
	similarDelta float64
	now          func() time.Time

	cache      BankCache
	events     EventPublisher
	summarizer Summarizer
}

func NewService(repo Repository, cfg engine.Config, maxCompleted int, similarDelta float64) *Service {
	cfg = cfg.Normalize()
	if maxCompleted < 1 {
		maxCompleted = 2
	}
	log.Printf("[vocacional] per_dim=%d/%d topk=%d tau=%.2f stop_p1=%.2f/%.2f stop_p2=%.2f/%.2f max_completed=%d",
		cfg.Pass1PerDim, cfg.Pass2PerDim, cfg.Pass2TopK, cfg.SoftmaxTau,
		cfg.GapStopP1, cfg.Top1MinP1, cfg.GapStopP2, cfg.Top1MinP2, maxCompleted)

	return &Service{
		repo:         repo,
		cfg:          cfg,
		maxCompleted: maxCompleted,
		similarDelta: similarDelta,
		now:          time.Now,
	}
}

// SetBankCache injects the question bank cache.
func (s *Service) SetBankCache(c BankCache) { s.cache = c }

// SetPublisher injects the finalized-event publisher.
func (s *Service) SetPublisher(p EventPublisher) { s.events = p }

// SetSummarizer injects the summary writer.
func (s *Service) SetSummarizer(w Summarizer) { s.summarizer = w }

func (s *Service) bank(ctx context.Context) (*engine.Bank, error) {
	if s.cache != nil {
		snap, err := s.cache.GetBank(ctx)
		if err != nil {
			log.Printf("WARN: [vocacional] bank cache read failed: %v", err)
		} else if snap != nil {
			return engine.NewBank(snap.Dimensions, snap.Questions), nil
		}
	}

	snap, err := s.repo.LoadBank(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetBank(ctx, snap); err != nil {
			log.Printf("WARN: [vocacional] bank cache write failed: %v", err)
		}
	}
	return engine.NewBank(snap.Dimensions, snap.Questions), nil
}

func (s *Service) draft(ctx context.Context, userID, assessmentID int64) (*models.Assessment, error) {
	a, err := s.repo.GetAssessment(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusDraft {
		return nil, ErrNotDraft
	}
	return a, nil
}

// ── Lifecycle ──────────────────────────────────────────

// Start resumes the user's latest draft or creates a new one.
func (s *Service) Start(ctx context.Context, userID int64) (*models.Assessment, bool, error) {
	bank, err := s.bank(ctx)
	if err != nil {
		return nil, false, err
	}

	a, created, err := s.repo.StartAssessment(ctx, userID, s.maxCompleted, func(a *models.Assessment) []int64 {
		return engine.InitialOrder(bank, a.ID, a.UserID)
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Printf("[vocacional] user %d started assessment %d (%d questions)", userID, a.ID, len(a.QuestionOrder))
	}
	return a, created, nil
}

func (s *Service) Cancel(ctx context.Context, userID, assessmentID int64) error {
	if _, err := s.draft(ctx, userID, assessmentID); err != nil {
		return err
	}
	return s.repo.SetStatus(ctx, assessmentID, models.StatusCancelled)
}

// ── Passes ─────────────────────────────────────────────

// NextPass returns the questions of stage 1 or 2, selecting and persisting
// them on first request.
func (s *Service) NextPass(ctx context.Context, userID, assessmentID int64, stage int) (*models.PassResponse, error) {
	if stage != 1 && stage != 2 {
		return nil, ErrInvalidStage
	}
	bank, err := s.bank(ctx)
	if err != nil {
		return nil, err
	}

	var qids []int64
	err = s.repo.UpdateLocked(ctx, userID, assessmentID, func(a *models.Assessment) (bool, error) {
		if a.Status != models.StatusDraft {
			return false, ErrNotDraft
		}
		if stage == 2 {
			prev := a.Refinement.Pass(1)
			if prev == nil || prev.Stopped {
				return false, ErrInvalidStage
			}
		}
		var created bool
		qids, created = engine.PassQIDs(bank, a, stage, s.cfg)
		if created {
			log.Printf("[vocacional] assessment %d stage %d: selected %d questions", a.ID, stage, len(qids))
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}

	answers, err := s.repo.ListAnswers(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	byQ := make(map[int64]models.Answer, len(answers))
	for _, a := range answers {
		byQ[a.QuestionID] = a
	}

	resp := &models.PassResponse{AssessmentID: assessmentID, Stage: stage, Questions: []models.PassQuestion{}}
	for _, id := range qids {
		q := bank.Question(id)
		if q == nil {
			continue
		}
		pq := models.PassQuestion{
			ID:            q.ID,
			Text:          q.Text,
			Type:          q.Type,
			DimensionSlug: bank.DimensionOf(q).Slug,
			Options:       q.Options,
		}
		if ans, ok := byQ[id]; ok {
			if q.Type == models.QuestionLikert {
				v := ans.Value
				pq.Answer = &v
			} else {
				pq.OptionID = ans.OptionID
			}
		}
		resp.Questions = append(resp.Questions, pq)
	}
	return resp, nil
}

// SubmitAnswers validates and records answers. Unknown or inactive
// questions, out-of-range Likert values and foreign options are skipped.
func (s *Service) SubmitAnswers(ctx context.Context, userID, assessmentID int64, inputs []models.AnswerInput) (*models.SubmitAnswersResponse, error) {
	if _, err := s.draft(ctx, userID, assessmentID); err != nil {
		return nil, err
	}
	bank, err := s.bank(ctx)
	if err != nil {
		return nil, err
	}

	resp := &models.SubmitAnswersResponse{}
	var valid []models.Answer
	for _, in := range inputs {
		ans, ok := toAnswer(bank, assessmentID, in)
		if !ok {
			resp.Skipped++
			continue
		}
		valid = append(valid, ans)
	}
	if len(valid) == 0 {
		return resp, ErrNoValidAnswer
	}

	if err := s.repo.UpsertAnswers(ctx, assessmentID, valid); err != nil {
		return nil, err
	}
	resp.Saved = len(valid)
	return resp, nil
}

func toAnswer(bank *engine.Bank, assessmentID int64, in models.AnswerInput) (models.Answer, bool) {
	q := bank.Question(in.QuestionID)
	if q == nil {
		return models.Answer{}, false
	}
	ans := models.Answer{AssessmentID: assessmentID, QuestionID: q.ID}
	switch q.Type {
	case models.QuestionLikert:
		if in.Value == nil || *in.Value < models.LikertMin || *in.Value > models.LikertMax {
			return models.Answer{}, false
		}
		ans.Value = *in.Value
	case models.QuestionSingle:
		if in.OptionID == nil {
			return models.Answer{}, false
		}
		opt := q.Option(*in.OptionID)
		if opt == nil {
			return models.Answer{}, false
		}
		ans.Value = opt.Value
		id := opt.ID
		ans.OptionID = &id
	default:
		return models.Answer{}, false
	}
	return ans, true
}

// CompletePass aggregates the answers of stage 1 or 2, records the stats and
// applies the stopping rule. A stop finalizes the assessment.
func (s *Service) CompletePass(ctx context.Context, userID, assessmentID int64, stage int) (*models.CompletePassResponse, error) {
	if stage != 1 && stage != 2 {
		return nil, ErrInvalidStage
	}
	bank, err := s.bank(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.ListAnswers(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	var stats models.PassStats
	err = s.repo.UpdateLocked(ctx, userID, assessmentID, func(a *models.Assessment) (bool, error) {
		if a.Status != models.StatusDraft {
			return false, ErrNotDraft
		}
		if prev := a.Refinement.Pass(stage); prev != nil {
			stats = *prev
			return false, nil
		}
		qids, ok := a.Refinement.PassQIDs[stage]
		if !ok {
			return false, ErrInvalidStage
		}

		stats = engine.ComputePassStats(bank, answers, qids, stage, s.cfg)
		if len(qids) == 0 {
			stats.Stopped, stats.Reason = true, ReasonEmpty
		} else {
			stats.Stopped, stats.Reason = engine.ShouldStop(a.Refinement, stage, stats, s.cfg)
		}
		a.Refinement.SetPass(stats)
		log.Printf("[vocacional] assessment %d stage %d: gap=%.3f top1p=%.3f coverage=%.2f -> %s",
			a.ID, stage, stats.Gap, stats.Top1P, stats.CoverageRatio, stats.Reason)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	resp := &models.CompletePassResponse{
		Stage:  stage,
		Stats:  &stats,
		Stop:   stats.Stopped,
		Reason: stats.Reason,
	}
	if !stats.Stopped {
		resp.NextStage = stage + 1
		return resp, nil
	}

	final, err := s.Finalize(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	resp.Results = final.Results
	resp.Ranking = &final.Ranking
	return resp, nil
}

// SubmitContext runs stage 3: the stage-2 means are nudged by the chosen
// situational and context options, the adjusted ranking is stored and the
// assessment is finalized.
func (s *Service) SubmitContext(ctx context.Context, userID, assessmentID int64, req models.ContextAnswersRequest) (*models.CompletePassResponse, error) {
	var ctxPass models.ContextPass
	err := s.repo.UpdateLocked(ctx, userID, assessmentID, func(a *models.Assessment) (bool, error) {
		if a.Status != models.StatusDraft {
			return false, ErrNotDraft
		}
		prev := a.Refinement.Pass(2)
		if prev == nil || prev.Stopped {
			return false, ErrInvalidStage
		}

		means := engine.ApplyPass3Adjustments(prev.Means, req.SJT, req.Context, s.cfg)
		probs := engine.ProbsFromMeans(means, s.cfg)
		top := engine.RankSlugs(probs)
		if len(top) > 10 {
			top = top[:10]
		}
		ctxPass = models.ContextPass{
			SJTAnswers:     req.SJT,
			ContextAnswers: req.Context,
			Means:          means,
			Probs:          probs,
			Top:            top,
		}
		a.Refinement.Stage3 = &ctxPass
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	final, err := s.Finalize(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	return &models.CompletePassResponse{
		Stage:   3,
		Stop:    true,
		Reason:  "STOP_P3",
		Results: final.Results,
		Ranking: &final.Ranking,
	}, nil
}

// ── Results ────────────────────────────────────────────

// Finalize computes the weighted-sum results over every recorded answer,
// stores them and completes the assessment.
func (s *Service) Finalize(ctx context.Context, userID, assessmentID int64) (*models.FinalizeResponse, error) {
	a, err := s.draft(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	bank, err := s.bank(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.ListAnswers(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	results := engine.Finalize(bank, answers)
	for i := range results {
		results[i].AssessmentID = assessmentID
	}
	if results == nil {
		results = []models.Result{}
	}

	completedAt := s.now()
	if err := s.repo.CompleteWithResults(ctx, assessmentID, results, completedAt); err != nil {
		return nil, err
	}
	log.Printf("[vocacional] assessment %d finalized with %d results", assessmentID, len(results))

	if s.events != nil {
		evt := models.FinalizedEvent{
			AssessmentID: assessmentID,
			UserID:       a.UserID,
			CompletedAt:  completedAt,
			Reason:       finalReason(a.Refinement),
			Results:      results,
		}
		if err := s.events.PublishFinalized(ctx, evt); err != nil {
			log.Printf("WARN: [vocacional] publish finalized %d: %v", assessmentID, err)
		}
	}

	return &models.FinalizeResponse{
		AssessmentID: assessmentID,
		Results:      results,
		Ranking:      engine.Rank(results, s.similarDelta),
	}, nil
}

func finalReason(st models.RefinementState) string {
	switch {
	case st.Stage3 != nil:
		return "STOP_P3"
	case st.Stage2 != nil && st.Stage2.Stopped:
		return st.Stage2.Reason
	case st.Stage1 != nil && st.Stage1.Stopped:
		return st.Stage1.Reason
	}
	return "MANUAL"
}

// Results returns the stored results of a completed assessment.
func (s *Service) Results(ctx context.Context, userID, assessmentID int64) (*models.FinalizeResponse, error) {
	a, err := s.repo.GetAssessment(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusCompleted {
		return nil, ErrNotCompleted
	}
	results, err := s.repo.ListResults(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.Result{}
	}
	return &models.FinalizeResponse{
		AssessmentID: assessmentID,
		Results:      results,
		Ranking:      engine.Rank(results, s.similarDelta),
	}, nil
}

// Progress reports how far the user is through the assessment.
func (s *Service) Progress(ctx context.Context, userID, assessmentID int64) (*models.ProgressResponse, error) {
	a, err := s.repo.GetAssessment(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.ListAnswers(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	resp := &models.ProgressResponse{
		AssessmentID: a.ID,
		Status:       a.Status,
		Answered:     len(answers),
		Total:        len(a.QuestionOrder),
		PassesDone:   []int{},
	}
	if resp.Total > 0 {
		resp.Percent = min(100, resp.Answered*100/resp.Total)
	}
	if a.Refinement.Stage1 != nil {
		resp.PassesDone = append(resp.PassesDone, 1)
	}
	if a.Refinement.Stage2 != nil {
		resp.PassesDone = append(resp.PassesDone, 2)
	}
	if a.Refinement.Stage3 != nil {
		resp.PassesDone = append(resp.PassesDone, 3)
	}
	if a.Status == models.StatusDraft {
		resp.NextStage = nextStage(a.Refinement)
	}
	return resp, nil
}

func nextStage(st models.RefinementState) int {
	switch {
	case st.Stage1 == nil:
		return 1
	case st.Stage1.Stopped:
		return 0
	case st.Stage2 == nil:
		return 2
	case st.Stage2.Stopped:
		return 0
	case st.Stage3 == nil:
		return 3
	}
	return 0
}

// Summary renders the top-3 result text for a completed assessment.
func (s *Service) Summary(ctx context.Context, userID, assessmentID int64) (*models.SummaryResponse, error) {
	res, err := s.Results(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if s.summarizer == nil {
		return nil, fmt.Errorf("summary writer not configured")
	}

	var firstName string
	if u, err := s.repo.GetUser(ctx, userID); err == nil {
		firstName = u.FirstName()
	} else {
		log.Printf("WARN: [vocacional] summary user lookup %d: %v", userID, err)
	}

	text, source, err := s.summarizer.Summarize(ctx, firstName, res.Ranking.Top3)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return &models.SummaryResponse{AssessmentID: assessmentID, Text: text, Source: source}, nil
}
