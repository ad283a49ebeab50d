package models

import "time"

type QuestionType string

const (
	QuestionLikert QuestionType = "likert"
	QuestionSingle QuestionType = "single"
)

var ValidQuestionTypes = map[QuestionType]bool{
	QuestionLikert: true,
	QuestionSingle: true,
}

type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "draft"
	StatusCompleted AssessmentStatus = "completed"
	StatusCancelled AssessmentStatus = "cancelled"
)

// Likert answers are recorded on a 1..5 scale.
const (
	LikertMin = 1
	LikertMax = 5
)

// ── Question Bank ──────────────────────────────────────

type Dimension struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Weight      int    `json:"weight"`
}

type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Label      string `json:"label"`
	Value      int    `json:"value"`
	Position   int    `json:"position"`
}

type Question struct {
	ID          int64        `json:"id"`
	DimensionID int64        `json:"dimension_id"`
	Code        *string      `json:"code,omitempty"`
	Text        string       `json:"text"`
	Position    int          `json:"position"`
	Type        QuestionType `json:"type"`
	Active      bool         `json:"active"`
	Invert      bool         `json:"invert"`
	Options     []Option     `json:"options,omitempty"`
}

// MaxOptionValue returns the highest point value among the question's options,
// or 0 when it has none.
func (q Question) MaxOptionValue() int {
	best := 0
	for i, o := range q.Options {
		if i == 0 || o.Value > best {
			best = o.Value
		}
	}
	return best
}

// Option returns the option with the given id, or nil.
func (q Question) Option(id int64) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// ── Assessment ─────────────────────────────────────────

type Assessment struct {
	ID            int64            `json:"id"`
	UserID        int64            `json:"user_id"`
	Status        AssessmentStatus `json:"status"`
	StartedAt     time.Time        `json:"started_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	QuestionOrder []int64          `json:"question_order"`
	Refinement    RefinementState  `json:"refinement"`
}

type Answer struct {
	AssessmentID int64     `json:"assessment_id"`
	QuestionID   int64     `json:"question_id"`
	Value        int       `json:"value"`
	OptionID     *int64    `json:"option_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Result struct {
	AssessmentID  int64   `json:"assessment_id"`
	DimensionID   int64   `json:"dimension_id"`
	DimensionSlug string  `json:"dimension_slug"`
	DimensionName string  `json:"dimension_name"`
	Score         int     `json:"score"`
	Percentage    float64 `json:"percentage"`
	Level         string  `json:"level"`
}

// ── Refinement State ───────────────────────────────────

// PassStats is the aggregated outcome of one completed pass.
type PassStats struct {
	Stage         int                `json:"stage"`
	QIDs          []int64            `json:"qids"`
	Means         map[string]float64 `json:"means"`
	Counts        map[string]int     `json:"counts"`
	Probs         map[string]float64 `json:"probs"`
	Top           []string           `json:"top"`
	Gap           float64            `json:"gap"`
	Top1P         float64            `json:"top1p"`
	CoverageRatio float64            `json:"coverage_ratio"`
	Stopped       bool               `json:"stopped"`
	Reason        string             `json:"reason,omitempty"`
}

// ContextPass records the situational/contextual answers of pass 3 and the
// ranking derived from the adjusted means.
type ContextPass struct {
	SJTAnswers     map[string]string  `json:"sjt_answers"`
	ContextAnswers map[string]string  `json:"context_answers"`
	Means          map[string]float64 `json:"means"`
	Probs          map[string]float64 `json:"probs"`
	Top            []string           `json:"top"`
}

// RefinementState is persisted with the assessment so the multi-pass flow can
// resume between requests.
type RefinementState struct {
	PassQIDs map[int][]int64 `json:"pass_qids"`
	Stage1   *PassStats      `json:"stage1,omitempty"`
	Stage2   *PassStats      `json:"stage2,omitempty"`
	Stage3   *ContextPass    `json:"stage3,omitempty"`
}

// Pass returns the stored statistics for stage 1 or 2, or nil.
func (s RefinementState) Pass(stage int) *PassStats {
	switch stage {
	case 1:
		return s.Stage1
	case 2:
		return s.Stage2
	}
	return nil
}

// SetPass stores statistics for stage 1 or 2. Other stages are ignored.
func (s *RefinementState) SetPass(stats PassStats) {
	switch stats.Stage {
	case 1:
		s.Stage1 = &stats
	case 2:
		s.Stage2 = &stats
	}
}

// UsedIDs returns every question id presented in any pass other than skip.
func (s RefinementState) UsedIDs(skip int) map[int64]bool {
	used := make(map[int64]bool)
	for stage, ids := range s.PassQIDs {
		if stage == skip {
			continue
		}
		for _, id := range ids {
			used[id] = true
		}
	}
	return used
}

// ── API Request/Response Types ────────────────────────────

type AnswerInput struct {
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	Value      *int   `json:"value,omitempty" validate:"omitempty,min=1,max=5"`
	OptionID   *int64 `json:"option_id,omitempty" validate:"omitempty,gt=0"`
}

type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

type SubmitAnswersResponse struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

type ContextAnswersRequest struct {
	SJT     map[string]string `json:"sjt"`
	Context map[string]string `json:"context"`
}

type PassQuestion struct {
	ID            int64        `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	DimensionSlug string       `json:"dimension"`
	Options       []Option     `json:"options,omitempty"`
	Answer        *int         `json:"answer,omitempty"`
	OptionID      *int64       `json:"option_id,omitempty"`
}

type PassResponse struct {
	AssessmentID int64          `json:"assessment_id"`
	Stage        int            `json:"stage"`
	Questions    []PassQuestion `json:"questions"`
}

type Ranking struct {
	Ranking       []Result   `json:"ranking"`
	Top3          []Result   `json:"top3"`
	Bottom3       []Result   `json:"bottom3"`
	SimilarGroups [][]Result `json:"similar_groups"`
	Delta         float64    `json:"delta"`
}

type CompletePassResponse struct {
	Stage     int        `json:"stage"`
	Stats     *PassStats `json:"stats,omitempty"`
	Stop      bool       `json:"stop"`
	Reason    string     `json:"reason"`
	NextStage int        `json:"next_stage,omitempty"`
	Results   []Result   `json:"results,omitempty"`
	Ranking   *Ranking   `json:"ranking,omitempty"`
}

type FinalizeResponse struct {
	AssessmentID int64    `json:"assessment_id"`
	Results      []Result `json:"results"`
	Ranking      Ranking  `json:"ranking"`
}

type ProgressResponse struct {
	AssessmentID int64            `json:"assessment_id"`
	Status       AssessmentStatus `json:"status"`
	Answered     int              `json:"answered"`
	Total        int              `json:"total"`
	Percent      int              `json:"percent"`
	PassesDone   []int            `json:"passes_done"`
	NextStage    int              `json:"next_stage,omitempty"`
}

type SummaryResponse struct {
	AssessmentID int64  `json:"assessment_id"`
	Text         string `json:"text"`
	Source       string `json:"source"`
}

// BankSnapshot is the cacheable form of the active question bank.
type BankSnapshot struct {
	Dimensions []Dimension `json:"dimensions"`
	Questions  []Question  `json:"questions"`
}

// FinalizedEvent is published once an assessment's results are stored.
type FinalizedEvent struct {
	AssessmentID int64     `json:"assessment_id"`
	UserID       int64     `json:"user_id"`
	CompletedAt  time.Time `json:"completed_at"`
	Reason       string    `json:"reason"`
	Results      []Result  `json:"results"`
}
