package vocacional

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/escolanoar/vocacional/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Question Bank ──────────────────────────────────────

func (s *Store) LoadBank(ctx context.Context) (*models.BankSnapshot, error) {
	snap := &models.BankSnapshot{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, name, description, weight FROM vocational_dimensions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load dimensions: %w", err)
	}
	for rows.Next() {
		var d models.Dimension
		if err := rows.Scan(&d.ID, &d.Slug, &d.Name, &d.Description, &d.Weight); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan dimension: %w", err)
		}
		snap.Dimensions = append(snap.Dimensions, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load dimensions: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, dimension_id, code, text, position, type, active, invert
		 FROM vocational_questions
		 WHERE active = TRUE
		 ORDER BY dimension_id, position, id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	index := make(map[int64]int)
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.DimensionID, &q.Code, &q.Text, &q.Position,
			&q.Type, &q.Active, &q.Invert); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question: %w", err)
		}
		index[q.ID] = len(snap.Questions)
		snap.Questions = append(snap.Questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.label, o.value, o.position
		 FROM vocational_options o
		 JOIN vocational_questions q ON q.id = o.question_id
		 WHERE q.active = TRUE
		 ORDER BY o.question_id, o.position, o.id`)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Label, &o.Value, &o.Position); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[o.QuestionID]; ok {
			snap.Questions[i].Options = append(snap.Questions[i].Options, o)
		}
	}
	return snap, rows.Err()
}

// ── Assessments ────────────────────────────────────────

const assessmentCols = `id, user_id, status, started_at, completed_at, question_order, refinement`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*models.Assessment, error) {
	var a models.Assessment
	var order pq.Int64Array
	var refinement []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.Status, &a.StartedAt, &a.CompletedAt,
		&order, &refinement); err != nil {
		return nil, err
	}
	a.QuestionOrder = []int64(order)
	if len(refinement) > 0 {
		if err := json.Unmarshal(refinement, &a.Refinement); err != nil {
			return nil, fmt.Errorf("decode refinement: %w", err)
		}
	}
	return &a, nil
}

// StartAssessment returns the user's latest draft or, when there is none and
// fewer than maxCompleted assessments are completed, inserts a new draft whose
// question order is computed by order from the assigned id. A transaction-scoped
// advisory lock on the user id serializes concurrent starts, so the draft and
// attempt checks hold until commit.
func (s *Store) StartAssessment(ctx context.Context, userID int64, maxCompleted int, order func(a *models.Assessment) []int64) (*models.Assessment, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return nil, false, fmt.Errorf("lock user %d: %w", userID, err)
	}

	a, err := scanAssessment(tx.QueryRowContext(ctx,
		`SELECT `+assessmentCols+` FROM vocational_assessments
		 WHERE user_id = $1 AND status = $2
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
		userID, models.StatusDraft,
	))
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit resume: %w", err)
		}
		return a, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("latest draft: %w", err)
	}

	var done int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vocational_assessments WHERE user_id = $1 AND status = $2`,
		userID, models.StatusCompleted,
	).Scan(&done); err != nil {
		return nil, false, fmt.Errorf("count completed: %w", err)
	}
	if done >= maxCompleted {
		return nil, false, ErrAttemptLimit
	}

	a, err = scanAssessment(tx.QueryRowContext(ctx,
		`INSERT INTO vocational_assessments (user_id, status)
		 VALUES ($1, $2)
		 RETURNING `+assessmentCols,
		userID, models.StatusDraft,
	))
	if err != nil {
		return nil, false, fmt.Errorf("create assessment: %w", err)
	}

	a.QuestionOrder = order(a)
	if _, err := tx.ExecContext(ctx,
		`UPDATE vocational_assessments SET question_order = $1 WHERE id = $2`,
		pq.Array(a.QuestionOrder), a.ID,
	); err != nil {
		return nil, false, fmt.Errorf("set question order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit assessment: %w", err)
	}
	return a, true, nil
}

// GetAssessment returns the user's assessment or ErrNotFound.
func (s *Store) GetAssessment(ctx context.Context, userID, assessmentID int64) (*models.Assessment, error) {
	a, err := scanAssessment(s.db.QueryRowContext(ctx,
		`SELECT `+assessmentCols+` FROM vocational_assessments WHERE id = $1 AND user_id = $2`,
		assessmentID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

// UpdateLocked loads the assessment with SELECT ... FOR UPDATE and runs fn
// inside the same transaction. When fn reports a change the refinement state
// is written back before commit, so concurrent callers observe each other's
// pass selections.
func (s *Store) UpdateLocked(ctx context.Context, userID, assessmentID int64, fn func(a *models.Assessment) (bool, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	a, err := scanAssessment(tx.QueryRowContext(ctx,
		`SELECT `+assessmentCols+` FROM vocational_assessments
		 WHERE id = $1 AND user_id = $2
		 FOR UPDATE`,
		assessmentID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock assessment: %w", err)
	}

	changed, err := fn(a)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	blob, err := json.Marshal(a.Refinement)
	if err != nil {
		return fmt.Errorf("encode refinement: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE vocational_assessments SET refinement = $1 WHERE id = $2`,
		blob, a.ID,
	); err != nil {
		return fmt.Errorf("save refinement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit refinement: %w", err)
	}
	return nil
}

// SetStatus moves a draft to status. It returns ErrNotDraft when the
// assessment already left the draft state.
func (s *Store) SetStatus(ctx context.Context, assessmentID int64, status models.AssessmentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vocational_assessments SET status = $1 WHERE id = $2 AND status = $3`,
		status, assessmentID, models.StatusDraft,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return requireRow(res)
}

// requireRow maps an update that matched no draft row to ErrNotDraft.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotDraft
	}
	return nil
}

// ── Answers ────────────────────────────────────────────

// UpsertAnswers records answers; a later write for the same question wins.
func (s *Store) UpsertAnswers(ctx context.Context, assessmentID int64, answers []models.Answer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vocational_answers (assessment_id, question_id, value, option_id, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (assessment_id, question_id)
		 DO UPDATE SET value = EXCLUDED.value, option_id = EXCLUDED.option_id, updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("prepare answer upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range answers {
		if _, err := stmt.ExecContext(ctx, assessmentID, a.QuestionID, a.Value, a.OptionID); err != nil {
			return fmt.Errorf("upsert answer %d: %w", a.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit answers: %w", err)
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, assessmentID int64) ([]models.Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT assessment_id, question_id, value, option_id, updated_at
		 FROM vocational_answers WHERE assessment_id = $1
		 ORDER BY question_id`,
		assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.AssessmentID, &a.QuestionID, &a.Value, &a.OptionID, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ── Results ────────────────────────────────────────────

// CompleteWithResults replaces the assessment's results and marks it
// completed in one transaction. The status change is applied first and only
// to a draft, so an assessment cancelled meanwhile yields ErrNotDraft and no
// results are written.
func (s *Store) CompleteWithResults(ctx context.Context, assessmentID int64, results []models.Result, completedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE vocational_assessments SET status = $1, completed_at = $2 WHERE id = $3 AND status = $4`,
		models.StatusCompleted, completedAt, assessmentID, models.StatusDraft,
	)
	if err != nil {
		return fmt.Errorf("complete assessment: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vocational_results WHERE assessment_id = $1`, assessmentID,
	); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vocational_results (assessment_id, dimension_id, score, percentage, level)
			 VALUES ($1, $2, $3, $4, $5)`,
			assessmentID, r.DimensionID, r.Score, r.Percentage, r.Level,
		); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

func (s *Store) ListResults(ctx context.Context, assessmentID int64) ([]models.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.assessment_id, r.dimension_id, d.slug, d.name, r.score, r.percentage, r.level
		 FROM vocational_results r
		 JOIN vocational_dimensions d ON d.id = r.dimension_id
		 WHERE r.assessment_id = $1
		 ORDER BY r.percentage DESC, r.dimension_id`,
		assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []models.Result
	for rows.Next() {
		var r models.Result
		if err := rows.Scan(&r.AssessmentID, &r.DimensionID, &r.DimensionSlug, &r.DimensionName,
			&r.Score, &r.Percentage, &r.Level); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ── Users ──────────────────────────────────────────────

func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
