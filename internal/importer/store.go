package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Result counts what an import wrote.
type Result struct {
	Dimensions int `json:"dimensions"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
}

type Importer struct {
	db *sql.DB
}

func New(db *sql.DB) *Importer {
	return &Importer{db: db}
}

// Import writes the plan in one transaction. Questions are upserted by code
// and options by position, so running the same file twice only updates rows
// and recorded answers keep their option. With wipe set, the bank is emptied
// first; answers and results referencing it cascade away.
func (im *Importer) Import(ctx context.Context, plan *Plan, wipe bool) (*Result, error) {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if wipe {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vocational_questions`); err != nil {
			return nil, fmt.Errorf("wipe questions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vocational_dimensions`); err != nil {
			return nil, fmt.Errorf("wipe dimensions: %w", err)
		}
		log.Printf("[importer] wiped existing question bank")
	}

	result := &Result{Skipped: plan.Skipped}
	dimIDs := make(map[string]int64, len(plan.Dimensions))
	for _, d := range plan.Dimensions {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO vocational_dimensions (slug, name, description, weight)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (slug) DO UPDATE
			 SET name = EXCLUDED.name, description = EXCLUDED.description, weight = EXCLUDED.weight
			 RETURNING id`,
			d.Slug, d.Name, d.Description, d.Weight,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upsert dimension %s: %w", d.Slug, err)
		}
		dimIDs[d.Slug] = id
		result.Dimensions++
	}

	for _, q := range plan.Questions {
		dimID, ok := dimIDs[q.DimSlug]
		if !ok {
			return nil, fmt.Errorf("question %s: unknown dimension %s", q.Code, q.DimSlug)
		}

		var id int64
		var inserted bool
		err := tx.QueryRowContext(ctx,
			`INSERT INTO vocational_questions (dimension_id, code, text, position, type, active, invert)
			 VALUES ($1, $2, $3, $4, $5, TRUE, $6)
			 ON CONFLICT (code) DO UPDATE
			 SET dimension_id = EXCLUDED.dimension_id, text = EXCLUDED.text, position = EXCLUDED.position,
			     type = EXCLUDED.type, active = TRUE, invert = EXCLUDED.invert
			 RETURNING id, (xmax = 0)`,
			dimID, q.Code, q.Text, q.Position, string(q.Type), q.Invert,
		).Scan(&id, &inserted)
		if err != nil {
			return nil, fmt.Errorf("upsert question %s: %w", q.Code, err)
		}
		if inserted {
			result.Created++
		} else {
			result.Updated++
		}

		if err := syncOptions(ctx, tx, id, q); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return result, nil
}

// syncOptions updates the question's options in place, keyed by position,
// and drops positions the file no longer lists.
func syncOptions(ctx context.Context, tx *sql.Tx, questionID int64, q PlannedQuestion) error {
	for _, o := range q.Options {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vocational_options (question_id, label, value, position) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (question_id, position) DO UPDATE
			 SET label = EXCLUDED.label, value = EXCLUDED.value`,
			questionID, o.Label, o.Value, o.Position,
		); err != nil {
			return fmt.Errorf("upsert option %d for %s: %w", o.Position, q.Code, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vocational_options WHERE question_id = $1 AND position > $2`,
		questionID, len(q.Options),
	); err != nil {
		return fmt.Errorf("trim options for %s: %w", q.Code, err)
	}
	return nil
}
