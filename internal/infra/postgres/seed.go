package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"quizrush/internal/domain"
)

// QuestionRow is the bun model of the questions table.
type QuestionRow struct {
	bun.BaseModel `bun:"table:questions"`

	Subject      string   `bun:"subject,pk"`
	Position     int      `bun:"position,pk"`
	Prompt       string   `bun:"prompt,notnull"`
	Options      []string `bun:"options,type:jsonb,notnull"`
	CorrectIndex int      `bun:"correct_index,notnull"`
}

// Seed upserts catalog into the questions table, keeping each subject's order.
func Seed(ctx context.Context, db *bun.DB, catalog domain.Catalog) (int, error) {
	if err := catalog.Validate(); err != nil {
		return 0, err
	}

	var rows []QuestionRow
	for _, subject := range catalog.RealSubjects() {
		for i, q := range catalog[subject] {
			rows = append(rows, QuestionRow{
				Subject:      subject,
				Position:     i,
				Prompt:       q.Prompt,
				Options:      q.Options,
				CorrectIndex: q.CorrectIndex,
			})
		}
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (subject, position) DO UPDATE").
			Set("prompt = EXCLUDED.prompt").
			Set("options = EXCLUDED.options").
			Set("correct_index = EXCLUDED.correct_index").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("seed questions: %w", err)
	}
	return len(rows), nil
}
