package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/merchcat/internal/model"
)

// SaveTrainingExamples stores labeled examples, skipping exact duplicates.
// It returns the number of rows actually inserted.
func (s *SQLiteStorage) SaveTrainingExamples(ctx context.Context, examples []model.TrainingExample) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateExamples(examples); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO training_examples (hash, merchant, category, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range examples {
		ex := &examples[i]
		result, err := stmt.ExecContext(ctx,
			ex.GenerateHash(),
			strings.TrimSpace(ex.Merchant),
			strings.TrimSpace(ex.Category),
			ex.Source,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert example %q: %w", ex.Merchant, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// GetTrainingExamples returns every stored example in insertion order.
func (s *SQLiteStorage) GetTrainingExamples(ctx context.Context) ([]model.TrainingExample, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, merchant, category, source, created_at
		FROM training_examples
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query training examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var examples []model.TrainingExample
	for rows.Next() {
		var ex model.TrainingExample
		var createdAt sql.NullTime
		if err := rows.Scan(&ex.ID, &ex.Merchant, &ex.Category, &ex.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan training example: %w", err)
		}
		if createdAt.Valid {
			ex.CreatedAt = createdAt.Time
		}
		examples = append(examples, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate training examples: %w", err)
	}
	return examples, nil
}

// CountTrainingExamples returns the number of stored examples.
func (s *SQLiteStorage) CountTrainingExamples(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count training examples: %w", err)
	}
	return count, nil
}

// GetCategoryCounts returns the label distribution, largest first.
func (s *SQLiteStorage) GetCategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS n
		FROM training_examples
		GROUP BY category
		ORDER BY n DESC, category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}
	return counts, nil
}

// DeleteTrainingExamples removes examples from one source, or all examples
// when source is empty. It returns the number of rows removed.
func (s *SQLiteStorage) DeleteTrainingExamples(ctx context.Context, source string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var (
		result sql.Result
		err    error
	)
	if source == "" {
		result, err = s.db.ExecContext(ctx, `DELETE FROM training_examples`)
	} else {
		result, err = s.db.ExecContext(ctx, `DELETE FROM training_examples WHERE source = ?`, source)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete training examples: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}
