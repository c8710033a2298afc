package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/model"
)

const artifactColumns = `id, checksum, categories, example_count, canonical_count,
	feature_dim, size_bytes, calibrated, active, created_at`

// SaveArtifact stores a serialized model. When activate is true the new
// artifact replaces the currently active one in the same transaction.
func (s *SQLiteStorage) SaveArtifact(ctx context.Context, info *model.ArtifactInfo, payload []byte, activate bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateArtifact(info, payload); err != nil {
		return err
	}

	categories, err := json.Marshal(info.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if activate {
		if _, err := tx.ExecContext(ctx, `UPDATE model_artifacts SET active = 0 WHERE active = 1`); err != nil {
			return fmt.Errorf("failed to deactivate current artifact: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO model_artifacts (`+artifactColumns+`, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		info.ID,
		info.Checksum,
		string(categories),
		info.ExampleCount,
		info.CanonicalCount,
		info.FeatureDim,
		int64(len(payload)),
		info.Calibrated,
		activate,
		info.CreatedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	info.SizeBytes = int64(len(payload))
	info.Active = activate
	return nil
}

// GetActiveArtifact returns the active artifact and its payload.
func (s *SQLiteStorage) GetActiveArtifact(ctx context.Context) (*model.ArtifactInfo, []byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+artifactColumns+`, payload
		FROM model_artifacts
		WHERE active = 1
	`)
	info, payload, err := scanArtifactWithPayload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("no active model: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	return info, payload, nil
}

// ReadArtifact returns the active model payload. It lets the store act as
// the engine's artifact source.
func (s *SQLiteStorage) ReadArtifact(ctx context.Context) ([]byte, error) {
	_, payload, err := s.GetActiveArtifact(ctx)
	return payload, err
}

// GetArtifact returns one artifact and its payload by ID.
func (s *SQLiteStorage) GetArtifact(ctx context.Context, id string) (*model.ArtifactInfo, []byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+artifactColumns+`, payload
		FROM model_artifacts
		WHERE id = ?
	`, id)
	info, payload, err := scanArtifactWithPayload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("model %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	return info, payload, nil
}

// ListArtifacts returns artifact metadata, newest first.
func (s *SQLiteStorage) ListArtifacts(ctx context.Context) ([]model.ArtifactInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+artifactColumns+`
		FROM model_artifacts
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []model.ArtifactInfo
	for rows.Next() {
		info, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// ActivateArtifact marks the given artifact as the one to serve.
func (s *SQLiteStorage) ActivateArtifact(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_artifacts WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check artifact: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("model %s: %w", id, common.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE model_artifacts SET active = 0 WHERE active = 1`); err != nil {
		return fmt.Errorf("failed to deactivate current artifact: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE model_artifacts SET active = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to activate artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteArtifact removes an inactive artifact.
func (s *SQLiteStorage) DeleteArtifact(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM model_artifacts WHERE id = ? AND active = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("inactive model %s: %w", id, common.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (*model.ArtifactInfo, error) {
	var info model.ArtifactInfo
	var categories string
	err := row.Scan(
		&info.ID,
		&info.Checksum,
		&categories,
		&info.ExampleCount,
		&info.CanonicalCount,
		&info.FeatureDim,
		&info.SizeBytes,
		&info.Calibrated,
		&info.Active,
		&info.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &info.Categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories for %s: %w", info.ID, err)
	}
	return &info, nil
}

func scanArtifactWithPayload(row *sql.Row) (*model.ArtifactInfo, []byte, error) {
	var info model.ArtifactInfo
	var categories string
	var payload []byte
	err := row.Scan(
		&info.ID,
		&info.Checksum,
		&categories,
		&info.ExampleCount,
		&info.CanonicalCount,
		&info.FeatureDim,
		&info.SizeBytes,
		&info.Calibrated,
		&info.Active,
		&info.CreatedAt,
		&payload,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to scan artifact: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &info.Categories); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal categories for %s: %w", info.ID, err)
	}
	return &info, payload, nil
}
