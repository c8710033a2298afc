package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ArtifactFile is a model artifact stored as a standalone file.
type ArtifactFile string

// ReadArtifact implements the engine's artifact source.
func (f ArtifactFile) ReadArtifact(ctx context.Context) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return ReadArtifactFile(string(f))
}

// WriteArtifactFile writes an encoded model so that readers never observe
// a partially written file.
func WriteArtifactFile(path string, data []byte) error {
	if err := validateString(path, "path"); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidArtifact)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return writeFileAtomic(path, data)
}

// ReadArtifactFile reads an encoded model from disk.
func ReadArtifactFile(path string) ([]byte, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact file: %w", err)
	}
	return data, nil
}

// writeFileAtomic writes to a temporary sibling, syncs it, then renames it
// over the destination.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) // #nosec G304 - tmpPath is derived from path
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	cleanup := func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Error("Failed to remove temporary file", "path", tmpPath, "error", rmErr)
		}
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
