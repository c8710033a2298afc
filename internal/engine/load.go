package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// ArtifactSource supplies an encoded model.
type ArtifactSource interface {
	ReadArtifact(ctx context.Context) ([]byte, error)
}

// ArtifactSourceFunc adapts a function to ArtifactSource.
type ArtifactSourceFunc func(ctx context.Context) ([]byte, error)

// ReadArtifact implements ArtifactSource.
func (f ArtifactSourceFunc) ReadArtifact(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Load reads and decodes a model once. Any failure produces an engine that
// reports ErrModelUnavailable with the cause on every call.
func Load(ctx context.Context, src ArtifactSource, config Config) *Engine {
	m, err := loadModel(ctx, src)
	if err != nil {
		slog.Error("Model unavailable", "error", err)
		return Unavailable(err, config)
	}

	slog.Info("Model loaded",
		"id", m.Info.ID,
		"categories", len(m.Info.Categories),
		"canonical_merchants", m.Info.CanonicalCount,
		"calibrated", m.Info.Calibrated)
	return NewWithConfig(m, config)
}

func loadModel(ctx context.Context, src ArtifactSource) (*Model, error) {
	if src == nil {
		return nil, errNotLoaded
	}
	data, err := src.ReadArtifact(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	m, err := UnmarshalModel(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}
