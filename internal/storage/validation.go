// Package storage provides the data persistence layer for labeled examples
// and trained model artifacts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/merchcat/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidExample  = errors.New("invalid training example")
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateExamples validates a slice of training examples.
func validateExamples(examples []model.TrainingExample) error {
	if examples == nil {
		return fmt.Errorf("%w: examples", ErrNilParameter)
	}
	if len(examples) == 0 {
		return fmt.Errorf("%w: examples", ErrEmptySlice)
	}

	for i := range examples {
		if err := validateExample(&examples[i]); err != nil {
			return fmt.Errorf("example at index %d: %w", i, err)
		}
	}
	return nil
}

// validateExample validates a single training example.
func validateExample(ex *model.TrainingExample) error {
	if ex == nil {
		return fmt.Errorf("%w: example", ErrNilParameter)
	}
	if strings.TrimSpace(ex.Merchant) == "" {
		return fmt.Errorf("%w: missing merchant", ErrInvalidExample)
	}
	if strings.TrimSpace(ex.Category) == "" {
		return fmt.Errorf("%w: missing category for %q", ErrInvalidExample, ex.Merchant)
	}
	return nil
}

// validateArtifact validates artifact metadata and payload before saving.
func validateArtifact(info *model.ArtifactInfo, payload []byte) error {
	if info == nil {
		return fmt.Errorf("%w: artifact info", ErrNilParameter)
	}
	if strings.TrimSpace(info.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidArtifact)
	}
	if strings.TrimSpace(info.Checksum) == "" {
		return fmt.Errorf("%w: missing checksum", ErrInvalidArtifact)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidArtifact)
	}
	if info.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidArtifact)
	}
	return nil
}
