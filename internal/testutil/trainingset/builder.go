// Package trainingset provides fluent builders and fixtures for labeled
// merchant datasets used in tests.
//
// Example usage:
//
//	examples := trainingset.NewBuilder(t).
//		WithFixture(trainingset.FixtureScenario).
//		WithExample("Trader Joe's", trainingset.CategoryGroceries).
//		Build()
package trainingset

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/merchcat/internal/model"
)

// Saver persists training examples.
type Saver interface {
	SaveTrainingExamples(ctx context.Context, examples []model.TrainingExample) (int, error)
}

// Builder provides a fluent interface for constructing labeled datasets.
type Builder interface {
	// WithExample adds one labeled merchant.
	WithExample(merchant string, category CategoryName) Builder

	// WithFixture appends every pair from a fixture.
	WithFixture(fixture Fixture) Builder

	// WithSource tags the built examples with a source.
	WithSource(source string) Builder

	// Build returns the examples in insertion order.
	Build() []model.TrainingExample

	// Seed saves the examples into storage and returns them.
	Seed(ctx context.Context, store Saver) ([]model.TrainingExample, error)
}

type exampleBuilder struct {
	t      *testing.T
	source string
	pairs  []Pair
}

// NewBuilder creates a new dataset builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &exampleBuilder{t: t, source: "test"}
}

func (b *exampleBuilder) WithExample(merchant string, category CategoryName) Builder {
	b.pairs = append(b.pairs, Pair{Merchant: merchant, Category: category})
	return b
}

func (b *exampleBuilder) WithFixture(fixture Fixture) Builder {
	b.pairs = append(b.pairs, fixture.Pairs()...)
	return b
}

func (b *exampleBuilder) WithSource(source string) Builder {
	b.source = source
	return b
}

func (b *exampleBuilder) Build() []model.TrainingExample {
	b.t.Helper()
	return toExamples(b.pairs, b.source)
}

func (b *exampleBuilder) Seed(ctx context.Context, store Saver) ([]model.TrainingExample, error) {
	b.t.Helper()

	examples := b.Build()
	if _, err := store.SaveTrainingExamples(ctx, examples); err != nil {
		return nil, fmt.Errorf("failed to seed %d examples: %w", len(examples), err)
	}
	return examples, nil
}

// Examples converts a fixture straight into training examples.
func Examples(fixture Fixture) []model.TrainingExample {
	return toExamples(fixture.Pairs(), fixture.Name())
}

func toExamples(pairs []Pair, source string) []model.TrainingExample {
	out := make([]model.TrainingExample, len(pairs))
	for i, p := range pairs {
		out[i] = model.TrainingExample{
			Merchant: p.Merchant,
			Category: p.Category.String(),
			Source:   source,
		}
	}
	return out
}
