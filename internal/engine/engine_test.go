package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/testutil/trainingset"
)

func trainFixture(t testing.TB, fixture trainingset.Fixture) *Model {
	t.Helper()
	m, _, err := Train(context.Background(), trainingset.Examples(fixture), DefaultTrainingConfig(), nil)
	require.NoError(t, err)
	return m
}

func TestEngine_EndToEndScenario(t *testing.T) {
	m, report, err := Train(context.Background(), trainingset.Examples(trainingset.FixtureScenario), DefaultTrainingConfig(), nil)
	require.NoError(t, err)

	// Three examples cannot be calibrated
	assert.True(t, report.Degraded)
	assert.True(t, errors.Is(report.DegradedReason, common.ErrDegradedCalibration))
	assert.Equal(t, 3, report.CanonicalMerchants)

	e := New(m)
	require.True(t, e.Ready())

	tests := []struct {
		name       string
		input      string
		wantCat    string
		wantSource model.Source
	}{
		{name: "store number", input: "STARBUCKS #4412", wantCat: "Dining", wantSource: model.SourceClassifier},
		{name: "hyphenated exact", input: "Wal-Mart", wantCat: "Retail", wantSource: model.SourceCanonicalMatch},
		{name: "case only", input: "SHELL GAS", wantCat: "Fuel", wantSource: model.SourceCanonicalMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Categorize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCat, result.Category)
			assert.Equal(t, tt.wantSource, result.Source)
			assert.False(t, result.Fallback)
			require.NoError(t, result.Distribution.Validate(1e-6))
		})
	}

	t.Run("empty input falls back", func(t *testing.T) {
		for _, input := range []string{"", "   ", "#$%", "\t\n"} {
			result, err := e.Categorize(input)
			require.NoError(t, err)
			assert.True(t, result.Fallback, input)
			assert.Zero(t, result.Confidence)
			assert.LessOrEqual(t, result.Confidence, result.Distribution.Min())
			assert.Contains(t, []string{"Dining", "Fuel", "Retail"}, result.Category)
		}
	})
}

func TestEngine_CanonicalMatchPriority(t *testing.T) {
	examples := trainingset.NewBuilder(t).
		WithFixture(trainingset.FixtureConflicting).
		WithExample("Sprouts", trainingset.CategoryGroceries).
		WithExample("SPROUTS", trainingset.CategoryRetail).
		Build()

	m, _, err := Train(context.Background(), examples, DefaultTrainingConfig(), nil)
	require.NoError(t, err)
	e := New(m)

	tests := []struct {
		input   string
		wantCat string
	}{
		{input: "Costco", wantCat: "Retail"},         // Majority label
		{input: "costco", wantCat: "Retail"},         // Normalizes to the same name
		{input: "Sprouts", wantCat: "Groceries"},     // Tie goes to the first label seen
		{input: "TRADER JOES", wantCat: "Groceries"}, // Apostrophe dropped
		{input: "WHOLE   FOODS", wantCat: "Groceries"},
		{input: "W H O L E Foods", wantCat: "Groceries"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := e.Categorize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCat, result.Category)
			assert.Equal(t, model.SourceCanonicalMatch, result.Source)
			assert.GreaterOrEqual(t, result.Confidence, e.Config().AcceptanceThreshold)
			assert.Equal(t, 1.0, result.Confidence)
		})
	}
}

func TestEngine_NearMatch(t *testing.T) {
	e := New(trainFixture(t, trainingset.FixtureScenario))

	result, err := e.Categorize("Starbuck")
	require.NoError(t, err)
	assert.Equal(t, model.SourceCanonicalMatch, result.Source)
	assert.Equal(t, "starbucks", result.MatchedMerchant)
	assert.Equal(t, "Dining", result.Category)
	assert.Greater(t, result.Confidence, 0.85)
	assert.Less(t, result.Confidence, 1.0)
}

func TestEngine_AcceptanceThreshold(t *testing.T) {
	m := trainFixture(t, trainingset.FixtureScenario)
	strict := NewWithConfig(m, Config{AcceptanceThreshold: 1.0, Workers: 1})

	// Near matches no longer bypass the classifier
	result, err := strict.Categorize("Starbuck")
	require.NoError(t, err)
	assert.Equal(t, model.SourceClassifier, result.Source)
	assert.Equal(t, "Dining", result.Category)

	result, err = strict.Categorize("walmart")
	require.NoError(t, err)
	assert.Equal(t, model.SourceCanonicalMatch, result.Source)
}

func TestEngine_Generalization(t *testing.T) {
	e := New(trainFixture(t, trainingset.FixtureScenario))

	for _, input := range []string{"STARBUCKS #221", "Starbucks Reserve", "SQ *STARBUCKS"} {
		result, err := e.Categorize(input)
		require.NoError(t, err)
		assert.Equal(t, "Dining", result.Category, input)
		assert.Greater(t, result.Distribution.Probability("Dining"), 1.0/3.0, input)
	}
}

func TestEngine_ProbabilityValidity(t *testing.T) {
	e := New(trainFixture(t, trainingset.FixtureStandard))

	inputs := []string{
		"", "a", "zzzzzz", "STARBUCKS #4412", "Chevron", "NETFLIX.COM 866-579-7172",
		"スターバックス", "Café Déjà Vu", "🍕 pizza", "H-E-B", "DD *DOORDASH BURGERKING",
		"AMZN Mktp US*2K4", "x x x x x x x x", "shell shell shell shell",
	}

	for _, input := range inputs {
		result, err := e.Categorize(input)
		require.NoError(t, err, input)
		require.NoError(t, result.Distribution.Validate(1e-6), input)
		assert.Len(t, result.Distribution, 4, input)
		assert.GreaterOrEqual(t, result.Confidence, 0.0)
		assert.LessOrEqual(t, result.Confidence, 1.0)
	}
}

func TestEngine_Unavailable(t *testing.T) {
	t.Run("never loaded", func(t *testing.T) {
		e := New(nil)
		assert.False(t, e.Ready())

		for range 3 {
			_, err := e.Categorize("Starbucks")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrModelUnavailable))
		}

		_, err := e.CategorizeBatch(context.Background(), []string{"a", "b"}, 2)
		assert.True(t, errors.Is(err, common.ErrModelUnavailable))
		assert.True(t, errors.Is(e.Err(), common.ErrModelUnavailable))

		_, ok := e.Info()
		assert.False(t, ok)
	})

	t.Run("missing artifact", func(t *testing.T) {
		src := ArtifactSourceFunc(func(context.Context) ([]byte, error) {
			return nil, os.ErrNotExist
		})
		e := Load(context.Background(), src, DefaultConfig())

		_, err := e.Categorize("Starbucks")
		assert.True(t, errors.Is(err, common.ErrModelUnavailable))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("corrupt artifact", func(t *testing.T) {
		data, err := trainFixture(t, trainingset.FixtureScenario).MarshalBinary()
		require.NoError(t, err)
		data[len(data)-1] ^= 0xFF

		e := Load(context.Background(), ArtifactSourceFunc(func(context.Context) ([]byte, error) {
			return data, nil
		}), DefaultConfig())

		for range 2 {
			_, err := e.Categorize("Starbucks")
			assert.True(t, errors.Is(err, common.ErrModelUnavailable))
			assert.True(t, errors.Is(err, ErrCorruptArtifact))
		}
	})

	t.Run("nil source", func(t *testing.T) {
		e := Load(context.Background(), nil, DefaultConfig())
		assert.False(t, e.Ready())
	})
}

func TestEngine_Swap(t *testing.T) {
	e := New(nil)
	m := trainFixture(t, trainingset.FixtureScenario)

	assert.Nil(t, e.Swap(m))
	require.True(t, e.Ready())

	info, ok := e.Info()
	require.True(t, ok)
	assert.Equal(t, m.Info.ID, info.ID)

	result, err := e.Categorize("walmart")
	require.NoError(t, err)
	assert.Equal(t, "Retail", result.Category)

	assert.Same(t, m, e.Swap(nil))
	_, err = e.Categorize("walmart")
	assert.True(t, errors.Is(err, common.ErrModelUnavailable))
}

func TestEngine_ConcurrentCategorize(t *testing.T) {
	e := New(trainFixture(t, trainingset.FixtureStandard))
	want, err := e.Categorize("STARBUCKS #4412")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Categorize("STARBUCKS #4412")
			if err != nil {
				errs <- err
				return
			}
			if got.Category != want.Category || got.Confidence != want.Confidence {
				errs <- fmt.Errorf("goroutine %d got %s/%v", i, got.Category, got.Confidence)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestTrain_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name     string
		examples []model.TrainingExample
		contains string
	}{
		{
			name:     "empty dataset",
			examples: nil,
			contains: "empty",
		},
		{
			name: "single category",
			examples: trainingset.NewBuilder(t).
				WithExample("Starbucks", trainingset.CategoryDining).
				WithExample("Chipotle", trainingset.CategoryDining).
				Build(),
			contains: "at least 2 categories",
		},
		{
			name: "missing label",
			examples: []model.TrainingExample{
				{Merchant: "Starbucks", Category: "Dining"},
				{Merchant: "Walmart", Category: "  "},
			},
			contains: "example 2",
		},
		{
			name: "empty merchant",
			examples: []model.TrainingExample{
				{Merchant: "Starbucks", Category: "Dining"},
				{Merchant: "###", Category: "Retail"},
			},
			contains: "empty merchant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, err := Train(context.Background(), tt.examples, DefaultTrainingConfig(), nil)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, common.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestTrain_Calibrated(t *testing.T) {
	m, report, err := Train(context.Background(), trainingset.Examples(trainingset.FixtureStandard), DefaultTrainingConfig(), nil)
	require.NoError(t, err)

	assert.False(t, report.Degraded)
	assert.True(t, report.Calibrated)
	assert.True(t, m.Info.Calibrated)
	assert.Equal(t, 60, report.Examples)
	assert.Equal(t, 12, report.HoldoutSize)
	assert.Equal(t, []string{"Dining", "Entertainment", "Fuel", "Retail"}, m.Info.Categories)
	assert.Equal(t, m.Features.Dim(), m.Info.FeatureDim)
	assert.NotEmpty(t, m.Info.ID)
}

func TestTrain_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, _, err := Train(ctx, trainingset.Examples(trainingset.FixtureStandard), DefaultTrainingConfig(), nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, context.Canceled))
}

func BenchmarkCategorize(b *testing.B) {
	e := New(trainFixture(b, trainingset.FixtureStandard))
	inputs := []string{"STARBUCKS #4412", "Wal-Mart", "CHEVRON 88812", "unknown merchant 42"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Categorize(inputs[i%len(inputs)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCategorizeBatch(b *testing.B) {
	e := New(trainFixture(b, trainingset.FixtureStandard))
	inputs := make([]string, 256)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("merchant %d starbucks", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.CategorizeBatch(context.Background(), inputs, 8); err != nil {
			b.Fatal(err)
		}
	}
}
