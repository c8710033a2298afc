package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/testutil/trainingset"
)

func TestCategorizeBatch_PreservesOrder(t *testing.T) {
	e := New(trainFixture(t, trainingset.FixtureStandard))
	merchants := []string{"Wal-Mart", "STARBUCKS #4412", "", "Chevron 1", "netflix", "Target"}

	for _, workers := range []int{0, 1, 3, 16} {
		results, err := e.CategorizeBatch(context.Background(), merchants, workers)
		require.NoError(t, err)
		require.Len(t, results, len(merchants))

		for i, merchant := range merchants {
			want, err := e.Categorize(merchant)
			require.NoError(t, err)
			assert.Equal(t, want, results[i], "workers=%d merchant=%q", workers, merchant)
		}
	}
}

func TestCategorizeBatch_Canceled(t *testing.T) {
	e := New(trainFixture(t, trainingset.FixtureScenario))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.CategorizeBatch(ctx, []string{"a", "b", "c"}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCategorizeBatch_Empty(t *testing.T) {
	e := New(trainFixture(t, trainingset.FixtureScenario))

	results, err := e.CategorizeBatch(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSummarize(t *testing.T) {
	results := []model.ClassificationResult{
		{Category: "Retail", Source: model.SourceCanonicalMatch, Confidence: 1},
		{Category: "Dining", Source: model.SourceClassifier, Confidence: 0.92},
		{Category: "Fuel", Source: model.SourceClassifier, Confidence: 0.40},
		{Category: "Dining", Source: model.SourceClassifier, Fallback: true},
	}

	summary := Summarize(results, 0.85, time.Second)
	assert.Equal(t, BatchSummary{
		Total:           4,
		CanonicalCount:  1,
		ClassifierCount: 2,
		ConfidentCount:  2,
		NeedsReview:     2,
		FallbackCount:   1,
		ProcessingTime:  time.Second,
	}, summary)
}
