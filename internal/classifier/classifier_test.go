package classifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/features"
)

// corpus builds n numbered variants for each base merchant.
func corpus(t *testing.T, n int, bases map[string]string) (*features.Space, []features.Vector, []string) {
	t.Helper()

	var texts, labels []string
	for _, base := range []string{"starbucks", "shell gas", "walmart", "netflix"} {
		category, ok := bases[base]
		if !ok {
			continue
		}
		for i := range n {
			texts = append(texts, fmt.Sprintf("%s %d", base, 100+i))
			labels = append(labels, category)
		}
	}

	space, err := features.Fit(texts)
	require.NoError(t, err)
	return space, space.TransformAll(texts), labels
}

func TestTrain_ConfigurationErrors(t *testing.T) {
	space, err := features.Fit([]string{"starbucks", "walmart"})
	require.NoError(t, err)
	v := space.TransformAll([]string{"starbucks", "walmart"})

	bad := DefaultConfig()
	bad.Epochs = 0

	tests := []struct {
		name    string
		vectors []features.Vector
		labels  []string
		cfg     Config
	}{
		{name: "no examples", cfg: DefaultConfig()},
		{name: "length mismatch", vectors: v, labels: []string{"Dining"}, cfg: DefaultConfig()},
		{name: "empty label", vectors: v, labels: []string{"Dining", ""}, cfg: DefaultConfig()},
		{name: "single category", vectors: v, labels: []string{"Dining", "Dining"}, cfg: DefaultConfig()},
		{name: "invalid config", vectors: v, labels: []string{"Dining", "Retail"}, cfg: bad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, err := Train(context.Background(), tt.vectors, tt.labels, tt.cfg, nil)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, common.ErrConfiguration), "got %v", err)
		})
	}
}

func TestTrain_DegradedCalibration(t *testing.T) {
	_, vectors, labels := corpus(t, 3, map[string]string{
		"starbucks": "Dining",
		"walmart":   "Retail",
	})

	m, report, err := Train(context.Background(), vectors, labels, DefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.True(t, report.Degraded)
	assert.True(t, errors.Is(report.DegradedReason, common.ErrDegradedCalibration))
	assert.False(t, report.Calibrated)
	assert.False(t, m.Calibrated())
	assert.Equal(t, len(vectors), report.TrainSize)
	assert.Zero(t, report.HoldoutSize)
}

func TestTrain_Calibrated(t *testing.T) {
	space, vectors, labels := corpus(t, 20, map[string]string{
		"starbucks": "Dining",
		"shell gas": "Fuel",
		"walmart":   "Retail",
	})

	m, report, err := Train(context.Background(), vectors, labels, DefaultConfig(), nil)
	require.NoError(t, err)

	assert.False(t, report.Degraded)
	assert.NoError(t, report.DegradedReason)
	assert.True(t, report.Calibrated)
	assert.True(t, m.Calibrated())
	assert.Equal(t, 12, report.HoldoutSize)
	assert.Equal(t, 48, report.TrainSize)
	assert.Equal(t, []string{"Dining", "Fuel", "Retail"}, m.Categories())
	assert.InDelta(t, 1.0, report.HoldoutAccuracy, 1e-9)

	tests := map[string]string{
		"starbucks 999": "Dining",
		"shell":         "Fuel",
		"walmart 7":     "Retail",
	}
	for text, want := range tests {
		pred := m.Predict(space.Transform(text))
		assert.Equal(t, want, pred.Category, text)
		require.NoError(t, pred.Distribution.Validate(1e-9))
		assert.Len(t, pred.Distribution, 3)
		assert.Equal(t, pred.Confidence, pred.Distribution.Probability(want))
	}
}

func TestPredict_ZeroVectorIsPrior(t *testing.T) {
	space, vectors, labels := corpus(t, 4, map[string]string{
		"starbucks": "Dining",
		"walmart":   "Retail",
		"netflix":   "Entertainment",
	})

	m, _, err := Train(context.Background(), vectors, labels, DefaultConfig(), nil)
	require.NoError(t, err)

	zero := m.Predict(space.Transform("qqqq"))
	prior := m.Prior()
	assert.Equal(t, prior, zero)
	require.NoError(t, prior.Distribution.Validate(1e-9))

	assert.Contains(t, m.Categories(), prior.Category)
	for _, p := range prior.Distribution {
		assert.Greater(t, p.Probability, 0.0)
	}
}

func TestTrain_ProgressAndLoss(t *testing.T) {
	_, vectors, labels := corpus(t, 5, map[string]string{
		"starbucks": "Dining",
		"walmart":   "Retail",
	})

	cfg := DefaultConfig()
	cfg.Epochs = 50

	var losses []float64
	var lastEpoch, total int
	_, report, err := Train(context.Background(), vectors, labels, cfg, func(epoch, n int, loss float64) {
		losses = append(losses, loss)
		lastEpoch, total = epoch, n
	})
	require.NoError(t, err)

	assert.Len(t, losses, 50)
	assert.Equal(t, 50, lastEpoch)
	assert.Equal(t, 50, total)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.Equal(t, losses[len(losses)-1], report.FinalLoss)
}

func TestTrain_Canceled(t *testing.T) {
	_, vectors, labels := corpus(t, 5, map[string]string{
		"starbucks": "Dining",
		"walmart":   "Retail",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, _, err := Train(ctx, vectors, labels, DefaultConfig(), nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTrain_Deterministic(t *testing.T) {
	_, vectors, labels := corpus(t, 20, map[string]string{
		"starbucks": "Dining",
		"walmart":   "Retail",
	})

	cfg := DefaultConfig()
	cfg.Epochs = 30
	a, _, err := Train(context.Background(), vectors, labels, cfg, nil)
	require.NoError(t, err)
	b, _, err := Train(context.Background(), vectors, labels, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestStratifiedSplit(t *testing.T) {
	// Category 0 has 10 members, 1 has 1, 2 has 2
	targets := []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 2}

	train, hold := stratifiedSplit(targets, 3, 0.2, 42)
	assert.Len(t, hold, 2)
	assert.Len(t, train, 11)
	for _, i := range hold {
		assert.Equal(t, 0, targets[i])
	}

	// Never empties a category
	train, hold = stratifiedSplit(targets, 3, 0.99, 42)
	perCategory := make(map[int]int)
	for _, i := range train {
		perCategory[targets[i]]++
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, perCategory)
	assert.Len(t, hold, 10)

	// Same seed, same split
	a1, b1 := stratifiedSplit(targets, 3, 0.2, 7)
	a2, b2 := stratifiedSplit(targets, 3, 0.2, 7)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestPoolAdjacentViolators(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		weights []float64
		want    []float64
	}{
		{
			name:    "already monotone",
			values:  []float64{0.1, 0.2, 0.3},
			weights: []float64{1, 1, 1},
			want:    []float64{0.1, 0.2, 0.3},
		},
		{
			name:    "single violation pooled",
			values:  []float64{0.1, 0.5, 0.3, 0.7},
			weights: []float64{1, 1, 1, 1},
			want:    []float64{0.1, 0.4, 0.4, 0.7},
		},
		{
			name:    "weighted pool",
			values:  []float64{0.6, 0.0},
			weights: []float64{3, 1},
			want:    []float64{0.45, 0.45},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := poolAdjacentViolators(tt.values, tt.weights)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestCalibrator(t *testing.T) {
	scores := []float64{0.05, 0.15, 0.95, 0.92, 1.0}
	positive := []bool{false, false, true, true, true}

	c := fitCalibrator(scores, positive, 10, 0.5)
	require.Len(t, c.Values, 10)

	for i := 1; i < len(c.Values); i++ {
		assert.LessOrEqual(t, c.Values[i-1], c.Values[i])
	}
	assert.Less(t, c.Apply(0.01), c.Apply(0.99))
	assert.Equal(t, c.Apply(1.0), c.Values[9])
	assert.Equal(t, 0.3, Calibrator{}.Apply(0.3))
}
