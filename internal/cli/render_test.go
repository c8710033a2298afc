package cli

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchcat/internal/classifier"
	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/engine"
	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/storage"
)

func TestRenderResults(t *testing.T) {
	results := []model.ClassificationResult{
		{Merchant: "STARBUCKS #123", Category: "Coffee", Source: model.SourceCanonicalMatch, MatchedMerchant: "starbucks", Confidence: 1},
		{Merchant: "ACME", Category: "Groceries", Source: model.SourceClassifier, Confidence: 0.4},
	}

	t.Run("merchants only", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RenderResults(&out, results, nil, 0.85))

		output := out.String()
		assert.Contains(t, output, "MERCHANT")
		assert.NotContains(t, output, "AMOUNT")
		assert.Contains(t, output, "STARBUCKS #123")
		assert.Contains(t, output, "canonical-match")
		assert.Contains(t, output, "100.0%")
		assert.Contains(t, output, "Groceries ?")
	})

	t.Run("with transactions", func(t *testing.T) {
		txns := []model.Transaction{
			{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Amount: -4.5},
			{Amount: 12},
		}
		var out bytes.Buffer
		require.NoError(t, RenderResults(&out, results, txns, 0.85))

		output := out.String()
		assert.Contains(t, output, "AMOUNT")
		assert.Contains(t, output, "2024-03-01")
		assert.Contains(t, output, "-4.50")
	})
}

func TestRenderTrainingReport(t *testing.T) {
	tests := []struct {
		name   string
		report engine.TrainingReport
		want   string
	}{
		{
			name: "calibrated",
			report: engine.TrainingReport{
				Report:   classifier.Report{Categories: []string{"a", "b"}, Calibrated: true, HoldoutAccuracy: 0.9},
				Examples: 40,
			},
			want: "Calibrated (holdout accuracy 90.0%)",
		},
		{
			name: "degraded",
			report: engine.TrainingReport{
				Report: classifier.Report{
					Categories:     []string{"a", "b"},
					Degraded:       true,
					DegradedReason: fmt.Errorf("%w: too few", common.ErrDegradedCalibration),
				},
				Examples: 4,
			},
			want: "Uncalibrated: calibration degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, RenderTrainingReport(&out, tt.report))
			assert.Contains(t, out.String(), tt.want)
			assert.Contains(t, out.String(), "Categories: 2")
		})
	}
}

func TestRenderEvaluation(t *testing.T) {
	report := &engine.EvaluationReport{
		Total:        10,
		Correct:      8,
		K:            3,
		Accuracy:     0.8,
		TopKAccuracy: 1,
		Sources:      map[model.Source]int{model.SourceCanonicalMatch: 6},
		PerCategory: []engine.CategoryMetrics{
			{Category: "Coffee", Precision: 1, Recall: 0.75, F1: 0.857, Support: 4},
		},
	}

	var out bytes.Buffer
	require.NoError(t, RenderEvaluation(&out, report))

	output := out.String()
	assert.Contains(t, output, "Accuracy: 80.0% (8 correct)")
	assert.Contains(t, output, "Top-3 accuracy: 100.0%")
	assert.Contains(t, output, "Canonical matches: 6")
	assert.Contains(t, output, "Coffee")
	assert.Contains(t, output, "0.857")
}

func TestRenderListings(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, RenderArtifacts(&out, []model.ArtifactInfo{
		{ID: "model-1", CreatedAt: time.Now(), Categories: []string{"a"}, SizeBytes: 2048, Active: true},
	}))
	require.NoError(t, RenderCategoryCounts(&out, []model.CategoryCount{
		{Category: "Coffee", Count: 3},
		{Category: "Gas", Count: 1},
	}))
	require.NoError(t, RenderExamples(&out, []model.TrainingExample{
		{ID: 7, Merchant: "Shell", Category: "Gas", Source: "seed.csv"},
	}))
	require.NoError(t, RenderCheckpoints(&out, []storage.CheckpointInfo{
		{ID: "auto-clear-20240101-120000", CreatedAt: time.Now(), IsAuto: true, Examples: 12},
	}))

	output := out.String()
	assert.Contains(t, output, "model-1")
	assert.Contains(t, output, "2.0 KB")
	assert.Contains(t, output, "75.0%")
	assert.Contains(t, output, "4 examples across 2 categories")
	assert.Contains(t, output, "seed.csv")
	assert.Contains(t, output, "auto-clear-20240101-120000")
	assert.Contains(t, output, "auto")
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		want string
		size int64
	}{
		{"0 B", 0},
		{"1023 B", 1023},
		{"1.0 KB", 1024},
		{"1.5 MB", 1536 * 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.size))
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		when time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-1 * time.Minute), "1 minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-30 * time.Hour), "yesterday"},
		{now.Add(-72 * time.Hour), "3 days ago"},
		{now.Add(-10 * 24 * time.Hour), "2024-06-05 12:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRelativeTime(tt.when, now))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestFormatConfidence(t *testing.T) {
	assert.Contains(t, FormatConfidence(0.9, 0.85), "90.0%")
	assert.Contains(t, FormatConfidence(0.05, 0.85), "5.0%")
}
