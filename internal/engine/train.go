package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/merchcat/internal/canonical"
	"github.com/Veraticus/merchcat/internal/classifier"
	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/features"
	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/normalize"
)

// TrainingConfig holds options for building a model.
type TrainingConfig struct {
	Aliases            map[string]string
	Classifier         classifier.Config
	NearMatchThreshold float64
}

// DefaultTrainingConfig returns the default training configuration.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Aliases:            normalize.DefaultAliases,
		Classifier:         classifier.DefaultConfig(),
		NearMatchThreshold: canonical.DefaultNearMatchThreshold,
	}
}

// TrainingReport describes a finished training run.
type TrainingReport struct {
	classifier.Report
	Examples           int
	CanonicalMerchants int
	WordFeatures       int
	CharFeatures       int
	Duration           time.Duration
}

// Train builds a complete model from labeled examples. Any error leaves
// nothing behind: the caller gets either a full model or none.
func Train(ctx context.Context, examples []model.TrainingExample, cfg TrainingConfig, progress classifier.ProgressFunc) (*Model, TrainingReport, error) {
	start := time.Now()
	if len(examples) == 0 {
		return nil, TrainingReport{}, common.ConfigurationErrorf("training dataset is empty")
	}

	normalizer := normalize.New(cfg.Aliases)
	texts := make([]string, len(examples))
	labels := make([]string, len(examples))
	pairs := make([]canonical.Pair, len(examples))
	for i, ex := range examples {
		label := strings.TrimSpace(ex.Category)
		if label == "" {
			return nil, TrainingReport{}, common.ConfigurationErrorf("example %d (%q) has no category", i+1, ex.Merchant)
		}
		text := normalizer.Normalize(ex.Merchant)
		if text == "" {
			return nil, TrainingReport{}, common.ConfigurationErrorf("example %d (%q) has an empty merchant", i+1, ex.Merchant)
		}
		texts[i] = text
		labels[i] = label
		pairs[i] = canonical.Pair{Merchant: text, Category: label}
	}

	if err := ctx.Err(); err != nil {
		return nil, TrainingReport{}, err
	}

	space, err := features.Fit(texts)
	if err != nil {
		return nil, TrainingReport{}, fmt.Errorf("failed to fit features: %w", err)
	}
	slog.Debug("Fitted feature space",
		"word_features", space.WordDim(),
		"char_features", space.CharDim())

	index := canonical.Build(pairs, cfg.NearMatchThreshold)

	if err := ctx.Err(); err != nil {
		return nil, TrainingReport{}, err
	}

	clf, clfReport, err := classifier.Train(ctx, space.TransformAll(texts), labels, cfg.Classifier, progress)
	if err != nil {
		return nil, TrainingReport{}, fmt.Errorf("failed to train classifier: %w", err)
	}

	m := &Model{
		Features:   space,
		Classifier: clf,
		Index:      index,
		Normalizer: normalizer,
		Info: model.ArtifactInfo{
			ID:             uuid.NewString(),
			CreatedAt:      time.Now().UTC(),
			Categories:     clf.Categories(),
			ExampleCount:   len(examples),
			CanonicalCount: index.Len(),
			FeatureDim:     space.Dim(),
			Calibrated:     clf.Calibrated(),
		},
	}

	report := TrainingReport{
		Report:             clfReport,
		Examples:           len(examples),
		CanonicalMerchants: index.Len(),
		WordFeatures:       space.WordDim(),
		CharFeatures:       space.CharDim(),
		Duration:           time.Since(start),
	}

	slog.Info("Model trained",
		"id", m.Info.ID,
		"examples", report.Examples,
		"categories", len(report.Categories),
		"canonical_merchants", report.CanonicalMerchants,
		"calibrated", report.Calibrated,
		"duration", report.Duration)

	return m, report, nil
}
