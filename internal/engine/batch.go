package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/merchcat/internal/model"
)

// BatchSummary contains statistics about a batch run.
type BatchSummary struct {
	Total           int
	CanonicalCount  int
	ClassifierCount int
	ConfidentCount  int // At or above the acceptance threshold
	NeedsReview     int
	FallbackCount   int
	ProcessingTime  time.Duration
}

// CategorizeBatch categorizes merchants concurrently and returns results in
// input order. workers below one uses the configured worker count.
func (e *Engine) CategorizeBatch(ctx context.Context, merchants []string, workers int) ([]model.ClassificationResult, error) {
	h := e.current.Load()
	if h.model == nil {
		return nil, e.Err()
	}
	if workers < 1 {
		workers = e.config.Workers
	}

	results := make([]model.ClassificationResult, len(merchants))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, merchant := range merchants {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.categorize(h.model, merchant)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch categorization stopped: %w", err)
	}

	slog.Debug("Batch categorized",
		"merchants", len(merchants),
		"workers", workers)

	return results, nil
}

// Summarize tallies how a batch was answered.
func Summarize(results []model.ClassificationResult, threshold float64, elapsed time.Duration) BatchSummary {
	summary := BatchSummary{
		Total:          len(results),
		ProcessingTime: elapsed,
	}

	for _, r := range results {
		switch {
		case r.Fallback:
			summary.FallbackCount++
		case r.Source == model.SourceCanonicalMatch:
			summary.CanonicalCount++
		default:
			summary.ClassifierCount++
		}

		if r.IsConfident(threshold) {
			summary.ConfidentCount++
		} else {
			summary.NeedsReview++
		}
	}

	return summary
}
