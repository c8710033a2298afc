package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchcat/internal/cli"
	"github.com/Veraticus/merchcat/internal/model"
)

func reviewCmd() *cobra.Command {
	var (
		inputs inputFlags
		limit  int
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "review [merchant...]",
		Short: "Label uncertain categorizations interactively",
		Long: `Categorize merchants, then walk through the ones below the acceptance
threshold. Accepted and corrected labels are saved as training examples with
source "review" and take effect the next time you train.`,
		Example: `  merchcat review --ofx checking.qfx --limit 20
  merchcat train`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			txns, err := inputs.load(ctx, args)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			e, err := loadEngine(ctx, store)
			if err != nil {
				return err
			}
			threshold := e.Config().AcceptanceThreshold

			results, err := e.CategorizeBatch(ctx, merchants(txns), 0)
			if err != nil {
				return fmt.Errorf("categorization failed: %w", err)
			}

			pending := selectForReview(results, threshold, all, limit)
			if len(pending) == 0 {
				fmt.Fprintln(out, cli.FormatSuccess("Nothing to review: every merchant was categorized confidently."))
				return nil
			}

			handler := cli.NewInterruptHandler(out)
			reviewCtx := handler.HandleInterrupts(ctx, "Review", "Answers given so far will be saved.")
			defer handler.Stop()

			reviewer := cli.NewReviewer(cmd.InOrStdin(), out, threshold)
			examples, reviewErr := reviewer.Review(reviewCtx, pending)
			if reviewErr != nil && !handler.WasInterrupted() && !errors.Is(reviewErr, context.Canceled) {
				return reviewErr
			}
			reviewer.ShowCompletion()

			if len(examples) == 0 {
				return nil
			}

			// An interrupt cancels ctx too; the answers are saved regardless
			saved, err := store.SaveTrainingExamples(context.WithoutCancel(ctx), examples)
			if err != nil {
				return fmt.Errorf("failed to save reviewed examples: %w", err)
			}

			slog.Info("Saved reviewed examples", "answered", len(examples), "new", saved)
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %d new examples. Run 'merchcat train' to learn from them.", saved)))
			return nil
		},
	}

	inputs.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "review at most this many merchants (0 for no limit)")
	cmd.Flags().BoolVar(&all, "all", false, "review confident results too")

	return cmd
}

// selectForReview keeps results below threshold (or all of them), one per
// merchant, least confident first.
func selectForReview(results []model.ClassificationResult, threshold float64, all bool, limit int) []model.ClassificationResult {
	seen := make(map[string]bool)
	var pending []model.ClassificationResult
	for _, r := range results {
		if !all && r.IsConfident(threshold) {
			continue
		}
		if seen[r.Normalized] {
			continue
		}
		seen[r.Normalized] = true
		pending = append(pending, r)
	}

	sortByConfidence(pending)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

func sortByConfidence(results []model.ClassificationResult) {
	slices.SortStableFunc(results, func(a, b model.ClassificationResult) int {
		return cmp.Compare(a.Confidence, b.Confidence)
	})
}
