package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchcat/internal/cli"
	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/dataset"
	"github.com/Veraticus/merchcat/internal/engine"
	"github.com/Veraticus/merchcat/internal/model"
)

func evaluateCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "evaluate <labeled.csv>",
		Short: "Score the active model against labeled data",
		Long: `Categorize every merchant in a labeled CSV with the active model and report
accuracy, top-k accuracy, Brier score and per-category precision and recall.`,
		Example: `  merchcat evaluate holdout.csv -k 3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if k < 1 {
				return common.NewUserError("-k must be at least 1", common.ErrInvalidConfig)
			}

			source := filepath.Base(args[0])
			examples, err := readFile(args[0], func(r io.Reader) ([]model.TrainingExample, error) {
				return dataset.ReadLabeledCSV(r, source)
			})
			if err != nil {
				return err
			}
			if len(examples) == 0 {
				return common.NewUserError(fmt.Sprintf("%s has no labeled rows", source), common.ErrConfiguration)
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

			report, err := engine.Evaluate(ctx, e, examples, k)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}
			return cli.RenderEvaluation(out, report)
		},
	}

	cmd.Flags().IntVarP(&k, "top-k", "k", 3, "count a hit when the label is among the k most probable categories")

	return cmd
}
