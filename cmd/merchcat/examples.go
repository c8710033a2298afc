package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchcat/internal/cli"
	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/dataset"
	"github.com/Veraticus/merchcat/internal/model"
)

func examplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Manage labeled training examples",
		Long: `Import, inspect and remove the labeled (merchant, category) pairs that
models are trained from.`,
		Example: `  # Import labeled history
  merchcat examples import labeled.csv

  # See how many examples each category has
  merchcat examples stats

  # Remove everything imported from one file
  merchcat examples clear --source labeled.csv`,
	}

	cmd.AddCommand(importExamplesCmd())
	cmd.AddCommand(listExamplesCmd())
	cmd.AddCommand(statsExamplesCmd())
	cmd.AddCommand(clearExamplesCmd())

	return cmd
}

func importExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv...>",
		Short: "Import labeled examples from CSV",
		Long: `Import CSV files with merchant and category columns. Each file's name is
recorded as the source of its examples; re-importing a file adds only new rows.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			total := 0
			for _, path := range args {
				source := filepath.Base(path)
				examples, err := readFile(path, func(r io.Reader) ([]model.TrainingExample, error) {
					return dataset.ReadLabeledCSV(r, source)
				})
				if err != nil {
					return err
				}

				inserted, err := store.SaveTrainingExamples(ctx, examples)
				if err != nil {
					return fmt.Errorf("failed to save examples from %s: %w", source, err)
				}
				total += inserted

				common.LogInfo("Imported examples", common.Fields{"source": source, "rows": len(examples), "new": inserted})
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %d rows, %d new", source, len(examples), inserted)))
			}

			count, err := store.CountTrainingExamples(ctx)
			if err != nil {
				return fmt.Errorf("failed to count examples: %w", err)
			}
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Added %d examples (%d total)", total, count)))
			return nil
		},
	}
}

func listExamplesCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List training examples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			examples, err := store.GetTrainingExamples(ctx)
			if err != nil {
				return fmt.Errorf("failed to get examples: %w", err)
			}
			if source != "" {
				filtered := examples[:0]
				for _, ex := range examples {
					if ex.Source == source {
						filtered = append(filtered, ex)
					}
				}
				examples = filtered
			}

			if len(examples) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No examples found. Use 'merchcat examples import' to add some."))
				return nil
			}
			return cli.RenderExamples(out, examples)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "only show examples from this source")

	return cmd
}

func statsExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show example counts per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			counts, err := store.GetCategoryCounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get category counts: %w", err)
			}
			if len(counts) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No examples found."))
				return nil
			}
			if len(counts) == 1 {
				fmt.Fprintln(out, cli.FormatWarning("Training needs at least two categories."))
			}
			return cli.RenderCategoryCounts(out, counts)
		},
	}
}

func clearExamplesCmd() *cobra.Command {
	var (
		source string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete training examples",
		Long: `Delete all training examples, or only those from one source. An automatic
checkpoint is taken first so the deletion can be undone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			scope := "all training examples"
			if source != "" {
				scope = fmt.Sprintf("examples from %s", source)
			}

			if !force {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := cli.Confirm(ctx, reader, out, fmt.Sprintf("Delete %s?", scope))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.SubtleStyle.Render("Nothing deleted."))
					return nil
				}
			}

			manager, err := store.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}
			checkpoint, err := manager.AutoCheckpoint(ctx, "clear")
			if err != nil {
				return fmt.Errorf("failed to create checkpoint: %w", err)
			}

			deleted, err := store.DeleteTrainingExamples(ctx, source)
			if err != nil {
				return fmt.Errorf("failed to delete examples: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %d examples", deleted)))
			fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Undo with: merchcat checkpoint restore %s", checkpoint.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "only delete examples from this source")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}
