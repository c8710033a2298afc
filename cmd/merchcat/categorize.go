package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchcat/internal/cli"
	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/dataset"
	"github.com/Veraticus/merchcat/internal/engine"
)

// Output formats for categorize.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func categorizeCmd() *cobra.Command {
	var (
		inputs  inputFlags
		format  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "categorize [merchant...]",
		Short: "Categorize merchant names",
		Long: `Categorize merchants given as arguments or read from a CSV, OFX/QFX or
plain-text statement. The model is loaded once and merchants are processed in
parallel; output order always matches input order.`,
		Example: `  merchcat categorize "STARBUCKS #1234" "SHELL OIL 5744"
  merchcat categorize --ofx checking.qfx
  merchcat categorize --csv transactions.csv --format csv > categorized.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch format {
			case formatTable, formatCSV, formatJSON:
			default:
				return common.NewUserError(fmt.Sprintf("Unknown format %q (use table, csv or json)", format), common.ErrInvalidConfig)
			}

			txns, err := inputs.load(ctx, args)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("No merchants found in input."))
				return nil
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

			start := time.Now()
			results, err := e.CategorizeBatch(ctx, merchants(txns), workers)
			if err != nil {
				return fmt.Errorf("categorization failed: %w", err)
			}
			summary := engine.Summarize(results, e.Config().AcceptanceThreshold, time.Since(start))

			switch format {
			case formatJSON:
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(results)
			case formatCSV:
				return dataset.WriteResultsCSV(out, txns, results)
			}

			shown := txns
			if !inputs.fromFile() {
				shown = nil
			}
			if err := cli.RenderResults(out, results, shown, e.Config().AcceptanceThreshold); err != nil {
				return err
			}
			return cli.RenderBatchSummary(out, summary)
		},
	}

	inputs.register(cmd)
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, csv, json)")
	cmd.Flags().Bool("json", false, "shorthand for --format json")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel workers (default: engine.workers)")
	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			format = formatJSON
		}
	}

	return cmd
}
