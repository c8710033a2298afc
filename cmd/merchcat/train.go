package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchcat/internal/cli"
	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/config"
	"github.com/Veraticus/merchcat/internal/dataset"
	"github.com/Veraticus/merchcat/internal/engine"
	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/storage"
)

func trainCmd() *cobra.Command {
	var (
		fromCSV    string
		outPath    string
		noSave     bool
		noActivate bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from labeled examples",
		Long: `Build a new model from the stored training examples (or a labeled CSV) and
save it. Nothing is written unless training completes: an interrupted or
failed run leaves the current model in place.`,
		Example: `  # Train from imported examples and make the result the active model
  merchcat train

  # Train straight from a CSV and write the artifact to a file
  merchcat train --from-csv labeled.csv --out ./model.mcat`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var examples []model.TrainingExample
			if fromCSV != "" {
				source := filepath.Base(fromCSV)
				examples, err = readFile(fromCSV, func(r io.Reader) ([]model.TrainingExample, error) {
					return dataset.ReadLabeledCSV(r, source)
				})
			} else {
				examples, err = store.GetTrainingExamples(ctx)
			}
			if err != nil {
				return err
			}
			if len(examples) == 0 {
				return common.NewUserError("No training examples. Import some with 'merchcat examples import'.", common.ErrConfiguration)
			}

			trainingCfg, err := config.LoadTrainingConfig()
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(out)
			ctx = handler.HandleInterrupts(ctx, "Training", "No model was saved.")
			defer handler.Stop()

			progress := cli.NewTrainingProgress(out, trainingCfg.Classifier.Epochs)
			m, report, err := engine.Train(ctx, examples, trainingCfg, progress.Func())
			progress.Finish()
			if err != nil {
				if handler.WasInterrupted() {
					return nil
				}
				if errors.Is(err, common.ErrConfiguration) {
					return common.NewUserError(err.Error(), err)
				}
				return fmt.Errorf("training failed: %w", err)
			}

			if err := cli.RenderTrainingReport(out, report); err != nil {
				return err
			}

			if noSave {
				fmt.Fprintln(out, cli.SubtleStyle.Render("Model discarded (--no-save)."))
				return nil
			}

			return saveModel(cmd, store, m, outPath, !noActivate)
		},
	}

	cmd.Flags().StringVar(&fromCSV, "from-csv", "", "train from a labeled CSV instead of stored examples")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the artifact to this file instead of the configured model source")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "train and report without saving")
	cmd.Flags().BoolVar(&noActivate, "no-activate", false, "store the model without making it active")

	return cmd
}

// saveModel encodes m and persists it atomically to a file or the database.
func saveModel(cmd *cobra.Command, store *storage.SQLiteStorage, m *engine.Model, outPath string, activate bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	info := m.Info
	if info.Checksum, err = engine.ArtifactChecksum(data); err != nil {
		return err
	}

	storageCfg, err := config.LoadStorageConfig()
	if err != nil {
		return err
	}
	if outPath == "" && storageCfg.ModelSource == config.ModelSourceFile {
		outPath = storageCfg.ModelPath
	}

	if outPath != "" {
		path := config.ExpandPath(outPath)
		if err := storage.WriteArtifactFile(path, data); err != nil {
			return fmt.Errorf("failed to write model: %w", err)
		}
		slog.Info("Saved model artifact", "id", info.ID, "path", path, "bytes", len(data))
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved model %s to %s (%s)",
			info.ID, path, cli.FormatFileSize(int64(len(data))))))
		return nil
	}

	if err := store.SaveArtifact(ctx, &info, data, activate); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	slog.Info("Saved model artifact", "id", info.ID, "active", info.Active, "bytes", len(data))

	msg := fmt.Sprintf("Saved model %s (%s)", info.ID, cli.FormatFileSize(info.SizeBytes))
	if info.Active {
		msg += " and made it active"
	}
	fmt.Fprintln(out, cli.FormatSuccess(msg))
	return nil
}
