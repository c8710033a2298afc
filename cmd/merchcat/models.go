package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchcat/internal/cli"
	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/config"
	"github.com/Veraticus/merchcat/internal/engine"
	"github.com/Veraticus/merchcat/internal/storage"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage stored models",
		Long: `List, activate, import, export and delete the model artifacts kept in the
database. Exactly one stored model is active and serves categorization.`,
	}

	cmd.AddCommand(listModelsCmd())
	cmd.AddCommand(activateModelCmd())
	cmd.AddCommand(deleteModelCmd())
	cmd.AddCommand(exportModelCmd())
	cmd.AddCommand(importModelCmd())

	return cmd
}

func listModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			infos, err := store.ListArtifacts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No models stored. Run 'merchcat train' to create one."))
				return nil
			}
			return cli.RenderArtifacts(out, infos)
		},
	}
}

func activateModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a stored model the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ActivateArtifact(ctx, args[0]); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("No model with id %s", args[0]), err)
				}
				return fmt.Errorf("failed to activate model: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Model %s is now active", args[0])))
			return nil
		},
	}
}

func deleteModelCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an inactive model",
		Long: `Permanently remove a stored model. The active model cannot be deleted;
activate another one first. An automatic checkpoint is taken beforehand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			id := args[0]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			info, _, err := store.GetArtifact(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("No model with id %s", id), err)
				}
				return fmt.Errorf("failed to get model: %w", err)
			}
			if info.Active {
				return common.NewUserError("Cannot delete the active model; activate another one first", common.ErrInvalidConfig)
			}

			if !force {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := cli.Confirm(ctx, reader, out, fmt.Sprintf("Delete model %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			manager, err := store.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}
			if _, err := manager.AutoCheckpoint(ctx, "model-delete"); err != nil {
				return fmt.Errorf("failed to create checkpoint: %w", err)
			}

			if err := store.DeleteArtifact(ctx, id); err != nil {
				return fmt.Errorf("failed to delete model: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted model %s", id)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}

func exportModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <path>",
		Short: "Write a stored model to a file",
		Long: `Write a stored model artifact to a file, for use with model.source: file.
The file is replaced atomically.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, path := args[0], config.ExpandPath(args[1])

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			_, payload, err := store.GetArtifact(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("No model with id %s", id), err)
				}
				return fmt.Errorf("failed to get model: %w", err)
			}

			if err := storage.WriteArtifactFile(path, payload); err != nil {
				return fmt.Errorf("failed to export model: %w", err)
			}

			slog.Info("Exported model", "id", id, "path", path)
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported model %s to %s", id, path)))
			return nil
		},
	}
}

func importModelCmd() *cobra.Command {
	var noActivate bool

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Store a model artifact file in the database",
		Long: `Verify a model artifact file and store it in the database, making it the
active model unless --no-activate is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := config.ExpandPath(args[0])

			payload, err := storage.ReadArtifactFile(path)
			if err != nil {
				return fmt.Errorf("failed to read model: %w", err)
			}
			m, err := engine.UnmarshalModel(payload)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("%s is not a valid model artifact", args[0]), err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			info := m.Info
			if _, _, err := store.GetArtifact(ctx, info.ID); err == nil {
				return common.NewUserError(fmt.Sprintf("Model %s is already stored", info.ID), common.ErrDuplicateEntry)
			}

			if err := store.SaveArtifact(ctx, &info, payload, !noActivate); err != nil {
				return fmt.Errorf("failed to store model: %w", err)
			}

			msg := fmt.Sprintf("Imported model %s", info.ID)
			if info.Active {
				msg += " and made it active"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noActivate, "no-activate", false, "store the model without making it active")

	return cmd
}
