package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/config"
	"github.com/Veraticus/merchcat/internal/dataset"
	"github.com/Veraticus/merchcat/internal/engine"
	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/ofx"
	"github.com/Veraticus/merchcat/internal/storage"
)

// envKeyReplacer maps nested keys like engine.workers to MERCHCAT_ENGINE_WORKERS.
var envKeyReplacer = strings.NewReplacer(".", "_")

// openRetry covers another merchcat process holding the database lock.
var openRetry = common.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	storageCfg, err := config.LoadStorageConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(storageCfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = common.WithRetry(ctx, func() error {
		if err := store.Migrate(ctx); err != nil {
			if storage.IsBusy(err) {
				return err
			}
			return common.Permanent(err)
		}
		return nil
	}, openRetry)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadEngine loads the serving model once from the configured source.
func loadEngine(ctx context.Context, store *storage.SQLiteStorage) (*engine.Engine, error) {
	engineCfg, err := config.LoadEngineConfig()
	if err != nil {
		return nil, err
	}
	storageCfg, err := config.LoadStorageConfig()
	if err != nil {
		return nil, err
	}

	var src engine.ArtifactSource = store
	if storageCfg.ModelSource == config.ModelSourceFile {
		src = storage.ArtifactFile(storageCfg.ModelPath)
	}

	e := engine.Load(ctx, src, engineCfg)
	if err := e.Err(); err != nil {
		common.LogError(err, "Model unavailable", common.Fields{"source": string(storageCfg.ModelSource)})
		return nil, common.NewUserError("No model available. Run 'merchcat train' first.", err)
	}

	if info, ok := e.Info(); ok {
		common.LogDebug("Loaded model", common.Fields{
			"id":         info.ID,
			"source":     string(storageCfg.ModelSource),
			"categories": len(info.Categories),
		})
		if !info.Calibrated {
			common.LogWarn("Model is uncalibrated; confidences are raw classifier scores", common.Fields{"id": info.ID})
		}
	}
	return e, nil
}

// inputFlags selects where merchants to categorize come from.
type inputFlags struct {
	csvPath       string
	ofxPath       string
	statementPath string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "CSV file with a merchant column")
	cmd.Flags().StringVar(&f.ofxPath, "ofx", "", "OFX/QFX bank statement")
	cmd.Flags().StringVar(&f.statementPath, "statement", "", "plain-text statement")
	cmd.MarkFlagsMutuallyExclusive("csv", "ofx", "statement")
}

func (f *inputFlags) fromFile() bool {
	return f.csvPath != "" || f.ofxPath != "" || f.statementPath != ""
}

// load returns transactions from the selected file, or one per argument.
func (f *inputFlags) load(ctx context.Context, args []string) ([]model.Transaction, error) {
	switch {
	case f.csvPath != "":
		return readFile(f.csvPath, func(r io.Reader) ([]model.Transaction, error) {
			return dataset.ReadTransactionsCSV(r)
		})
	case f.ofxPath != "":
		return readFile(f.ofxPath, func(r io.Reader) ([]model.Transaction, error) {
			return ofx.NewParser().ParseFile(ctx, r)
		})
	case f.statementPath != "":
		return readFile(f.statementPath, func(r io.Reader) ([]model.Transaction, error) {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			return dataset.ParseStatementText(string(data)), nil
		})
	}

	if len(args) == 0 {
		return nil, common.NewUserError("Provide merchant names or one of --csv, --ofx, --statement", nil)
	}
	txns := make([]model.Transaction, len(args))
	for i, arg := range args {
		txns[i] = model.Transaction{Name: arg, MerchantName: arg}
	}
	return txns, nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	file, err := os.Open(config.ExpandPath(path)) // #nosec G304 - user-supplied input file
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	out, err := parse(file)
	if err != nil {
		return zero, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func merchants(txns []model.Transaction) []string {
	out := make([]string, len(txns))
	for i := range txns {
		out[i] = txns[i].Merchant()
	}
	return out
}
