package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/engine"
	"github.com/Veraticus/merchcat/internal/normalize"
)

// ModelSource selects where the serving model artifact lives.
type ModelSource string

// Model sources.
const (
	ModelSourceDatabase ModelSource = "database"
	ModelSourceFile     ModelSource = "file"
)

// StorageConfig locates the database and the model artifact.
type StorageConfig struct {
	DatabasePath string
	ModelPath    string
	ModelSource  ModelSource
}

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "~/.local/share/merchcat/merchcat.db"

// SetDefaults registers default values for every key read by this package.
func SetDefaults() {
	engineDefaults := engine.DefaultConfig()
	trainingDefaults := engine.DefaultTrainingConfig()

	viper.SetDefault("database.path", DefaultDatabasePath)
	viper.SetDefault("model.source", string(ModelSourceDatabase))
	viper.SetDefault("model.path", "")
	viper.SetDefault("engine.acceptance_threshold", engineDefaults.AcceptanceThreshold)
	viper.SetDefault("engine.workers", engineDefaults.Workers)
	viper.SetDefault("index.near_match_threshold", trainingDefaults.NearMatchThreshold)
	viper.SetDefault("training.epochs", trainingDefaults.Classifier.Epochs)
	viper.SetDefault("training.learning_rate", trainingDefaults.Classifier.LearningRate)
	viper.SetDefault("training.l2", trainingDefaults.Classifier.L2)
	viper.SetDefault("training.holdout_fraction", trainingDefaults.Classifier.HoldoutFraction)
	viper.SetDefault("training.seed", trainingDefaults.Classifier.Seed)
	viper.SetDefault("training.calibration_bins", trainingDefaults.Classifier.CalibrationBins)
	viper.SetDefault("training.min_calibration_examples", trainingDefaults.Classifier.MinCalibrationExamples)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// LoadStorageConfig reads database and model locations.
func LoadStorageConfig() (StorageConfig, error) {
	cfg := StorageConfig{
		DatabasePath: ExpandPath(viper.GetString("database.path")),
		ModelPath:    ExpandPath(viper.GetString("model.path")),
		ModelSource:  ModelSource(viper.GetString("model.source")),
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = ExpandPath(DefaultDatabasePath)
	}

	switch cfg.ModelSource {
	case ModelSourceDatabase:
	case ModelSourceFile:
		if cfg.ModelPath == "" {
			cfg.ModelPath = filepath.Join(filepath.Dir(cfg.DatabasePath), "model.mcat")
		}
	default:
		return StorageConfig{}, fmt.Errorf("%w: model.source must be %q or %q, got %q",
			common.ErrInvalidConfig, ModelSourceDatabase, ModelSourceFile, cfg.ModelSource)
	}

	return cfg, nil
}

// LoadEngineConfig reads inference settings.
func LoadEngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if viper.IsSet("engine.acceptance_threshold") {
		cfg.AcceptanceThreshold = viper.GetFloat64("engine.acceptance_threshold")
	}
	if viper.IsSet("engine.workers") {
		cfg.Workers = viper.GetInt("engine.workers")
	}

	if cfg.AcceptanceThreshold <= 0 || cfg.AcceptanceThreshold > 1 {
		return engine.Config{}, fmt.Errorf("%w: engine.acceptance_threshold must be in (0, 1], got %v",
			common.ErrInvalidConfig, cfg.AcceptanceThreshold)
	}
	if cfg.Workers < 1 {
		return engine.Config{}, fmt.Errorf("%w: engine.workers must be at least 1, got %d",
			common.ErrInvalidConfig, cfg.Workers)
	}

	return cfg, nil
}

// LoadTrainingConfig reads training hyperparameters and the alias table.
// Aliases under normalize.aliases are merged over the defaults.
func LoadTrainingConfig() (engine.TrainingConfig, error) {
	cfg := engine.DefaultTrainingConfig()

	if viper.IsSet("index.near_match_threshold") {
		cfg.NearMatchThreshold = viper.GetFloat64("index.near_match_threshold")
	}
	if viper.IsSet("training.epochs") {
		cfg.Classifier.Epochs = viper.GetInt("training.epochs")
	}
	if viper.IsSet("training.learning_rate") {
		cfg.Classifier.LearningRate = viper.GetFloat64("training.learning_rate")
	}
	if viper.IsSet("training.l2") {
		cfg.Classifier.L2 = viper.GetFloat64("training.l2")
	}
	if viper.IsSet("training.holdout_fraction") {
		cfg.Classifier.HoldoutFraction = viper.GetFloat64("training.holdout_fraction")
	}
	if viper.IsSet("training.seed") {
		cfg.Classifier.Seed = viper.GetInt64("training.seed")
	}
	if viper.IsSet("training.calibration_bins") {
		cfg.Classifier.CalibrationBins = viper.GetInt("training.calibration_bins")
	}
	if viper.IsSet("training.min_calibration_examples") {
		cfg.Classifier.MinCalibrationExamples = viper.GetInt("training.min_calibration_examples")
	}

	if extra := viper.GetStringMapString("normalize.aliases"); len(extra) > 0 {
		aliases := make(map[string]string, len(normalize.DefaultAliases)+len(extra))
		for k, v := range normalize.DefaultAliases {
			aliases[k] = v
		}
		for k, v := range extra {
			aliases[k] = v
		}
		cfg.Aliases = aliases
	}

	if cfg.NearMatchThreshold <= 0 || cfg.NearMatchThreshold >= 1 {
		return engine.TrainingConfig{}, fmt.Errorf("%w: index.near_match_threshold must be in (0, 1), got %v",
			common.ErrInvalidConfig, cfg.NearMatchThreshold)
	}
	if err := cfg.Classifier.Validate(); err != nil {
		return engine.TrainingConfig{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	return cfg, nil
}
