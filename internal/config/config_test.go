package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/engine"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadEngineConfig(t *testing.T) {
	tests := []struct {
		settings map[string]any
		want     engine.Config
		name     string
		wantErr  bool
	}{
		{
			name: "defaults",
			want: engine.DefaultConfig(),
		},
		{
			name:     "overrides",
			settings: map[string]any{"engine.acceptance_threshold": 0.9, "engine.workers": 8},
			want:     engine.Config{AcceptanceThreshold: 0.9, Workers: 8},
		},
		{
			name:     "threshold above one",
			settings: map[string]any{"engine.acceptance_threshold": 1.5},
			wantErr:  true,
		},
		{
			name:     "zero workers",
			settings: map[string]any{"engine.workers": 0},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			for k, v := range tt.settings {
				viper.Set(k, v)
			}

			got, err := LoadEngineConfig()
			if tt.wantErr {
				assert.True(t, errors.Is(err, common.ErrInvalidConfig), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadTrainingConfig(t *testing.T) {
	resetViper(t)
	SetDefaults()
	viper.Set("training.epochs", 50)
	viper.Set("training.seed", 7)
	viper.Set("normalize.aliases", map[string]string{"wholefds": "whole foods"})

	cfg, err := LoadTrainingConfig()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Classifier.Epochs)
	assert.Equal(t, int64(7), cfg.Classifier.Seed)
	assert.InDelta(t, 0.2, cfg.Classifier.HoldoutFraction, 1e-12)
	assert.Equal(t, "whole foods", cfg.Aliases["wholefds"])
	assert.Equal(t, "doordash", cfg.Aliases["door dash"], "defaults are kept")
}

func TestLoadTrainingConfig_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"training.holdout_fraction", 1.0},
		{"training.epochs", 0},
		{"index.near_match_threshold", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resetViper(t)
			viper.Set(tt.key, tt.value)

			_, err := LoadTrainingConfig()
			assert.True(t, errors.Is(err, common.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoadStorageConfig(t *testing.T) {
	resetViper(t)
	SetDefaults()
	dir := t.TempDir()
	viper.Set("database.path", filepath.Join(dir, "db.sqlite"))
	viper.Set("model.source", "file")

	cfg, err := LoadStorageConfig()
	require.NoError(t, err)
	assert.Equal(t, ModelSourceFile, cfg.ModelSource)
	assert.Equal(t, filepath.Join(dir, "model.mcat"), cfg.ModelPath)

	viper.Set("model.source", "s3")
	_, err = LoadStorageConfig()
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("MERCHCAT_TEST_DIR", "/tmp/merchcat")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/data/db.sqlite", filepath.Join(home, "data/db.sqlite")},
		{"$MERCHCAT_TEST_DIR/model.mcat", "/tmp/merchcat/model.mcat"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
