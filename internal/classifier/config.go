// Package classifier implements a calibrated multinomial logistic regression
// over sparse feature vectors.
package classifier

import "github.com/Veraticus/merchcat/internal/common"

// Config holds training hyperparameters.
type Config struct {
	Epochs                 int
	LearningRate           float64
	L2                     float64
	HoldoutFraction        float64
	Seed                   int64
	CalibrationBins        int
	MinCalibrationExamples int
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		Epochs:                 300,
		LearningRate:           1.0,
		L2:                     1e-4,
		HoldoutFraction:        0.2,
		Seed:                   42,
		CalibrationBins:        10,
		MinCalibrationExamples: 3,
	}
}

// Validate rejects hyperparameters training cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Epochs <= 0:
		return common.ConfigurationErrorf("epochs must be positive, got %d", c.Epochs)
	case c.LearningRate <= 0:
		return common.ConfigurationErrorf("learning rate must be positive, got %v", c.LearningRate)
	case c.L2 < 0:
		return common.ConfigurationErrorf("l2 must not be negative, got %v", c.L2)
	case c.HoldoutFraction < 0 || c.HoldoutFraction >= 1:
		return common.ConfigurationErrorf("holdout fraction must be in [0, 1), got %v", c.HoldoutFraction)
	case c.CalibrationBins < 1:
		return common.ConfigurationErrorf("calibration bins must be at least 1, got %d", c.CalibrationBins)
	case c.MinCalibrationExamples < 1:
		return common.ConfigurationErrorf("min calibration examples must be at least 1, got %d", c.MinCalibrationExamples)
	}
	return nil
}

// ProgressFunc receives training progress after each epoch.
type ProgressFunc func(epoch, total int, loss float64)
