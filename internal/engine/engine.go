// Package engine implements the categorization engine that turns raw
// merchant strings into categories.
package engine

import (
	"errors"
	"sync/atomic"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/model"
)

// errNotLoaded is the cause reported when no model was ever supplied.
var errNotLoaded = errors.New("no model loaded")

// Engine answers categorization requests against an immutable model handle.
// All methods are safe for concurrent use.
type Engine struct {
	current atomic.Pointer[handle]
	config  Config
}

type handle struct {
	model *Model
	cause error
}

// Config holds configuration options for the categorization engine.
type Config struct {
	AcceptanceThreshold float64 // Minimum canonical match quality to bypass the classifier
	Workers             int     // Parallelism for batch categorization
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AcceptanceThreshold: 0.85,
		Workers:             4,
	}
}

// New creates an engine serving m with the default configuration.
// A nil model yields an engine that reports ErrModelUnavailable.
func New(m *Model) *Engine {
	return NewWithConfig(m, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(m *Model, config Config) *Engine {
	defaults := DefaultConfig()
	if config.AcceptanceThreshold <= 0 || config.AcceptanceThreshold > 1 {
		config.AcceptanceThreshold = defaults.AcceptanceThreshold
	}
	if config.Workers < 1 {
		config.Workers = defaults.Workers
	}

	e := &Engine{config: config}
	e.Swap(m)
	return e
}

// Unavailable creates an engine that refuses every request with cause.
func Unavailable(cause error, config Config) *Engine {
	e := NewWithConfig(nil, config)
	if cause != nil {
		e.current.Store(&handle{cause: cause})
	}
	return e
}

// Swap replaces the served model and returns the previous one. Requests in
// flight finish against the model they started with.
func (e *Engine) Swap(m *Model) *Model {
	next := &handle{model: m}
	if m == nil {
		next.cause = errNotLoaded
	}
	prev := e.current.Swap(next)
	if prev == nil {
		return nil
	}
	return prev.model
}

// Ready reports whether a model is loaded.
func (e *Engine) Ready() bool {
	return e.current.Load().model != nil
}

// Err returns the reason the engine is unavailable, or nil when ready.
func (e *Engine) Err() error {
	h := e.current.Load()
	if h.model != nil {
		return nil
	}
	return common.ModelUnavailable(h.cause)
}

// Info describes the served model.
func (e *Engine) Info() (model.ArtifactInfo, bool) {
	h := e.current.Load()
	if h.model == nil {
		return model.ArtifactInfo{}, false
	}
	return h.model.Info, true
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Categorize normalizes raw, consults the canonical index and falls back to
// the classifier. Inputs that carry no usable signal produce a fallback result
// with zero confidence rather than an error.
func (e *Engine) Categorize(raw string) (model.ClassificationResult, error) {
	h := e.current.Load()
	if h.model == nil {
		return model.ClassificationResult{}, common.ModelUnavailable(h.cause)
	}
	return e.categorize(h.model, raw), nil
}

func (e *Engine) categorize(m *Model, raw string) model.ClassificationResult {
	result := model.ClassificationResult{
		Merchant:   raw,
		Normalized: m.Normalizer.Normalize(raw),
	}
	if result.Normalized == "" {
		return fallback(m, result)
	}

	if match, ok := m.Index.Lookup(result.Normalized); ok && match.Quality >= e.config.AcceptanceThreshold {
		result.Category = match.Category
		result.Confidence = match.Quality
		result.Source = model.SourceCanonicalMatch
		result.MatchedMerchant = match.Name
		result.Distribution = m.Classifier.Predict(m.Features.Transform(result.Normalized)).Distribution
		return result
	}

	vector := m.Features.Transform(result.Normalized)
	if vector.IsZero() {
		return fallback(m, result)
	}

	pred := m.Classifier.Predict(vector)
	result.Category = pred.Category
	result.Confidence = pred.Confidence
	result.Source = model.SourceClassifier
	result.Distribution = pred.Distribution
	return result
}

// fallback reports the prior's top category with zero confidence.
func fallback(m *Model, result model.ClassificationResult) model.ClassificationResult {
	prior := m.Classifier.Prior()
	result.Category = prior.Category
	result.Confidence = 0
	result.Source = model.SourceClassifier
	result.Distribution = prior.Distribution
	result.Fallback = true
	return result
}
