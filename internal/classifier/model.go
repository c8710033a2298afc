package classifier

import (
	"math"

	"github.com/Veraticus/merchcat/internal/features"
	"github.com/Veraticus/merchcat/internal/model"
)

// Model is a trained classifier. It is immutable and safe for concurrent use.
type Model struct {
	Labels      []string    // Sorted category names
	Weights     [][]float64 // One row per label
	Bias        []float64
	Calibrators []Calibrator // Nil when uncalibrated
	Dim         int
}

// Prediction is the classifier's answer for one vector.
type Prediction struct {
	Category     string
	Confidence   float64
	Distribution model.Distribution
}

// Categories returns the category set in index order.
func (m *Model) Categories() []string {
	out := make([]string, len(m.Labels))
	copy(out, m.Labels)
	return out
}

// Calibrated reports whether predictions pass through calibration tables.
func (m *Model) Calibrated() bool {
	return len(m.Calibrators) == len(m.Labels) && len(m.Labels) > 0
}

// Predict returns the calibrated distribution over all categories. A zero
// vector yields the bias-only distribution.
func (m *Model) Predict(v features.Vector) Prediction {
	probs := m.rawProbabilities(v)
	if m.Calibrated() {
		probs = m.calibrate(probs)
	}

	dist := make(model.Distribution, len(m.Labels))
	for k, label := range m.Labels {
		dist[k] = model.CategoryProbability{Category: label, Probability: probs[k]}
	}

	top, _ := dist.Top()
	return Prediction{
		Category:     top.Category,
		Confidence:   top.Probability,
		Distribution: dist,
	}
}

// Prior returns the bias-only prediction.
func (m *Model) Prior() Prediction {
	return m.Predict(features.Vector{})
}

func (m *Model) rawProbabilities(v features.Vector) []float64 {
	logits := make([]float64, len(m.Labels))
	for k := range logits {
		logits[k] = m.Bias[k] + v.Dot(m.Weights[k])
	}
	return softmax(logits)
}

func (m *Model) calibrate(raw []float64) []float64 {
	out := make([]float64, len(raw))
	var total float64
	for k, p := range raw {
		out[k] = m.Calibrators[k].Apply(p)
		total += out[k]
	}
	if total <= 0 {
		return raw
	}
	for k := range out {
		out[k] /= total
	}
	return out
}

// softmax converts logits in place into probabilities.
func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return logits
	}
	peak := logits[0]
	for _, z := range logits[1:] {
		peak = math.Max(peak, z)
	}
	var total float64
	for k, z := range logits {
		logits[k] = math.Exp(z - peak)
		total += logits[k]
	}
	for k := range logits {
		logits[k] /= total
	}
	return logits
}
