package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/features"
)

// Report summarizes a training run.
type Report struct {
	DegradedReason  error
	Categories      []string
	TrainSize       int
	HoldoutSize     int
	Epochs          int
	FinalLoss       float64
	HoldoutAccuracy float64 // Only meaningful when Calibrated
	Calibrated      bool
	Degraded        bool
}

// Train fits a softmax regression on the vectors and calibrates it on a
// stratified hold-out split. When the split is too small to calibrate every
// category, the model is refitted on all data without calibration and the
// report is marked degraded.
func Train(ctx context.Context, vectors []features.Vector, labels []string, cfg Config, progress ProgressFunc) (*Model, Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Report{}, err
	}
	if len(vectors) == 0 {
		return nil, Report{}, common.ConfigurationErrorf("no training examples")
	}
	if len(vectors) != len(labels) {
		return nil, Report{}, common.ConfigurationErrorf("%d vectors but %d labels", len(vectors), len(labels))
	}

	categories, targets, err := indexLabels(labels)
	if err != nil {
		return nil, Report{}, err
	}

	dim := vectors[0].Dim
	for i, v := range vectors {
		if v.Dim != dim {
			return nil, Report{}, fmt.Errorf("vector %d has dimension %d, want %d", i, v.Dim, dim)
		}
	}

	report := Report{Categories: categories, Epochs: cfg.Epochs}
	trainIdx, holdIdx := stratifiedSplit(targets, len(categories), cfg.HoldoutFraction, cfg.Seed)

	if short, ok := undersizedCategory(holdIdx, targets, len(categories), cfg.MinCalibrationExamples); ok {
		report.Degraded = true
		report.DegradedReason = fmt.Errorf("%w: category %q has fewer than %d held-out examples",
			common.ErrDegradedCalibration, categories[short], cfg.MinCalibrationExamples)
		slog.Warn("Calibration skipped, training on all examples",
			"category", categories[short],
			"min_examples", cfg.MinCalibrationExamples)

		trainIdx = make([]int, len(vectors))
		for i := range trainIdx {
			trainIdx[i] = i
		}
		holdIdx = nil
	}

	m := &Model{Labels: categories, Dim: dim}
	loss, err := fit(ctx, m, vectors, targets, trainIdx, cfg, progress)
	if err != nil {
		return nil, Report{}, err
	}
	report.FinalLoss = loss
	report.TrainSize = len(trainIdx)
	report.HoldoutSize = len(holdIdx)

	if len(holdIdx) > 0 {
		m.Calibrators = calibrate(m, vectors, targets, holdIdx, trainIdx, cfg.CalibrationBins)
		report.Calibrated = true
		report.HoldoutAccuracy = accuracy(m, vectors, targets, holdIdx)
	}

	slog.Debug("Classifier trained",
		"categories", len(categories),
		"train", report.TrainSize,
		"holdout", report.HoldoutSize,
		"loss", report.FinalLoss,
		"calibrated", report.Calibrated)

	return m, report, nil
}

// indexLabels maps labels to positions in the sorted category set.
func indexLabels(labels []string) ([]string, []int, error) {
	seen := make(map[string]struct{})
	for i, label := range labels {
		if label == "" {
			return nil, nil, common.ConfigurationErrorf("example %d has no category", i)
		}
		seen[label] = struct{}{}
	}
	if len(seen) < 2 {
		return nil, nil, common.ConfigurationErrorf("need at least 2 categories, got %d", len(seen))
	}

	categories := make([]string, 0, len(seen))
	for label := range seen {
		categories = append(categories, label)
	}
	sort.Strings(categories)

	position := make(map[string]int, len(categories))
	for k, c := range categories {
		position[c] = k
	}
	targets := make([]int, len(labels))
	for i, label := range labels {
		targets[i] = position[label]
	}
	return categories, targets, nil
}

// stratifiedSplit holds out floor(n*fraction) examples per category, chosen by
// a seeded shuffle, keeping at least one example of each category for training.
func stratifiedSplit(targets []int, k int, fraction float64, seed int64) (train, hold []int) {
	perCategory := make([][]int, k)
	for i, t := range targets {
		perCategory[t] = append(perCategory[t], i)
	}

	rng := rand.New(rand.NewSource(seed))
	for _, members := range perCategory {
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		h := int(math.Floor(float64(len(members)) * fraction))
		if h >= len(members) {
			h = len(members) - 1
		}
		hold = append(hold, members[:h]...)
		train = append(train, members[h:]...)
	}

	sort.Ints(train)
	sort.Ints(hold)
	return train, hold
}

func undersizedCategory(hold, targets []int, k, minimum int) (int, bool) {
	counts := make([]int, k)
	for _, i := range hold {
		counts[targets[i]]++
	}
	for c, n := range counts {
		if n < minimum {
			return c, true
		}
	}
	return 0, false
}

// fit runs full-batch gradient descent on the cross-entropy loss with L2.
func fit(ctx context.Context, m *Model, vectors []features.Vector, targets, idx []int, cfg Config, progress ProgressFunc) (float64, error) {
	k := len(m.Labels)
	m.Weights = make([][]float64, k)
	grads := make([][]float64, k)
	for c := range k {
		m.Weights[c] = make([]float64, m.Dim)
		grads[c] = make([]float64, m.Dim)
	}
	m.Bias = make([]float64, k)
	biasGrad := make([]float64, k)

	n := float64(len(idx))
	var loss float64
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("training canceled at epoch %d: %w", epoch, err)
		}

		for c := range k {
			clear(grads[c])
		}
		clear(biasGrad)
		loss = 0

		for _, i := range idx {
			v := vectors[i]
			probs := m.rawProbabilities(v)
			loss -= math.Log(math.Max(probs[targets[i]], 1e-15))
			for c := range k {
				delta := probs[c]
				if c == targets[i] {
					delta--
				}
				v.AddScaledTo(grads[c], delta)
				biasGrad[c] += delta
			}
		}
		loss /= n

		var penalty float64
		for c := range k {
			row := m.Weights[c]
			for j := range row {
				penalty += row[j] * row[j]
				row[j] -= cfg.LearningRate * (grads[c][j]/n + cfg.L2*row[j])
			}
			m.Bias[c] -= cfg.LearningRate * biasGrad[c] / n
		}
		loss += 0.5 * cfg.L2 * penalty

		if progress != nil {
			progress(epoch, cfg.Epochs, loss)
		}
	}

	return loss, nil
}

// calibrate builds one table per category from held-out raw probabilities,
// smoothed toward the training prior of that category.
func calibrate(m *Model, vectors []features.Vector, targets, hold, train []int, bins int) []Calibrator {
	k := len(m.Labels)
	raw := make([][]float64, len(hold))
	for j, i := range hold {
		raw[j] = m.rawProbabilities(vectors[i])
	}

	priors := make([]float64, k)
	for _, i := range train {
		priors[targets[i]]++
	}

	out := make([]Calibrator, k)
	scores := make([]float64, len(hold))
	positive := make([]bool, len(hold))
	for c := range k {
		for j, i := range hold {
			scores[j] = raw[j][c]
			positive[j] = targets[i] == c
		}
		out[c] = fitCalibrator(scores, positive, bins, priors[c]/float64(len(train)))
	}
	return out
}

func accuracy(m *Model, vectors []features.Vector, targets, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	correct := 0
	for _, i := range idx {
		if m.Predict(vectors[i]).Category == m.Labels[targets[i]] {
			correct++
		}
	}
	return float64(correct) / float64(len(idx))
}
