package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/model"
)

// CategoryMetrics holds per-category precision and recall.
type CategoryMetrics struct {
	Category  string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// EvaluationReport scores an engine against labeled examples.
type EvaluationReport struct {
	Confusion    map[string]map[string]int // Actual -> predicted -> count
	Sources      map[model.Source]int
	Labels       []string
	PerCategory  []CategoryMetrics
	Total        int
	Correct      int
	Fallbacks    int
	K            int
	Accuracy     float64
	TopKAccuracy float64
	Brier        float64 // Mean one-vs-rest squared error
}

// Evaluate categorizes every example and compares against its label.
func Evaluate(ctx context.Context, e *Engine, examples []model.TrainingExample, k int) (*EvaluationReport, error) {
	if len(examples) == 0 {
		return nil, common.ConfigurationErrorf("evaluation dataset is empty")
	}
	if k < 1 {
		k = 1
	}

	merchants := make([]string, len(examples))
	for i, ex := range examples {
		merchants[i] = ex.Merchant
	}
	results, err := e.CategorizeBatch(ctx, merchants, 0)
	if err != nil {
		return nil, err
	}

	report := &EvaluationReport{
		Confusion: make(map[string]map[string]int),
		Sources:   make(map[model.Source]int),
		Total:     len(examples),
		K:         k,
	}

	labelSet := make(map[string]struct{})
	var topK int
	var brier float64
	for i, ex := range examples {
		actual := strings.TrimSpace(ex.Category)
		r := results[i]
		labelSet[actual] = struct{}{}
		labelSet[r.Category] = struct{}{}

		if report.Confusion[actual] == nil {
			report.Confusion[actual] = make(map[string]int)
		}
		report.Confusion[actual][r.Category]++
		report.Sources[r.Source]++
		if r.Fallback {
			report.Fallbacks++
		}

		if r.Category == actual {
			report.Correct++
		}
		if r.Category == actual || inTopK(r.Distribution, actual, k) {
			topK++
		}
		brier += brierScore(r.Distribution, actual)
	}

	report.Labels = make([]string, 0, len(labelSet))
	for label := range labelSet {
		report.Labels = append(report.Labels, label)
	}
	sort.Strings(report.Labels)

	n := float64(report.Total)
	report.Accuracy = float64(report.Correct) / n
	report.TopKAccuracy = float64(topK) / n
	report.Brier = brier / n
	report.PerCategory = perCategoryMetrics(report.Confusion, report.Labels)

	return report, nil
}

func inTopK(dist model.Distribution, label string, k int) bool {
	for _, p := range dist.TopN(k) {
		if p.Category == label {
			return true
		}
	}
	return false
}

// brierScore averages the squared error over the model's categories.
func brierScore(dist model.Distribution, actual string) float64 {
	if len(dist) == 0 {
		return 1
	}
	var sum float64
	for _, p := range dist {
		target := 0.0
		if p.Category == actual {
			target = 1
		}
		diff := p.Probability - target
		sum += diff * diff
	}
	return sum / float64(len(dist))
}

func perCategoryMetrics(confusion map[string]map[string]int, labels []string) []CategoryMetrics {
	predicted := make(map[string]int)
	for _, row := range confusion {
		for label, count := range row {
			predicted[label] += count
		}
	}

	metrics := make([]CategoryMetrics, 0, len(labels))
	for _, label := range labels {
		tp := confusion[label][label]
		support := 0
		for _, count := range confusion[label] {
			support += count
		}

		m := CategoryMetrics{Category: label, Support: support}
		if predicted[label] > 0 {
			m.Precision = float64(tp) / float64(predicted[label])
		}
		if support > 0 {
			m.Recall = float64(tp) / float64(support)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		metrics = append(metrics, m)
	}
	return metrics
}
