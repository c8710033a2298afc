package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/merchcat/internal/engine"
	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/storage"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(BorderColor)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Headers(headers...)
}

func writeTable(w io.Writer, t *table.Table) error {
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

// RenderResults writes one row per categorized merchant. txns may be nil;
// when present it must align with results and adds date and amount columns.
func RenderResults(w io.Writer, results []model.ClassificationResult, txns []model.Transaction, threshold float64) error {
	withTxns := len(txns) == len(results) && len(txns) > 0

	headers := []string{"MERCHANT", "CATEGORY", "CONFIDENCE", "SOURCE", "MATCHED"}
	if withTxns {
		headers = append([]string{"DATE", "AMOUNT"}, headers...)
	}
	t := newTable(headers...)

	for i, r := range results {
		category := r.Category
		if !r.IsConfident(threshold) {
			category = WarningStyle.Render(category + " ?")
		}
		row := []string{
			Truncate(r.Merchant, 40),
			category,
			FormatConfidence(r.Confidence, threshold),
			string(r.Source),
			r.MatchedMerchant,
		}
		if withTxns {
			date := ""
			if !txns[i].Date.IsZero() {
				date = txns[i].Date.Format("2006-01-02")
			}
			row = append([]string{date, fmt.Sprintf("%.2f", txns[i].Amount)}, row...)
		}
		t.Row(row...)
	}

	return writeTable(w, t)
}

// RenderBatchSummary writes batch totals.
func RenderBatchSummary(w io.Writer, s engine.BatchSummary) error {
	content := fmt.Sprintf("  • Merchants: %d\n", s.Total) +
		fmt.Sprintf("  • Canonical matches: %d\n", s.CanonicalCount) +
		fmt.Sprintf("  • Classifier: %d\n", s.ClassifierCount) +
		fmt.Sprintf("  • Confident: %d\n", s.ConfidentCount) +
		fmt.Sprintf("  • Needs review: %d\n", s.NeedsReview) +
		fmt.Sprintf("  • Unrecognized: %d\n", s.FallbackCount) +
		fmt.Sprintf("  • Time taken: %s", s.ProcessingTime.Round(time.Millisecond))

	if _, err := fmt.Fprintln(w, RenderBox(ChartIcon+" Summary", content)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// RenderTrainingReport writes the outcome of a training run.
func RenderTrainingReport(w io.Writer, report engine.TrainingReport) error {
	content := fmt.Sprintf("  • Examples: %d (%d held out)\n", report.Examples, report.HoldoutSize) +
		fmt.Sprintf("  • Categories: %d\n", len(report.Categories)) +
		fmt.Sprintf("  • Canonical merchants: %d\n", report.CanonicalMerchants) +
		fmt.Sprintf("  • Features: %d word, %d char\n", report.WordFeatures, report.CharFeatures) +
		fmt.Sprintf("  • Epochs: %d, final loss %.4f\n", report.Epochs, report.FinalLoss) +
		fmt.Sprintf("  • Time taken: %s", report.Duration.Round(time.Millisecond))

	switch {
	case report.Calibrated:
		content += "\n" + FormatSuccess(fmt.Sprintf("Calibrated (holdout accuracy %.1f%%)", report.HoldoutAccuracy*100))
	case report.Degraded:
		reason := "holdout too small"
		if report.DegradedReason != nil {
			reason = report.DegradedReason.Error()
		}
		content += "\n" + FormatWarning("Uncalibrated: "+reason)
	}

	if _, err := fmt.Fprintln(w, RenderBox("Training Complete", content)); err != nil {
		return fmt.Errorf("failed to write training report: %w", err)
	}
	return nil
}

// RenderEvaluation writes overall scores and a per-category table.
func RenderEvaluation(w io.Writer, report *engine.EvaluationReport) error {
	content := fmt.Sprintf("  • Examples: %d\n", report.Total) +
		fmt.Sprintf("  • Accuracy: %.1f%% (%d correct)\n", report.Accuracy*100, report.Correct) +
		fmt.Sprintf("  • Top-%d accuracy: %.1f%%\n", report.K, report.TopKAccuracy*100) +
		fmt.Sprintf("  • Brier score: %.4f\n", report.Brier) +
		fmt.Sprintf("  • Canonical matches: %d\n", report.Sources[model.SourceCanonicalMatch]) +
		fmt.Sprintf("  • Unrecognized: %d", report.Fallbacks)

	if _, err := fmt.Fprintln(w, RenderBox(ChartIcon+" Evaluation", content)); err != nil {
		return fmt.Errorf("failed to write evaluation: %w", err)
	}

	t := newTable("CATEGORY", "PRECISION", "RECALL", "F1", "SUPPORT")
	for _, m := range report.PerCategory {
		t.Row(
			m.Category,
			fmt.Sprintf("%.3f", m.Precision),
			fmt.Sprintf("%.3f", m.Recall),
			fmt.Sprintf("%.3f", m.F1),
			strconv.Itoa(m.Support),
		)
	}
	return writeTable(w, t)
}

// RenderArtifacts lists stored models, newest first.
func RenderArtifacts(w io.Writer, infos []model.ArtifactInfo) error {
	t := newTable("ID", "CREATED", "EXAMPLES", "CATEGORIES", "SIZE", "CALIBRATED", "ACTIVE")
	for _, info := range infos {
		active := ""
		if info.Active {
			active = SuccessStyle.Render(SuccessIcon)
		}
		calibrated := "no"
		if info.Calibrated {
			calibrated = "yes"
		}
		t.Row(
			InfoStyle.Render(info.ID),
			FormatRelativeTime(info.CreatedAt),
			strconv.Itoa(info.ExampleCount),
			strconv.Itoa(len(info.Categories)),
			FormatFileSize(info.SizeBytes),
			calibrated,
			active,
		)
	}
	return writeTable(w, t)
}

// RenderCategoryCounts writes label counts with each label's share.
func RenderCategoryCounts(w io.Writer, counts []model.CategoryCount) error {
	total := 0
	for _, c := range counts {
		total += c.Count
	}

	t := newTable("CATEGORY", "EXAMPLES", "SHARE")
	for _, c := range counts {
		share := 0.0
		if total > 0 {
			share = float64(c.Count) / float64(total) * 100
		}
		t.Row(c.Category, strconv.Itoa(c.Count), fmt.Sprintf("%.1f%%", share))
	}
	if err := writeTable(w, t); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, SubtleStyle.Render(fmt.Sprintf("%d examples across %d categories", total, len(counts)))); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}
	return nil
}

// RenderExamples lists training examples.
func RenderExamples(w io.Writer, examples []model.TrainingExample) error {
	t := newTable("ID", "MERCHANT", "CATEGORY", "SOURCE")
	for _, ex := range examples {
		t.Row(strconv.FormatInt(ex.ID, 10), ex.Merchant, ex.Category, SubtleStyle.Render(ex.Source))
	}
	return writeTable(w, t)
}

// RenderCheckpoints lists checkpoints, newest first.
func RenderCheckpoints(w io.Writer, checkpoints []storage.CheckpointInfo) error {
	t := newTable("NAME", "CREATED", "SIZE", "EXAMPLES", "MODELS", "TYPE")
	for _, cp := range checkpoints {
		typeLabel := "manual"
		if cp.IsAuto {
			typeLabel = "auto"
		}
		t.Row(
			InfoStyle.Render(cp.ID),
			FormatRelativeTime(cp.CreatedAt),
			FormatFileSize(cp.FileSize),
			strconv.Itoa(cp.Examples),
			strconv.Itoa(cp.Models),
			SubtleStyle.Render(typeLabel),
		)
	}
	return writeTable(w, t)
}

// FormatFileSize renders a byte count with a binary unit.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FormatRelativeTime renders t relative to now, falling back to a date
// after a week.
func FormatRelativeTime(t time.Time) string {
	return formatRelativeTime(t, time.Now())
}

func formatRelativeTime(t, now time.Time) string {
	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return plural(int(duration.Minutes()), "minute") + " ago"
	case duration < 24*time.Hour:
		return plural(int(duration.Hours()), "hour") + " ago"
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}
