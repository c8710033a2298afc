package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/merchcat/internal/model"
)

// ReviewSource labels training examples produced by an interactive review.
const ReviewSource = "review"

// ErrInputTerminated is returned when input ends in the middle of a prompt.
var ErrInputTerminated = errors.New("input terminated")

// ReviewStats summarizes a review session.
type ReviewStats struct {
	Total     int
	Accepted  int
	Corrected int
	Skipped   int
	Duration  time.Duration
	Quit      bool
}

// Reviewer walks the user through low-confidence categorizations and turns
// their answers into training examples.
type Reviewer struct {
	startTime        time.Time
	writer           io.Writer
	reader           *NonBlockingReader
	progressBar      *progressbar.ProgressBar
	recentCategories []string
	stats            ReviewStats
	threshold        float64
}

// NewReviewer creates a reviewer. Confidences at or above threshold render
// as confident.
func NewReviewer(reader io.Reader, writer io.Writer, threshold float64) *Reviewer {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Reviewer{
		reader:    NewNonBlockingReader(reader),
		writer:    writer,
		threshold: threshold,
	}
}

// Review prompts for each result in turn. Quitting, or running out of input,
// ends the session early and keeps the answers given so far.
func (r *Reviewer) Review(ctx context.Context, results []model.ClassificationResult) ([]model.TrainingExample, error) {
	r.startTime = time.Now()
	r.stats = ReviewStats{}
	r.initProgressBar(len(results))
	defer func() { r.stats.Duration = time.Since(r.startTime) }()

	examples := make([]model.TrainingExample, 0, len(results))
	for i, result := range results {
		if err := ctx.Err(); err != nil {
			return examples, err
		}

		category, err := r.reviewOne(ctx, i+1, len(results), result)
		if errors.Is(err, ErrInputTerminated) {
			r.stats.Quit = true
			break
		}
		if err != nil {
			return examples, err
		}
		r.updateProgress()

		if r.stats.Quit {
			break
		}
		if category == "" {
			continue
		}

		examples = append(examples, model.TrainingExample{
			Merchant:  result.Merchant,
			Category:  category,
			Source:    ReviewSource,
			CreatedAt: time.Now(),
		})
	}

	return examples, nil
}

// Stats returns statistics for the last session.
func (r *Reviewer) Stats() ReviewStats {
	return r.stats
}

// reviewOne returns the chosen category, or "" when skipped.
func (r *Reviewer) reviewOne(ctx context.Context, position, total int, result model.ClassificationResult) (string, error) {
	r.stats.Total++

	if _, err := fmt.Fprintf(r.writer, "\n[%d/%d]\n", position, total); err != nil {
		return "", fmt.Errorf("failed to write position: %w", err)
	}
	if _, err := fmt.Fprintln(r.writer, RenderBox("Review: "+result.Merchant, r.formatResult(result))); err != nil {
		return "", fmt.Errorf("failed to write review box: %w", err)
	}

	options := fmt.Sprintf("  [A] Accept: %s\n", SuccessStyle.Render(result.Category)) +
		"  [C] Enter correct category\n" +
		"  [S] Skip\n" +
		"  [Q] Quit and save answers so far\n"
	if _, err := fmt.Fprintln(r.writer, options); err != nil {
		return "", fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := r.promptChoice(ctx, "Choice [A/C/S/Q]", []string{"a", "c", "s", "q"})
	if err != nil {
		return "", err
	}

	switch choice {
	case "a":
		r.stats.Accepted++
		r.trackCategory(result.Category)
		return result.Category, nil
	case "c":
		category, err := r.promptCustomCategory(ctx)
		if err != nil {
			return "", err
		}
		r.stats.Corrected++
		r.trackCategory(category)
		if _, err := fmt.Fprintln(r.writer, FormatSuccess("Labeled as "+category)); err != nil {
			slog.Warn("Failed to write label confirmation", "error", err)
		}
		return category, nil
	case "s":
		r.stats.Skipped++
		return "", nil
	case "q":
		r.stats.Skipped++
		r.stats.Quit = true
		return "", nil
	}

	return "", fmt.Errorf("unexpected choice: %s", choice)
}

func (r *Reviewer) formatResult(result model.ClassificationResult) string {
	details := fmt.Sprintf("%s Details:\n", InfoIcon) +
		fmt.Sprintf("  Normalized: %s\n", result.Normalized) +
		fmt.Sprintf("  Suggestion: %s (%s)\n",
			BoldStyle.Render(result.Category),
			FormatConfidence(result.Confidence, r.threshold)) +
		fmt.Sprintf("  Source: %s", result.Source)

	if result.MatchedMerchant != "" {
		details += fmt.Sprintf("\n  Matched: %s", result.MatchedMerchant)
	}
	if result.Fallback {
		details += "\n" + FormatWarning("No features recognized; suggestion is the most common category")
	}

	alternatives := ""
	shown := 0
	for _, p := range result.Distribution.Sorted() {
		if p.Category == result.Category {
			continue
		}
		if shown == 2 {
			break
		}
		alternatives += fmt.Sprintf("\n  • %s %s", p.Category, SubtleStyle.Render(fmt.Sprintf("%.1f%%", p.Probability*100)))
		shown++
	}
	if alternatives != "" {
		details += fmt.Sprintf("\n\n%s Alternatives:", ChartIcon) + alternatives
	}

	return details
}

// ShowCompletion displays the completion summary to the user.
func (r *Reviewer) ShowCompletion() {
	if r.progressBar != nil {
		if err := r.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	}

	stats := r.stats
	title := "Review Complete"
	if stats.Quit {
		title = "Review Stopped"
	}

	summary := fmt.Sprintf("%s Statistics:\n", ChartIcon) +
		fmt.Sprintf("  • Reviewed: %d\n", stats.Total) +
		fmt.Sprintf("  • Accepted: %d\n", stats.Accepted) +
		fmt.Sprintf("  • Corrected: %d\n", stats.Corrected) +
		fmt.Sprintf("  • Skipped: %d\n", stats.Skipped) +
		fmt.Sprintf("  • Time taken: %s", stats.Duration.Round(time.Second))

	if _, err := fmt.Fprintln(r.writer, RenderBox(title, summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

func (r *Reviewer) initProgressBar(total int) {
	r.progressBar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reviewing...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(r.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func (r *Reviewer) updateProgress() {
	if r.progressBar != nil {
		if err := r.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func (r *Reviewer) trackCategory(category string) {
	r.recentCategories = append([]string{category}, r.recentCategories...)
	if len(r.recentCategories) > 10 {
		r.recentCategories = r.recentCategories[:10]
	}
}

func (r *Reviewer) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprintf(r.writer, "%s ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := r.readLine(ctx)
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(r.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (r *Reviewer) promptCustomCategory(ctx context.Context) (string, error) {
	if len(r.recentCategories) > 0 {
		if _, err := fmt.Fprintln(r.writer, FormatInfo("Recent categories:")); err != nil {
			return "", fmt.Errorf("failed to write recent categories header: %w", err)
		}
		seen := make(map[string]bool)
		for _, cat := range r.recentCategories {
			if !seen[cat] {
				if _, err := fmt.Fprintf(r.writer, "  • %s\n", cat); err != nil {
					slog.Warn("Failed to write recent category", "error", err)
				}
				seen[cat] = true
			}
		}
	}

	for {
		if _, err := fmt.Fprintf(r.writer, "%s ", FormatPrompt("Enter category:")); err != nil {
			return "", fmt.Errorf("failed to write category prompt: %w", err)
		}

		category, err := r.readLine(ctx)
		if err != nil {
			return "", err
		}
		if category != "" {
			return category, nil
		}

		if _, err := fmt.Fprintln(r.writer, FormatError("Category cannot be empty. Please try again.")); err != nil {
			slog.Warn("Failed to write empty category error", "error", err)
		}
	}
}

func (r *Reviewer) readLine(ctx context.Context) (string, error) {
	line, err := r.reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", ErrInputTerminated
	}
	if errors.Is(err, ErrInputCancelled) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
	}
	return line, err
}
