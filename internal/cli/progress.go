package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/merchcat/internal/classifier"
)

// TrainingProgress renders classifier epochs as a progress bar.
type TrainingProgress struct {
	bar      *progressbar.ProgressBar
	writer   io.Writer
	lastLoss float64
}

// NewTrainingProgress creates a progress bar over the given number of epochs.
func NewTrainingProgress(writer io.Writer, epochs int) *TrainingProgress {
	p := &TrainingProgress{writer: writer}
	p.bar = progressbar.NewOptions(epochs,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Training classifier...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Func returns the callback to hand to training.
func (p *TrainingProgress) Func() classifier.ProgressFunc {
	return func(epoch, _ int, loss float64) {
		p.lastLoss = loss
		if err := p.bar.Set(epoch); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

// Finish completes the bar.
func (p *TrainingProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

// LastLoss returns the loss reported by the most recent epoch.
func (p *TrainingProgress) LastLoss() float64 {
	return p.lastLoss
}
