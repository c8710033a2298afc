// Package model defines the core domain models used throughout the application.
package model

// Source indicates which path of the engine produced a classification.
type Source string

// Classification source constants.
const (
	SourceClassifier     Source = "classifier"
	SourceCanonicalMatch Source = "canonical-match"
)

// ClassificationResult is the outcome of categorizing one merchant string.
type ClassificationResult struct {
	Merchant        string       `json:"merchant"`
	Normalized      string       `json:"normalized"`
	Category        string       `json:"category"`
	Source          Source       `json:"source"`
	MatchedMerchant string       `json:"matched_merchant,omitempty"`
	Distribution    Distribution `json:"distribution,omitempty"`
	Confidence      float64      `json:"confidence"`
	Fallback        bool         `json:"fallback,omitempty"`
}

// IsConfident reports whether the result meets the given confidence threshold.
func (r ClassificationResult) IsConfident(threshold float64) bool {
	return !r.Fallback && r.Confidence >= threshold
}
