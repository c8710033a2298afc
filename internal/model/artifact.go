package model

import "time"

// ArtifactInfo describes a persisted model artifact.
type ArtifactInfo struct {
	CreatedAt      time.Time `json:"created_at"`
	ID             string    `json:"id"`
	Checksum       string    `json:"checksum"`
	Categories     []string  `json:"categories"`
	ExampleCount   int       `json:"example_count"`
	CanonicalCount int       `json:"canonical_count"`
	FeatureDim     int       `json:"feature_dim"`
	SizeBytes      int64     `json:"size_bytes"`
	Calibrated     bool      `json:"calibrated"`
	Active         bool      `json:"active"`
}
