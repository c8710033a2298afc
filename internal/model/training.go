package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// TrainingExample is one labeled (merchant, category) pair.
type TrainingExample struct {
	CreatedAt time.Time
	Merchant  string
	Category  string
	Source    string // Where the example came from, e.g. a CSV file name
	ID        int64
}

// GenerateHash creates a hash for duplicate detection within one source.
// Conflicting labels for the same merchant hash differently and are kept.
func (e *TrainingExample) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s",
		strings.TrimSpace(e.Merchant),
		strings.TrimSpace(e.Category),
		e.Source)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// CategoryCount is the number of training examples carrying a label.
type CategoryCount struct {
	Category string
	Count    int
}
