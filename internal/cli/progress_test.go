package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrainingProgress(t *testing.T) {
	var out bytes.Buffer
	progress := NewTrainingProgress(&out, 4)

	fn := progress.Func()
	for epoch := 1; epoch <= 4; epoch++ {
		fn(epoch, 4, 1/float64(epoch))
	}
	progress.Finish()

	assert.InDelta(t, 0.25, progress.LastLoss(), 1e-12)
	assert.Contains(t, out.String(), "Training classifier")
	assert.Contains(t, out.String(), "4/4")
}
