package classifier

// Calibrator maps a raw probability to a calibrated one with a monotone
// histogram table over equal-width bins of [0, 1].
type Calibrator struct {
	Values []float64
}

// priorWeight is the pseudo-count pulling sparse bins toward the prior.
const priorWeight = 1.0

// fitCalibrator builds a table from raw scores and binary outcomes. Observed
// bins are smoothed toward the prior, empty bins are interpolated, and the
// result is made non-decreasing.
func fitCalibrator(scores []float64, positive []bool, bins int, prior float64) Calibrator {
	counts := make([]float64, bins)
	hits := make([]float64, bins)
	for i, s := range scores {
		b := binOf(s, bins)
		counts[b]++
		if positive[i] {
			hits[b]++
		}
	}

	values := make([]float64, bins)
	weights := make([]float64, bins)
	var observed []int
	for b := range values {
		weights[b] = counts[b] + priorWeight
		if counts[b] > 0 {
			values[b] = (hits[b] + priorWeight*prior) / (counts[b] + priorWeight)
			observed = append(observed, b)
		}
	}
	if len(observed) == 0 {
		for b := range values {
			values[b] = prior
		}
		return Calibrator{Values: values}
	}
	fillEmptyBins(values, observed)

	return Calibrator{Values: poolAdjacentViolators(values, weights)}
}

// fillEmptyBins interpolates linearly between observed bins and holds the
// edge values flat beyond the first and last observed bin.
func fillEmptyBins(values []float64, observed []int) {
	first, last := observed[0], observed[len(observed)-1]
	for b := 0; b < first; b++ {
		values[b] = values[first]
	}
	for b := last + 1; b < len(values); b++ {
		values[b] = values[last]
	}
	for k := 1; k < len(observed); k++ {
		lo, hi := observed[k-1], observed[k]
		for b := lo + 1; b < hi; b++ {
			frac := float64(b-lo) / float64(hi-lo)
			values[b] = values[lo] + frac*(values[hi]-values[lo])
		}
	}
}

// Apply returns the calibrated probability for a raw score.
func (c Calibrator) Apply(score float64) float64 {
	if len(c.Values) == 0 {
		return score
	}
	return c.Values[binOf(score, len(c.Values))]
}

func binOf(score float64, bins int) int {
	b := int(score * float64(bins))
	if b < 0 {
		return 0
	}
	if b >= bins {
		return bins - 1
	}
	return b
}

// poolAdjacentViolators returns the weighted non-decreasing fit of values.
func poolAdjacentViolators(values, weights []float64) []float64 {
	type block struct {
		mean   float64
		weight float64
		size   int
	}

	blocks := make([]block, 0, len(values))
	for i, v := range values {
		blocks = append(blocks, block{mean: v, weight: weights[i], size: 1})
		for len(blocks) > 1 && blocks[len(blocks)-2].mean > blocks[len(blocks)-1].mean {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			w := prev.weight + last.weight
			blocks[len(blocks)-2] = block{
				mean:   (prev.mean*prev.weight + last.mean*last.weight) / w,
				weight: w,
				size:   prev.size + last.size,
			}
			blocks = blocks[:len(blocks)-1]
		}
	}

	out := make([]float64, 0, len(values))
	for _, b := range blocks {
		for range b.size {
			out = append(out, b.mean)
		}
	}
	return out
}
