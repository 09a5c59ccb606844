package infer

import "math"

// Argmax picks the highest-scoring class per row of flat [n * classes]
// logits. A single-column output is treated as a binary logit: class 1 when
// its sigmoid exceeds 0.5.
func Argmax(logits []float32, classes int) []int {
	if classes <= 0 {
		return nil
	}
	n := len(logits) / classes
	out := make([]int, n)
	for i := range n {
		row := logits[i*classes : (i+1)*classes]
		if classes == 1 {
			if sigmoid(row[0]) > 0.5 {
				out[i] = 1
			}
			continue
		}
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// Softmax converts one row of logits into probabilities.
func Softmax(row []float32) []float64 {
	if len(row) == 0 {
		return nil
	}
	peak := float64(row[0])
	for _, v := range row[1:] {
		peak = max(peak, float64(v))
	}
	out := make([]float64, len(row))
	var sum float64
	for i, v := range row {
		out[i] = math.Exp(float64(v) - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func sigmoid(x float32) float64 {
	return 1 / (1 + math.Exp(-float64(x)))
}
