package process

import (
	"iter"

	"github.com/crimson-sun/corpora/internal/dataset"
)

// Pad returns ids cut or padded with padID to exactly length n.
func Pad(ids []int64, n int, padID int64) []int64 {
	out := make([]int64, n)
	k := copy(out, ids)
	for i := k; i < n; i++ {
		out[i] = padID
	}
	return out
}

// Batch holds padded examples as flat row-major tensors of
// [Size * SeqLen], ready to feed an inference session.
type Batch struct {
	IDs    []int64
	Mask   []int64
	Labels []int64
	Size   int64
	SeqLen int64
}

// Batches groups src into batches of up to size examples, padding each batch
// to its longest sequence, capped at maxLen when maxLen > 0.
func Batches(src dataset.Source[Example], size, maxLen int, padID int64) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for _, examples := range dataset.Batches(src, size) {
			if !yield(pack(examples, maxLen, padID)) {
				return
			}
		}
	}
}

func pack(examples []Example, maxLen int, padID int64) Batch {
	n := len(examples)
	seqLen := 0
	for _, ex := range examples {
		seqLen = max(seqLen, len(ex.IDs))
	}
	if maxLen > 0 {
		seqLen = min(seqLen, maxLen)
	}
	// Keep at least one column so empty texts still produce a valid tensor.
	seqLen = max(seqLen, 1)

	b := Batch{
		IDs:    make([]int64, n*seqLen),
		Mask:   make([]int64, n*seqLen),
		Labels: make([]int64, n),
		Size:   int64(n),
		SeqLen: int64(seqLen),
	}
	for i, ex := range examples {
		row := b.IDs[i*seqLen : (i+1)*seqLen]
		k := copy(row, ex.IDs)
		for j := k; j < seqLen; j++ {
			row[j] = padID
		}
		mask := b.Mask[i*seqLen : (i+1)*seqLen]
		for j := 0; j < k; j++ {
			mask[j] = 1
		}
		b.Labels[i] = int64(ex.Label)
	}
	return b
}
