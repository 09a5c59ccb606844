package dataset

import (
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
)

// Source is any finite, indexable sequence.
type Source[T any] interface {
	Len() int
	At(i int) T
}

// All iterates src in order, yielding index and element.
func All[T any](src Source[T]) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < src.Len(); i++ {
			if !yield(i, src.At(i)) {
				return
			}
		}
	}
}

// Collect copies src into a slice.
func Collect[T any](src Source[T]) []T {
	out := make([]T, src.Len())
	for i := range out {
		out[i] = src.At(i)
	}
	return out
}

// View is a Source over a subset of another source's positions.
type View[T any] struct {
	src     Source[T]
	indices []int
}

func (v *View[T]) Len() int   { return len(v.indices) }
func (v *View[T]) At(i int) T { return v.src.At(v.indices[i]) }

// Indices returns the positions in the underlying source, in view order.
func (v *View[T]) Indices() []int { return append([]int(nil), v.indices...) }

// Shard returns the i-th of n interleaved shards of src: positions i, i+n, i+2n...
func Shard[T any](src Source[T], n, i int) (*View[T], error) {
	if n <= 0 || i < 0 || i >= n {
		return nil, fmt.Errorf("dataset: invalid shard %d of %d", i, n)
	}
	var idx []int
	for j := i; j < src.Len(); j += n {
		idx = append(idx, j)
	}
	return &View[T]{src: src, indices: idx}, nil
}

// Batches yields consecutive slices of at most size elements. The last batch
// may be shorter.
func Batches[T any](src Source[T], size int) iter.Seq2[int, []T] {
	return func(yield func(int, []T) bool) {
		if size <= 0 {
			return
		}
		n := src.Len()
		for b, start := 0, 0; start < n; b, start = b+1, start+size {
			end := min(start+size, n)
			batch := make([]T, 0, end-start)
			for j := start; j < end; j++ {
				batch = append(batch, src.At(j))
			}
			if !yield(b, batch) {
				return
			}
		}
	}
}

// Split shuffles src's positions with seed and cuts them into len(fractions)
// views. Fractions must be positive and sum to 1; rounding leftovers go to
// the last view. The same seed always produces the same split.
func Split[T any](src Source[T], fractions []float64, seed uint64) ([]*View[T], error) {
	if len(fractions) == 0 {
		return nil, fmt.Errorf("dataset: split needs at least one fraction")
	}
	var sum float64
	for _, f := range fractions {
		if f <= 0 {
			return nil, fmt.Errorf("dataset: split fraction %v must be positive", f)
		}
		sum += f
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("dataset: split fractions sum to %v, want 1", sum)
	}

	n := src.Len()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	views := make([]*View[T], len(fractions))
	start := 0
	for k, f := range fractions {
		end := start + int(math.Round(f*float64(n)))
		if k == len(fractions)-1 || end > n {
			end = n
		}
		views[k] = &View[T]{src: src, indices: perm[start:end:end]}
		start = end
	}
	return views, nil
}
