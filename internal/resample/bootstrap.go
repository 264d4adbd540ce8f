// Package resample sizes a working dataset to an exact target row count.
package resample

import (
	"errors"
	"math/rand/v2"

	"auroraguard/enricher/internal/frame"
	"auroraguard/enricher/internal/sampling"
)

var (
	// ErrEmpty is returned when there are no rows to resample from.
	ErrEmpty = errors.New("resample: source has no rows")
	// ErrTarget is returned for a non-positive target.
	ErrTarget = errors.New("resample: target row count must be positive")
)

// Replicas is the number of full copies of m rows needed to cover n.
func Replicas(m, n int) int {
	return (n + m - 1) / m
}

// Indices returns n source row indices in draw order.
//
// With m >= n it is a plain downsample: n distinct rows. With m < n the
// source is replicated Replicas(m, n) times and n distinct positions are drawn
// from the replicated range, so a row appears at most Replicas(m, n) times.
// The trim to n draws across copies, so a row may appear fewer than n/m times
// or not at all; only when m divides n does every row appear exactly n/m
// times.
func Indices(rng *rand.Rand, m, n int) ([]int, error) {
	if m <= 0 {
		return nil, ErrEmpty
	}
	if n <= 0 {
		return nil, ErrTarget
	}
	if m >= n {
		return sampling.WithoutReplacement(rng, m, n), nil
	}
	pos := sampling.WithoutReplacement(rng, m*Replicas(m, n), n)
	for i, p := range pos {
		pos[i] = p % m
	}
	return pos, nil
}

// Sample resamples every column of f to n rows.
func Sample(rng *rand.Rand, f *frame.Frame, n int) (*frame.Frame, error) {
	idx, err := Indices(rng, f.Len(), n)
	if err != nil {
		return nil, err
	}
	return f.Take(idx), nil
}
