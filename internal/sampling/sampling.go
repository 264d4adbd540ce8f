// Package sampling provides the seeded random streams and the batch draws
// shared by every generative component of the pipeline.
//
// Each sampling concern owns its own generator, keyed by (seed, stream), so
// drawing more or fewer values for one concern never shifts another concern's
// sequence.
package sampling

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
)

// Stream identifies one independent sampling concern.
type Stream uint64

// Streams used by the pipeline. Values are part of the reproducibility
// contract: renumbering them changes every artifact.
const (
	StreamCatalog Stream = iota + 1
	StreamGeo
	StreamBilling
	StreamMerchantFraud
	StreamMerchantClean
	StreamEventJitter
	StreamAmountJitter
	StreamBootstrap
	StreamPostJitter
	StreamSample
	StreamRawInput
)

// ErrWeights is returned when a weight vector cannot form a distribution.
var ErrWeights = errors.New("weights must be non-negative with a positive sum")

// New returns the generator for one concern of a run.
func New(seed int64, s Stream) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(s)))
}

// Normalize scales weights so they sum to 1.
func Normalize(w []float64) ([]float64, error) {
	var sum float64
	for _, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrWeights
		}
		sum += v
	}
	if sum <= 0 {
		return nil, ErrWeights
	}
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = v / sum
	}
	return out, nil
}

// Categorical draws indices according to a fixed weight vector.
type Categorical struct {
	cdf []float64
}

// NewCategorical builds a sampler over weights. The weights do not need to be
// normalized.
func NewCategorical(weights []float64) (*Categorical, error) {
	p, err := Normalize(weights)
	if err != nil {
		return nil, err
	}
	cdf := make([]float64, len(p))
	var acc float64
	for i, v := range p {
		acc += v
		cdf[i] = acc
	}
	cdf[len(cdf)-1] = 1
	return &Categorical{cdf: cdf}, nil
}

// Len is the number of categories.
func (c *Categorical) Len() int { return len(c.cdf) }

// Draw returns one category index.
func (c *Categorical) Draw(rng *rand.Rand) int {
	u := rng.Float64()
	i := sort.SearchFloat64s(c.cdf, u)
	// u on a boundary belongs to the next category with positive weight.
	for i < len(c.cdf)-1 && c.cdf[i] == u {
		i++
	}
	return i
}

// DrawN returns n category indices in one pass.
func (c *Categorical) DrawN(rng *rand.Rand, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = c.Draw(rng)
	}
	return out
}

// WithoutReplacement returns n distinct values from [0, size) in draw order
// using a partial Fisher–Yates shuffle. It panics if n > size.
func WithoutReplacement(rng *rand.Rand, size, n int) []int {
	if n > size {
		panic("sampling: n exceeds population size")
	}
	pool := make([]int, size)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + rng.IntN(size-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n]
}

// Normals returns n draws from N(0, stddev).
func Normals(rng *rand.Rand, n int, stddev float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * stddev
	}
	return out
}

// Linspace returns n evenly spaced values over [lo, hi], both ends included.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	out[n-1] = hi
	return out
}
