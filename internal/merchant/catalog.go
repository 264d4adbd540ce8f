// Package merchant builds the synthetic merchant catalog and assigns
// merchants to records conditioned on their fraud label.
package merchant

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"auroraguard/enricher/internal/sampling"
)

// Catalog defaults.
const (
	DefaultSize     = 200
	DefaultHighRisk = 20
)

// Base-risk ranges. High-risk merchants spread over the upper range, the rest
// over the lower one.
const (
	highRiskMin = 0.08
	highRiskMax = 0.40
	lowRiskMin  = 0.01
	lowRiskMax  = 0.05
)

// ErrCatalog is returned for an impossible catalog shape.
var ErrCatalog = errors.New("merchant: invalid catalog size")

// Merchant is one catalog entry.
type Merchant struct {
	ID         string
	Popularity float64 // ∝ 1/rank, sums to 1 over the catalog
	Risk       float64 // base fraud risk
	HighRisk   bool    // Risk came from the high-risk range
}

// Catalog is immutable once built.
type Catalog struct {
	merchants  []Merchant
	byID       map[string]int
	popularity []float64
	riskNorm   []float64 // Risk normalized to sum to 1
}

// Build constructs a catalog of size merchants, highRisk of which get a base
// risk from the high-risk range. Popularity follows rank order (m_0001 is the
// most popular); risks are shuffled across all merchants with a generator
// derived from seed, so risk is independent of popularity rank.
func Build(size, highRisk int, seed int64) (*Catalog, error) {
	if size <= 0 || highRisk < 0 || highRisk > size {
		return nil, fmt.Errorf("%w: size=%d high_risk=%d", ErrCatalog, size, highRisk)
	}

	pop := make([]float64, size)
	for i := range pop {
		pop[i] = 1 / float64(i+1)
	}
	pop, _ = sampling.Normalize(pop)

	type riskEntry struct {
		risk float64
		high bool
	}
	risks := make([]riskEntry, 0, size)
	for _, r := range sampling.Linspace(highRiskMin, highRiskMax, highRisk) {
		risks = append(risks, riskEntry{risk: r, high: true})
	}
	for _, r := range sampling.Linspace(lowRiskMin, lowRiskMax, size-highRisk) {
		risks = append(risks, riskEntry{risk: r})
	}
	rng := sampling.New(seed, sampling.StreamCatalog)
	rng.Shuffle(len(risks), func(i, j int) { risks[i], risks[j] = risks[j], risks[i] })

	c := &Catalog{
		merchants:  make([]Merchant, size),
		byID:       make(map[string]int, size),
		popularity: pop,
	}
	riskVals := make([]float64, size)
	for i := range c.merchants {
		id := fmt.Sprintf("m_%04d", i+1)
		c.merchants[i] = Merchant{ID: id, Popularity: pop[i], Risk: risks[i].risk, HighRisk: risks[i].high}
		c.byID[id] = i
		riskVals[i] = risks[i].risk
	}
	norm, err := sampling.Normalize(riskVals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	c.riskNorm = norm
	return c, nil
}

// Len is the number of merchants.
func (c *Catalog) Len() int { return len(c.merchants) }

// Merchants returns a copy of the catalog entries in rank order.
func (c *Catalog) Merchants() []Merchant {
	return append([]Merchant(nil), c.merchants...)
}

// Lookup returns the merchant with the given id.
func (c *Catalog) Lookup(id string) (Merchant, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Merchant{}, false
	}
	return c.merchants[i], true
}

// Popularity returns the popularity weights in rank order.
func (c *Catalog) Popularity() []float64 { return append([]float64(nil), c.popularity...) }

// RiskWeights returns the base risks normalized to sum to 1.
func (c *Catalog) RiskWeights() []float64 { return append([]float64(nil), c.riskNorm...) }

// Blend is the share of popularity in a partition's merchant weights; the
// remainder comes from normalized risk.
type Blend float64

// Partition blends. Fraud records lean towards risky merchants, clean records
// towards popular ones.
const (
	FraudBlend Blend = 0.5
	CleanBlend Blend = 0.8
)

// Weights returns the blended weight vector.
func (c *Catalog) Weights(b Blend) []float64 {
	w := make([]float64, len(c.merchants))
	for i := range w {
		w[i] = float64(b)*c.popularity[i] + (1-float64(b))*c.riskNorm[i]
	}
	return w
}

// Assign picks a merchant id per record. Fraud records (isFraud[i] == 1)
// consume fraudRNG, every other record consumes cleanRNG, each in record
// order.
func (c *Catalog) Assign(isFraud []int8, fraudRNG, cleanRNG *rand.Rand) ([]string, error) {
	fraudCat, err := sampling.NewCategorical(c.Weights(FraudBlend))
	if err != nil {
		return nil, fmt.Errorf("fraud weights: %w", err)
	}
	cleanCat, err := sampling.NewCategorical(c.Weights(CleanBlend))
	if err != nil {
		return nil, fmt.Errorf("clean weights: %w", err)
	}

	var nFraud int
	for _, f := range isFraud {
		if f == 1 {
			nFraud++
		}
	}
	fraudDraws := fraudCat.DrawN(fraudRNG, nFraud)
	cleanDraws := cleanCat.DrawN(cleanRNG, len(isFraud)-nFraud)

	out := make([]string, len(isFraud))
	var fi, ci int
	for i, f := range isFraud {
		if f == 1 {
			out[i] = c.merchants[fraudDraws[fi]].ID
			fi++
		} else {
			out[i] = c.merchants[cleanDraws[ci]].ID
			ci++
		}
	}
	return out, nil
}
