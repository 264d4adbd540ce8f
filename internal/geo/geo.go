// Package geo samples IP addresses and countries from a fixed country prior
// and derives billing countries with a configurable mismatch rate.
//
// A Table is immutable once built; every draw takes the generator it should
// consume, so the same table can serve any number of independent streams.
package geo

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/netip"

	"auroraguard/enricher/internal/sampling"
)

// DefaultMismatchProb is the share of records whose billing country differs
// from their IP country.
const DefaultMismatchProb = 0.10

// Configuration errors. All are detected by NewTable, before any row is drawn.
var (
	ErrNoPriors  = errors.New("geo: country prior table is empty")
	ErrNoBlocks  = errors.New("geo: country has no address blocks")
	ErrBadBlock  = errors.New("geo: invalid address block")
	ErrBadWeight = errors.New("geo: invalid country weight")
	ErrBadCode   = errors.New("geo: empty or duplicated country code")
)

// Prior is one country's relative frequency and the blocks its addresses are
// drawn from.
type Prior struct {
	Country string
	Weight  float64
	Blocks  []string // IPv4 CIDR notation
}

// DefaultPriors are representative, not authoritative.
var DefaultPriors = []Prior{
	{Country: "US", Weight: 0.45, Blocks: []string{"3.0.0.0/8", "8.8.8.0/24", "44.0.0.0/8", "52.0.0.0/8"}},
	{Country: "GB", Weight: 0.08, Blocks: []string{"51.140.0.0/14", "35.176.0.0/15", "18.128.0.0/9"}},
	{Country: "DE", Weight: 0.07, Blocks: []string{"18.184.0.0/13", "35.156.0.0/14"}},
	{Country: "FR", Weight: 0.06, Blocks: []string{"15.236.0.0/15", "35.180.0.0/14"}},
	{Country: "CA", Weight: 0.06, Blocks: []string{"15.222.0.0/15", "52.95.0.0/16"}},
	{Country: "AU", Weight: 0.04, Blocks: []string{"13.236.0.0/14", "52.62.0.0/15"}},
	{Country: "IN", Weight: 0.14, Blocks: []string{"13.232.0.0/14", "15.206.0.0/15"}},
	{Country: "BR", Weight: 0.10, Blocks: []string{"15.228.0.0/14", "18.228.0.0/14"}},
}

type country struct {
	code   string
	weight float64
	blocks []netip.Prefix

	// others draws a different country, weighted by the prior renormalized
	// without this one. nil when the table has a single country.
	others   *sampling.Categorical
	otherIdx []int
}

// Table is the immutable country prior with its address blocks.
type Table struct {
	countries []country
	byCode    map[string]int
	prior     *sampling.Categorical
}

// NewTable validates and normalizes priors.
func NewTable(priors []Prior) (*Table, error) {
	if len(priors) == 0 {
		return nil, ErrNoPriors
	}

	t := &Table{byCode: make(map[string]int, len(priors))}
	weights := make([]float64, len(priors))
	for i, p := range priors {
		if _, dup := t.byCode[p.Country]; dup || p.Country == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadCode, p.Country)
		}
		if !(p.Weight > 0) {
			return nil, fmt.Errorf("%w: %s has weight %v", ErrBadWeight, p.Country, p.Weight)
		}
		if len(p.Blocks) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoBlocks, p.Country)
		}
		c := country{code: p.Country, weight: p.Weight}
		for _, b := range p.Blocks {
			pfx, err := netip.ParsePrefix(b)
			if err != nil || !pfx.Addr().Is4() {
				return nil, fmt.Errorf("%w: %s %q", ErrBadBlock, p.Country, b)
			}
			c.blocks = append(c.blocks, pfx.Masked())
		}
		t.byCode[p.Country] = i
		t.countries = append(t.countries, c)
		weights[i] = p.Weight
	}

	norm, err := sampling.Normalize(weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWeight, err)
	}
	for i := range t.countries {
		t.countries[i].weight = norm[i]
	}
	if t.prior, err = sampling.NewCategorical(norm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWeight, err)
	}

	for i := range t.countries {
		if len(t.countries) < 2 {
			break
		}
		var idx []int
		var w []float64
		for j, o := range t.countries {
			if j != i {
				idx = append(idx, j)
				w = append(w, o.weight)
			}
		}
		cat, err := sampling.NewCategorical(w)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadWeight, err)
		}
		t.countries[i].others = cat
		t.countries[i].otherIdx = idx
	}
	return t, nil
}

// Countries returns the country codes in table order.
func (t *Table) Countries() []string {
	out := make([]string, len(t.countries))
	for i, c := range t.countries {
		out[i] = c.code
	}
	return out
}

// Weight returns the normalized prior of a country, 0 if unknown.
func (t *Table) Weight(code string) float64 {
	i, ok := t.byCode[code]
	if !ok {
		return 0
	}
	return t.countries[i].weight
}

// Top returns the country with the highest prior; the first one wins ties.
func (t *Table) Top() string {
	best := 0
	for i, c := range t.countries {
		if c.weight > t.countries[best].weight {
			best = i
		}
	}
	return t.countries[best].code
}

// Owns reports whether addr falls inside one of the country's blocks.
func (t *Table) Owns(code string, addr netip.Addr) bool {
	i, ok := t.byCode[code]
	if !ok {
		return false
	}
	for _, b := range t.countries[i].blocks {
		if b.Contains(addr) {
			return true
		}
	}
	return false
}

// Sample draws n (ip, country) pairs: a country from the prior, one of its
// blocks uniformly, then a host inside that block.
func (t *Table) Sample(rng *rand.Rand, n int) (ips, countries []string) {
	ips = make([]string, n)
	countries = make([]string, n)
	for i, ci := range t.prior.DrawN(rng, n) {
		c := &t.countries[ci]
		block := c.blocks[rng.IntN(len(c.blocks))]
		ips[i] = HostInBlock(rng, block).String()
		countries[i] = c.code
	}
	return ips, countries
}

// HostInBlock draws a host address uniformly from block, skipping the network
// and broadcast addresses when the block holds more than two addresses. A /31
// yields its first address and a /32 its only address.
func HostInBlock(rng *rand.Rand, block netip.Prefix) netip.Addr {
	block = block.Masked()
	hostBits := 32 - block.Bits()
	size := uint64(1) << hostBits
	if size <= 2 {
		return block.Addr()
	}
	offset := 1 + rng.Uint64N(size-2)
	b := block.Addr().As4()
	base := uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
	v := base + offset
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// Billing returns the billing country for one record. With probability
// 1-mismatch it is the IP country; otherwise a different country drawn from
// the prior renormalized without the IP country. Unknown countries, and
// single-country tables, always return the input.
func (t *Table) Billing(rng *rand.Rand, ipCountry string, mismatch float64) string {
	u := rng.Float64()
	if u < 1-mismatch {
		return ipCountry
	}
	i, ok := t.byCode[ipCountry]
	if !ok || t.countries[i].others == nil {
		return ipCountry
	}
	c := &t.countries[i]
	return t.countries[c.otherIdx[c.others.Draw(rng)]].code
}

// BillingCountries assigns billing countries for a batch of IP countries.
func (t *Table) BillingCountries(rng *rand.Rand, ipCountries []string, mismatch float64) []string {
	out := make([]string, len(ipCountries))
	for i, c := range ipCountries {
		out[i] = t.Billing(rng, c, mismatch)
	}
	return out
}
