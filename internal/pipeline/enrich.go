package pipeline

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"auroraguard/enricher/internal/domain"
	"auroraguard/enricher/internal/frame"
	"auroraguard/enricher/internal/geo"
	"auroraguard/enricher/internal/identity"
	"auroraguard/enricher/internal/merchant"
	"auroraguard/enricher/internal/sampling"
	"auroraguard/enricher/internal/source"
	"auroraguard/enricher/internal/temporal"
)

// AmountJitter is the relative standard deviation applied to amounts.
const AmountJitter = 0.015

// InputColumns are the raw columns the pipeline reads; everything else in the
// input files is dropped while loading.
var InputColumns = unique(append([]string{
	domain.RawTransactionID,
	domain.RawTransactionDT,
	domain.RawTransactionAmt,
	domain.RawIsFraud,
}, identity.DeviceFields...))

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// enricher holds the immutable tables and settings of one run.
type enricher struct {
	seed      int64
	start     time.Time
	delayDays int
	mismatch  float64
	geo       *geo.Table
	catalog   *merchant.Catalog
}

func (e *enricher) rng(s sampling.Stream) *rand.Rand { return sampling.New(e.seed, s) }

// enrich turns the raw joined table into a frame holding exactly the Bronze
// columns, one row per input row.
func (e *enricher) enrich(tbl *source.Table) (*frame.Frame, error) {
	n := tbl.Len()

	offsets, present := tbl.Column(domain.RawTransactionDT)
	base := temporal.BaseTimes(offsets, present, n, e.start, temporal.SyntheticStep)
	eventTS := temporal.Jitter(e.rng(sampling.StreamEventJitter), base, temporal.EventJitter)

	devices := identity.DeviceIDs(n, tbl.Value)
	ips, countries := e.geo.Sample(e.rng(sampling.StreamGeo), n)
	billing := e.geo.BillingCountries(e.rng(sampling.StreamBilling), countries, e.mismatch)

	rawLabels, _ := tbl.Column(domain.RawIsFraud)
	labels := parseLabels(rawLabels, n)
	merchants, err := e.catalog.Assign(labels, e.rng(sampling.StreamMerchantFraud), e.rng(sampling.StreamMerchantClean))
	if err != nil {
		return nil, fmt.Errorf("assign merchants: %w", err)
	}

	rawAmounts, _ := tbl.Column(domain.RawTransactionAmt)
	amounts := jitterAmounts(e.rng(sampling.StreamAmountJitter), parseAmounts(rawAmounts, n))

	rawIDs, hasIDs := tbl.Column(domain.RawTransactionID)
	ids, ok := parseIDs(rawIDs, hasIDs, n)
	if !ok {
		ids = sequence(n)
	}

	currency := make(frame.Strings, n)
	for i := range currency {
		currency[i] = domain.DefaultCurrency
	}

	f := frame.New()
	cols := []struct {
		name string
		col  frame.Column
	}{
		{domain.ColTransactionID, frame.Int64s(ids)},
		{domain.ColEventTS, frame.Timestamps(eventTS)},
		{domain.ColEventDate, frame.Strings(temporal.EventDates(eventTS))},
		{domain.ColTransactionAmt, frame.Float64s(amounts)},
		{domain.ColCurrency, currency},
		{domain.ColDeviceID, frame.Strings(devices)},
		{domain.ColIP, frame.Strings(ips)},
		{domain.ColIPCountry, frame.Strings(countries)},
		{domain.ColMerchantID, frame.Strings(merchants)},
		{domain.ColBillingCountry, frame.Strings(billing)},
		{domain.ColIsFraud, frame.Int8s(labels)},
		{domain.ColLabelAvailableTS, frame.Timestamps(temporal.LabelTimes(eventTS, e.delayDays))},
	}
	for _, c := range cols {
		if err := f.Set(c.name, c.col); err != nil {
			return nil, fmt.Errorf("set %s: %w", c.name, err)
		}
	}
	return f, nil
}

// retime applies the post-resampling jitter and recomputes the derived
// timestamp columns.
func (e *enricher) retime(f *frame.Frame) error {
	ts, ok := frame.Get[frame.Timestamps](f, domain.ColEventTS)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSchema, domain.ColEventTS)
	}
	jittered := temporal.Jitter(e.rng(sampling.StreamPostJitter), ts, temporal.PostJitter)
	if err := f.Set(domain.ColEventTS, frame.Timestamps(jittered)); err != nil {
		return err
	}
	if err := f.Set(domain.ColEventDate, frame.Strings(temporal.EventDates(jittered))); err != nil {
		return err
	}
	return f.Set(domain.ColLabelAvailableTS, frame.Timestamps(temporal.LabelTimes(jittered, e.delayDays)))
}

// ─── Parsing ──────────────────────────────────────────────────────────────────

// parseLabels maps any non-zero numeric label to 1; missing or unparseable
// labels read as 0.
func parseLabels(raw []string, n int) []int8 {
	out := make([]int8, n)
	for i := 0; i < n && i < len(raw); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw[i]), 64)
		if err == nil && v != 0 && !math.IsNaN(v) {
			out[i] = 1
		}
	}
	return out
}

// parseAmounts reads amounts; missing or unparseable values become 0.
func parseAmounts(raw []string, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n && i < len(raw); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw[i]), 64)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
		}
	}
	return out
}

// jitterAmounts scales each amount by 1+N(0, AmountJitter) and clips at zero.
func jitterAmounts(rng *rand.Rand, amounts []float64) []float64 {
	noise := sampling.Normals(rng, len(amounts), AmountJitter)
	out := make([]float64, len(amounts))
	for i, a := range amounts {
		out[i] = max(0, a*(1+noise[i]))
	}
	return out
}

// parseIDs returns the raw transaction ids, or ok=false when the column is
// absent or any value is missing or not an integer.
func parseIDs(raw []string, present bool, n int) ([]int64, bool) {
	if !present || len(raw) < n {
		return nil, false
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		s := strings.TrimSpace(raw[i])
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Numeric exports sometimes write integral ids as floats.
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
				return nil, false
			}
			v = int64(f)
		}
		out[i] = v
	}
	return out, true
}

// sequence returns 1..n.
func sequence(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

// hasDuplicates reports whether any id repeats.
func hasDuplicates(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
