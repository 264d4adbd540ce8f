// Package schema declares the Bronze column contract and checks a frame
// against it.
package schema

import (
	"fmt"

	"auroraguard/enricher/internal/domain"
	"auroraguard/enricher/internal/frame"
)

// Column is one declared column.
type Column struct {
	Name string
	Kind frame.Kind
}

// Bronze is the fixed Bronze schema in column order. Downstream stages rely
// on it; keep it stable.
var Bronze = []Column{
	// ids & core amounts
	{domain.ColTransactionID, frame.Int64},
	{domain.ColEventTS, frame.Timestamp},
	{domain.ColEventDate, frame.String},
	{domain.ColTransactionAmt, frame.Float64},
	{domain.ColCurrency, frame.String},
	// enrichment
	{domain.ColDeviceID, frame.String},
	{domain.ColIP, frame.String},
	{domain.ColIPCountry, frame.String},
	{domain.ColMerchantID, frame.String},
	{domain.ColBillingCountry, frame.String},
	// labels & latency simulation
	{domain.ColIsFraud, frame.Int8},
	{domain.ColLabelAvailableTS, frame.Timestamp},
}

// Names returns the Bronze column names in order.
func Names() []string {
	out := make([]string, len(Bronze))
	for i, c := range Bronze {
		out[i] = c.Name
	}
	return out
}

// Conformance grades a runtime kind against a declared one.
type Conformance int

const (
	Exact     Conformance = iota // same representation
	Alternate                    // a different but acceptable representation
	Mismatch
)

func (c Conformance) String() string {
	switch c {
	case Exact:
		return "exact"
	case Alternate:
		return "alternate"
	default:
		return "mismatch"
	}
}

// Conform grades got against want. Raw byte columns are an acceptable
// alternate for text; temporal and numeric columns must match exactly.
func Conform(want, got frame.Kind) Conformance {
	if want == got {
		return Exact
	}
	if want == frame.String && got == frame.Bytes {
		return Alternate
	}
	return Mismatch
}

// Finding is the conformance of one present, declared column.
type Finding struct {
	Column string
	Want   frame.Kind
	Got    frame.Kind
	Result Conformance
}

// Inspect grades every declared column present in f.
func Inspect(f *frame.Frame) []Finding {
	if f == nil {
		return nil
	}
	var out []Finding
	for _, col := range Bronze {
		c, ok := f.Column(col.Name)
		if !ok {
			continue
		}
		out = append(out, Finding{Column: col.Name, Want: col.Kind, Got: c.Kind(), Result: Conform(col.Kind, c.Kind())})
	}
	return out
}

// Validate checks f against Bronze and returns human-readable issues: missing
// columns, unexpected columns and type mismatches. An empty result means f
// conforms.
func Validate(f *frame.Frame) []string {
	var issues []string
	if f == nil {
		return []string{fmt.Sprintf("Missing columns: %v", Names())}
	}

	declared := make(map[string]bool, len(Bronze))
	var missing []string
	for _, col := range Bronze {
		declared[col.Name] = true
		if _, ok := f.Column(col.Name); !ok {
			missing = append(missing, col.Name)
		}
	}
	var extra []string
	for _, n := range f.Names() {
		if !declared[n] {
			extra = append(extra, n)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, fmt.Sprintf("Missing columns: %v", missing))
	}
	if len(extra) > 0 {
		issues = append(issues, fmt.Sprintf("Unexpected columns: %v", extra))
	}

	for _, fd := range Inspect(f) {
		if fd.Result == Mismatch {
			issues = append(issues, fmt.Sprintf("%s: want %s, got %s", fd.Column, fd.Want, fd.Got))
		}
	}
	return issues
}
