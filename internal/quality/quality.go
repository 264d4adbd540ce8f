// Package quality measures a finished Bronze dataset: shape of the
// synthetic identifiers, geo and mismatch rates, label timing and merchant
// fraud lift. Measurements never fail a run; they are logged and returned.
package quality

import (
	"errors"
	"log/slog"
	"net/netip"
	"regexp"
	"sort"
	"time"

	"auroraguard/enricher/internal/domain"
	"auroraguard/enricher/internal/geo"
	"auroraguard/enricher/internal/merchant"
	"auroraguard/enricher/internal/store"
	"auroraguard/enricher/internal/temporal"
)

// TopMerchants bounds the lift listing.
const TopMerchants = 15

var hex16 = regexp.MustCompile(`^[0-9a-f]{16}$`)

// MerchantLift is the fraud over-representation of one merchant.
type MerchantLift struct {
	MerchantID string
	HighRisk   bool
	Rows       int
	Fraud      int
	// Lift is fraud share / overall share.
	Lift float64
}

// Report summarises a dataset.
type Report struct {
	Rows      int
	FraudRows int
	FraudRate float64

	DistinctDevices  int
	DeviceCollisions int // rows minus distinct device ids
	Hex16Share       float64

	DistinctIPs  int
	ForeignIPs   int // ip outside the blocks of its ip_country
	MismatchRate float64
	CountryShare map[string]float64

	DuplicateIDs int // rows whose transaction id was already seen

	LabelDelayExact bool
	BadLabelDelay   int
	EventNotBefore  int // rows with event_ts >= label_available_ts
	BadEventDate    int

	UnknownMerchants  int
	NegativeAmounts   int
	HighRiskFraudRate float64
	OtherFraudRate    float64
	TopLift           []MerchantLift

	FirstEvent time.Time
	LastEvent  time.Time
}

// Measure indexes records and derives a Report. geoTable and catalog may be
// nil, in which case the checks that need them are skipped.
func Measure(records []domain.BronzeRecord, geoTable *geo.Table, catalog *merchant.Catalog, delayDays int) Report {
	s := store.New()
	var rep Report
	delay := temporal.Delay(delayDays)
	hexOK := 0

	for i := range records {
		r := &records[i]
		if err := s.Save(r); errors.Is(err, store.ErrDuplicateTransaction) {
			rep.DuplicateIDs++
		}
		if hex16.MatchString(r.DeviceID) {
			hexOK++
		}
		if r.LabelAvailableTS.Sub(r.EventTS) != delay {
			rep.BadLabelDelay++
		}
		if !r.EventTS.Before(r.LabelAvailableTS) {
			rep.EventNotBefore++
		}
		if r.EventDate != r.EventTS.UTC().Format(temporal.DateLayout) {
			rep.BadEventDate++
		}
		if r.TransactionAmt < 0 {
			rep.NegativeAmounts++
		}
		if geoTable != nil {
			addr, err := netip.ParseAddr(r.IP)
			if err != nil || !geoTable.Owns(r.IPCountry, addr) {
				rep.ForeignIPs++
			}
		}
		if catalog != nil {
			if _, ok := catalog.Lookup(r.MerchantID); !ok {
				rep.UnknownMerchants++
			}
		}
	}

	rep.Rows = s.Rows()
	rep.FraudRows = s.FraudRows()
	rep.DistinctDevices = s.DistinctDevices()
	rep.DeviceCollisions = rep.Rows - rep.DistinctDevices
	rep.DistinctIPs = s.DistinctIPs()
	rep.LabelDelayExact = rep.BadLabelDelay == 0
	rep.FirstEvent, rep.LastEvent = s.EventRange()
	if rep.Rows == 0 {
		return rep
	}
	rows := float64(rep.Rows)
	rep.FraudRate = float64(rep.FraudRows) / rows
	rep.Hex16Share = float64(hexOK) / rows
	rep.MismatchRate = float64(s.Mismatches()) / rows

	rep.CountryShare = make(map[string]float64)
	for c, n := range s.CountryCounts() {
		rep.CountryShare[c] = float64(n) / rows
	}

	rep.TopLift, rep.HighRiskFraudRate, rep.OtherFraudRate = merchantLift(s, catalog)
	return rep
}

func merchantLift(s *store.Store, catalog *merchant.Catalog) ([]MerchantLift, float64, float64) {
	var lifts []MerchantLift
	var high, other store.EntityStats
	for _, id := range s.MerchantIDs() {
		st, _ := s.Merchant(id)
		l := MerchantLift{MerchantID: id, Rows: st.Rows, Fraud: st.Fraud}
		if catalog != nil {
			if m, ok := catalog.Lookup(id); ok {
				l.HighRisk = m.HighRisk
			}
		}
		if s.FraudRows() > 0 {
			fraudShare := float64(st.Fraud) / float64(s.FraudRows())
			overallShare := float64(st.Rows) / float64(s.Rows())
			l.Lift = fraudShare / overallShare
		}
		if l.HighRisk {
			high.Rows += st.Rows
			high.Fraud += st.Fraud
		} else {
			other.Rows += st.Rows
			other.Fraud += st.Fraud
		}
		lifts = append(lifts, l)
	}
	sort.SliceStable(lifts, func(i, j int) bool { return lifts[i].Lift > lifts[j].Lift })
	if len(lifts) > TopMerchants {
		lifts = lifts[:TopMerchants]
	}
	return lifts, high.FraudRate(), other.FraudRate()
}

// LogValue renders the headline numbers for structured logging.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("rows", r.Rows),
		slog.Float64("fraud_rate", r.FraudRate),
		slog.Int("distinct_devices", r.DistinctDevices),
		slog.Int("device_collisions", r.DeviceCollisions),
		slog.Float64("hex16_share", r.Hex16Share),
		slog.Int("distinct_ips", r.DistinctIPs),
		slog.Int("foreign_ips", r.ForeignIPs),
		slog.Float64("mismatch_rate", r.MismatchRate),
		slog.Int("duplicate_ids", r.DuplicateIDs),
		slog.Bool("label_delay_exact", r.LabelDelayExact),
		slog.Int("event_not_before_label", r.EventNotBefore),
		slog.Float64("high_risk_fraud_rate", r.HighRiskFraudRate),
		slog.Float64("other_fraud_rate", r.OtherFraudRate),
		slog.Time("first_event", r.FirstEvent),
		slog.Time("last_event", r.LastEvent),
	)
}

// TopCountry returns the country with the largest share; ties break on code.
func (r Report) TopCountry() string {
	var best string
	for c, share := range r.CountryShare {
		if best == "" || share > r.CountryShare[best] || (share == r.CountryShare[best] && c < best) {
			best = c
		}
	}
	return best
}
