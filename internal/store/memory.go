// Package store keeps in-memory indexes over Bronze records so the quality
// checks can answer entity questions (how many rows share a device, how many
// fraud rows a merchant carries) without rescanning the dataset.
//
// The store is built once per run by a single goroutine and read afterwards,
// so it carries no locking.
package store

import (
	"errors"
	"sort"
	"time"

	"auroraguard/enricher/internal/domain"
)

// ErrDuplicateTransaction is returned when a transaction ID is saved twice.
// The record is still indexed; a repeated id is a replay, not a rejection.
var ErrDuplicateTransaction = errors.New("transaction already exists")

// EntityStats counts rows and fraud rows attached to one entity value.
type EntityStats struct {
	Rows  int
	Fraud int
}

// FraudRate is Fraud/Rows, or 0 for an empty entity.
func (e EntityStats) FraudRate() float64 {
	if e.Rows == 0 {
		return 0
	}
	return float64(e.Fraud) / float64(e.Rows)
}

// Store indexes Bronze records by entity.
type Store struct {
	rows, fraud int
	mismatches  int
	first, last time.Time

	// Secondary indexes: entity value → counts.
	byID       map[int64]int
	byDevice   map[string]int
	byIP       map[string]int
	byCountry  map[string]int
	byMerchant map[string]*EntityStats
}

// New creates an empty, ready-to-use Store.
func New() *Store {
	return &Store{
		byID:       make(map[int64]int),
		byDevice:   make(map[string]int),
		byIP:       make(map[string]int),
		byCountry:  make(map[string]int),
		byMerchant: make(map[string]*EntityStats),
	}
}

// ─── Writes ───────────────────────────────────────────────────────────────────

// Save indexes a record. Returns ErrDuplicateTransaction if its ID was seen
// before.
func (s *Store) Save(r *domain.BronzeRecord) error {
	s.rows++
	if r.IsFraud == 1 {
		s.fraud++
	}
	if r.IPCountry != r.BillingCountry {
		s.mismatches++
	}
	if s.first.IsZero() || r.EventTS.Before(s.first) {
		s.first = r.EventTS
	}
	if r.EventTS.After(s.last) {
		s.last = r.EventTS
	}

	s.byDevice[r.DeviceID]++
	s.byIP[r.IP]++
	s.byCountry[r.IPCountry]++

	m := s.byMerchant[r.MerchantID]
	if m == nil {
		m = &EntityStats{}
		s.byMerchant[r.MerchantID] = m
	}
	m.Rows++
	if r.IsFraud == 1 {
		m.Fraud++
	}

	s.byID[r.TransactionID]++
	if s.byID[r.TransactionID] > 1 {
		return ErrDuplicateTransaction
	}
	return nil
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// Rows is the number of saved records.
func (s *Store) Rows() int { return s.rows }

// FraudRows is the number of saved records labeled fraud.
func (s *Store) FraudRows() int { return s.fraud }

// Mismatches counts records whose billing country differs from the IP country.
func (s *Store) Mismatches() int { return s.mismatches }

// EventRange returns the earliest and latest event time.
func (s *Store) EventRange() (first, last time.Time) { return s.first, s.last }

// DistinctIDs is the number of distinct transaction IDs.
func (s *Store) DistinctIDs() int { return len(s.byID) }

// DistinctDevices is the number of distinct device IDs.
func (s *Store) DistinctDevices() int { return len(s.byDevice) }

// DistinctIPs is the number of distinct IP addresses.
func (s *Store) DistinctIPs() int { return len(s.byIP) }

// RowsByDevice returns how many records carry the device ID.
func (s *Store) RowsByDevice(device string) int { return s.byDevice[device] }

// RowsByID returns how many records carry the transaction ID.
func (s *Store) RowsByID(id int64) int { return s.byID[id] }

// CountryCounts returns a copy of the per-country row counts.
func (s *Store) CountryCounts() map[string]int {
	out := make(map[string]int, len(s.byCountry))
	for k, v := range s.byCountry {
		out[k] = v
	}
	return out
}

// Merchant returns the stats of one merchant.
func (s *Store) Merchant(id string) (EntityStats, bool) {
	m, ok := s.byMerchant[id]
	if !ok {
		return EntityStats{}, false
	}
	return *m, true
}

// MerchantIDs returns every merchant seen, sorted.
func (s *Store) MerchantIDs() []string {
	out := make([]string, 0, len(s.byMerchant))
	for id := range s.byMerchant {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
