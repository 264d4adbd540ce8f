// Package domain contains the core types shared across the pipeline.
// Keeping the column names and the Bronze record in one place makes the
// schema easy to reason about.
package domain

import "time"

// ─── Constants ───────────────────────────────────────────────────────────────

// DefaultCurrency is stamped on every Bronze record; the raw dataset carries
// no currency.
const DefaultCurrency = "USD"

// Transaction-id policies applied after resampling.
const (
	IDPolicyUnique = "unique" // re-sequence 1..n whenever an id repeats
	IDPolicyReplay = "replay" // keep repeats as replays of the same transaction
)

// ─── Raw input columns ───────────────────────────────────────────────────────

// Columns of the raw transaction and identity tables.
const (
	RawTransactionID  = "TransactionID" // join key
	RawTransactionDT  = "TransactionDT" // seconds from an implicit reference
	RawTransactionAmt = "TransactionAmt"
	RawIsFraud        = "isFraud"
	RawCard1          = "card1"
	RawAddr1          = "addr1"
	RawEmailDomain    = "P_emaildomain"
	RawUID            = "uid"
	RawUID2           = "uid2"
	RawDeviceInfo     = "DeviceInfo" // identity table
	RawDeviceType     = "DeviceType" // identity table
)

// RequiredRawColumns have no fallback; a missing one is a configuration error.
var RequiredRawColumns = []string{RawIsFraud, RawTransactionAmt}

// ─── Bronze columns ──────────────────────────────────────────────────────────

// Bronze column names, in declared order.
const (
	ColTransactionID    = "transaction_id"
	ColEventTS          = "event_ts"
	ColEventDate        = "event_date"
	ColTransactionAmt   = "transaction_amt"
	ColCurrency         = "currency"
	ColDeviceID         = "device_id"
	ColIP               = "ip"
	ColIPCountry        = "ip_country"
	ColMerchantID       = "merchant_id"
	ColBillingCountry   = "billing_country"
	ColIsFraud          = "is_fraud"
	ColLabelAvailableTS = "label_available_ts"
)

// ─── Core domain types ────────────────────────────────────────────────────────

// BronzeRecord is one row of the Bronze artifact. Field order is the column
// order of the file.
type BronzeRecord struct {
	TransactionID    int64     `parquet:"transaction_id"`
	EventTS          time.Time `parquet:"event_ts,timestamp(nanosecond)"`
	EventDate        string    `parquet:"event_date"` // YYYY-MM-DD of EventTS
	TransactionAmt   float64   `parquet:"transaction_amt"`
	Currency         string    `parquet:"currency"`
	DeviceID         string    `parquet:"device_id"` // 16 lowercase hex chars
	IP               string    `parquet:"ip"`
	IPCountry        string    `parquet:"ip_country"`  // ISO-3166-1 alpha-2
	MerchantID       string    `parquet:"merchant_id"` // m_0001..
	BillingCountry   string    `parquet:"billing_country"`
	IsFraud          int32     `parquet:"is_fraud"` // 0 or 1; int8 in memory
	LabelAvailableTS time.Time `parquet:"label_available_ts,timestamp(nanosecond)"`
}
