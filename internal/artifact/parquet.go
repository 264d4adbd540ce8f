// Package artifact writes the Bronze dataset as a Parquet file and reads it
// back.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"auroraguard/enricher/internal/domain"
	"auroraguard/enricher/internal/frame"
	"auroraguard/enricher/internal/sampling"
)

// MaxSampleRows bounds the convenience sample.
const MaxSampleRows = 10_000

// ErrColumn is returned when a frame cannot be converted to Bronze records.
var ErrColumn = errors.New("artifact: column missing or mistyped")

// Records converts a Bronze-shaped frame into rows.
func Records(f *frame.Frame) ([]domain.BronzeRecord, error) {
	var miss []string
	col := func(name string, got bool) {
		if !got {
			miss = append(miss, name)
		}
	}

	ids, got := frame.Get[frame.Int64s](f, domain.ColTransactionID)
	col(domain.ColTransactionID, got)
	eventTS, got := frame.Get[frame.Timestamps](f, domain.ColEventTS)
	col(domain.ColEventTS, got)
	eventDate, got := text(f, domain.ColEventDate)
	col(domain.ColEventDate, got)
	amt, got := frame.Get[frame.Float64s](f, domain.ColTransactionAmt)
	col(domain.ColTransactionAmt, got)
	currency, got := text(f, domain.ColCurrency)
	col(domain.ColCurrency, got)
	device, got := text(f, domain.ColDeviceID)
	col(domain.ColDeviceID, got)
	ip, got := text(f, domain.ColIP)
	col(domain.ColIP, got)
	ipCountry, got := text(f, domain.ColIPCountry)
	col(domain.ColIPCountry, got)
	merchantID, got := text(f, domain.ColMerchantID)
	col(domain.ColMerchantID, got)
	billing, got := text(f, domain.ColBillingCountry)
	col(domain.ColBillingCountry, got)
	fraud, got := frame.Get[frame.Int8s](f, domain.ColIsFraud)
	col(domain.ColIsFraud, got)
	labelTS, got := frame.Get[frame.Timestamps](f, domain.ColLabelAvailableTS)
	col(domain.ColLabelAvailableTS, got)
	if len(miss) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrColumn, miss)
	}

	out := make([]domain.BronzeRecord, f.Len())
	for i := range out {
		out[i] = domain.BronzeRecord{
			TransactionID:    ids[i],
			EventTS:          eventTS[i].UTC(),
			EventDate:        eventDate[i],
			TransactionAmt:   amt[i],
			Currency:         currency[i],
			DeviceID:         device[i],
			IP:               ip[i],
			IPCountry:        ipCountry[i],
			MerchantID:       merchantID[i],
			BillingCountry:   billing[i],
			IsFraud:          int32(fraud[i]),
			LabelAvailableTS: labelTS[i].UTC(),
		}
	}
	return out, nil
}

// text reads a textual column in either of its accepted representations.
func text(f *frame.Frame, name string) ([]string, bool) {
	c, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	switch v := c.(type) {
	case frame.Strings:
		return v, true
	case frame.ByteSlices:
		out := make([]string, len(v))
		for i, b := range v {
			out[i] = string(b)
		}
		return out, true
	}
	return nil, false
}

// Encode writes records as Parquet to w.
func Encode(w io.Writer, records []domain.BronzeRecord) error {
	pw := parquet.NewGenericWriter[domain.BronzeRecord](w, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(records); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Write stores the frame at path, creating parent directories.
func Write(path string, f *frame.Frame) error {
	records, err := Records(f)
	if err != nil {
		return err
	}
	return WriteRecords(path, records)
}

// WriteRecords stores records at path, creating parent directories.
func WriteRecords(path string, records []domain.BronzeRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(out, records); err != nil {
		out.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return out.Close()
}

// WriteSample stores up to MaxSampleRows uniformly sampled rows of f at path.
func WriteSample(path string, f *frame.Frame, rng *rand.Rand) (int, error) {
	records, err := Records(f)
	if err != nil {
		return 0, err
	}
	return WriteSampleRecords(path, records, rng)
}

// WriteSampleRecords is WriteSample over already converted records. Sampled
// rows keep their draw order.
func WriteSampleRecords(path string, records []domain.BronzeRecord, rng *rand.Rand) (int, error) {
	n := min(MaxSampleRows, len(records))
	idx := sampling.WithoutReplacement(rng, len(records), n)
	sample := make([]domain.BronzeRecord, n)
	for i, j := range idx {
		sample[i] = records[j]
	}
	if err := WriteRecords(path, sample); err != nil {
		return 0, err
	}
	return n, nil
}

// Read loads every record of a Bronze Parquet file.
func Read(path string) ([]domain.BronzeRecord, error) {
	rows, err := parquet.ReadFile[domain.BronzeRecord](path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
