package source_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"auroraguard/enricher/internal/domain"
	"auroraguard/enricher/internal/sampling"
	"auroraguard/enricher/internal/source"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// ─── ReadCSV ──────────────────────────────────────────────────────────────────

func TestReadCSV_ProjectsColumns(t *testing.T) {
	in := "TransactionID,isFraud,V1,TransactionAmt\n1,0,x,10.5\n2,1,y,3\n"
	tbl, err := source.ReadCSV(strings.NewReader(in), []string{"TransactionID", "TransactionAmt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tbl.Columns(); len(got) != 2 || got[0] != "TransactionID" || got[1] != "TransactionAmt" {
		t.Errorf("expected projected header, got %v", got)
	}
	if tbl.Has("V1") {
		t.Error("expected V1 to be dropped")
	}
	if v := tbl.Value(1, "TransactionAmt"); v != "3" {
		t.Errorf("expected 3, got %q", v)
	}
	if v := tbl.Value(0, "isFraud"); v != "" {
		t.Errorf("expected empty value for a dropped column, got %q", v)
	}
}

func TestReadCSV_ShortRowsPadded(t *testing.T) {
	tbl, err := source.ReadCSV(strings.NewReader("a,b,c\n1\n"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Value(0, "a") != "1" || tbl.Value(0, "c") != "" {
		t.Errorf("unexpected row values a=%q c=%q", tbl.Value(0, "a"), tbl.Value(0, "c"))
	}
}

func TestReadCSV_StripsByteOrderMark(t *testing.T) {
	in := "\ufeffTransactionID,isFraud\n5,0\n6,1\n"
	tbl, err := source.ReadCSV(strings.NewReader(in), []string{domain.RawTransactionID, domain.RawIsFraud})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tbl.Has(domain.RawTransactionID) {
		t.Fatalf("expected TransactionID behind a BOM, got header %q", tbl.Columns())
	}
	if v := tbl.Value(1, domain.RawTransactionID); v != "6" {
		t.Errorf("expected id 6, got %q", v)
	}
}

func TestLoad_JoinsBehindByteOrderMark(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, source.TransactionFile, "\ufeffTransactionID,isFraud,TransactionAmt\n5,0,1\n6,1,2\n")
	writeFile(t, dir, source.IdentityFile, "\ufeffTransactionID,DeviceInfo\n6,Windows\n")

	tbl, err := source.Load(dir, []string{domain.RawIsFraud, domain.RawTransactionAmt, domain.RawDeviceInfo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := tbl.Value(0, domain.RawTransactionID); v != "5" {
		t.Errorf("expected raw id 5, got %q", v)
	}
	if v := tbl.Value(1, domain.RawDeviceInfo); v != "Windows" {
		t.Errorf("expected identity join on id 6, got %q", v)
	}
}

// ─── LeftJoin ─────────────────────────────────────────────────────────────────

func TestLeftJoin_PreservesEveryTransaction(t *testing.T) {
	left := source.NewTable([]string{"TransactionID", "isFraud"})
	left.Append([]string{"1", "0"})
	left.Append([]string{"2", "1"})
	left.Append([]string{"", "0"})

	right := source.NewTable([]string{"TransactionID", "DeviceInfo"})
	right.Append([]string{"2", "iOS Device"})
	right.Append([]string{"2", "Windows"})
	right.Append([]string{"99", "orphan"})

	got := source.LeftJoin(left, right, "TransactionID")
	if got.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", got.Len())
	}
	if v := got.Value(0, "DeviceInfo"); v != "" {
		t.Errorf("unmatched row should have empty DeviceInfo, got %q", v)
	}
	if v := got.Value(1, "DeviceInfo"); v != "iOS Device" {
		t.Errorf("expected first identity match, got %q", v)
	}
	if v := got.Value(2, "DeviceInfo"); v != "" {
		t.Errorf("empty key must not match, got %q", v)
	}
}

// ─── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_JoinsIdentity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, source.TransactionFile, "TransactionID,isFraud,TransactionAmt,card1\n1,0,5,100\n2,1,7,200\n")
	writeFile(t, dir, source.IdentityFile, "TransactionID,DeviceInfo,id_01\n2,Windows,-5\n")

	tbl, err := source.Load(dir, []string{domain.RawIsFraud, domain.RawTransactionAmt, domain.RawCard1, domain.RawDeviceInfo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Has("id_01") {
		t.Error("expected unrequested identity column to be dropped")
	}
	if v := tbl.Value(1, domain.RawDeviceInfo); v != "Windows" {
		t.Errorf("expected Windows, got %q", v)
	}
}

func TestLoad_IdentityOptional(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, source.TransactionFile, "isFraud,TransactionAmt\n0,5\n")
	tbl, err := source.Load(dir, []string{domain.RawIsFraud, domain.RawTransactionAmt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 1 || tbl.Has(domain.RawTransactionID) {
		t.Errorf("unexpected table: rows=%d columns=%v", tbl.Len(), tbl.Columns())
	}
}

func TestLoad_MissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, source.TransactionFile, "TransactionID,TransactionAmt\n1,5\n")
	_, err := source.Load(dir, []string{domain.RawIsFraud, domain.RawTransactionAmt})
	if !errors.Is(err, source.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoad_MissingTransactionFile(t *testing.T) {
	if _, err := source.Load(t.TempDir(), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

// ─── Synthesize ───────────────────────────────────────────────────────────────

func TestSynthesize_ExactFraudCount(t *testing.T) {
	tx, id := source.Synthesize(sampling.New(42, sampling.StreamRawInput), 1000, 0.05)
	if tx.Len() != 1000 {
		t.Fatalf("expected 1000 rows, got %d", tx.Len())
	}
	labels, _ := tx.Column(domain.RawIsFraud)
	fraud := 0
	for _, l := range labels {
		if l == "1" {
			fraud++
		}
	}
	if fraud != 50 {
		t.Errorf("expected 50 fraud rows, got %d", fraud)
	}
	if id.Len() == 0 || id.Len() >= tx.Len() {
		t.Errorf("expected identity rows for a subset, got %d", id.Len())
	}
}

func TestSynthesize_RoundTripsThroughCSV(t *testing.T) {
	tx, _ := source.Synthesize(sampling.New(1, sampling.StreamRawInput), 20, 0.1)
	var buf bytes.Buffer
	if err := tx.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := source.ReadCSV(&buf, nil)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if back.Len() != 20 || back.Value(19, domain.RawTransactionID) != tx.Value(19, domain.RawTransactionID) {
		t.Errorf("round trip lost rows or values")
	}
}
