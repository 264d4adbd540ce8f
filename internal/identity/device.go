// Package identity derives stable pseudo-random identifiers from raw record
// attributes.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Salt prefixes every device fingerprint hash.
const Salt = "auroraguard"

// DeviceFields are the raw columns mixed into a device fingerprint, in order.
// Columns absent from the input contribute an empty string.
var DeviceFields = []string{"card1", "addr1", "P_emaildomain", "uid", "uid2", "TransactionID"}

// Hash returns the first 16 lowercase hex characters of
// sha256(salt + "|" + strings.Join(parts, "|")).
func Hash(salt string, parts []string) string {
	sum := sha256.Sum256([]byte(salt + "|" + strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}

// DeviceID fingerprints one record. values must follow DeviceFields order.
func DeviceID(values []string) string {
	return Hash(Salt, values)
}

// Lookup returns the raw value of a column for a row, "" when missing.
type Lookup func(row int, column string) string

// DeviceIDs fingerprints n rows in one pass.
func DeviceIDs(n int, value Lookup) []string {
	out := make([]string, n)
	parts := make([]string, len(DeviceFields))
	for i := range out {
		for j, col := range DeviceFields {
			parts[j] = value(i, col)
		}
		out[i] = DeviceID(parts)
	}
	return out
}
