package source

import (
	"math"
	"math/rand/v2"
	"strconv"

	"auroraguard/enricher/internal/domain"
)

// ─── Synthetic raw input ──────────────────────────────────────────────────────

// SynthTransactionColumns is the header of a synthesized transaction table.
var SynthTransactionColumns = []string{
	domain.RawTransactionID,
	domain.RawIsFraud,
	domain.RawTransactionDT,
	domain.RawTransactionAmt,
	domain.RawCard1,
	domain.RawAddr1,
	domain.RawEmailDomain,
}

// SynthIdentityColumns is the header of a synthesized identity table.
var SynthIdentityColumns = []string{
	domain.RawTransactionID,
	domain.RawDeviceType,
	domain.RawDeviceInfo,
}

// firstTransactionID mirrors the id range of the public dataset.
const firstTransactionID = 2987000

var emailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "anonymous.com", "aol.com",
	"comcast.net", "icloud.com", "outlook.com", "", "",
}

var deviceInfos = []string{"Windows", "iOS Device", "MacOS", "Trident/7.0", "SM-G930V", "rv:11.0", ""}

// Synthesize generates an IEEE-CIS shaped transaction table with exactly
// round(rows*fraudRate) fraud rows in shuffled order, plus an identity table
// covering roughly a quarter of the transactions (fraud rows more often).
// The output depends only on rng.
func Synthesize(rng *rand.Rand, rows int, fraudRate float64) (tx, id *Table) {
	nFraud := int(math.Round(float64(rows) * fraudRate))
	if nFraud > rows {
		nFraud = rows
	}
	if nFraud < 0 {
		nFraud = 0
	}
	labels := make([]bool, rows)
	for i := 0; i < nFraud; i++ {
		labels[i] = true
	}
	// Shuffle so fraud rows aren't trivially grouped in the file.
	rng.Shuffle(rows, func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })

	tx = NewTable(SynthTransactionColumns)
	id = NewTable(SynthIdentityColumns)

	dt := 86400 // the public dataset starts one day after its reference
	for i := 0; i < rows; i++ {
		txID := strconv.Itoa(firstTransactionID + i)
		dt += 1 + rng.IntN(120)

		fraud := "0"
		amountMu := 3.8
		identityShare := 0.22
		if labels[i] {
			fraud = "1"
			amountMu = 4.3
			identityShare = 0.55
		}
		amount := math.Exp(amountMu + 0.9*rng.NormFloat64())

		addr := ""
		if rng.Float64() >= 0.1 {
			addr = strconv.Itoa(100 + rng.IntN(440))
		}

		tx.Append([]string{
			txID,
			fraud,
			strconv.Itoa(dt),
			strconv.FormatFloat(math.Round(amount*1000)/1000, 'f', -1, 64),
			strconv.Itoa(1000 + rng.IntN(17000)),
			addr,
			emailDomains[rng.IntN(len(emailDomains))],
		})

		if rng.Float64() < identityShare {
			deviceType := "desktop"
			if rng.IntN(2) == 0 {
				deviceType = "mobile"
			}
			id.Append([]string{txID, deviceType, deviceInfos[rng.IntN(len(deviceInfos))]})
		}
	}
	return tx, id
}
