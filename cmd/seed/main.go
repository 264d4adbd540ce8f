// Command seed generates a small IEEE-CIS shaped raw dataset so the enrich
// command can run without the public download.
//
// Usage:
//
//	go run ./cmd/seed [flags]
//
// It writes train_transaction.csv and train_identity.csv into -out-dir. The
// transaction table carries exactly round(rows*fraud-rate) fraud rows in
// shuffled order; roughly a quarter of the transactions get an identity row,
// fraud rows more often than clean ones.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"auroraguard/enricher/internal/sampling"
	"auroraguard/enricher/internal/source"
)

func main() {
	outDir := flag.String("out-dir", "data/raw", "directory to write the raw CSV files into")
	rows := flag.Int("rows", 1000, "number of transactions")
	fraudRate := flag.Float64("fraud-rate", 0.05, "share of fraud transactions")
	seed := flag.Int64("seed", 42, "generator seed")
	flag.Parse()

	if *rows <= 0 || *fraudRate < 0 || *fraudRate > 1 {
		fmt.Fprintf(os.Stderr, "invalid flags: rows=%d fraud-rate=%v\n", *rows, *fraudRate)
		os.Exit(2)
	}

	rng := sampling.New(*seed, sampling.StreamRawInput) // deterministic seed for reproducibility
	tx, id := source.Synthesize(rng, *rows, *fraudRate)

	if err := source.WriteDir(*outDir, tx, id); err != nil {
		fmt.Fprintf(os.Stderr, "write error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d transactions (%d identity rows) → %s\n",
		tx.Len(), id.Len(), filepath.Join(*outDir, source.TransactionFile))
}
