// Command enrich builds the Bronze dataset from the raw IEEE-CIS tables.
//
// Usage:
//
//	go run ./cmd/enrich [flags]
//
// Every flag has a BRONZE_* environment variable counterpart (see -h); a .env
// file in the working directory is loaded first. Flags win over the
// environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"auroraguard/enricher/internal/config"
	"auroraguard/enricher/internal/pipeline"
)

func main() {
	cfg, err := config.Load("enrich", os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, config.ErrFlags):
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	})))

	// Stop between stages on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.New(slog.Default()).Run(ctx, cfg)
	if err != nil {
		slog.Error("run failed", "error", err)
		stop()
		os.Exit(1)
	}

	if len(res.Issues) == 0 {
		fmt.Println("[Schema check] Bronze schema OK.")
	} else {
		fmt.Println("[Schema check] Issues found:")
		for _, issue := range res.Issues {
			fmt.Println(" -", issue)
		}
	}
	fmt.Printf("Done. Wrote: %s  (rows=%d)\n", res.Out, res.Rows)
	if res.SampleOut != "" {
		fmt.Printf("Sample also at: %s (%d rows for quick inspection)\n", res.SampleOut, res.SampleRows)
	}
}
