// Package pipeline runs the Bronze enrichment end to end: load, enrich,
// resample, validate, measure and write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auroraguard/enricher/internal/artifact"
	"auroraguard/enricher/internal/config"
	"auroraguard/enricher/internal/domain"
	"auroraguard/enricher/internal/frame"
	"auroraguard/enricher/internal/geo"
	"auroraguard/enricher/internal/merchant"
	"auroraguard/enricher/internal/quality"
	"auroraguard/enricher/internal/resample"
	"auroraguard/enricher/internal/sampling"
	"auroraguard/enricher/internal/schema"
	"auroraguard/enricher/internal/source"
	"auroraguard/enricher/internal/temporal"
)

var (
	// ErrNoRows is returned when the transaction table has no data rows.
	ErrNoRows = errors.New("pipeline: input has no rows")
	// ErrSchema is returned in strict mode when the output fails validation.
	ErrSchema = errors.New("pipeline: bronze schema validation failed")
)

// Result describes a finished run.
type Result struct {
	RunID      string
	InputRows  int
	Rows       int
	Out        string
	Issues     []string // schema issues; empty when the output conforms
	SampleOut  string   // empty when the sample was disabled or failed
	SampleRows int
	Quality    quality.Report
	Elapsed    time.Duration
}

// Runner executes pipeline runs.
type Runner struct {
	Logger *slog.Logger
	// Priors overrides geo.DefaultPriors when non-nil.
	Priors []geo.Prior
}

// New creates a Runner that logs to logger, or to slog.Default() when nil.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Logger: logger}
}

// Run executes one pipeline run. Every table and generator is derived from
// cfg, so two runs with the same cfg and input write identical files.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (Result, error) {
	began := time.Now()
	res := Result{RunID: uuid.NewString(), Out: cfg.Out}
	log := r.logger().With("run_id", res.RunID)

	// ── Setup ─────────────────────────────────────────────────────────────────
	e, err := r.setup(cfg)
	if err != nil {
		return res, err
	}
	log.Info("run started",
		"raw_dir", cfg.RawDir, "out", cfg.Out, "target_rows", cfg.TargetRows,
		"seed", cfg.Seed, "id_policy", cfg.IDPolicy)

	// ── Load ──────────────────────────────────────────────────────────────────
	tbl, err := source.Load(cfg.RawDir, InputColumns)
	if err != nil {
		return res, fmt.Errorf("load %s: %w", cfg.RawDir, err)
	}
	if tbl.Len() == 0 {
		return res, fmt.Errorf("%w: %s", ErrNoRows, cfg.RawDir)
	}
	res.InputRows = tbl.Len()
	log.Info("stage complete", "stage", "load", "rows", tbl.Len(), "columns", len(tbl.Columns()))
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// ── Enrich ────────────────────────────────────────────────────────────────
	f, err := e.enrich(tbl)
	if err != nil {
		return res, fmt.Errorf("enrich: %w", err)
	}
	log.Info("stage complete", "stage", "enrich", "rows", f.Len())
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// ── Bootstrap ─────────────────────────────────────────────────────────────
	m := f.Len()
	f, err = resample.Sample(sampling.New(cfg.Seed, sampling.StreamBootstrap), f, cfg.TargetRows)
	if err != nil {
		return res, fmt.Errorf("bootstrap: %w", err)
	}
	if err := e.retime(f); err != nil {
		return res, fmt.Errorf("retime: %w", err)
	}
	resequenced, err := applyIDPolicy(f, cfg.IDPolicy)
	if err != nil {
		return res, err
	}
	res.Rows = f.Len()
	log.Info("stage complete", "stage", "bootstrap",
		"from", m, "rows", f.Len(), "upsampled", m < f.Len(),
		"replicas", resample.Replicas(m, f.Len()), "ids_resequenced", resequenced)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// ── Validate ──────────────────────────────────────────────────────────────
	for _, fd := range schema.Inspect(f) {
		if fd.Result == schema.Alternate {
			log.Debug("accepted alternate column type", "column", fd.Column, "want", fd.Want, "got", fd.Got)
		}
	}
	res.Issues = schema.Validate(f)
	if len(res.Issues) == 0 {
		log.Info("stage complete", "stage", "validate", "schema", "Bronze schema OK")
	} else {
		for _, issue := range res.Issues {
			log.Warn("schema issue", "stage", "validate", "issue", issue)
		}
		if cfg.StrictSchema {
			return res, fmt.Errorf("%w: %v", ErrSchema, res.Issues)
		}
	}

	// ── Measure ───────────────────────────────────────────────────────────────
	records, err := artifact.Records(f)
	if err != nil {
		return res, fmt.Errorf("convert: %w", err)
	}
	res.Quality = quality.Measure(records, e.geo, e.catalog, cfg.LabelDelayDays)
	log.Info("quality report", "stage", "measure", "report", res.Quality)

	// ── Write ─────────────────────────────────────────────────────────────────
	if err := artifact.WriteRecords(cfg.Out, records); err != nil {
		return res, fmt.Errorf("write artifact: %w", err)
	}
	log.Info("stage complete", "stage", "write", "path", cfg.Out, "rows", len(records))

	if cfg.SampleOut != "" {
		n, err := artifact.WriteSampleRecords(cfg.SampleOut, records, sampling.New(cfg.Seed, sampling.StreamSample))
		if err != nil {
			// Non-fatal: the main artifact is already written.
			log.Warn("convenience sample not written", "path", cfg.SampleOut, "reason", err.Error())
		} else {
			res.SampleOut, res.SampleRows = cfg.SampleOut, n
			log.Info("convenience sample written", "path", cfg.SampleOut, "rows", n)
		}
	}

	res.Elapsed = time.Since(began)
	log.Info("run finished", "rows", res.Rows, "elapsed", res.Elapsed)
	return res, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// setup builds the immutable tables of a run. All failures here are
// configuration errors raised before any per-row work.
func (r *Runner) setup(cfg config.Config) (*enricher, error) {
	start, err := temporal.ParseStart(cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start date: %v", config.ErrInvalid, err)
	}
	priors := r.Priors
	if priors == nil {
		priors = geo.DefaultPriors
	}
	g, err := geo.NewTable(priors)
	if err != nil {
		return nil, fmt.Errorf("country priors: %w", err)
	}
	c, err := merchant.Build(cfg.Merchants, cfg.HighRiskMerchants, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("merchant catalog: %w", err)
	}
	return &enricher{
		seed:      cfg.Seed,
		start:     start,
		delayDays: cfg.LabelDelayDays,
		mismatch:  cfg.MismatchProb,
		geo:       g,
		catalog:   c,
	}, nil
}

// applyIDPolicy enforces identifier integrity after resampling and reports
// whether the ids were re-sequenced.
func applyIDPolicy(f *frame.Frame, policy string) (bool, error) {
	ids, ok := frame.Get[frame.Int64s](f, domain.ColTransactionID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrSchema, domain.ColTransactionID)
	}
	switch policy {
	case domain.IDPolicyReplay:
		return false, nil
	case domain.IDPolicyUnique, "":
		if !hasDuplicates(ids) {
			return false, nil
		}
		return true, f.Set(domain.ColTransactionID, frame.Int64s(sequence(f.Len())))
	}
	return false, fmt.Errorf("%w: id policy %q", config.ErrInvalid, policy)
}
