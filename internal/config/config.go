// Package config resolves pipeline settings from defaults, an optional .env
// file, environment variables and command-line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrInvalid is returned when a resolved setting fails validation.
var ErrInvalid = errors.New("config: invalid settings")

// ErrFlags is returned when the command line cannot be parsed.
var ErrFlags = errors.New("config: bad flags")

// Config holds every tunable of a pipeline run.
type Config struct {
	RawDir     string `env:"BRONZE_RAW_DIR" envDefault:"data/raw" validate:"required"`
	Out        string `env:"BRONZE_OUT" envDefault:"data/bronze/bronze_sample.parquet" validate:"required"`
	SampleOut  string `env:"BRONZE_SAMPLE_OUT" envDefault:"bronze_sample.parquet"` // empty disables the sample
	TargetRows int    `env:"BRONZE_TARGET_ROWS" envDefault:"1200000" validate:"gt=0"`
	Seed       int64  `env:"BRONZE_SEED" envDefault:"42"`

	LabelDelayDays int     `env:"BRONZE_LABEL_DELAY_DAYS" envDefault:"45" validate:"gt=0"`
	StartDate      string  `env:"BRONZE_START_DATE" envDefault:"2017-12-01" validate:"required,datetime=2006-01-02"`
	MismatchProb   float64 `env:"BRONZE_MISMATCH_PROB" envDefault:"0.10" validate:"gte=0,lte=1"`

	Merchants         int `env:"BRONZE_MERCHANTS" envDefault:"200" validate:"gt=0"`
	HighRiskMerchants int `env:"BRONZE_HIGH_RISK_MERCHANTS" envDefault:"20" validate:"gte=0,ltefield=Merchants"`

	IDPolicy     string `env:"BRONZE_ID_POLICY" envDefault:"unique" validate:"oneof=unique replay"`
	StrictSchema bool   `env:"BRONZE_STRICT_SCHEMA" envDefault:"false"`
	LogLevel     string `env:"BRONZE_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads .env (if present), the environment and then args, and validates
// the result. args excludes the program name.
func Load(name string, args []string, output io.Writer) (Config, error) {
	// A missing .env is the normal case; an unreadable one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	cfg.bind(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("%w: %v", ErrFlags, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// bind registers one flag per field, defaulting to the value already resolved
// from the environment.
func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.RawDir, "raw-dir", c.RawDir, "directory holding train_transaction.csv and train_identity.csv")
	fs.StringVar(&c.Out, "out", c.Out, "path of the Bronze Parquet file")
	fs.StringVar(&c.SampleOut, "sample-out", c.SampleOut, "path of the convenience sample (empty disables)")
	fs.IntVar(&c.TargetRows, "target-rows", c.TargetRows, "exact number of output rows")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for every random stream")
	fs.IntVar(&c.LabelDelayDays, "label-delay-days", c.LabelDelayDays, "days between event and label availability")
	fs.StringVar(&c.StartDate, "start-date", c.StartDate, "calendar anchor for relative offsets (YYYY-MM-DD)")
	fs.Float64Var(&c.MismatchProb, "mismatch-prob", c.MismatchProb, "probability that billing country differs from ip country")
	fs.IntVar(&c.Merchants, "merchants", c.Merchants, "merchant catalog size")
	fs.IntVar(&c.HighRiskMerchants, "high-risk-merchants", c.HighRiskMerchants, "merchants drawn from the high risk range")
	fs.StringVar(&c.IDPolicy, "id-policy", c.IDPolicy, "transaction id policy after resampling: unique or replay")
	fs.BoolVar(&c.StrictSchema, "strict-schema", c.StrictSchema, "fail the run on schema issues")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

var validate = validator.New()

// Validate checks every field constraint and reports all failures at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field()] = ve.Tag()
	}
	return fmt.Errorf("%w: %s", ErrInvalid, describe(fields))
}

func describe(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " failed " + fields[k]
	}
	return strings.Join(parts, ", ")
}

// Level maps LogLevel to a slog level; unknown values read as info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
