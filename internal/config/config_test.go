package config_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"auroraguard/enricher/internal/config"
)

func load(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	return config.Load("enrich", args, io.Discard)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RawDir != "data/raw" || cfg.Out != "data/bronze/bronze_sample.parquet" {
		t.Errorf("unexpected paths: %q %q", cfg.RawDir, cfg.Out)
	}
	if cfg.TargetRows != 1_200_000 || cfg.Seed != 42 || cfg.LabelDelayDays != 45 {
		t.Errorf("unexpected sizing: %+v", cfg)
	}
	if cfg.MismatchProb != 0.10 || cfg.Merchants != 200 || cfg.HighRiskMerchants != 20 {
		t.Errorf("unexpected sampling settings: %+v", cfg)
	}
	if cfg.IDPolicy != "unique" || cfg.StrictSchema {
		t.Errorf("unexpected policy settings: %+v", cfg)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("BRONZE_TARGET_ROWS", "5000")
	t.Setenv("BRONZE_ID_POLICY", "replay")
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TargetRows != 5000 || cfg.IDPolicy != "replay" {
		t.Errorf("expected env values, got %d %q", cfg.TargetRows, cfg.IDPolicy)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("BRONZE_SEED", "7")
	cfg, err := load(t, "-seed", "99", "-strict-schema")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed != 99 || !cfg.StrictSchema {
		t.Errorf("expected flag values, got seed=%d strict=%v", cfg.Seed, cfg.StrictSchema)
	}
}

func TestLoad_EnvParseError(t *testing.T) {
	t.Setenv("BRONZE_TARGET_ROWS", "lots")
	_, err := load(t)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoad_BadFlag(t *testing.T) {
	if _, err := load(t, "-no-such-flag"); !errors.Is(err, config.ErrFlags) {
		t.Errorf("expected ErrFlags, got %v", err)
	}
}

func TestLoad_ValidationNamesFields(t *testing.T) {
	tests := []struct {
		args  []string
		field string
	}{
		{[]string{"-target-rows", "0"}, "TargetRows"},
		{[]string{"-mismatch-prob", "1.5"}, "MismatchProb"},
		{[]string{"-start-date", "12/01/2017"}, "StartDate"},
		{[]string{"-id-policy", "random"}, "IDPolicy"},
		{[]string{"-merchants", "10", "-high-risk-merchants", "11"}, "HighRiskMerchants"},
		{[]string{"-label-delay-days", "0"}, "LabelDelayDays"},
		{[]string{"-log-level", "loud"}, "LogLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := load(t, tt.args...)
			if !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected %s in %q", tt.field, err)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	if got := (config.Config{LogLevel: "debug"}).Level(); got != slog.LevelDebug {
		t.Errorf("expected debug, got %v", got)
	}
	if got := (config.Config{LogLevel: ""}).Level(); got != slog.LevelInfo {
		t.Errorf("expected info fallback, got %v", got)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_DotEnvApplied(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BRONZE_MERCHANTS=75\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
	t.Setenv("BRONZE_MERCHANTS", "")
	os.Unsetenv("BRONZE_MERCHANTS")

	cfg, err := load(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Merchants != 75 {
		t.Errorf("expected merchants from .env, got %d", cfg.Merchants)
	}
}

func TestLoad_UnreadableDotEnvIsAnError(t *testing.T) {
	dir := t.TempDir()
	// A directory named .env opens but cannot be read as a file.
	if err := os.Mkdir(filepath.Join(dir, ".env"), 0o755); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	_, err := load(t)
	if err == nil || !strings.Contains(err.Error(), "load .env:") {
		t.Fatalf("expected a .env load error, got %v", err)
	}
}
