package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func watchFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flags.String("contract", DefaultContract, "")
	flags.Duration("interval", 30*time.Second, "")
	flags.Uint64("batch-size", 5000, "")
	flags.String("log-level", "info", "")
	return flags
}

func TestLoadWatchDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadWatch("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL || cfg.Contract != DefaultContract || cfg.Source != SourceExplorer {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Interval != 30*time.Second || cfg.BatchSize != 5000 || cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
}

func TestLoadWatchEnvOverridesDefault(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NFTWATCH_API_KEY", "secret")
	t.Setenv("NFTWATCH_INTERVAL", "5s")
	t.Setenv("NFTWATCH_SOURCE", " RPC ")
	t.Setenv("NFTWATCH_START_BLOCK", "123")

	cfg, err := LoadWatch("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "secret" || cfg.Interval != 5*time.Second {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Source != SourceRPC || cfg.StartBlock != 123 {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadWatchFlagBeatsEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NFTWATCH_BATCH_SIZE", "100")

	flags := watchFlags()
	if err := flags.Parse([]string{"--batch-size", "42"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadWatch("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 42 {
		t.Fatalf("expected flag value, got %d", cfg.BatchSize)
	}
}

func TestLoadWatchConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nftwatch.yaml")
	body := "contract: \"0x0000000000000000000000000000000000000001\"\nalerts-out: ./alerts.jsonl\ntransfer-only: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadWatch(path, watchFlags())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Contract != "0x0000000000000000000000000000000000000001" {
		t.Fatalf("config file contract not applied: %s", cfg.Contract)
	}
	if cfg.AlertsOut != "./alerts.jsonl" || !cfg.TransferOnly {
		t.Fatalf("config file values not applied: %+v", cfg)
	}
}

func TestLoadWatchMissingConfigFile(t *testing.T) {
	if _, err := LoadWatch(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadReconstruct(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NFTWATCH_IN", "logs.json")

	flags := pflag.NewFlagSet("reconstruct", pflag.ContinueOnError)
	flags.Bool("sort", true, "")
	if err := flags.Parse([]string{"--sort=false"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadReconstruct("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.In != "logs.json" || cfg.Sort || cfg.LogLevel != "info" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(prev)
	})
}
