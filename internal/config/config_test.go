package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atbabers/axiomguard/pkg/models"
)

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()
	if dir == "" {
		t.Error("GetConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("GetConfigDir returned relative path: %s", dir)
	}
}

func TestGetConfigDir_Override(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("AXIOMGUARD_CONFIG_DIR", tmpDir)

	if got := GetConfigDir(); got != tmpDir {
		t.Errorf("GetConfigDir() = %s, want %s", got, tmpDir)
	}
	if got := GetStorePath(); got != filepath.Join(tmpDir, "axiomguard.db") {
		t.Errorf("GetStorePath() = %s", got)
	}
}

func TestLoadConfig(t *testing.T) {
	// Use temp dir for test
	t.Setenv("AXIOMGUARD_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Engine.Threshold != 0.5 {
		t.Errorf("Threshold = %v, want 0.5", cfg.Engine.Threshold)
	}
	if cfg.Engine.LearningRate != 0.01 {
		t.Errorf("LearningRate = %v, want 0.01", cfg.Engine.LearningRate)
	}
	if !cfg.Engine.AutoHeal {
		t.Error("Expected auto-heal to be enabled by default")
	}
	if cfg.Store.Enabled {
		t.Error("Expected store to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadWithFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("AXIOMGUARD_CONFIG_DIR", tmpDir)

	path := filepath.Join(tmpDir, "custom.yaml")
	content := `
engine:
  threshold: 3
  auto_heal: false
  weights:
    Safety: 2.5
  strategies:
    consistency: [rollback]
  recompute:
    unsafe: safe
ledger:
  max_entries: 100
logging:
  level: info
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	if cfg.Engine.Threshold != 3 || cfg.Engine.AutoHeal {
		t.Errorf("unexpected engine config: %+v", cfg.Engine)
	}
	if cfg.Engine.LearningRate != 0.01 {
		t.Errorf("unset learning rate should keep default, got %v", cfg.Engine.LearningRate)
	}
	if cfg.Ledger.MaxEntries != 100 {
		t.Errorf("MaxEntries = %d, want 100", cfg.Ledger.MaxEntries)
	}

	weights, err := cfg.Engine.WeightMap()
	if err != nil {
		t.Fatal(err)
	}
	if weights[models.AxiomSafety] != 2.5 || weights[models.AxiomConsistency] != 1.0 {
		t.Errorf("unexpected weights: %v", weights)
	}

	spec, err := cfg.Engine.CatalogSpec()
	if err != nil {
		t.Fatal(err)
	}
	if got := spec[models.AxiomConsistency]; len(got) != 1 || got[0] != models.StrategyRollback {
		t.Errorf("consistency strategies = %v", got)
	}
	if got := spec[models.AxiomSafety]; len(got) != 2 {
		t.Errorf("safety strategies should keep defaults, got %v", got)
	}

	corrections := cfg.Engine.Corrections()
	if corrections["unsafe"] != "safe" || corrections["inconsistent"] != "consistent" {
		t.Errorf("unexpected corrections: %v", corrections)
	}
}

func TestLoadWithFile_Missing(t *testing.T) {
	t.Setenv("AXIOMGUARD_CONFIG_DIR", t.TempDir())

	if _, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AXIOMGUARD_CONFIG_DIR", t.TempDir())
	t.Setenv("AXIOMGUARD_ENGINE_THRESHOLD", "7.5")
	t.Setenv("AXIOMGUARD_ENGINE_AUTO_HEAL", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Engine.Threshold != 7.5 {
		t.Errorf("Threshold = %v, want 7.5", cfg.Engine.Threshold)
	}
	if cfg.Engine.AutoHeal {
		t.Error("expected auto-heal disabled by env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative threshold", func(c *Config) { c.Engine.Threshold = -1 }, "engine.threshold"},
		{"zero learning rate", func(c *Config) { c.Engine.LearningRate = 0 }, "engine.learning_rate"},
		{"unknown axiom weight", func(c *Config) { c.Engine.Weights = map[string]float64{"honesty": 1} }, "engine.weights"},
		{"weight out of range", func(c *Config) { c.Engine.Weights = map[string]float64{"safety": 11} }, "engine.weights.safety"},
		{"unknown strategy", func(c *Config) {
			c.Engine.Strategies = map[string][]string{"safety": {"teleport"}}
		}, "engine.strategies.safety"},
		{"no rules", func(c *Config) { c.Engine.BuiltinRules = false }, "no detection rules"},
		{"negative ledger", func(c *Config) { c.Ledger.MaxEntries = -1 }, "ledger.max_entries"},
		{"store without path", func(c *Config) {
			c.Store.Enabled = true
			c.Store.Path = ""
		}, "store.path"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	DefaultConfig().Print(&buf)

	out := buf.String()
	for _, want := range []string{"Threshold: 0.5", "safety: 1.5", "consistency: recompute, rollback", "Max Entries: unbounded"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q", want)
		}
	}
}

func TestWriteSample(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("AXIOMGUARD_CONFIG_DIR", tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")
	if ConfigExists() {
		t.Fatal("ConfigExists() = true before the sample is written")
	}
	if err := WriteSample(path, false); err != nil {
		t.Fatalf("WriteSample() failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("ConfigExists() = false after WriteSample")
	}
	if err := WriteSample(path, false); err == nil {
		t.Error("expected error when config already exists")
	}
	if err := WriteSample(path, true); err != nil {
		t.Errorf("forced WriteSample() failed: %v", err)
	}

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("sample should load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sample should validate: %v", err)
	}
}
