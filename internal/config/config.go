// Package config manages axiomguard configuration loading, validation, and
// defaults. It supports file-based configuration and environment variables
// prefixed with AXIOMGUARD_.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/atbabers/axiomguard/internal/registry"
	"github.com/atbabers/axiomguard/internal/strategy"
	"github.com/atbabers/axiomguard/pkg/models"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// AXIOMGUARD_ENGINE_THRESHOLD.
const EnvPrefix = "AXIOMGUARD"

// Config represents the axiomguard configuration.
type Config struct {
	// Debug mode forces debug-level development logging
	Debug bool `mapstructure:"debug"`

	// Engine policy
	Engine EngineConfig `mapstructure:"engine"`

	// Violation history retention
	Ledger LedgerConfig `mapstructure:"ledger"`

	// Persistent weight store
	Store StoreConfig `mapstructure:"store"`

	// NATS request/reply service
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Logging configuration
	Log LogConfig `mapstructure:"logging"`
}

// EngineConfig holds the healer policy. Empty maps select the built-in
// defaults; entries present override them per key.
type EngineConfig struct {
	LearningRate float64             `mapstructure:"learning_rate"`
	Threshold    float64             `mapstructure:"threshold"`
	AutoHeal     bool                `mapstructure:"auto_heal"`
	BuiltinRules bool                `mapstructure:"builtin_rules"`
	RulesFile    string              `mapstructure:"rules_file"`
	Weights      map[string]float64  `mapstructure:"weights"`
	Strategies   map[string][]string `mapstructure:"strategies"`
	Recompute    map[string]string   `mapstructure:"recompute"`
}

// LedgerConfig bounds the in-memory violation history. 0 is unbounded.
type LedgerConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// StoreConfig contains SQLite weight store settings.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NATSConfig contains the service subjects.
type NATSConfig struct {
	URL             string `mapstructure:"url"`
	HealSubject     string `mapstructure:"heal_subject"`
	FeedbackSubject string `mapstructure:"feedback_subject"`
	StatsSubject    string `mapstructure:"stats_subject"`
	Queue           string `mapstructure:"queue"`
}

// MetricsConfig contains the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug: false,
		Engine: EngineConfig{
			LearningRate: registry.DefaultLearningRate,
			Threshold:    0.5,
			AutoHeal:     true,
			BuiltinRules: true,
		},
		Ledger: LedgerConfig{
			MaxEntries: 0,
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    GetStorePath(),
		},
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			HealSubject:     "axiomguard.heal",
			FeedbackSubject: "axiomguard.feedback",
			StatsSubject:    "axiomguard.stats",
			Queue:           "axiomguard",
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("engine.learning_rate", cfg.Engine.LearningRate)
	v.SetDefault("engine.threshold", cfg.Engine.Threshold)
	v.SetDefault("engine.auto_heal", cfg.Engine.AutoHeal)
	v.SetDefault("engine.builtin_rules", cfg.Engine.BuiltinRules)
	v.SetDefault("engine.rules_file", cfg.Engine.RulesFile)
	v.SetDefault("ledger.max_entries", cfg.Ledger.MaxEntries)
	v.SetDefault("store.enabled", cfg.Store.Enabled)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("nats.url", cfg.NATS.URL)
	v.SetDefault("nats.heal_subject", cfg.NATS.HealSubject)
	v.SetDefault("nats.feedback_subject", cfg.NATS.FeedbackSubject)
	v.SetDefault("nats.stats_subject", cfg.NATS.StatsSubject)
	v.SetDefault("nats.queue", cfg.NATS.Queue)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("logging.level", cfg.Log.Level)
	v.SetDefault("logging.format", cfg.Log.Format)

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper, cfg *Config) (*Config, error) {
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.Engine.RulesFile = expandPath(os.ExpandEnv(cfg.Engine.RulesFile))
	cfg.Store.Path = expandPath(os.ExpandEnv(cfg.Store.Path))
	return cfg, nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	if err := EnsureDirectories(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	v := newViper(cfg)

	// Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(GetConfigDir())
	v.AddConfigPath("/etc/axiomguard")
	v.AddConfigPath(".")

	// Try to read config file (ignore if not exists)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	return unmarshal(v, cfg)
}

// LoadWithFile reads configuration from a specific file. An empty path
// falls back to Load.
func LoadWithFile(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		return Load()
	}
	if err := EnsureDirectories(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	v := newViper(cfg)
	v.SetConfigFile(cfgFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return unmarshal(v, cfg)
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	e := c.Engine
	if math.IsNaN(e.Threshold) || e.Threshold < 0 {
		return fmt.Errorf("engine.threshold must be >= 0, got %v", e.Threshold)
	}
	if math.IsNaN(e.LearningRate) || math.IsInf(e.LearningRate, 0) || e.LearningRate <= 0 {
		return fmt.Errorf("engine.learning_rate must be > 0, got %v", e.LearningRate)
	}
	if !e.BuiltinRules && e.RulesFile == "" {
		return fmt.Errorf("engine has no detection rules: enable engine.builtin_rules or set engine.rules_file")
	}
	if _, err := e.WeightMap(); err != nil {
		return err
	}
	if _, err := e.CatalogSpec(); err != nil {
		return err
	}
	for trigger := range e.Recompute {
		if trigger == "" {
			return fmt.Errorf("engine.recompute: empty trigger")
		}
	}

	if c.Ledger.MaxEntries < 0 {
		return fmt.Errorf("ledger.max_entries must be >= 0, got %d", c.Ledger.MaxEntries)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when the store is enabled")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level: %s (supported: debug, info, warn, error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging.format: %s (supported: console, json)", c.Log.Format)
	}

	return nil
}

// WeightMap resolves configured weights over the defaults.
func (e EngineConfig) WeightMap() (map[models.Axiom]float64, error) {
	weights := registry.DefaultWeights()
	for name, w := range e.Weights {
		axiom, err := models.ParseAxiom(name)
		if err != nil {
			return nil, fmt.Errorf("engine.weights: %w", err)
		}
		if math.IsNaN(w) || w < registry.MinWeight || w > registry.MaxWeight {
			return nil, fmt.Errorf("engine.weights.%s must be within [%v, %v], got %v",
				axiom, registry.MinWeight, registry.MaxWeight, w)
		}
		weights[axiom] = w
	}
	return weights, nil
}

// CatalogSpec resolves configured strategy lists over the defaults. A
// configured list replaces the default list for that axiom.
func (e EngineConfig) CatalogSpec() (map[models.Axiom][]models.CorrectionStrategy, error) {
	spec := strategy.DefaultSpec()
	for name, kinds := range e.Strategies {
		axiom, err := models.ParseAxiom(name)
		if err != nil {
			return nil, fmt.Errorf("engine.strategies: %w", err)
		}
		list := make([]models.CorrectionStrategy, 0, len(kinds))
		for _, k := range kinds {
			kind, err := models.ParseStrategy(k)
			if err != nil {
				return nil, fmt.Errorf("engine.strategies.%s: %w", axiom, err)
			}
			list = append(list, kind)
		}
		spec[axiom] = list
	}
	return spec, nil
}

// Corrections resolves the Recompute table over the defaults.
func (e EngineConfig) Corrections() map[string]string {
	out := strategy.DefaultCorrections()
	for trigger, replacement := range e.Recompute {
		out[trigger] = replacement
	}
	return out
}

// Print writes the current configuration.
func (c *Config) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Axiomguard Configuration ===")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Debug: %v\n", c.Debug)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Engine:")
	fmt.Fprintf(w, "  Learning Rate: %v\n", c.Engine.LearningRate)
	fmt.Fprintf(w, "  Threshold: %v\n", c.Engine.Threshold)
	fmt.Fprintf(w, "  Auto Heal: %v\n", c.Engine.AutoHeal)
	fmt.Fprintf(w, "  Builtin Rules: %v\n", c.Engine.BuiltinRules)
	if c.Engine.RulesFile != "" {
		fmt.Fprintf(w, "  Rules File: %s\n", c.Engine.RulesFile)
	}
	if weights, err := c.Engine.WeightMap(); err == nil {
		fmt.Fprintln(w, "  Weights:")
		for _, a := range models.Axioms {
			fmt.Fprintf(w, "    %s: %v\n", a, weights[a])
		}
	}
	if spec, err := c.Engine.CatalogSpec(); err == nil {
		fmt.Fprintln(w, "  Strategies:")
		for _, a := range models.Axioms {
			if len(spec[a]) == 0 {
				continue
			}
			names := make([]string, len(spec[a]))
			for i, k := range spec[a] {
				names[i] = string(k)
			}
			fmt.Fprintf(w, "    %s: %s\n", a, strings.Join(names, ", "))
		}
	}
	corrections := c.Engine.Corrections()
	triggers := make([]string, 0, len(corrections))
	for t := range corrections {
		triggers = append(triggers, t)
	}
	sort.Strings(triggers)
	fmt.Fprintln(w, "  Recompute:")
	for _, t := range triggers {
		fmt.Fprintf(w, "    %q -> %q\n", t, corrections[t])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Ledger:")
	if c.Ledger.MaxEntries > 0 {
		fmt.Fprintf(w, "  Max Entries: %d\n", c.Ledger.MaxEntries)
	} else {
		fmt.Fprintln(w, "  Max Entries: unbounded")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Store:")
	fmt.Fprintf(w, "  Enabled: %v\n", c.Store.Enabled)
	fmt.Fprintf(w, "  Path: %s\n", c.Store.Path)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "NATS:")
	fmt.Fprintf(w, "  URL: %s\n", c.NATS.URL)
	fmt.Fprintf(w, "  Subjects: %s, %s, %s\n", c.NATS.HealSubject, c.NATS.FeedbackSubject, c.NATS.StatsSubject)
	fmt.Fprintf(w, "  Queue: %s\n", c.NATS.Queue)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Metrics:")
	fmt.Fprintf(w, "  Addr: %s\n", c.Metrics.Addr)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Logging:")
	fmt.Fprintf(w, "  Level: %s\n", c.Log.Level)
	fmt.Fprintf(w, "  Format: %s\n", c.Log.Format)
}

const sample = `# Axiomguard Configuration
# ~/.axiomguard/config.yaml

# Debug mode (development logging at debug level)
debug: false

engine:
  learning_rate: 0.01
  # Penalty above which contexts are healed
  threshold: 0.5
  # false = observe only: violations are recorded, contexts pass unchanged
  auto_heal: true
  builtin_rules: true
  # Extra YAML detection rules
  # rules_file: ~/.axiomguard/rules.yaml

  # Initial weights within [0.1, 10.0]; omitted axioms use defaults
  weights:
    consistency: 1.0
    completeness: 1.0
    transparency: 1.0
    safety: 1.5
    fairness: 1.0

  # Ordered strategies per axiom; first success wins
  strategies:
    consistency: [recompute, rollback]
    safety: [rollback, query_user]
    completeness: [interpolate, apply_default]

  # Trigger -> replacement table for the recompute strategy
  # (keys are matched lowercase)
  recompute:
    inconsistent: consistent

ledger:
  # 0 keeps every violation in memory
  max_entries: 0

# Persist adapted weights and feedback history
store:
  enabled: false
  path: ~/.axiomguard/axiomguard.db

nats:
  url: nats://127.0.0.1:4222
  heal_subject: axiomguard.heal
  feedback_subject: axiomguard.feedback
  stats_subject: axiomguard.stats
  queue: axiomguard

metrics:
  addr: ":9464"

logging:
  level: warn
  format: console
`

// PrintSample writes a sample configuration file.
func PrintSample(w io.Writer) {
	fmt.Fprint(w, sample)
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// ConfigExists returns true if the config file exists.
func ConfigExists() bool {
	_, err := os.Stat(GetConfigPath())
	return err == nil
}

// WriteSample installs the sample configuration at path. An existing file
// is left untouched unless force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to temp file first, then atomically rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(sample), 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install config: %w", err)
	}
	return nil
}

func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
