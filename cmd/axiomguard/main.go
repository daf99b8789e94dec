// Package main implements the axiomguard CLI, a runtime policy engine that
// detects axiom violations in operation contexts and heals them.
//
// Axiomguard provides commands for:
//   - Healing, detecting and scoring contexts from arguments or stdin
//   - Inspecting and adjusting adaptive axiom weights
//   - Serving the engine over NATS with Prometheus metrics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atbabers/axiomguard/internal/config"
	"github.com/atbabers/axiomguard/internal/debug"
)

var (
	// version is set at build time via ldflags.
	version = "dev"

	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debugMode forces debug logging regardless of config.
	debugMode bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		debug.Sync()
		os.Exit(1)
	}
	debug.Sync()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "axiomguard",
		Short: "Runtime axiom checking and self-healing",
		Long: `Axiomguard inspects operation contexts for violations of behavioral axioms
(consistency, completeness, transparency, safety, fairness), scores them with
adaptive per-axiom weights, and rewrites contexts whose penalty exceeds the
configured threshold.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.axiomguard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(newHealCmd())
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newWeightsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// newConfigCmd returns a cobra.Command for managing configuration.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	// config show
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cfg.Print(out)
			fmt.Fprintln(out)
			switch {
			case cfgFile != "":
				fmt.Fprintf(out, "Source: %s\n", cfgFile)
			case config.ConfigExists():
				fmt.Fprintf(out, "Source: %s\n", config.GetConfigPath())
			default:
				fmt.Fprintf(out, "Source: defaults (no file at %s)\n", config.GetConfigPath())
			}
			return nil
		},
	}

	// config init
	var write, force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate sample configuration file",
		Long: `Print a sample configuration file, or install it with --write.

Examples:
  axiomguard config init > config.yaml
  axiomguard config init --write         # writes ~/.axiomguard/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !write {
				config.PrintSample(cmd.OutOrStdout())
				return nil
			}
			path := cfgFile
			if path == "" {
				path = config.GetConfigPath()
			}
			if err := config.WriteSample(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&write, "write", false, "Write the sample to the config path instead of stdout")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	// config validate
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "✓ Configuration is valid")
			fmt.Fprintf(out, "  Threshold: %v (auto-heal: %v)\n", cfg.Engine.Threshold, cfg.Engine.AutoHeal)
			if cfg.Engine.RulesFile != "" {
				fmt.Fprintf(out, "  Rules file: %s\n", cfg.Engine.RulesFile)
			}
			if cfg.Store.Enabled {
				fmt.Fprintf(out, "  Store: %s\n", cfg.Store.Path)
			} else {
				fmt.Fprintln(out, "  Store: disabled (weights reset on every run)")
			}
			return nil
		},
	}

	cmd.AddCommand(showCmd, initCmd, validateCmd)
	return cmd
}

// loadConfig returns the configuration, applying file and CLI flag overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadWithFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	// CLI flags override config file and environment variables
	if debugMode {
		cfg.Debug = true
	}

	return cfg, nil
}
