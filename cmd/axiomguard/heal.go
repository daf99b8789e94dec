package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atbabers/axiomguard/internal/config"
	"github.com/atbabers/axiomguard/internal/healer"
	"github.com/atbabers/axiomguard/pkg/models"
)

// readContexts returns the joined arguments as a single context, or one
// context per stdin line when no arguments are given.
func readContexts(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}, nil
	}

	var contexts []string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		contexts = append(contexts, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return contexts, nil
}

// engineFromFlags loads config, applies per-command overrides and builds
// the engine.
func engineFromFlags(cmd *cobra.Command, apply func(*config.Config)) (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apply != nil {
		apply(cfg)
	}
	return buildEngine(cfg)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// newHealCmd returns a cobra.Command that heals contexts.
func newHealCmd() *cobra.Command {
	var jsonOutput bool
	var observe bool
	var showStats bool
	var threshold float64

	cmd := &cobra.Command{
		Use:   "heal [text...]",
		Short: "Detect and heal axiom violations",
		Long: `Run contexts through detection, scoring and healing, printing the resulting
context for each input. Without arguments, each line of stdin is a context.

Examples:
  axiomguard heal "This is inconsistent"
  axiomguard heal --observe < contexts.txt     # record only, never rewrite
  axiomguard heal --json --stats "this is unsafe"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			contexts, err := readContexts(cmd, args)
			if err != nil {
				return err
			}

			e, err := engineFromFlags(cmd, func(cfg *config.Config) {
				if observe {
					cfg.Engine.AutoHeal = false
				}
				if cmd.Flags().Changed("threshold") {
					cfg.Engine.Threshold = threshold
				}
			})
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			reports := make([]healer.Report, 0, len(contexts))
			for _, c := range contexts {
				if jsonOutput {
					reports = append(reports, e.healer.Inspect(c))
					continue
				}
				healed, err := e.healer.MonitorAndHeal(c)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, healed)
			}

			if jsonOutput {
				if showStats {
					return writeJSON(out, map[string]any{
						"reports":    reports,
						"statistics": e.healer.Statistics(),
					})
				}
				return writeJSON(out, reports)
			}

			if showStats {
				fmt.Fprintln(out)
				return printStatistics(out, e.healer.Statistics())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output decision reports as JSON")
	cmd.Flags().BoolVar(&observe, "observe", false, "Record violations without healing (disables auto-heal)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print violation statistics after processing")
	cmd.Flags().Float64Var(&threshold, "threshold", healer.DefaultThreshold, "Penalty above which contexts are healed")

	return cmd
}

// newDetectCmd returns a cobra.Command that lists violations.
func newDetectCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "detect [text...]",
		Short: "List axiom violations without healing",
		RunE: func(cmd *cobra.Command, args []string) error {
			contexts, err := readContexts(cmd, args)
			if err != nil {
				return err
			}
			e, err := engineFromFlags(cmd, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			var all []models.Violation
			for _, c := range contexts {
				all = append(all, e.healer.DetectViolations(c)...)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if all == nil {
					all = []models.Violation{}
				}
				return writeJSON(out, all)
			}
			if len(all) == 0 {
				fmt.Fprintln(out, "No violations found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AXIOM\tSEVERITY\tRULE\tDIGEST")
			for _, v := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Axiom, v.Severity, v.Rule, models.ContextDigest(v.Context))
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// newScoreCmd returns a cobra.Command that prints penalties.
func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [text...]",
		Short: "Print the weighted penalty of each context",
		RunE: func(cmd *cobra.Command, args []string) error {
			contexts, err := readContexts(cmd, args)
			if err != nil {
				return err
			}
			e, err := engineFromFlags(cmd, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			for _, c := range contexts {
				p := e.healer.CalculatePenalty(e.healer.DetectViolations(c))
				fmt.Fprintf(out, "%.2f\n", p)
			}
			return nil
		},
	}
}

func printStatistics(out io.Writer, stats models.ViolationStatistics) error {
	fmt.Fprintf(out, "Total violations: %d\n", stats.Total)
	if stats.Total == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AXIOM\tCOUNT")
	for _, a := range models.Axioms {
		if n := stats.ByAxiom[a]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", a, n)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SEVERITY\tCOUNT")
	for _, s := range models.Severities {
		if n := stats.BySeverity[s]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", s, n)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
