package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atbabers/axiomguard/pkg/models"
)

// newWeightsCmd returns a cobra.Command for managing axiom weights.
func newWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect and adjust adaptive axiom weights",
	}

	cmd.AddCommand(newWeightsShowCmd())
	cmd.AddCommand(newWeightsFeedbackCmd())
	cmd.AddCommand(newWeightsHistoryCmd())
	cmd.AddCommand(newWeightsStatusCmd())
	cmd.AddCommand(newWeightsResetCmd())

	return cmd
}

func newWeightsShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engineFromFlags(cmd, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			weights := e.healer.Weights()
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, weights)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AXIOM\tWEIGHT")
			for _, a := range models.Axioms {
				fmt.Fprintf(w, "%s\t%.4f\n", a, weights[a])
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

func newWeightsFeedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <axiom> <value>",
		Short: "Apply feedback to an axiom weight",
		Long: `Adjust an axiom weight by learning_rate * value, clamped to [0.1, 10.0].
Positive feedback makes violations of the axiom weigh more.

The new weight is persisted only when the store is enabled.

Examples:
  axiomguard weights feedback safety 10
  axiomguard weights feedback fairness -- -5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			axiom, err := models.ParseAxiom(args[0])
			if err != nil {
				return err
			}
			feedback, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid feedback value %q: %w", args[1], err)
			}

			e, err := engineFromFlags(cmd, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			before := e.healer.Weights()[axiom]
			after, ok := e.healer.UpdateWeights(axiom, feedback)
			if !ok {
				return fmt.Errorf("axiom %s is not registered", axiom)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %.4f -> %.4f\n", axiom, before, after)

			if e.store == nil {
				fmt.Fprintln(out, "Store disabled: the new weight is not persisted. Set store.enabled=true to keep it.")
				return nil
			}
			event, err := e.store.RecordFeedback(axiom, feedback, after)
			if err != nil {
				return fmt.Errorf("failed to persist feedback: %w", err)
			}
			fmt.Fprintf(out, "Recorded %s\n", event.ID)
			return nil
		},
	}
}

func newWeightsHistoryCmd() *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent feedback events",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engineFromFlags(cmd, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.store == nil {
				return fmt.Errorf("store is not enabled: set store.enabled=true to keep feedback history")
			}
			events, err := e.store.History(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if events == nil {
					events = []models.FeedbackEvent{}
				}
				return writeJSON(out, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No feedback recorded.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAXIOM\tFEEDBACK\tWEIGHT\tTIME")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%+.2f\t%.4f\t%s\n",
					ev.ID,
					ev.Axiom,
					ev.Feedback,
					ev.Weight,
					ev.CreatedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events to display (0 for all)")
	return cmd
}

func newWeightsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show weight store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engineFromFlags(cmd, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if e.store == nil {
				fmt.Fprintln(out, "Store: disabled")
				return nil
			}
			st, err := e.store.Status()
			if err != nil {
				return fmt.Errorf("failed to read store status: %w", err)
			}

			fmt.Fprintln(out, "Store: enabled")
			fmt.Fprintf(out, "Persisted weights: %d\n", st.WeightCount)
			fmt.Fprintf(out, "Feedback events: %d\n", st.FeedbackCount)
			fmt.Fprintf(out, "Size: %s\n", st.SizeHuman)
			if st.LastFeedback != "" {
				fmt.Fprintf(out, "Last feedback: %s ago\n", st.LastFeedback)
			}
			return nil
		},
	}
}

func newWeightsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard persisted weights and feedback history",
		Long: `Remove every persisted weight and feedback event. The next run starts
from the configured initial weights.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engineFromFlags(cmd, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.store == nil {
				return fmt.Errorf("store is not enabled: nothing to reset")
			}
			n, err := e.store.Clear()
			if err != nil {
				return fmt.Errorf("failed to reset store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d feedback events and all persisted weights.\n", n)
			return nil
		},
	}
}
