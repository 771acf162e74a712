package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goalforge/internal/telemetry"
)

var usageFailuresOnly bool

// usageCmd summarizes the telemetry log.
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show API usage, cost, and recent calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := telemetry.NewStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Summary(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("calls:      %d (%d ok, %d failed)\n", stats.TotalCalls, stats.SuccessfulCalls, stats.FailedCalls)
		fmt.Printf("tokens:     %d prompt / %d completion / %d total\n", stats.PromptTokens, stats.CompletionTokens, stats.TotalTokens)
		fmt.Printf("est. cost:  $%.4f\n", stats.TotalCostUSD)
		fmt.Printf("avg latency: %.0f ms\n", stats.AvgLatencyMS)

		records, err := store.Query(cmd.Context(), telemetry.Filter{Limit: 10, FailuresOnly: usageFailuresOnly})
		if err != nil {
			return err
		}
		if len(records) > 0 {
			fmt.Println("\nrecent calls:")
			for _, r := range records {
				status := "ok"
				if !r.Success {
					status = "FAIL"
				}
				fmt.Printf("  %s  %-4s  %4dms  %5d tok  %s\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), status, r.LatencyMS, r.TotalTokens, truncate(r.Input, 48))
			}
		}
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func init() {
	usageCmd.Flags().BoolVar(&usageFailuresOnly, "failures", false, "show only failed calls")
}
