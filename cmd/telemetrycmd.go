package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"powconsensus/config"
	"powconsensus/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Show recent mining telemetry",
	Long:  `Open the telemetry store read-only and print the most recent samples.`,
	RunE:  runTelemetry,
}

func init() {
	rootCmd.AddCommand(telemetryCmd)

	telemetryCmd.Flags().Int("last", 20, "number of most recent samples to show")
}

func runTelemetry(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	store, err := telemetry.Open(cfg.DataDir + "/" + cfg.TelemetryPath)
	if err != nil {
		return fmt.Errorf("failed to open telemetry store: %v", err)
	}
	defer store.Close()

	last, _ := cmd.Flags().GetInt("last")
	samples, err := store.Recent(last)
	if err != nil {
		return fmt.Errorf("failed to read telemetry: %v", err)
	}

	if len(samples) == 0 {
		fmt.Println("no telemetry recorded yet")
		return nil
	}

	fmt.Printf("%-10s %-10s %-10s %-22s %-12s %s\n", "kind", "block", "difficulty", "reason", "hash_rate", "timestamp")
	for _, s := range samples {
		fmt.Printf("%-10s %-10d %-10d %-22s %-12.1f %.0f\n", s.Kind, s.BlockNum, s.Difficulty, s.Reason, s.HashRate, s.Timestamp)
	}
	return nil
}
