package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evict expired locks once and exit",
	Long: `Delete every lock whose TTL has elapsed, across all scopes.

The serve command already sweeps on an interval; this one-shot form is
for cron jobs and for cleaning a store no server is currently managing.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := store.SweepExpired(cmd.Context(), time.Now())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "evicted %d expired lock(s)\n", n)
	return nil
}
