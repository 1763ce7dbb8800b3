package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relay-dev/relay/internal/scope"
	"github.com/relay-dev/relay/internal/tui"
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "List active locks for a repository scope",
	Long: `List every active lock for one repository and branch.

With --watch, opens a live terminal view that refreshes on an interval.

Examples:
  relay locks --repo git@github.com:acme/api.git
  relay locks --repo git@github.com:acme/api.git --branch release --watch`,
	RunE: runLocks,
}

var (
	locksRepo   string
	locksBranch string
	locksWatch  bool
)

func init() {
	rootCmd.AddCommand(locksCmd)

	locksCmd.Flags().StringVar(&locksRepo, "repo", "", "Repository remote URL (required)")
	locksCmd.Flags().StringVar(&locksBranch, "branch", "main", "Branch within the repository")
	locksCmd.Flags().BoolVarP(&locksWatch, "watch", "w", false, "Continuously refresh in a terminal UI")
	_ = locksCmd.MarkFlagRequired("repo")
}

func runLocks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sc := scope.New(locksRepo, locksBranch)
	if err := sc.Validate(); err != nil {
		return err
	}

	if locksWatch {
		return tui.Run(store, sc, tui.DefaultPollInterval)
	}

	records, err := store.ScopeLocks(cmd.Context(), sc)
	if err != nil {
		return fmt.Errorf("list locks: %w", err)
	}
	head, err := store.RepoHead(cmd.Context(), sc)
	if err != nil {
		return fmt.Errorf("read repo head: %w", err)
	}
	if head == "" {
		head = "unknown"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scope: %s\nrepo head: %s\n\n", sc, head)
	if len(records) == 0 {
		fmt.Fprintln(out, "no active locks")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tHOLDER\tMODE\tEXPIRES IN\tMESSAGE")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.FilePath, rec.HolderID, rec.Mode,
			rec.ExpiresAt.Sub(now).Truncate(time.Second), rec.Message)
	}
	return w.Flush()
}
