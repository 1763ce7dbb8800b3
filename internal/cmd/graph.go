package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relay-dev/relay/internal/depgraph"
	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/scope"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the dependency graph annotated with current locks",
	Long: `Print the configured dependency graph as JSON, with each node
annotated as unlocked, directly locked, or lock-adjacent for the given
repository scope. Useful for debugging why a file is reported as
contested.`,
	RunE: runGraph,
}

var (
	graphRepo   string
	graphBranch string
)

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringVar(&graphRepo, "repo", "", "Repository remote URL (required)")
	graphCmd.Flags().StringVar(&graphBranch, "branch", "main", "Branch within the repository")
	_ = graphCmd.MarkFlagRequired("repo")
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	graph, err := loadGraph(cfg)
	if err != nil {
		return err
	}

	sc := scope.New(graphRepo, graphBranch)
	if err := sc.Validate(); err != nil {
		return err
	}

	records, err := store.ScopeLocks(cmd.Context(), sc)
	if err != nil {
		return fmt.Errorf("list locks: %w", err)
	}
	byFile := make(map[string][]lockstore.LockRecord, len(records))
	for _, rec := range records {
		byFile[rec.FilePath] = append(byFile[rec.FilePath], rec)
	}

	view := depgraph.Overlay(graph, byFile)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
