// Package cmd defines the relay command-line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relay-dev/relay/internal/config"
	"github.com/relay-dev/relay/internal/depgraph"
	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "File-lock coordination for multi-agent repositories",
	Long: `Relay coordinates multiple coding agents working on the same
repository and branch. Agents declare which files they are reading or
writing; relay tracks the locks, propagates them across the dependency
graph, and tells each agent whether to proceed, wait, pull, or switch
to another task.

The server speaks MCP over stdio; the other commands inspect and
maintain the shared lock store directly.`,
}

var cfgFile string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/relay/config.yaml)")
}

// loadConfig reads the effective configuration for the current invocation.
func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

// openStore opens the configured lock store. An empty store path selects the
// in-memory store, which only makes sense for a single serve process.
func openStore(cfg config.Config) (lockstore.Store, func() error, error) {
	if cfg.Store.Path == "" {
		return lockstore.NewMemoryStore(lockstore.WithTTL(cfg.TTL())), func() error { return nil }, nil
	}
	s, err := lockstore.NewSQLiteStore(cfg.Store.Path, lockstore.WithSQLiteTTL(cfg.TTL()))
	if err != nil {
		return nil, nil, fmt.Errorf("open lock store: %w", err)
	}
	return s, s.Close, nil
}

// loadGraph loads the configured dependency graph, or an empty graph when
// none is configured. Without a graph, lock propagation simply never finds
// neighbors.
func loadGraph(cfg config.Config) (*depgraph.Graph, error) {
	if cfg.Graph.Path == "" {
		return depgraph.New(nil), nil
	}
	g, err := depgraph.Load(cfg.Graph.Path)
	if err != nil {
		return nil, fmt.Errorf("load dependency graph: %w", err)
	}
	return g, nil
}

// newLogger builds the configured logger.
func newLogger(cfg config.Config) (*logging.Logger, error) {
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
}
