package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/relay-dev/relay/internal/engine"
	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/logging"
	"github.com/relay-dev/relay/internal/relayserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordination server over stdio",
	Long: `Serve the check_status and post_status MCP tools over stdio.

A background sweeper evicts expired locks on the configured interval,
so abandoned locks disappear even when no agent is querying.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	graph, err := loadGraph(cfg)
	if err != nil {
		return err
	}

	eng := engine.New(store, graph, engine.WithLogger(log))
	srv := relayserver.New(cfg.Server.Name, eng, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepLoop(ctx, store, cfg.SweepInterval(), log)

	log.Info("serving", "store", cfg.Store.Path, "graph", cfg.Graph.Path, "ttl", cfg.TTL().String())
	return server.ServeStdio(srv)
}

// sweepLoop evicts expired locks until ctx is canceled.
func sweepLoop(ctx context.Context, store lockstore.Store, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.SweepExpired(ctx, now)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("sweep failed", "error", err)
				}
				continue
			}
			if n > 0 {
				log.Info("swept expired locks", "count", n)
			}
		}
	}
}
