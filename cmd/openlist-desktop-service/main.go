package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/openlist-service/internal/bootstrap"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	var console bool
	var bulkConfig string

	root := &cobra.Command{
		Use:   "openlist-desktop-service",
		Short: "Cross-platform process supervisor with a loopback HTTP API",
		Long: `openlist-desktop-service manages child processes: create, configure,
start, stop, monitor, and collect logs from them through a local HTTP API,
persisting its catalog to disk across restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(console, bulkConfig)
		},
	}
	root.Flags().BoolVarP(&console, "console", "c", false, "run in the foreground with colorized console logging instead of as a background service")
	root.Flags().StringVar(&bulkConfig, "config", "", "path to a TOML file bulk-provisioning the catalog on first boot")

	root.AddCommand(
		newListCommand(),
		newStartCommand(),
		newStopCommand(),
		newLogsCommand(),
	)
	return root
}

func runService(console bool, bulkConfig string) error {
	svc, err := bootstrap.Run(bootstrap.Options{Console: console, BulkConfig: bulkConfig})
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	svc.Log.Info("listening", "addr", svc.Settings.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		svc.Log.Info("received shutdown signal")
	case <-svc.Done:
		svc.Log.Info("shutdown requested via API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc.Shutdown(ctx)
	return nil
}
