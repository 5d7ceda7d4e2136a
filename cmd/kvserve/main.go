// Command kvserve runs the stock key/value server standalone, outside of a
// shared test manager. Useful for poking at the line protocol by hand and
// for keeping a long-lived server around between test runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giantswarm/portshare/internal/fileutil"
	"github.com/giantswarm/portshare/internal/kvserver"
	"github.com/giantswarm/portshare/internal/netutil"
	"github.com/spf13/cobra"
)

var (
	servePort     int
	serveDataDir  string
	serveLockDir  string
	serveStopWait time.Duration
	serveVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "kvserve",
	Short: "Run the portshare key/value server standalone",
	Long: `Kvserve starts the TCP key/value server that portshare builds for
tests, binds it to the requested port, and runs until interrupted.

The server speaks a line protocol on loopback:

  PING            -> +PONG
  SET key value   -> +OK
  GET key         -> +value | -NOTFOUND
  DEL key         -> +OK    | -NOTFOUND

Data lives in a SQLite database under --data-dir and survives restarts.`,
	RunE: runServe,

	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to bind; 0 lets the kernel choose")
	rootCmd.Flags().StringVarP(&serveDataDir, "data-dir", "d", "", "Directory for the SQLite database (required)")
	rootCmd.Flags().StringVar(&serveLockDir, "lock-dir", "", "Directory for cross-process port lock files; empty disables locking")
	rootCmd.Flags().DurationVar(&serveStopWait, "stop-wait", 10*time.Second, "How long to wait for open connections on shutdown")
	rootCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Enable debug logging")
	_ = rootCmd.MarkFlagRequired("data-dir")
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if serveVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := kvserver.Config{
		Port:    servePort,
		DataDir: serveDataDir,
		Logger:  logger,
	}

	// A fixed port with a lock directory gets a cross-process lease, the
	// same claim the shared manager takes, so a standalone server and a
	// test run cannot both bind it.
	if serveLockDir != "" && servePort != 0 {
		if err := fileutil.EnsureDir(serveLockDir); err != nil {
			return fmt.Errorf("prepare lock dir: %w", err)
		}
		lease, err := netutil.AcquirePortLease(ctx, serveLockDir, servePort, logger)
		if err != nil {
			return fmt.Errorf("lease port %d: %w", servePort, err)
		}
		cfg.Lease = lease
	}

	srv, err := kvserver.Start(ctx, cfg)
	if err != nil {
		// Start leaves the lease with the caller on failure.
		cfg.Lease.Release()
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "kvserve listening on %s\n", srv.Addr())

	<-ctx.Done()
	logger.Info("shutting down", "reason", ctx.Err())

	stopCtx, cancel := context.WithTimeout(context.Background(), serveStopWait)
	defer cancel()
	return srv.Shutdown(stopCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kvserve: %v\n", err)
		os.Exit(1)
	}
}
