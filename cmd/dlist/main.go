// Spins up the dlist server, exposing named doubly linked lists over the Redis protocol.

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nobletooth/dlist/pkg/port"
	"github.com/nobletooth/dlist/pkg/utils"
)

var printVersion = flag.Bool("print_version", false, "Print the version and exit.")

func main() {
	flag.Parse()
	utils.InitLogging()

	if *printVersion {
		slog.Info("Dlist build info.", "version", utils.Version, "commit", utils.Commit, "build", utils.BuildTime)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	go func() { // Listen for OS interrupts in the background.
		sig := <-signals
		slog.Info("Received termination signal, cancelling server context.", "signal", sig)
		cancel()
	}()

	metricsErr := make(chan error, 1)
	go func() { metricsErr <- port.RunMetricsServer(ctx) }()

	keyspace := port.NewKeyspaceFromFlags()
	serverErr := port.RunRedisServer(ctx, keyspace)
	cancel() // Stop the metrics endpoint along with the Redis port.
	if err := errors.Join(serverErr, <-metricsErr); err != nil {
		slog.Error("Dlist server stopped.", "err", err, "uptime", utils.Uptime())
		os.Exit(1)
	}
	slog.Info("Dlist server stopped.", "uptime", utils.Uptime())
}
