package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var metricsAddress = flag.String("metrics_address", ":9380",
	"The ip:port to expose prometheus metrics on; empty disables the endpoint.")

const metricsShutdownTimeout = 5 * time.Second

// RunMetricsServer exposes the default prometheus registry on /metrics until `ctx` is cancelled.
// It returns right away when --metrics_address is empty.
func RunMetricsServer(ctx context.Context) error {
	if *metricsAddress == "" {
		slog.Info("Metrics endpoint is disabled.")
		return nil
	}

	listener, err := net.Listen("tcp", *metricsAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", *metricsAddress, err)
	}
	return serveMetrics(ctx, listener)
}

func serveMetrics(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrSignal := make(chan error, 1)
	go func() {
		serverErrSignal <- server.Serve(listener)
	}()
	slog.Info("Metrics endpoint is listening.", "address", listener.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down metrics server: %w", err)
		}
		return nil
	case err := <-serverErrSignal:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server stopped unexpectedly: %w", err)
	}
}
