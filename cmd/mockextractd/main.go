// mockextractd serves the mock extraction backend over HTTP so importctl
// and integration setups have something to talk to.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gdi-labs/importkit/internal/mockserver"
)

func main() {
	addr := flag.String("addr", ":8181", "listen address")
	workers := flag.Int("workers", 2, "extraction worker count")
	stepDelay := flag.Duration("step-delay", 200*time.Millisecond, "delay between processing phases")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv := mockserver.New(logger,
		mockserver.WithWorkers(*workers),
		mockserver.WithStepDelay(*stepDelay),
	)
	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mockextractd.listening", "addr", *addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("mockextractd.shutdown.start")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mockextractd.serve_error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("mockextractd.shutdown.http_error", "error", err)
	}
	srv.Shutdown(shutdownCtx)
	logger.Info("mockextractd.shutdown.done")
}
