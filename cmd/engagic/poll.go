package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/engagic/pipeline/pkg/config"
)

// runPoll starts the long-running service: the Conductor's poll/enqueue
// loop, its bounded worker pool, its GC ticker, and a small gin HTTP
// surface for liveness probes and queue introspection. It blocks until
// SIGINT/SIGTERM.
func runPoll(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	httpAddr := fs.String("http-addr", getEnv("HTTP_ADDR", ":8080"), "address for the /healthz and /queue/stats HTTP surface")
	ginMode := fs.String("gin-mode", getEnv("GIN_MODE", gin.ReleaseMode), "gin mode (debug|release|test)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.store.Close() }()

	gin.SetMode(*ginMode)
	router := newOpsRouter(p)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: *httpAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info("ops HTTP surface listening", "addr", *httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops HTTP surface exited", "error", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.conductor.Start(runCtx)
	slog.Info("conductor started", "workers", p.cfg.WorkerCount, "poll_interval", p.cfg.PollInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	p.conductor.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP surface: %w", err)
	}
	return nil
}
