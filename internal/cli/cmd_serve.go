package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrianmcphee/ninjadb"
	"github.com/adrianmcphee/ninjadb/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the serve command
func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the guessing game web server.

The storage backend is detected once at startup; a connection failure
is fatal.

Example:
  guessgame serve                   # listen on $PORT or :8080
  guessgame serve --addr :3000 --dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default $PORT or :8080)")
	cmd.Flags().Bool("cookie-secure", false, "mark the session cookie Secure")
	_ = a.v.BindPFlag(keyAddr, cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag(keyCookieSecure, cmd.Flags().Lookup("cookie-secure"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger, err := a.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := ninjadb.NewPrometheusMetrics(registry)

	store, cfg, err := a.openStore(ctx, logger, metrics)
	if err != nil {
		zap.S().Errorw("failed to open storage", "error", err)
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zap.S().Warnw("failed to close storage", "error", err)
		}
	}()

	srv, err := web.NewServer(a.newService(store, logger), store, web.Options{
		Logger:       logger,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CookieSecure: a.v.GetBool(keyCookieSecure),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.listenAddr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.S().Infow("starting server",
			"addr", httpServer.Addr,
			"platform", cfg.Platform,
			"backend", store.Kind())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		zap.S().Infow("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
