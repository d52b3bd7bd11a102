package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"libralend/internal/access"
	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/clients"
	"libralend/internal/config"
	"libralend/internal/journal"
	"libralend/internal/lending"
	"libralend/internal/observability"
	"libralend/internal/schedule"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&listenAddr, "listen", "", "override the listen address (e.g. :8082)")
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	logger := observability.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	dbs := make(map[string]*sql.DB)
	defer func() {
		for _, db := range dbs {
			db.Close()
		}
	}()
	openDB := func(dsn string) (*sql.DB, error) {
		if db, ok := dbs[dsn]; ok {
			return db, nil
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		dbs[dsn] = db
		return db, nil
	}

	provider, err := newProvider(cfg.Catalog, openDB)
	if err != nil {
		return err
	}

	opts := []lending.Option{
		lending.WithScheduler(schedule.Real()),
		lending.WithDelays(cfg.Lending.ApprovalDelay, cfg.Lending.IssueDelay),
		lending.WithLogger(logger),
	}
	if !cfg.Lending.StrictReturn {
		opts = append(opts, lending.WithLenientReturn())
	}
	engine := lending.NewEngine(opts...)
	defer engine.Close()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		engine.Subscribe(metrics.ObserveChange)
	}

	if cfg.Journal.Enabled {
		db, err := openDB(cfg.Journal.DSN)
		if err != nil {
			return err
		}
		j := journal.New(db, logger)
		if err := j.EnsureSchema(ctx); err != nil {
			return err
		}
		engine.Subscribe(j.Record)
		logger.Info("journal enabled")
	}

	routerOpts := circulation.RouterOptions{
		Metrics:     metrics,
		MetricsPath: cfg.Metrics.Path,
	}
	if cfg.Auth.Enabled() {
		guard, err := access.NewGuard(cfg.Auth.TokenHash, []byte(cfg.Auth.JWTSecret))
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		routerOpts.Guard = guard
		routerOpts.ProtectReads = cfg.Auth.ProtectReads
	}
	if cfg.RateLimit.PerMinute > 0 {
		routerOpts.Limiter = rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(cfg.RateLimit.PerMinute)),
			cfg.RateLimit.Burst,
		)
	}

	board := circulation.NewBoard(provider, engine, cfg.ImageBaseURL)
	handler := circulation.NewHandler(board, engine, metrics, logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           circulation.NewRouter(handler, routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("lending board listening",
			slog.String("addr", cfg.Listen),
			slog.String("catalog", cfg.Catalog.Source),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newProvider(cfg config.CatalogConfig, openDB func(string) (*sql.DB, error)) (catalog.Provider, error) {
	switch cfg.Source {
	case config.SourceHTTP:
		return clients.NewCatalogClient(cfg.URL), nil
	case config.SourcePostgres:
		db, err := openDB(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return catalog.NewPostgres(db), nil
	case config.SourceStatic:
		if cfg.File == "" {
			empty, _ := catalog.NewStatic(nil)
			return empty, nil
		}
		static, err := catalog.LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		return static, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSource, cfg.Source)
	}
}
