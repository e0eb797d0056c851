package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/ufotracker/tracker/config"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/db"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/observability"
	"github.com/ufotracker/tracker/server"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/view"
)

func startTasks(ctx context.Context, t *tasks) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	// Refresh the exported charts every hour
	if _, err := c.AddFunc(consts.CronGenerateChart, t.generateCharts(ctx)); err != nil {
		return nil, err
	}
	// Keep the 3D asset availability warm so view sessions rarely wait on it
	if _, err := c.AddFunc(consts.CronAssetProbe, t.probeAssets(ctx)); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func openSource(ctx context.Context, cfg config.SourceConfig, logger logging.Logger) (source.Source, func(), error) {
	switch cfg.Kind {
	case consts.SourceSQLite:
		dbConn, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info(ctx, "connected to database", logging.String("path", cfg.DBPath))
		return &source.SQLite{DB: dbConn}, func() { _ = dbConn.Close() }, nil
	default:
		return source.NewStatic(source.Demo()), func() {}, nil
	}
}

func fatal(ctx context.Context, logger logging.Logger, msg string, err error) {
	logger.Error(ctx, msg, logging.Err(err))
	os.Exit(1)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fatal(ctx, logging.NewFromEnv(), "failed to load configuration", err)
	}
	logger := logging.NewFromEnv().With(logging.String("env", cfg.Environment))

	src, closeSource, err := openSource(ctx, cfg.Source, logger)
	if err != nil {
		fatal(ctx, logger, "failed to open sightings source", err)
	}
	defer closeSource()

	metrics, err := observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		fatal(ctx, logger, "failed to register metrics", err)
	}
	assets := view.NewAssetChecker(cfg.Render.AssetsHost, cfg.Render.ProbeTimeout)

	t := &tasks{
		source:    src,
		limit:     cfg.Source.Limit,
		outputDir: consts.ChartDataDir,
		assets:    assets,
		metrics:   metrics,
		log:       logger,
	}
	scheduler, err := startTasks(ctx, t)
	if err != nil {
		fatal(ctx, logger, "failed to schedule tasks", err)
	}
	defer scheduler.Stop()

	go t.generateCharts(ctx)()
	go t.probeAssets(ctx)()

	srv := server.New(cfg.Server, server.Deps{
		Source:     src,
		SourceKind: cfg.Source.Kind,
		Limit:      cfg.Source.Limit,
		AssetsHost: cfg.Render.AssetsHost,
		View: view.NewHandler(view.Config{
			Source:       src,
			Limit:        cfg.Source.Limit,
			SourceKind:   cfg.Source.Kind,
			Assets:       assets,
			AssetsHost:   cfg.Render.AssetsHost,
			DisableRich:  cfg.Render.DisableRich,
			ProbeTimeout: cfg.Render.ProbeTimeout,
			Logger:       logger,
			Metrics:      metrics,
		}),
		Metrics: metrics,
		Logger:  logger,
	})

	// Dev-only routes (static files and charts endpoint)
	registerDevRoutes(srv.Router(), src, cfg.Source.Limit)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "starting UFO Tracker server", logging.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(ctx, logger, "server stopped", err)
		}
	}()

	<-shutdown
	logger.Info(ctx, "shutting down server")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "error during shutdown", logging.Err(err))
	}
}
