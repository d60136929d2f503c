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

	"github.com/prodline-labs/prodline-go/internal/platform/env"
	"github.com/prodline-labs/prodline-go/internal/platform/httpserver"
	"github.com/prodline-labs/prodline-go/internal/platform/metrics"
	"github.com/prodline-labs/prodline-go/internal/platform/postgres"
	"github.com/prodline-labs/prodline-go/internal/platform/validation"
	"github.com/prodline-labs/prodline-go/internal/repo"
	repopg "github.com/prodline-labs/prodline-go/internal/repo/postgres"
	"github.com/prodline-labs/prodline-go/internal/service/alerts"
	"github.com/prodline-labs/prodline-go/internal/service/analytics"
	"github.com/prodline-labs/prodline-go/internal/service/events"
	"github.com/prodline-labs/prodline-go/internal/service/serials"
	"github.com/prodline-labs/prodline-go/internal/stageconfig"
)

const serviceName = "tracker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var r env.Reader
	addr := r.String("TRACKER_HTTP_ADDR", ":3000")
	shutdownTimeout := r.Duration("TRACKER_SHUTDOWN_TIMEOUT", 10*time.Second)
	corsOrigin := r.String("TRACKER_CORS_ORIGIN", "*")
	stagesFile := r.String("TRACKER_STAGES_FILE", "")
	if err := r.Err(); err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	stageCfg, err := stageconfig.Load(stagesFile)
	if err != nil {
		logger.Error("invalid stage config", "path", stagesFile, "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	m := metrics.New(serviceName)
	handler, err := newHandler(logger, deps{
		tx:      repopg.NewTransactor(db),
		config:  stageCfg,
		metrics: m,
		ready: httpserver.ReadinessCheck{
			Name:    "postgres",
			Timeout: 750 * time.Millisecond,
			Check:   db.PingContext,
		},
	})
	if err != nil {
		logger.Error("handler init failed", "error", err)
		os.Exit(2)
	}

	logger.Info("stage sequence loaded", "stages", stageCfg.Stages.Len(), "source", stagesFile)

	cfg := httpserver.Config{
		Service:         serviceName,
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}
	opts := httpserver.Options{Service: serviceName, CORSOrigin: corsOrigin, Observer: m}
	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, opts, handler)); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

type deps struct {
	tx      repo.Transactor
	config  stageconfig.Config
	metrics *metrics.Metrics
	ready   httpserver.ReadinessCheck
}

func newHandler(logger *slog.Logger, d deps) (http.Handler, error) {
	stages := d.config.Stages
	api := &trackerAPI{logger: logger, validate: validation.New()}
	var err error
	if api.events, err = events.New(d.tx, stages, events.WithLogger(logger), events.WithRecorder(d.metrics)); err != nil {
		return nil, fmt.Errorf("event processor: %w", err)
	}
	if api.serials, err = serials.New(d.tx, logger, d.metrics); err != nil {
		return nil, fmt.Errorf("serial service: %w", err)
	}
	if api.analytics, err = analytics.New(d.tx, stages); err != nil {
		return nil, fmt.Errorf("analytics service: %w", err)
	}
	if api.alerts, err = alerts.New(d.tx, logger, d.metrics); err != nil {
		return nil, fmt.Errorf("alert service: %w", err)
	}

	docs, err := documentationHandler(openAPIDocument(stages))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(serviceName))
	checks := []httpserver.ReadinessCheck{}
	if d.ready.Check != nil {
		checks = append(checks, d.ready)
	}
	mux.HandleFunc("GET /readyz", httpserver.ReadyzWithChecks(serviceName, checks...))
	mux.Handle("GET /metrics", d.metrics.Handler())
	mux.HandleFunc("GET /documentation/json", docs)
	api.register(mux)
	return mux, nil
}
