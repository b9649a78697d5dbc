// Package server wires storage, services and transports of the voternet
// backend together and runs them until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/voternet/internal/logging"
	"github.com/dmitrijs2005/voternet/internal/server/archive"
	"github.com/dmitrijs2005/voternet/internal/server/config"
	"github.com/dmitrijs2005/voternet/internal/server/metrics"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voternet/internal/server/services"

	gs "github.com/dmitrijs2005/voternet/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	grpc     *gs.GRPCServer
}

// NewApp opens the database, applies migrations, and builds the services and
// the gRPC server. The admin account is bootstrapped when configured.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var archiver services.Archiver
	if c.ArchiveEnabled() {
		a, err := archive.NewS3ArchiverFromConfig(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		archiver = a
	}

	users := services.NewUserService(db, rm, c, logger, m)
	elections := services.NewElectionService(db, rm, logger, m)
	results := services.NewResultsService(db, rm, archiver, logger, m)
	if archiver != nil {
		elections.OnComplete(results.ArchiveOnComplete)
	}

	if c.AdminEmail != "" && c.AdminPassword != "" {
		if err := users.EnsureAdmin(ctx, c.AdminEmail, c.AdminPassword); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("admin bootstrap error: %w", err)
		}
	}

	svc := gs.Services{
		Users:      users,
		Elections:  elections,
		Candidates: services.NewCandidateService(db, rm, logger, m),
		Voters:     services.NewVoterService(db, rm, logger, m),
		Voting:     services.NewVotingService(db, rm, logger, m),
		Results:    results,
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		registry: reg,
		grpc:     gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc),
	}, nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              app.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "metrics listening", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "metrics server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until SIGINT/SIGTERM/SIGQUIT, ctx cancellation or a server
// failure, then waits for the servers to stop and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "stopped")
}
