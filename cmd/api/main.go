package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-avltrack/internal/config"
	"backend-avltrack/internal/db"
	"backend-avltrack/internal/observability"
	"backend-avltrack/internal/reaper"
	"backend-avltrack/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) (*redis.Client, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	log := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Warn("postgres connection failed, running without persistence", "error", err)
		pg = nil
	}

	rdb, err := deps.connectRedis(cfg)
	if err != nil {
		log.Warn("redis connection failed, live stream is local only", "error", err)
		rdb = nil
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, signals, nil); err != nil {
		log.Error("server exited with error", "error", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var runReaper = func(ctx context.Context, sweeper *reaper.Sweeper) {
	sweeper.Run(ctx)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and the stale-device reaper, then waits for
// termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	var database db.Querier
	if pg != nil {
		database = pg
	}
	srv := server.NewServer(cfg, database, rdb, slog.Default())

	if err := srv.Bootstrap(ctx); err != nil {
		srv.Log.Error("database bootstrap failed", "error", err)
	}

	if listen == nil {
		listen = defaultListen
	}

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		runReaper(reaperCtx, srv.Reaper)
	}()
	defer func() {
		stopReaper()
		<-reaperDone
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	stopReaper()
	<-reaperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	_ = srv.Stream.Close()
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
