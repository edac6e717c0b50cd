// Command scanapi is the scan engine's entrypoint: it loads config,
// runs migrations, wires the store/pipeline/crawler/executor/
// scheduler/event-bus stack, and serves the REST + SSE API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"seoscan/internal/config"
	"seoscan/internal/eventbus"
	"seoscan/internal/executor"
	"seoscan/internal/httpapi"
	"seoscan/internal/migrate"
	"seoscan/internal/pipeline"
	"seoscan/internal/query"
	"seoscan/internal/scheduler"
	"seoscan/internal/store"
)

// schedulerHandle forwards executor.CancelChecker calls to a
// *scheduler.Scheduler that doesn't exist yet at the point the
// Executor is constructed.
type schedulerHandle struct {
	sched *scheduler.Scheduler
}

func (h *schedulerHandle) IsCancelRequested(jobID uuid.UUID) bool {
	if h.sched == nil {
		return false
	}
	return h.sched.IsCancelRequested(jobID)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	cfg.ApplyEnv()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)
	bus := eventbus.New(st)
	qsvc := query.New(st)

	pl := pipeline.New(st, pipeline.OptionsFromConfig(cfg.Scanner))

	// executor.New wants the Scheduler as its CancelChecker and
	// scheduler.New wants the Executor as its JobRunner, so the
	// Scheduler is wired through a forwarding shim set once both
	// exist, breaking the constructor cycle.
	cancels := &schedulerHandle{}

	exec := executor.New(st, pl, bus, cancels, executor.Options{
		SingleModeSteps:  6,
		DefaultMaxPages:  cfg.Scanner.MaxPages,
		DefaultSiteDepth: cfg.Scanner.DefaultSiteDepth,
		UserAgent:        cfg.Scanner.UserAgent,
		RequestTimeout:   time.Duration(cfg.Scanner.RequestTimeoutMs) * time.Millisecond,
		RespectRobots:    cfg.Scanner.RespectRobots,
		RedisURL:         cfg.Redis.URL,
		RedisTTL:         time.Duration(cfg.Redis.TTLSecond) * time.Second,
	})

	sched := scheduler.New(st, exec, bus, logger, scheduler.Config{
		MaxConcurrency:      cfg.Worker.MaxConcurrency,
		PollInterval:        time.Duration(cfg.Worker.PollIntervalMs) * time.Millisecond,
		RetentionEnabled:    cfg.Retention.Enabled,
		RetentionCutoffDays: cfg.Retention.Jobs.DefaultDays,
		CleanupInterval:     time.Duration(cfg.Retention.CleanupIntervalMinutes) * time.Minute,
	})
	cancels.sched = sched

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Start(rootCtx)

	srv := httpapi.NewServer(cfg, st, sched, qsvc, bus, logger)

	go func() {
		<-rootCtx.Done()
		logger.Info("shutdown signal received, draining scheduler")
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sched.Drain(drainCtx); err != nil {
			logger.Warn("scheduler drain did not finish cleanly", "error", err)
		}
		os.Exit(0)
	}()

	if err := srv.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
