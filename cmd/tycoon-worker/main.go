// The simulation worker: runs the tick scheduler and the admin server until
// interrupted. TYCOON_WORKER_RUN_ONCE=true runs every job once and exits.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/app"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("TYCOON_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := app.NewLogger(cfg.Observability)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to assemble simulation", zap.Error(err))
	}
	defer a.Close()

	if strings.EqualFold(strings.TrimSpace(os.Getenv("TYCOON_WORKER_RUN_ONCE")), "true") {
		report, err := a.Scheduler.RunOnce(ctx)
		if err != nil {
			logger.Error("run-once failed", zap.Error(err))
			a.Close()
			os.Exit(1)
		}
		logger.Info("worker run-once completed", zap.Int("jobs", len(report.Results)))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Scheduler.Run(gctx)
	})

	if cfg.Server.Enabled {
		server, err := a.NewServer(ctx)
		if err != nil {
			logger.Fatal("failed to build admin server", zap.Error(err))
		}
		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			server.Stop()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
	logger.Info("worker shutdown")
}
