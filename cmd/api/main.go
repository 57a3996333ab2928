package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnelpay/internal/config"
	"funnelpay/internal/core/reconcile"
	"funnelpay/internal/core/serial"
	"funnelpay/internal/core/sweep"
	"funnelpay/internal/gateway"
	httpx "funnelpay/internal/http"
	"funnelpay/internal/store/postgres"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB
	if err := postgres.Migrate(ctx, cfg.DB.DSN); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()
	repo := postgres.NewRepo(pool)

	// Reconciliation core: one serial queue per process, shared by
	// every entry point, so all writes for a key line up behind it.
	rec := reconcile.New(repo, serial.New(), cfg.Pending.TTL)

	// Expiry sweeper
	worker := sweep.NewWorker(repo, cfg.Pending.SweepEvery, cfg.Pending.SweepGrace)
	go worker.Run(ctx)

	// Optional collaborators
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}
	var gw *gateway.Client
	if cfg.Gateway.BaseURL != "" {
		gw = gateway.New(cfg.Gateway)
	}

	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:     cfg,
		Reconciler: rec,
		Leads:      repo,
		Confirm:    repo,
		Admin:      repo,
		Gateway:    gw,
		Redis:      rdb,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("FunnelPay API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
