package cartApp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gomarketplace/configs"
	"gomarketplace/configs/loader/dotEnvLoader"
	h "gomarketplace/internal/delivery/http"
	k "gomarketplace/internal/delivery/kafka"
	"gomarketplace/internal/usecase"
	"gomarketplace/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func Run() {
	envLoader := dotEnvLoader.DotEnvLoader{Files: []string{".env"}}
	cfg := configs.MustLoad(envLoader)
	log := logger.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, closeKV, err := NewKVStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", "backend", cfg.Cart.Backend, "error", err)
		os.Exit(1)
	}

	opts := []usecase.Option{usecase.WithConfig(cfg.Cart)}

	var producer *k.Producer
	if cfg.KF.Enabled {
		producer, err = k.NewProducer(cfg)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		opts = append(opts, usecase.WithEventSink(producer))
	}

	store := usecase.NewCartStore(kv, log, opts...)
	if err := store.Initialize(ctx); err != nil {
		log.Error("failed to initialize cart store", "error", err)
		os.Exit(1)
	}

	router := h.SetupRouter(store, log)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server started", "port", cfg.HTTP.Port, "backend", cfg.Cart.Backend)
		if serverErr := server.ListenAndServe(); serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", serverErr)
			os.Exit(1)
		}
	}()

	metricsSrv := &http.Server{
		Addr:    ":" + cfg.HTTP.MetricsPort,
		Handler: promhttp.Handler(),
	}

	go func() {
		log.Info("Prometheus server started", "port", cfg.HTTP.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP prometheus server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var g errgroup.Group

	g.Go(func() error {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Prometheus server shutdown error", "error", err)
			return err
		}
		return nil
	})

	// the cart must stop taking requests before its queue is drained
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	log.Info("Server stopped")

	g.Go(func() error {
		if err := store.Close(shutdownCtx); err != nil {
			log.Error("failed to drain cart writes", "error", err)
			return err
		}
		if producer != nil {
			producer.Close()
		}
		return closeKV(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Shutdown finished with errors", "error", err)
		return
	}
	log.Info("All services correctly stopped")
}
