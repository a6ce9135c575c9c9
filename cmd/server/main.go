package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/config"
	"github.com/qs-lzh/cinema-booking/internal/app"
	"github.com/qs-lzh/cinema-booking/internal/handler"
	"github.com/qs-lzh/cinema-booking/internal/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run owns every deferred cleanup, main only reports its error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zl.Sync()

	application, err := app.Open(cfg, zl)
	if err != nil {
		return fmt.Errorf("open app: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			zl.Error("failed to close app", zap.Error(err))
		}
	}()

	if err := application.Init(); err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.NewRouter(application),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zl.Info("http server listening",
			zap.String("addr", cfg.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("redis", application.Cache != nil),
			zap.Bool("rabbitmq", application.MQConn != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}

	return nil
}
