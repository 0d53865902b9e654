package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/hookchat/internal/config"
	"github.com/matheus3301/hookchat/internal/logging"
	"github.com/matheus3301/hookchat/internal/relay"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	config.LoadEnv(".env")
	logger := logging.NewConsole("hookrelay", zapcore.InfoLevel)
	defer func() { _ = logger.Sync() }()

	cfg := relay.LoadConfig()
	if cfg.TargetURL == "" {
		logger.Warn("RELAY_TARGET_URL not set, forwarding will fail")
	}
	h := relay.New(cfg, logger)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           h.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("relay listening",
			zap.String("addr", srv.Addr),
			zap.String("webhook", relay.WebhookPath),
			zap.String("target", cfg.TargetURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("relay server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("relay shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
