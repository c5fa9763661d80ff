package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assetdb-api/internal"
	"assetdb-api/internal/config"

	"github.com/sirupsen/logrus"
)

func main() {
	if _, err := config.LoadEnv(".env", ".env.local"); err != nil {
		logrus.WithError(err).Fatal("load env files")
	}

	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		logrus.WithError(err).Fatal("configuration error")
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, db, err := internal.OpenStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}

	srv, err := internal.NewServer(cfg, st, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("create server")
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"addr":         cfg.HTTPAddr,
		"store":        cfg.StoreDriver,
		"jwt_issuer":   cfg.JWTIssuer,
		"jwt_audience": cfg.JWTAudience,
		"jwt_expiry":   cfg.JWTExpiry,
	}).Info("starting assetdb api")

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	if err := srv.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("close store")
	}
}
