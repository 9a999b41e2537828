package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MrDragar/LDPR-reports-generator/internal/app"
	"github.com/MrDragar/LDPR-reports-generator/internal/config"
	"github.com/MrDragar/LDPR-reports-generator/internal/health"
	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/server"
)

// #region main
func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(sigCtx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("wire app")
	}
	defer a.Close()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.New(a.Controller, server.Options{Logger: logger, CORSOrigins: cfg.CORSOrigins}),
	}
	errCh := make(chan error, 2)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "backend": cfg.DraftBackend}).Info("http listening")
		errCh <- srv.ListenAndServe()
	}()

	var hs *health.Server
	if cfg.HealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			logger.WithError(err).Fatal("listen health")
		}
		hs = health.New(a.Store, logger, 0)
		go hs.Watch(sigCtx)
		go func() {
			logger.WithField("addr", cfg.HealthAddr).Info("grpc health listening")
			errCh <- hs.Serve(lis)
		}()
	}

	select {
	case <-sigCtx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError(logger, "reportd", "main", "serve", nil, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if hs != nil {
		hs.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "reportd", "main", "shutdown http", nil, err)
	}
}
// #endregion main
