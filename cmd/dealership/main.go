package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iurnickita/dealership/internal/auth"
	"github.com/iurnickita/dealership/internal/config"
	"github.com/iurnickita/dealership/internal/handler"
	"github.com/iurnickita/dealership/internal/logger"
	"github.com/iurnickita/dealership/internal/service"
	"github.com/iurnickita/dealership/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.Store.DBDsn == "" {
		zaplog.Warn("no database configured, sales are kept in memory")
	}

	auth := auth.NewAuth(cfg.Auth)
	service, err := service.NewService(cfg.Service, store, zaplog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zaplog.Info("starting dealership", zap.String("addr", cfg.Handler.ServerAddr))
	return handler.Serve(ctx, cfg.Handler, auth, service, zaplog)
}
