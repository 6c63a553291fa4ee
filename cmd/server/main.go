package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rkgold/invoicer/internal/config"
	"github.com/rkgold/invoicer/internal/logger"
	"github.com/rkgold/invoicer/internal/qr"
	"github.com/rkgold/invoicer/internal/server"
	"github.com/rkgold/invoicer/internal/session"
	"github.com/rkgold/invoicer/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Error("store open failed", "path", cfg.Database.Path, "err", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	log.Info("store opened", "path", cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(ctx, store, log)

	var logo []byte
	if cfg.Invoice.LogoPath != "" {
		logo, err = os.ReadFile(cfg.Invoice.LogoPath)
		if err != nil {
			// The invoice renders without a logo; keep going.
			log.Warn("logo not readable", "path", cfg.Invoice.LogoPath, "err", err)
			logo = nil
		}
	}

	srv := server.New(sess, qr.NewImageDecoder(), cfg, logo, log)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("server started", "addr", cfg.Server.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
