package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/authcore/internal/app"
	"github.com/dropDatabas3/authcore/internal/bootstrap"
	"github.com/dropDatabas3/authcore/internal/config"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

const shutdownGrace = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "ruta del archivo de configuración")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using system environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "authcore",
		Version:     app.Version,
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.L().Fatal("wiring failed", logger.Err(err))
	}
	defer application.Close()

	if err := bootstrap.EnsureAdmin(ctx, application.Store, bootstrap.AdminConfig{
		Email:    os.Getenv("AUTHCORE_ADMIN_EMAIL"),
		Password: os.Getenv("AUTHCORE_ADMIN_PASSWORD"),
	}); err != nil {
		logger.L().Warn("admin bootstrap failed", logger.Err(err))
	}

	srv := httpx.NewServer(cfg.Server.Addr, application.Handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L().Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if janitor := application.Janitor(); janitor != nil {
		g.Go(func() error {
			if err := janitor.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.L().Fatal("server failed", logger.Err(err))
	}
	logger.L().Info("shutdown complete")
}
