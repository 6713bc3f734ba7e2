// @title Persona Graph API
// @version 1.0
// @description Personas, follow graph and active-persona sessions.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/persona-graph/config"
	"github.com/d60-Lab/persona-graph/internal/api/handler"
	"github.com/d60-Lab/persona-graph/internal/api/router"
	"github.com/d60-Lab/persona-graph/internal/app"
	"github.com/d60-Lab/persona-graph/pkg/logger"
	"github.com/d60-Lab/persona-graph/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		logger.Sync()
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Log.Env)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := handler.RegisterValidators(a.Names); err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(cfg, a.Handler(), a.Tokens, a.Accounts, a.Health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(sctx),
			a.Close(sctx),
			shutdownTracing(sctx),
		)
	})
	return g.Wait()
}
