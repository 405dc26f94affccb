package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetboard/internal/backend"
	"budgetboard/internal/cli"
	apphttp "budgetboard/internal/http"
	applog "budgetboard/internal/log"
	"budgetboard/internal/view"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout).WithComponent(applog.ComponentApp)
	cfg := cli.MustLoadConfig(logger)

	factory := backend.NewFactory(logger.Logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	res, err := factory.CreateBackend(context.Background(), bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		cli.Fatal(logger, "Failed to parse templates", err)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, res.Store, renderer, logger, apphttp.Options{
		UserHeader:     cfg.UserHeader,
		AllowUIDParam:  cfg.AllowUIDParam,
		Location:       cfg.Location(),
		TrustedProxies: cfg.TrustedProxies,
		RateLimit:      cfg.RateLimitPerMinute,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}
	// No WriteTimeout: live panels hold their connection open and set
	// their own write deadlines.
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(sctx context.Context) {
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetboard server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	for _, r := range res.Runners {
		g.Go(func() error {
			logger.Info("Starting background loop", "runner", r.Name)
			if err := r.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	// A failed loop takes the server down with it.
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			return nil
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		<-done
	}
	if cerr := res.Cleanup(); cerr != nil {
		logger.Error("Backend cleanup error", applog.FieldError, cerr)
	}
	if err != nil {
		cli.Fatal(logger, "Server stopped with error", err)
	}
	logger.Info("Server stopped gracefully")
}
