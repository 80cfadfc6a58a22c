package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/kv"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/prefs"
	"fintrack/internal/services"
	"fintrack/internal/source/rest"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	src, err := rest.New(cfg.SourceURL, cfg.SourceTimeout)
	if err != nil {
		logger.Error("Failed to initialize source client", log.FieldError, err, "url", cfg.SourceURL)
		os.Exit(1)
	}

	state, err := kv.OpenFile(cfg.StateFile)
	if err != nil {
		logger.Error("Failed to open state file", log.FieldError, err, "path", cfg.StateFile)
		os.Exit(1)
	}

	mode, err := budget.ParseTriggerMode(cfg.AlertMode)
	if err != nil {
		logger.Error("Invalid alert mode", log.FieldError, err)
		os.Exit(1)
	}
	feed := budget.NewFeed(20)
	notifiers := budget.MultiNotifier{budget.NewLogNotifier(logger), feed}

	// Alerts also go to the broker when one is configured. The tracker keeps
	// running without it.
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, budget alerts stay local", log.FieldError, err)
		} else {
			defer client.Close()
			notifiers = append(notifiers, client)
			logger.Info("Publishing budget alerts", "exchange", cfg.AMQPExchange)
		}
	}

	dispatcher := budget.NewDispatcher(mode, notifiers, logger)
	tracker := services.NewTrackerService(src, services.Options{
		CacheTTL:     cfg.CacheTTL,
		FetchTimeout: cfg.SourceTimeout,
		Goals:        budget.NewGoalStore(state, logger),
		Prefs:        prefs.NewStore(state),
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	caches := cache.NewManager(logger)
	caches.Register(tracker.Cache())
	caches.StartCleanup(ctx, time.Minute)
	defer caches.Stop()

	srv, err := apphttp.NewServer(net.JoinHostPort("", cfg.Port), tracker, apphttp.Options{
		Feed:      feed,
		RateLimit: ratelimit.DefaultConfig(),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to initialize server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	if _, err := tracker.Refresh(ctx); err != nil {
		logger.Warn("Initial fetch failed, dashboard starts empty", log.FieldError, err, "url", cfg.SourceURL)
	}

	logger.Info("Starting fintrack", "port", cfg.Port, "source", cfg.SourceURL, "alert_mode", string(dispatcher.Mode()))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
