package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/core"
	"github.com/rentdesk/rentdesk/internal/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	config := configuration.Read()
	core.NewLogger(config.App.LogLevel)
	defer func() { _ = zap.L().Sync() }()

	profile := configuration.GetProfile(config.App.Profile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := core.StartTracing(ctx, config.Tracing)
	if err != nil {
		zap.L().Fatal("Failed to start tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			zap.L().Error("Failed to flush traces", zap.Error(err))
		}
	}()

	profiler, err := core.StartProfiling(config.Profiling, profile.Name)
	if err != nil {
		zap.L().Error("Failed to start profiling", zap.Error(err))
	}
	if profiler != nil {
		defer func() { _ = profiler.Stop() }()
	}

	deps := core.Dependencies{
		DB:             database.InitDB(config.Database),
		Cache:          core.NewCache(config.Cache),
		Storage:        core.NewStorage(config.Storage),
		Notifier:       core.NewNotifier(config.Notifier),
		ActivityLogger: core.NewActivityLogger(config.Activity),
	}
	defer func() { _ = deps.Cache.Close() }()
	if deps.ActivityLogger != nil {
		defer func() { _ = deps.ActivityLogger.Close() }()
	}

	if profile.NeedsEvents() {
		deps.Events = core.NewEventsManager(config.Events)
		defer deps.Events.Close()
	}

	if profile.HTTPServer {
		if err = core.CreateAdminUser(deps.DB, config.App); err != nil {
			zap.L().Fatal("Failed to create the admin user", zap.Error(err))
		}
	}

	appIdentity := uuid.New().String()

	go deps.Cache.StartIdentityTicker(appIdentity)
	zap.L().Info("Cache identity ticker started")

	if profile.Workers.AnyEnabled() {
		core.StartWorkers(ctx, profile, config, deps, appIdentity)
	}

	if profile.HTTPServer {
		core.StartHTTPServer(ctx, config, deps)
	} else if profile.Workers.AnyEnabled() {
		zap.L().Info("Running in worker-only mode")
		<-ctx.Done()
	}

	zap.L().Info("Shutting down")
}
