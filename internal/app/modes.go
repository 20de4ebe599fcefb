package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polywatch/polywatch/internal/pipeline"
	"github.com/polywatch/polywatch/internal/server"
	"github.com/polywatch/polywatch/internal/server/handler"
	"github.com/polywatch/polywatch/internal/server/ws"
)

// PollMode runs only the polling orchestrator: fetch, aggregate, announce,
// clean up, sleep, repeat.
func (a *App) PollMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting poll mode")

	orch := pipeline.NewOrchestrator(deps.Pipeline, a.cfg.Watch.PollInterval.Duration, a.logger)
	return orch.Run(ctx)
}

// ServerMode runs only the HTTP + WebSocket API. Notification cycles happen
// exclusively through the manual trigger endpoint.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps, nil)
	return g.Wait()
}

// FullMode runs the polling orchestrator and the API server together. The
// manual trigger endpoint feeds the orchestrator's trigger channel so extra
// cycles interleave with the scheduled ones.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	orch := pipeline.NewOrchestrator(deps.Pipeline, a.cfg.Watch.PollInterval.Duration, a.logger)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	a.startServer(ctx, g, deps, orch.TriggerChan())

	return g.Wait()
}

// startServer builds the handler set, the WebSocket hub, and the HTTP server,
// and registers their goroutines on the group. A nil triggerCh makes the
// trigger endpoint run cycles synchronously.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, triggerCh chan<- struct{}) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled by config")
		return
	}

	notifyHandler := handler.NewNotifyHandler(deps.Pipeline, a.logger)
	if triggerCh != nil {
		notifyHandler = notifyHandler.WithTriggerChannel(triggerCh)
	}

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Notify:     notifyHandler,
		Activities: handler.NewActivityHandler(deps.ActivityStore, a.logger),
	}
	// The registry endpoints only make sense when polls read from the registry.
	if strings.ToLower(a.cfg.Watch.AddressSource) == "registry" {
		handlers.Addresses = handler.NewAddressHandler(deps.AddressStore, a.logger)
	}

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}
