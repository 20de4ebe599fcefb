package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Orchestrator runs the notification pipeline on a fixed poll interval and on
// demand via the manual trigger channel.
type Orchestrator struct {
	notifier *ActivityNotifier
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator polling at the given interval.
func NewOrchestrator(notifier *ActivityNotifier, interval time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		notifier: notifier,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// TriggerChan returns the channel the HTTP trigger handler sends on to run
// one extra cycle immediately.
func (o *Orchestrator) TriggerChan() chan<- struct{} {
	return o.trigger
}

// Run polls until the context is cancelled. The first cycle runs immediately
// on start. Cycle errors are logged and the loop continues with the next
// scheduled invocation.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "orchestrator starting",
		slog.Duration("poll_interval", o.interval),
	)

	o.runCycle(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.InfoContext(ctx, "orchestrator stopped")
			return ctx.Err()
		case <-ticker.C:
			o.runCycle(ctx)
		case <-o.trigger:
			o.logger.InfoContext(ctx, "manual trigger received")
			o.runCycle(ctx)
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context) {
	start := time.Now()
	if err := o.notifier.NotifyNewActivities(ctx); err != nil {
		o.logger.ErrorContext(ctx, "notification cycle failed",
			slog.String("error", err.Error()),
		)
		return
	}
	o.logger.InfoContext(ctx, "notification cycle complete",
		slog.Duration("took", time.Since(start)),
	)
}
