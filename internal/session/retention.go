package session

import (
	"context"
	"log/slog"
	"time"
)

// defaultSweepInterval is the fallback cadence for the background sweep
// when none is configured. Tests use a shorter interval.
const defaultSweepInterval = time.Hour

// teardownGrace bounds how long Stop waits for the background task to
// observe the stop signal before giving up.
const teardownGrace = 5 * time.Second

// RetentionSupervisor runs the store's three-stage retention sweep on a
// ticker, one instance per store. Neither constructing the store nor
// constructing the supervisor starts it: the loop runs only after Start,
// and Start does nothing unless the store's policy has SessionTTLHours > 0.
type RetentionSupervisor struct {
	store      Store
	interval   time.Duration
	onSwept    func(ctx context.Context, idleDeleted, hardCapDeleted, eventsDropped int)
	pruneAudit func(ctx context.Context) (int64, error)
	cancel     context.CancelFunc
	done       chan struct{}
}

// RetentionOption configures a RetentionSupervisor.
type RetentionOption func(*RetentionSupervisor)

// WithSweepObserver registers a callback invoked after every sweep
// (whether or not it deleted anything), e.g. to record telemetry.
func WithSweepObserver(fn func(ctx context.Context, idleDeleted, hardCapDeleted, eventsDropped int)) RetentionOption {
	return func(r *RetentionSupervisor) { r.onSwept = fn }
}

// WithAuditPrune registers a callback run alongside every sweep to prune
// a companion audit trail using the same cadence.
func WithAuditPrune(fn func(ctx context.Context) (int64, error)) RetentionOption {
	return func(r *RetentionSupervisor) { r.pruneAudit = fn }
}

// NewRetentionSupervisor builds (but does not start) a supervisor for
// store. A non-positive interval falls back to defaultSweepInterval.
func NewRetentionSupervisor(store Store, interval time.Duration, opts ...RetentionOption) *RetentionSupervisor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	r := &RetentionSupervisor{store: store, interval: interval}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background sweep loop. It is a no-op if the store's
// RetentionPolicy disables expiry (SessionTTLHours == 0).
func (r *RetentionSupervisor) Start(ctx context.Context) {
	if r.store.RetentionPolicy().SessionTTLHours <= 0 {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				slog.Info("retention supervisor stopping")
				return
			case <-ticker.C:
				r.sweepOnce(runCtx)
			}
		}
	}()
}

func (r *RetentionSupervisor) sweepOnce(ctx context.Context) {
	idle, hardCap, events := r.store.sweep(time.Now().UTC())
	if idle > 0 || hardCap > 0 || events > 0 {
		slog.Info("retention sweep completed",
			"idle_expired", idle,
			"hard_cap_expired", hardCap,
			"events_dropped", events,
		)
	}
	if r.onSwept != nil {
		r.onSwept(ctx, idle, hardCap, events)
	}
	if r.pruneAudit != nil {
		if _, err := r.pruneAudit(ctx); err != nil {
			slog.Warn("audit prune failed during retention sweep", "error", err)
		}
	}
}

// Stop cancels the sweep loop and waits up to teardownGrace for it to
// exit. It is safe to call even if Start was a no-op.
func (r *RetentionSupervisor) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(teardownGrace):
		slog.Warn("retention supervisor did not stop within grace period")
	}
}
