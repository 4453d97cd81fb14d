// Package worker runs background housekeeping alongside the API.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"authservice/config"
	"authservice/internal/delivery"
	deliverycontext "authservice/internal/delivery/context"
	"authservice/internal/domain/lifecycle"
	"authservice/internal/errors"
	"authservice/internal/usecase"
	"authservice/internal/util"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// cleanupWorker purges expired refresh tokens from the ledger on a fixed interval.
type cleanupWorker struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
	interval  time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// ServerParams holds dependencies for the cleanup worker
type ServerParams struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       *config.Config
	Logger    *slog.Logger
	SessionUC usecase.SessionUsecase
}

// NewServer creates the ledger cleanup worker. A zero ledger.cleanupInterval
// yields a worker that idles until shutdown.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	var interval time.Duration
	if params.Cfg.Ledger != nil {
		interval = params.Cfg.Ledger.CleanupInterval
	}

	w := newCleanupWorker(params.SessionUC, params.Logger, interval)

	params.Lc.Append(fx.Hook{
		OnStop: w.stop,
	})

	return w, nil
}

func newCleanupWorker(sessionUC usecase.SessionUsecase, logger *slog.Logger, interval time.Duration) *cleanupWorker {
	return &cleanupWorker{
		sessionUC: sessionUC,
		logger:    logger.With(slog.String("component", "ledger_cleanup")),
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Serve runs one purge immediately, then one per interval, until stopped.
func (w *cleanupWorker) Serve(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("ledger cleanup worker already running")
	}
	defer close(w.doneCh)

	if w.interval <= 0 {
		w.logger.Info("Ledger cleanup disabled")
		select {
		case <-ctx.Done():
		case <-w.stopCh:
		}

		return nil
	}

	w.logger.Info("Starting ledger cleanup worker", slog.String("interval", util.FormatDuration(w.interval)))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case <-ticker.C:
		}
	}
}

func (w *cleanupWorker) runOnce(ctx context.Context) {
	runID := uuid.New().String()
	runLogger := w.logger.With(slog.String("run_id", runID))

	runCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()
	runCtx = deliverycontext.WithRequestID(runCtx, runID)
	runCtx = deliverycontext.WithLogger(runCtx, runLogger)

	start := time.Now()
	deleted, err := w.sessionUC.CleanupExpiredSessions(runCtx)
	if err != nil {
		// The next tick retries.
		runLogger.Warn("Ledger cleanup run failed", slog.Any("error", err))

		return
	}

	runLogger.Debug("Ledger cleanup run finished",
		slog.Int64("deleted_count", deleted),
		slog.String("took", util.FormatDuration(time.Since(start))),
	)
}

func (w *cleanupWorker) stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })

	w.logger.Info("Shutting down ledger cleanup worker")

	if !w.started.Load() {
		return nil
	}

	select {
	case <-w.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}
