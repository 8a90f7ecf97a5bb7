package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Expirer moves overdue active requests to Expired.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpiryWorker runs the expiry sweep on a fixed interval.
type ExpiryWorker struct {
	expirer  Expirer
	interval time.Duration
	logger   *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewExpiryWorker builds a worker. A non-positive interval disables it.
func NewExpiryWorker(expirer Expirer, interval time.Duration, logger *zap.Logger) *ExpiryWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryWorker{expirer: expirer, interval: interval, logger: logger}
}

// Start runs one sweep immediately, then one per interval until Stop or ctx is done.
func (w *ExpiryWorker) Start(ctx context.Context) {
	if w.interval <= 0 || w.expirer == nil {
		w.logger.Info("expiry sweep disabled")
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
	w.logger.Info("expiry sweep started", zap.Duration("interval", w.interval))
}

// Stop cancels the loop and waits for an in-flight sweep.
func (w *ExpiryWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	n, err := w.expirer.ExpireOverdue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("expiry sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		w.logger.Info("requests expired", zap.Int("count", n))
	}
}
