package worker

import (
	"context"
	"sync"
	"time"

	"cmrp/models"

	"github.com/sirupsen/logrus"
)

// Reconciler runs one reconciliation pass
type Reconciler interface {
	Reconcile(ctx context.Context, mode models.ReconcileMode) (*models.ReconcileReport, error)
}

// ReconcileWorker is a background worker that periodically re-derives complaint
// assignments from current officer coverage
type ReconcileWorker struct {
	reconciler Reconciler
	interval   time.Duration
	mode       models.ReconcileMode
	logger     logrus.FieldLogger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewReconcileWorker creates a new reconcile worker. A non-positive interval
// yields a worker whose Start is a no-op.
func NewReconcileWorker(reconciler Reconciler, interval time.Duration, mode models.ReconcileMode, logger logrus.FieldLogger) *ReconcileWorker {
	return &ReconcileWorker{
		reconciler: reconciler,
		interval:   interval,
		mode:       mode,
		logger:     logger.WithField("component", "reconcile_worker"),
	}
}

// Start runs the worker in its own goroutine
func (w *ReconcileWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.interval <= 0 {
		w.logger.Info("Reconcile worker disabled")
		return
	}
	if w.running {
		w.logger.Warn("Reconcile worker is already running")
		return
	}

	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.logger.WithField("interval", w.interval.String()).Info("Reconcile worker started")

	go w.run(w.stopChan, w.done)
}

// Stop signals the worker and waits for an in-flight pass to finish
func (w *ReconcileWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("Reconcile worker stopped")
}

func (w *ReconcileWorker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.reconcile(ctx)
		case <-stop:
			return
		}
	}
}

// reconcile runs one pass; reconciliation is idempotent so a missed or repeated tick is harmless
func (w *ReconcileWorker) reconcile(ctx context.Context) {
	start := time.Now()

	report, err := w.reconciler.Reconcile(ctx, w.mode)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WithError(err).Error("Reconcile pass failed")
		}
		return
	}

	w.logger.WithFields(logrus.Fields{
		"mode":     report.Mode,
		"scanned":  report.Scanned,
		"updated":  report.Updated,
		"failed":   report.Failed,
		"duration": time.Since(start).String(),
	}).Debug("Reconcile pass completed")
}
