package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cmrp/models"
	"cmrp/worker"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

type countingReconciler struct {
	calls atomic.Int32
	mode  atomic.Value
}

func (c *countingReconciler) Reconcile(ctx context.Context, mode models.ReconcileMode) (*models.ReconcileReport, error) {
	c.calls.Add(1)
	c.mode.Store(mode)
	return &models.ReconcileReport{Mode: mode}, nil
}

func TestReconcileWorkerTicks(t *testing.T) {
	logger, _ := test.NewNullLogger()
	rec := &countingReconciler{}
	w := worker.NewReconcileWorker(rec, 10*time.Millisecond, models.ReconcileUnassigned, logger)

	w.Start()
	assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	w.Stop()

	after := rec.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.calls.Load(), "no passes after Stop")
	assert.Equal(t, models.ReconcileUnassigned, rec.mode.Load())
}

func TestReconcileWorkerDisabled(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rec := &countingReconciler{}
	w := worker.NewReconcileWorker(rec, 0, models.ReconcileFull, logger)

	w.Start()
	w.Stop()

	assert.Zero(t, rec.calls.Load())
	assert.Equal(t, "Reconcile worker disabled", hook.LastEntry().Message)
}

func TestReconcileWorkerStopIsIdempotent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	w := worker.NewReconcileWorker(&countingReconciler{}, time.Hour, models.ReconcileFull, logger)

	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
