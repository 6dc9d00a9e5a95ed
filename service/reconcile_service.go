package service

import (
	"context"
	"errors"
	"fmt"

	"cmrp/models"

	"github.com/sirupsen/logrus"
)

// ReconcileService re-derives complaint assignment from current officer coverage.
//
// Complaints already IN_PROGRESS or RESOLVED are never candidates, so a pass can
// not undo officer work.
type ReconcileService struct {
	complaints ReconcileStore
	officers   OfficerLookup
	resolver   *AssignmentService
	cache      CacheInvalidator
	logger     logrus.FieldLogger
}

// NewReconcileService creates a new reconcile service. cache may be nil.
func NewReconcileService(
	complaints ReconcileStore,
	officers OfficerLookup,
	resolver *AssignmentService,
	cache CacheInvalidator,
	logger logrus.FieldLogger,
) *ReconcileService {
	return &ReconcileService{
		complaints: complaints,
		officers:   officers,
		resolver:   resolver,
		cache:      cache,
		logger:     logger.WithField("component", "reconcile"),
	}
}

// Reconcile scans candidates for mode and fixes stale or missing assignments.
// Item failures are counted and the pass continues.
func (s *ReconcileService) Reconcile(ctx context.Context, mode models.ReconcileMode) (*models.ReconcileReport, error) {
	candidates, err := s.complaints.ListReconcileCandidates(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconcile candidates: %w", err)
	}

	report := &models.ReconcileReport{Mode: mode}
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c := &candidates[i]
		report.Scanned++

		entry := s.logger.WithField("complaint_id", c.ID).WithField("pincode", c.Pincode)

		keep, err := s.keepsAssignment(ctx, c)
		if err != nil {
			entry.WithError(err).Warn("reconcile: officer lookup failed")
			report.Failed++
			continue
		}
		if keep {
			continue
		}

		assignedTo, status, err := s.resolver.InitialAssignment(ctx, c.Pincode)
		if err != nil {
			entry.WithError(err).Warn("reconcile: resolve failed")
			report.Failed++
			continue
		}
		if status == c.Status && sameAssignee(c.AssignedTo, assignedTo) {
			continue
		}

		ok, err := s.complaints.ConditionalAssign(ctx, c.ID, c.Status, assignedTo, status)
		if err != nil {
			entry.WithError(err).Warn("reconcile: update failed")
			report.Failed++
			continue
		}
		if !ok {
			entry.Debug("reconcile: complaint changed concurrently, skipped")
			report.Skipped++
			continue
		}

		report.Updated++
		if status == models.StatusPending {
			report.Assigned++
		} else {
			report.NoOfficer++
		}
		entry.WithField("status", status).Debug("reconcile: complaint updated")
	}

	if report.Updated > 0 {
		s.invalidate(ctx)
	}

	s.logger.WithFields(logrus.Fields{
		"mode":       mode,
		"scanned":    report.Scanned,
		"updated":    report.Updated,
		"assigned":   report.Assigned,
		"no_officer": report.NoOfficer,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
	}).Info("reconcile finished")

	return report, nil
}

// ReconcileForOfficer hands every NO_OFFICER complaint in the officer's pincodes to it.
// Inactive officers pick up nothing.
func (s *ReconcileService) ReconcileForOfficer(ctx context.Context, o *models.Officer) (int, error) {
	if o == nil || !o.IsActive || len(o.Pincodes) == 0 {
		return 0, nil
	}

	n, err := s.complaints.AssignUnrouted(ctx, o.ID, o.Pincodes)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx)
	}

	s.logger.WithField("officer_id", o.ID).WithField("reassigned", n).Info("officer backfill finished")
	return n, nil
}

// keepsAssignment is true for a PENDING complaint whose officer is still active and
// still covers its pincode.
func (s *ReconcileService) keepsAssignment(ctx context.Context, c *models.Complaint) (bool, error) {
	if c.Status != models.StatusPending || !c.IsAssigned() {
		return false, nil
	}

	o, err := s.officers.GetByID(ctx, *c.AssignedTo)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return o.IsActive && o.Covers(c.Pincode), nil
}

func (s *ReconcileService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate analytics cache")
	}
}

func sameAssignee(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}
