package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cmrp/models"
	"cmrp/utils"

	"github.com/sirupsen/logrus"
)

// OfficerService manages the officer registry. Creating an officer, re-activating
// one, or widening its pincodes immediately hands it the matching NO_OFFICER complaints.
type OfficerService struct {
	officers   OfficerStore
	reconciler *ReconcileService
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewOfficerService creates a new officer service
func NewOfficerService(officers OfficerStore, reconciler *ReconcileService, logger logrus.FieldLogger) *OfficerService {
	return &OfficerService{
		officers:   officers,
		reconciler: reconciler,
		logger:     logger.WithField("component", "officers"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create provisions an officer and backfills its coverage
func (s *OfficerService) Create(ctx context.Context, createdBy models.Principal, req models.CreateOfficerRequest) (*models.OfficerResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", models.ErrInvalidArgument)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	o := &models.Officer{
		ID:           utils.NewID(),
		Username:     username,
		Name:         name,
		Pincodes:     normalizePincodes(req.Pincodes),
		IsActive:     active,
		CreatedBy:    createdBy.Email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.officers.Create(ctx, o); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: username %s is taken", models.ErrConflict, username)
		}
		return nil, err
	}

	s.logger.WithField("officer_id", o.ID).WithField("pincodes", o.Pincodes).Info("officer created")

	return &models.OfficerResponse{Officer: o, ReassignedComplaints: s.backfill(ctx, o)}, nil
}

// List returns officers, optionally only active ones
func (s *OfficerService) List(ctx context.Context, activeOnly bool) ([]models.Officer, error) {
	return s.officers.List(ctx, activeOnly)
}

// Get returns one officer
func (s *OfficerService) Get(ctx context.Context, id string) (*models.Officer, error) {
	return s.officers.GetByID(ctx, id)
}

// Pincodes returns the officer's coverage set
func (s *OfficerService) Pincodes(ctx context.Context, id string) ([]string, error) {
	if _, err := s.officers.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.officers.Pincodes(ctx, id)
}

// Update applies a partial change. Nil fields are left alone; a non-nil Pincodes
// replaces the whole set.
func (s *OfficerService) Update(ctx context.Context, id string, req models.UpdateOfficerRequest) (*models.OfficerResponse, error) {
	o, err := s.officers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasActive := o.IsActive
	before := append([]string(nil), o.Pincodes...)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", models.ErrInvalidArgument)
		}
		o.Name = name
	}
	if req.Pincodes != nil {
		o.Pincodes = normalizePincodes(req.Pincodes)
	}
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}

	if err := s.officers.Update(ctx, o); err != nil {
		return nil, err
	}

	resp := &models.OfficerResponse{Officer: o}
	if o.IsActive && (!wasActive || gainedPincodes(before, o.Pincodes)) {
		resp.ReassignedComplaints = s.backfill(ctx, o)
	}

	s.logger.WithField("officer_id", o.ID).WithField("active", o.IsActive).Info("officer updated")
	return resp, nil
}

// ResetPassword replaces the officer's password
func (s *OfficerService) ResetPassword(ctx context.Context, id, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", models.ErrInvalidArgument)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	return s.officers.UpdatePassword(ctx, id, hash)
}

// Delete removes the officer record. Complaints keep their assigned_to reference.
func (s *OfficerService) Delete(ctx context.Context, id string) error {
	if err := s.officers.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("officer_id", id).Info("officer deleted")
	return nil
}

// Authenticate checks officer credentials. Unknown, inactive and wrong-password
// logins are indistinguishable to the caller.
func (s *OfficerService) Authenticate(ctx context.Context, username, password string) (*models.Officer, error) {
	o, err := s.officers.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if !o.IsActive || utils.CheckPassword(password, o.PasswordHash) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	}
	return o, nil
}

// backfill runs the incremental reconcile. The officer write already succeeded, so a
// failure here is logged and reported as zero.
func (s *OfficerService) backfill(ctx context.Context, o *models.Officer) int {
	if s.reconciler == nil {
		return 0
	}
	n, err := s.reconciler.ReconcileForOfficer(ctx, o)
	if err != nil {
		s.logger.WithError(err).WithField("officer_id", o.ID).Error("officer backfill failed")
		return 0
	}
	return n
}

func normalizePincodes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func gainedPincodes(before, after []string) bool {
	had := make(map[string]bool, len(before))
	for _, p := range before {
		had[p] = true
	}
	for _, p := range after {
		if !had[p] {
			return true
		}
	}
	return false
}
