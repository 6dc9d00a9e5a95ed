package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cmrp/models"
	"cmrp/storage"
	"cmrp/utils"

	"github.com/sirupsen/logrus"
)

// UserService handles business logic for users
type UserService struct {
	users  UserStore
	files  storage.FileStore
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserStore, files storage.FileStore, logger logrus.FieldLogger) *UserService {
	return &UserService{
		users:  users,
		files:  files,
		logger: logger.WithField("component", "users"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a citizen account. The role is never taken from the request.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", models.ErrInvalidArgument)
	}
	if req.Password == "" || fullName == "" {
		return nil, fmt.Errorf("%w: password and full_name are required", models.ErrInvalidArgument)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &models.User{
		ID:             utils.NewID(),
		Email:          email,
		FullName:       fullName,
		Phone:          strings.TrimSpace(req.Phone),
		Role:           models.RoleCitizen,
		PasswordHash:   hash,
		OfficerRequest: models.OfficerRequest{Status: models.OfficerRequestNone},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
		}
		return nil, err
	}

	s.logger.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login checks citizen credentials
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if utils.CheckPassword(req.Password, u.PasswordHash) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	}
	return u, nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// RequestPromotion records a citizen's request to become an officer, with an
// optional ID proof upload. A second request while one is pending is a conflict.
func (s *UserService) RequestPromotion(ctx context.Context, p models.Principal, req models.PromotionRequest, idProof *storage.File) (*models.User, error) {
	if p.Role != models.RoleCitizen {
		return nil, fmt.Errorf("%w: only citizens can request officer access", models.ErrForbidden)
	}

	u, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if u.OfficerRequest.Status == models.OfficerRequestPending {
		return nil, fmt.Errorf("%w: a request is already pending", models.ErrConflict)
	}

	department := strings.TrimSpace(req.Department)
	designation := strings.TrimSpace(req.Designation)
	if department == "" || designation == "" {
		return nil, fmt.Errorf("%w: department and designation are required", models.ErrInvalidArgument)
	}

	now := s.now()
	request := models.OfficerRequest{
		Status:      models.OfficerRequestPending,
		Department:  department,
		Designation: designation,
		Reason:      strings.TrimSpace(req.Reason),
		SubmittedAt: &now,
	}

	if idProof != nil && len(idProof.Data) > 0 {
		url, err := s.files.Save(ctx, "id-proofs", *idProof)
		if err != nil {
			return nil, fmt.Errorf("failed to store id proof: %w", err)
		}
		request.IDProofURL = &url
	}

	if err := s.users.SubmitOfficerRequest(ctx, u.ID, request); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", u.ID).Info("officer request submitted")
	return s.users.GetByID(ctx, u.ID)
}

// ListPromotionRequests lists users by request status; nil means any non-none request
func (s *UserService) ListPromotionRequests(ctx context.Context, status *models.OfficerRequestStatus) ([]models.User, error) {
	return s.users.ListByOfficerRequest(ctx, status)
}

// ReviewPromotion approves or rejects a pending request. Approval only retags the
// user as an officer; no registry entry or pincode coverage is created.
func (s *UserService) ReviewPromotion(ctx context.Context, userID string, approve bool) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.OfficerRequest.Status != models.OfficerRequestPending {
		return nil, fmt.Errorf("%w: no pending officer request", models.ErrConflict)
	}

	status := models.OfficerRequestRejected
	var role *models.Role
	if approve {
		status = models.OfficerRequestApproved
		officer := models.RoleOfficer
		role = &officer
	}

	if err := s.users.ReviewOfficerRequest(ctx, userID, status, role, s.now()); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", userID).WithField("decision", status).Info("officer request reviewed")
	return s.users.GetByID(ctx, userID)
}
