package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cmrp/broadcast"
	"cmrp/models"
	"cmrp/storage"
	"cmrp/utils"

	"github.com/sirupsen/logrus"
)

// publicIDAttempts bounds the random CMP-YYYY-###### draws before falling back
// to a UUID-derived suffix.
const publicIDAttempts = 5

// ComplaintService handles business logic for complaints
type ComplaintService struct {
	complaints ComplaintStore
	comments   CommentStore
	notes      WorkNoteStore
	officers   OfficerLookup
	resolver   *AssignmentService
	files      storage.FileStore
	publisher  broadcast.Publisher
	cache      CacheInvalidator
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewComplaintService creates a new complaint service. cache may be nil.
func NewComplaintService(
	complaints ComplaintStore,
	comments CommentStore,
	notes WorkNoteStore,
	officers OfficerLookup,
	resolver *AssignmentService,
	files storage.FileStore,
	publisher broadcast.Publisher,
	cache CacheInvalidator,
	logger logrus.FieldLogger,
) *ComplaintService {
	return &ComplaintService{
		complaints: complaints,
		comments:   comments,
		notes:      notes,
		officers:   officers,
		resolver:   resolver,
		files:      files,
		publisher:  publisher,
		cache:      cache,
		logger:     logger.WithField("component", "complaints"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates a complaint for a citizen, routes it, and announces it
//
// Lifecycle Rules:
// 1. Only citizens submit; authorship comes from the caller
// 2. Initial status is PENDING when an officer covers the pincode, else NO_OFFICER
// 3. public_id is stamped once and never rewritten
func (s *ComplaintService) Submit(ctx context.Context, p models.Principal, req models.CreateComplaintRequest) (*models.Complaint, error) {
	if p.Role != models.RoleCitizen {
		return nil, fmt.Errorf("%w: only citizens can submit complaints", models.ErrForbidden)
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	category := strings.TrimSpace(req.Category)
	if title == "" || description == "" || category == "" {
		return nil, fmt.Errorf("%w: title, description and category are required", models.ErrInvalidArgument)
	}

	pincode := strings.TrimSpace(req.Pincode)
	assignedTo, status, err := s.resolver.InitialAssignment(ctx, pincode)
	if err != nil {
		return nil, fmt.Errorf("failed to route complaint: %w", err)
	}

	now := s.now()
	publicID, err := s.newPublicID(ctx, now)
	if err != nil {
		return nil, err
	}

	c := &models.Complaint{
		ID:          utils.NewID(),
		PublicID:    publicID,
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    models.NormalizePriority(req.Priority),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     strings.TrimSpace(req.Address),
		Pincode:     pincode,
		Status:      status,
		AssignedTo:  assignedTo,
		UserID:      p.ID,
		UserName:    p.Name,
		UserEmail:   p.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"complaint_id": c.ID,
		"public_id":    c.PublicID,
		"status":       c.Status,
		"pincode":      c.Pincode,
	}).Info("complaint submitted")

	s.announce(ctx, c)
	s.invalidate(ctx)
	return c, nil
}

func (s *ComplaintService) newPublicID(ctx context.Context, now time.Time) (string, error) {
	for i := 0; i < publicIDAttempts; i++ {
		candidate := utils.PublicComplaintID(now)
		exists, err := s.complaints.PublicIDExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return utils.FallbackPublicComplaintID(now), nil
}

// OfficerUpdate applies an assigned officer's patch. Statuses other than IN_PROGRESS
// and RESOLVED are dropped silently.
func (s *ComplaintService) OfficerUpdate(ctx context.Context, officerID, complaintID string, req models.OfficerUpdateRequest) (*models.Complaint, error) {
	c, err := s.complaints.GetForAssignee(ctx, complaintID, officerID)
	if err != nil {
		return nil, err
	}

	var patch models.ComplaintPatch
	if req.Status != nil {
		if st, err := models.ParseStatus(*req.Status); err == nil && (st == models.StatusInProgress || st == models.StatusResolved) {
			if !models.CanTransition(c.Status, st, models.RoleOfficer) {
				return nil, fmt.Errorf("%w: cannot move complaint from %s to %s", models.ErrInvalidArgument, c.Status, st)
			}
			patch.Status = &st
		}
	}
	if req.AdminComments != nil {
		comments := *req.AdminComments
		patch.AdminComments = &comments
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: no valid fields to update", models.ErrInvalidArgument)
	}

	return s.applyPatch(ctx, c, patch)
}

// AdminUpdate applies any admin patch while keeping assigned_to and status consistent:
// NO_OFFICER clears the officer, assigning an officer lifts NO_OFFICER to PENDING, and
// clearing the officer drops back to NO_OFFICER.
func (s *ComplaintService) AdminUpdate(ctx context.Context, p models.Principal, complaintID string, req models.AdminUpdateRequest) (*models.Complaint, error) {
	if p.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin access required", models.ErrForbidden)
	}

	c, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	var patch models.ComplaintPatch
	if req.Status != nil {
		st, err := models.ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		patch.Status = &st
	}
	if req.AssignedTo != nil {
		to := strings.TrimSpace(*req.AssignedTo)
		if to != "" {
			if _, err := s.officers.GetByID(ctx, to); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return nil, fmt.Errorf("%w: unknown officer %s", models.ErrInvalidArgument, to)
				}
				return nil, err
			}
		}
		patch.AssignedTo = &to
	}
	if req.AdminComments != nil {
		comments := *req.AdminComments
		patch.AdminComments = &comments
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", models.ErrInvalidArgument)
	}

	if err := balanceAssignment(c, &patch); err != nil {
		return nil, err
	}

	s.logger.WithField("complaint_id", c.ID).WithField("admin", p.Email).Info("admin updated complaint")
	return s.applyPatch(ctx, c, patch)
}

// balanceAssignment adjusts patch so the written row keeps assigned_to set exactly
// when status is not NO_OFFICER.
func balanceAssignment(c *models.Complaint, patch *models.ComplaintPatch) error {
	status := c.Status
	if patch.Status != nil {
		status = *patch.Status
	}
	assigned := ""
	if c.AssignedTo != nil {
		assigned = *c.AssignedTo
	}
	if patch.AssignedTo != nil {
		assigned = *patch.AssignedTo
	}

	switch {
	case status == models.StatusNoOfficer && assigned != "":
		if patch.Status != nil {
			none := ""
			patch.AssignedTo = &none
			return nil
		}
		pending := models.StatusPending
		patch.Status = &pending
	case status != models.StatusNoOfficer && assigned == "":
		if patch.Status != nil {
			return fmt.Errorf("%w: status %s requires an assigned officer", models.ErrInvalidArgument, status)
		}
		noOfficer := models.StatusNoOfficer
		patch.Status = &noOfficer
	}
	return nil
}

func (s *ComplaintService) applyPatch(ctx context.Context, c *models.Complaint, patch models.ComplaintPatch) (*models.Complaint, error) {
	if err := s.complaints.Update(ctx, c.ID, patch); err != nil {
		return nil, err
	}

	updated, err := s.complaints.GetByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return updated, nil
}

// AddWorkNote appends an officer note, storing the optional photo and its SHA-256
func (s *ComplaintService) AddWorkNote(ctx context.Context, officerID, complaintID, note string, photo *storage.File) (*models.WorkNote, error) {
	c, err := s.complaints.GetForAssignee(ctx, complaintID, officerID)
	if err != nil {
		return nil, err
	}

	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("%w: note is required", models.ErrInvalidArgument)
	}

	n := &models.WorkNote{
		ID:          utils.NewID(),
		ComplaintID: c.ID,
		OfficerID:   officerID,
		Note:        note,
		CreatedAt:   s.now(),
	}

	if photo != nil && len(photo.Data) > 0 {
		url, err := s.files.Save(ctx, "work-notes", *photo)
		if err != nil {
			return nil, fmt.Errorf("failed to store work note photo: %w", err)
		}
		sum := utils.PhotoSHA256(photo.Data)
		n.PhotoURL = &url
		n.PhotoSHA256 = &sum
	}

	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}

	s.logger.WithField("complaint_id", c.ID).WithField("officer_id", officerID).Info("work note added")
	return n, nil
}

// ListWorkNotes returns the work-note log to the assigned officer or an admin
func (s *ComplaintService) ListWorkNotes(ctx context.Context, p models.Principal, complaintID string) ([]models.WorkNote, error) {
	var err error
	switch p.Role {
	case models.RoleAdmin:
		_, err = s.complaints.GetByID(ctx, complaintID)
	case models.RoleOfficer:
		_, err = s.complaints.GetForAssignee(ctx, complaintID, p.ID)
	default:
		return nil, fmt.Errorf("%w: work notes are visible to officers and admins", models.ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	return s.notes.ListByComplaint(ctx, complaintID)
}

// AddComment appends to the comment log. Visibility defaults to public.
func (s *ComplaintService) AddComment(ctx context.Context, p models.Principal, complaintID string, req models.CommentRequest) (*models.Comment, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", models.ErrInvalidArgument)
	}

	visibility := models.CommentVisibility(strings.ToLower(strings.TrimSpace(req.Visibility)))
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityInternal:
	default:
		return nil, fmt.Errorf("%w: visibility must be public or internal", models.ErrInvalidArgument)
	}

	if _, err := s.complaints.GetByID(ctx, complaintID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:          utils.NewID(),
		ComplaintID: complaintID,
		AuthorID:    p.ID,
		AuthorName:  p.Name,
		AuthorRole:  p.Role,
		Message:     message,
		Visibility:  visibility,
		CreatedAt:   s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the comment log; internal entries only reach officers and admins
func (s *ComplaintService) ListComments(ctx context.Context, p models.Principal, complaintID string) ([]models.Comment, error) {
	if _, err := s.complaints.GetByID(ctx, complaintID); err != nil {
		return nil, err
	}
	includeInternal := p.Role == models.RoleOfficer || p.Role == models.RoleAdmin
	return s.comments.ListByComplaint(ctx, complaintID, includeInternal)
}

// AttachImage stores a photo for the complaint owner
func (s *ComplaintService) AttachImage(ctx context.Context, p models.Principal, complaintID string, f storage.File) (*models.Complaint, error) {
	c, err := s.complaints.GetForOwner(ctx, complaintID, p.ID)
	if err != nil {
		return nil, err
	}
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", models.ErrInvalidArgument)
	}

	url, err := s.files.Save(ctx, "complaints", f)
	if err != nil {
		return nil, fmt.Errorf("failed to store complaint image: %w", err)
	}
	if err := s.complaints.SetImageURL(ctx, c.ID, url); err != nil {
		return nil, err
	}

	c.ImageURL = &url
	c.UpdatedAt = s.now()
	return c, nil
}

// ListMine returns the caller's complaints: authored ones for citizens, assigned
// ones for officers.
func (s *ComplaintService) ListMine(ctx context.Context, p models.Principal, status *models.ComplaintStatus) ([]models.Complaint, error) {
	switch p.Role {
	case models.RoleCitizen:
		return s.complaints.ListByUser(ctx, p.ID)
	case models.RoleOfficer:
		return s.complaints.ListByAssignee(ctx, p.ID, status)
	}
	return nil, fmt.Errorf("%w: use the admin listing", models.ErrForbidden)
}

// ListAll is the filtered admin listing
func (s *ComplaintService) ListAll(ctx context.Context, p models.Principal, f models.ComplaintFilter) ([]models.Complaint, error) {
	if p.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin access required", models.ErrForbidden)
	}
	return s.complaints.List(ctx, f)
}

// Get returns a complaint to its owner, its assigned officer or an admin.
// Officers and admins also receive the work-note log.
func (s *ComplaintService) Get(ctx context.Context, p models.Principal, id string) (*models.Complaint, error) {
	var (
		c   *models.Complaint
		err error
	)
	switch p.Role {
	case models.RoleAdmin:
		c, err = s.complaints.GetByID(ctx, id)
	case models.RoleOfficer:
		c, err = s.complaints.GetForAssignee(ctx, id, p.ID)
	default:
		c, err = s.complaints.GetForOwner(ctx, id, p.ID)
	}
	if err != nil {
		return nil, err
	}

	if p.Role == models.RoleAdmin || p.Role == models.RoleOfficer {
		notes, err := s.notes.ListByComplaint(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.WorkNotes = notes
	}
	return c, nil
}

// GetPublic returns the whitelisted tracking view
func (s *ComplaintService) GetPublic(ctx context.Context, publicID string) (*models.PublicComplaint, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, fmt.Errorf("%w: tracking id is required", models.ErrInvalidArgument)
	}
	c, err := s.complaints.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return models.NewPublicComplaint(c), nil
}

// announce publishes a new_complaint event. A failure is logged only.
func (s *ComplaintService) announce(ctx context.Context, c *models.Complaint) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, broadcast.Event{Type: broadcast.EventNewComplaint, Complaint: c}); err != nil {
		s.logger.WithError(err).WithField("complaint_id", c.ID).Warn("failed to publish complaint event")
	}
}

// invalidate drops cached analytics after any write
func (s *ComplaintService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate analytics cache")
	}
}
