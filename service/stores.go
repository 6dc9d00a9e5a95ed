package service

import (
	"context"
	"time"

	"cmrp/models"
)

// The interfaces below are the slices of the repository layer each service consumes.
// The MySQL repositories satisfy all of them.

// OfficerDirectory answers routing lookups
type OfficerDirectory interface {
	FindActiveByPincode(ctx context.Context, pincode string) (string, bool, error)
}

// OfficerLookup fetches a single officer
type OfficerLookup interface {
	GetByID(ctx context.Context, id string) (*models.Officer, error)
}

// OfficerStore is the officer registry
type OfficerStore interface {
	OfficerDirectory
	OfficerLookup
	Create(ctx context.Context, o *models.Officer) error
	GetByUsername(ctx context.Context, username string) (*models.Officer, error)
	List(ctx context.Context, activeOnly bool) ([]models.Officer, error)
	Pincodes(ctx context.Context, id string) ([]string, error)
	Update(ctx context.Context, o *models.Officer) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// ReconcileStore is what reconciliation reads and conditionally writes
type ReconcileStore interface {
	ListReconcileCandidates(ctx context.Context, mode models.ReconcileMode) ([]models.Complaint, error)
	ConditionalAssign(ctx context.Context, id string, expected models.ComplaintStatus, assignedTo *string, status models.ComplaintStatus) (bool, error)
	AssignUnrouted(ctx context.Context, officerID string, pincodes []string) (int, error)
}

// ComplaintStore is the complaint persistence used by the lifecycle service
type ComplaintStore interface {
	Create(ctx context.Context, c *models.Complaint) error
	PublicIDExists(ctx context.Context, publicID string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	GetForAssignee(ctx context.Context, id, officerID string) (*models.Complaint, error)
	GetForOwner(ctx context.Context, id, userID string) (*models.Complaint, error)
	GetByPublicID(ctx context.Context, publicID string) (*models.Complaint, error)
	ListByUser(ctx context.Context, userID string) ([]models.Complaint, error)
	ListByAssignee(ctx context.Context, officerID string, status *models.ComplaintStatus) ([]models.Complaint, error)
	List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error)
	Update(ctx context.Context, id string, patch models.ComplaintPatch) error
	SetImageURL(ctx context.Context, id, url string) error
}

// CommentStore persists the comment log
type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]models.Comment, error)
}

// WorkNoteStore persists the work-note log
type WorkNoteStore interface {
	Create(ctx context.Context, n *models.WorkNote) error
	ListByComplaint(ctx context.Context, complaintID string) ([]models.WorkNote, error)
}

// UserStore persists accounts and promotion requests
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListByOfficerRequest(ctx context.Context, status *models.OfficerRequestStatus) ([]models.User, error)
	SubmitOfficerRequest(ctx context.Context, userID string, req models.OfficerRequest) error
	ReviewOfficerRequest(ctx context.Context, userID string, status models.OfficerRequestStatus, role *models.Role, reviewedAt time.Time) error
}

// AnalyticsStore serves the public aggregate views
type AnalyticsStore interface {
	List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error)
	ListLocations(ctx context.Context, f models.ComplaintFilter) ([]models.LocationItem, error)
	CountByStatus(ctx context.Context) (map[models.ComplaintStatus]int, error)
	CategoryStats(ctx context.Context) ([]models.CategoryStat, error)
}

// AnalyticsCacher caches the public analytics document
type AnalyticsCacher interface {
	Get(ctx context.Context) (*models.Analytics, bool, error)
	Set(ctx context.Context, a *models.Analytics) error
	Invalidate(ctx context.Context) error
}

// CacheInvalidator is told when complaint data changes
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}
