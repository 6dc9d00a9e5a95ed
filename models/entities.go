package models

import (
	"strings"
	"time"
)

// Priority represents complaint priority levels
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NormalizePriority lowercases p and falls back to medium for unknown values.
func NormalizePriority(p string) Priority {
	switch v := Priority(strings.ToLower(strings.TrimSpace(p))); v {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return v
	}
	return PriorityMedium
}

// Complaint represents a complaint entity
type Complaint struct {
	ID            string          `db:"id" json:"id"`
	PublicID      string          `db:"public_id" json:"public_id"`
	Title         string          `db:"title" json:"title"`
	Description   string          `db:"description" json:"description"`
	Category      string          `db:"category" json:"category"`
	Priority      Priority        `db:"priority" json:"priority"`
	Latitude      *float64        `db:"latitude" json:"latitude"`
	Longitude     *float64        `db:"longitude" json:"longitude"`
	Address       string          `db:"address" json:"address"`
	Pincode       string          `db:"pincode" json:"pincode"`
	Status        ComplaintStatus `db:"status" json:"status"`
	AssignedTo    *string         `db:"assigned_to" json:"assigned_to"`
	UserID        string          `db:"user_id" json:"user_id"`
	UserName      string          `db:"user_name" json:"user_name"`
	UserEmail     string          `db:"user_email" json:"user_email"`
	ImageURL      *string         `db:"image_url" json:"image_url"`
	AdminComments *string         `db:"admin_comments" json:"admin_comments"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	WorkNotes     []WorkNote      `json:"work_notes,omitempty"`
}

// IsAssigned reports whether the complaint has a non-empty officer reference.
func (c *Complaint) IsAssigned() bool {
	return c.AssignedTo != nil && *c.AssignedTo != ""
}

// CommentVisibility controls who can read a comment
type CommentVisibility string

const (
	VisibilityPublic   CommentVisibility = "public"
	VisibilityInternal CommentVisibility = "internal"
)

// Comment is an append-only discussion entry on a complaint
type Comment struct {
	ID          string            `db:"id" json:"id"`
	ComplaintID string            `db:"complaint_id" json:"complaint_id"`
	AuthorID    string            `db:"author_id" json:"author_id"`
	AuthorName  string            `db:"author_name" json:"author_name"`
	AuthorRole  Role              `db:"author_role" json:"author_role"`
	Message     string            `db:"message" json:"message"`
	Visibility  CommentVisibility `db:"visibility" json:"visibility"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// WorkNote is an officer-authored append-only entry, optionally with a photo.
// PhotoSHA256 is computed over the uploaded bytes at receipt.
type WorkNote struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"complaint_id"`
	OfficerID   string    `db:"officer_id" json:"officer_id"`
	Note        string    `db:"note" json:"note"`
	PhotoURL    *string   `db:"photo_url" json:"photo_url"`
	PhotoSHA256 *string   `db:"photo_sha256" json:"photo_sha256,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Officer represents a field officer in the routing registry
type Officer struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Name         string    `db:"name" json:"name"`
	Pincodes     []string  `json:"pincodes"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether the officer's pincode set contains pincode.
func (o *Officer) Covers(pincode string) bool {
	for _, p := range o.Pincodes {
		if p == pincode {
			return true
		}
	}
	return false
}

// OfficerRequestStatus is the state of a citizen's request to become an officer
type OfficerRequestStatus string

const (
	OfficerRequestNone     OfficerRequestStatus = "none"
	OfficerRequestPending  OfficerRequestStatus = "pending"
	OfficerRequestApproved OfficerRequestStatus = "approved"
	OfficerRequestRejected OfficerRequestStatus = "rejected"
)

// OfficerRequest is the promotion sub-record carried on a user
type OfficerRequest struct {
	Status      OfficerRequestStatus `json:"status"`
	Department  string               `json:"department,omitempty"`
	Designation string               `json:"designation,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	IDProofURL  *string              `json:"id_proof_url,omitempty"`
	SubmittedAt *time.Time           `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time           `json:"reviewed_at,omitempty"`
}

// User represents a registered account (citizen by default)
type User struct {
	ID             string         `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	FullName       string         `db:"full_name" json:"full_name"`
	Phone          string         `db:"phone" json:"phone"`
	Role           Role           `db:"role" json:"role"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	OfficerRequest OfficerRequest `json:"officer_request"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Principal builds the authenticated view of the user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Name: u.FullName, Role: u.Role}
}

// RegisterRequest represents the request body for citizen registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// LoginRequest represents the request body for citizen login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by every login endpoint
type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        interface{} `json:"user"`
}

// CreateComplaintRequest represents the request body for creating a complaint
type CreateComplaintRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     string   `json:"address"`
	Pincode     string   `json:"pincode"`
}

// OfficerUpdateRequest is the patch an assigned officer may apply.
// Status is kept raw: values outside IN_PROGRESS/RESOLVED are ignored, not rejected.
type OfficerUpdateRequest struct {
	Status        *string `json:"status"`
	AdminComments *string `json:"admin_comments"`
}

// AdminUpdateRequest is the patch an admin may apply. An empty AssignedTo clears the assignment.
type AdminUpdateRequest struct {
	Status        *string `json:"status"`
	AssignedTo    *string `json:"assigned_to"`
	AdminComments *string `json:"admin_comments"`
}

// ComplaintPatch is the validated set of column changes written by an update
type ComplaintPatch struct {
	Status        *ComplaintStatus
	AssignedTo    *string // "" writes NULL
	AdminComments *string
}

// IsEmpty reports whether the patch changes nothing
func (p ComplaintPatch) IsEmpty() bool {
	return p.Status == nil && p.AssignedTo == nil && p.AdminComments == nil
}

// CommentRequest represents the request body for adding a comment
type CommentRequest struct {
	Message    string `json:"message"`
	Visibility string `json:"visibility"`
}

// CreateOfficerRequest represents the request body for creating an officer
type CreateOfficerRequest struct {
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Pincodes []string `json:"pincodes"`
	IsActive *bool    `json:"is_active"`
}

// UpdateOfficerRequest represents a partial officer update; nil fields are left unchanged
type UpdateOfficerRequest struct {
	Name     *string  `json:"name"`
	Pincodes []string `json:"pincodes"`
	IsActive *bool    `json:"is_active"`
}

// PasswordResetRequest represents an admin-issued officer password reset
type PasswordResetRequest struct {
	Password string `json:"password"`
}

// OfficerResponse wraps officer writes with the number of complaints they picked up
type OfficerResponse struct {
	Officer              *Officer `json:"officer"`
	ReassignedComplaints int      `json:"reassigned_complaints"`
}

// PromotionRequest represents a citizen's request for officer access
type PromotionRequest struct {
	Department  string `json:"department"`
	Designation string `json:"designation"`
	Reason      string `json:"reason"`
}

// ComplaintFilter narrows admin and public complaint listings.
// Zero values mean "no filter".
type ComplaintFilter struct {
	Status      *ComplaintStatus
	Category    string
	Zone        string
	HasLocation *bool
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

const (
	DefaultPage     = 1
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Offset returns the row offset for the filter's page.
func (f ComplaintFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// PublicComplaint is the whitelisted view served to unauthenticated callers
type PublicComplaint struct {
	PublicID    string          `json:"publicId"`
	Status      ComplaintStatus `json:"status"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	PhotoURL    *string         `json:"photoUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewPublicComplaint copies only the public fields of c.
func NewPublicComplaint(c *Complaint) *PublicComplaint {
	return &PublicComplaint{
		PublicID:    c.PublicID,
		Status:      c.Status,
		Category:    c.Category,
		Location:    c.Address,
		Description: c.Description,
		PhotoURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// DashboardItem is one row of the public dashboard
type DashboardItem struct {
	TrackingID string          `json:"tracking_id"`
	Status     ComplaintStatus `json:"status"`
	Category   string          `json:"category"`
	Priority   Priority        `json:"priority"`
	CreatedAt  time.Time       `json:"created_at"`
	Address    string          `json:"address"`
}

// LocationItem is one marker of the public map feed
type LocationItem struct {
	PublicID  string          `json:"public_id"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Status    ComplaintStatus `json:"status"`
	Category  string          `json:"category"`
}

// CategoryStat is the per-category breakdown in analytics
type CategoryStat struct {
	Name     string `json:"name"`
	Total    int    `json:"total"`
	Resolved int    `json:"resolved"`
}

// Analytics is the public aggregate view
type Analytics struct {
	Total      int                     `json:"total"`
	ByStatus   map[ComplaintStatus]int `json:"byStatus"`
	ByCategory []CategoryStat          `json:"byCategory"`
}

// DashboardStats is the admin counter view
type DashboardStats struct {
	Total      int `json:"total"`
	NoOfficer  int `json:"no_officer"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

// ReconcileMode selects which complaints reconciliation scans
type ReconcileMode string

const (
	ReconcileFull       ReconcileMode = "full"
	ReconcileUnassigned ReconcileMode = "unassigned"
)

// ParseReconcileMode defaults to full for an empty value.
func ParseReconcileMode(raw string) (ReconcileMode, error) {
	switch m := ReconcileMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ReconcileFull, nil
	case ReconcileFull, ReconcileUnassigned:
		return m, nil
	}
	return "", ErrInvalidArgument
}

// ReconcileReport summarizes a reconciliation pass
type ReconcileReport struct {
	Mode      ReconcileMode `json:"mode"`
	Scanned   int           `json:"scanned"`
	Updated   int           `json:"updated"`
	Assigned  int           `json:"assigned"`
	NoOfficer int           `json:"no_officer"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
