package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cmrp/models"

	sq "github.com/Masterminds/squirrel"
)

var userColumns = []string{
	"id", "email", "full_name", "phone", "role", "password_hash",
	"officer_request_status", "officer_request_department", "officer_request_designation",
	"officer_request_reason", "officer_request_id_proof_url",
	"officer_request_submitted_at", "officer_request_reviewed_at",
	"created_at", "updated_at",
}

// UserRepository handles database operations for users
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user; a taken email surfaces as models.ErrConflict
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, phone, role, password_hash, officer_request_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.Phone, string(u.Role), u.PasswordHash,
		string(models.OfficerRequestNone), u.CreatedAt, u.UpdatedAt,
	)
	return translateError(err, "email", "create user")
}

// GetByEmail retrieves user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, sq.Eq{"email": email})
}

// GetByID retrieves user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *UserRepository) getOne(ctx context.Context, where sq.Sqlizer) (*models.User, error) {
	query, args, err := builder().Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError(err, "user", "get user")
	}
	return u, nil
}

// ListByOfficerRequest returns users whose promotion request is in status, oldest request first.
// A nil status lists every user that ever submitted a request.
func (r *UserRepository) ListByOfficerRequest(ctx context.Context, status *models.OfficerRequestStatus) ([]models.User, error) {
	q := builder().Select(userColumns...).From("users").OrderBy("officer_request_submitted_at ASC")
	if status != nil {
		q = q.Where(sq.Eq{"officer_request_status": string(*status)})
	} else {
		q = q.Where(sq.NotEq{"officer_request_status": string(models.OfficerRequestNone)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build officer request query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list officer requests: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SubmitOfficerRequest stores a pending promotion request on the user
func (r *UserRepository) SubmitOfficerRequest(ctx context.Context, userID string, req models.OfficerRequest) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			officer_request_status = ?, officer_request_department = ?, officer_request_designation = ?,
			officer_request_reason = ?, officer_request_id_proof_url = ?,
			officer_request_submitted_at = ?, officer_request_reviewed_at = NULL, updated_at = ?
		WHERE id = ?`,
		string(req.Status), req.Department, req.Designation, req.Reason, nullableString(req.IDProofURL),
		req.SubmittedAt, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to submit officer request: %w", err)
	}
	return requireAffected(res, "user")
}

// ReviewOfficerRequest records an approval or rejection; role is written only when non-nil.
func (r *UserRepository) ReviewOfficerRequest(ctx context.Context, userID string, status models.OfficerRequestStatus, role *models.Role, reviewedAt time.Time) error {
	q := builder().Update("users").
		Set("officer_request_status", string(status)).
		Set("officer_request_reviewed_at", reviewedAt).
		Set("updated_at", reviewedAt).
		Where(sq.Eq{"id": userID})
	if role != nil {
		q = q.Set("role", string(*role))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build officer review: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to review officer request: %w", err)
	}
	return requireAffected(res, "user")
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var status string
	var department, designation, reason, idProof sql.NullString
	var submittedAt, reviewedAt sql.NullTime
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.Phone, &u.Role, &u.PasswordHash,
		&status, &department, &designation, &reason, &idProof,
		&submittedAt, &reviewedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.OfficerRequest = models.OfficerRequest{
		Status:      models.OfficerRequestStatus(status),
		Department:  department.String,
		Designation: designation.String,
		Reason:      reason.String,
	}
	if idProof.Valid {
		u.OfficerRequest.IDProofURL = &idProof.String
	}
	if submittedAt.Valid {
		u.OfficerRequest.SubmittedAt = &submittedAt.Time
	}
	if reviewedAt.Valid {
		u.OfficerRequest.ReviewedAt = &reviewedAt.Time
	}
	return &u, nil
}
