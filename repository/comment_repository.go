package repository

import (
	"context"
	"database/sql"
	"fmt"

	"cmrp/models"
)

// CommentRepository stores the append-only comment log of complaints
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends a comment
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO complaint_comments (id, complaint_id, author_id, author_name, author_role, message, visibility, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ComplaintID, c.AuthorID, c.AuthorName, string(c.AuthorRole), c.Message, string(c.Visibility), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListByComplaint returns comments oldest first; internal ones only when includeInternal is set
func (r *CommentRepository) ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]models.Comment, error) {
	query := `
		SELECT id, complaint_id, author_id, author_name, author_role, message, visibility, created_at
		FROM complaint_comments
		WHERE complaint_id = ?`
	args := []interface{}{complaintID}
	if !includeInternal {
		query += ` AND visibility = ?`
		args = append(args, string(models.VisibilityPublic))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		var role, visibility string
		if err := rows.Scan(&c.ID, &c.ComplaintID, &c.AuthorID, &c.AuthorName, &role, &c.Message, &visibility, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.AuthorRole = models.Role(role)
		c.Visibility = models.CommentVisibility(visibility)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}
