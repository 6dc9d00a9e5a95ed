package repository

import (
	"context"
	"database/sql"
	"fmt"

	"cmrp/models"
)

// WorkNoteRepository stores officer work notes
type WorkNoteRepository struct {
	db *sql.DB
}

// NewWorkNoteRepository creates a new work note repository
func NewWorkNoteRepository(db *sql.DB) *WorkNoteRepository {
	return &WorkNoteRepository{db: db}
}

// Create appends a work note
func (r *WorkNoteRepository) Create(ctx context.Context, n *models.WorkNote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO complaint_work_notes (id, complaint_id, officer_id, note, photo_url, photo_sha256, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.ComplaintID, n.OfficerID, n.Note, nullableString(n.PhotoURL), nullableString(n.PhotoSHA256), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create work note: %w", err)
	}
	return nil
}

// ListByComplaint returns work notes oldest first
func (r *WorkNoteRepository) ListByComplaint(ctx context.Context, complaintID string) ([]models.WorkNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, complaint_id, officer_id, note, photo_url, photo_sha256, created_at
		FROM complaint_work_notes
		WHERE complaint_id = ?
		ORDER BY created_at ASC`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query work notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.WorkNote, 0)
	for rows.Next() {
		var n models.WorkNote
		if err := rows.Scan(&n.ID, &n.ComplaintID, &n.OfficerID, &n.Note, &n.PhotoURL, &n.PhotoSHA256, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan work note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work notes: %w", err)
	}
	return notes, nil
}
