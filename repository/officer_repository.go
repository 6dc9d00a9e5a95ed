package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cmrp/models"

	sq "github.com/Masterminds/squirrel"
)

// OfficerRepository handles the officer registry and its pincode coverage
type OfficerRepository struct {
	db *sql.DB
}

// NewOfficerRepository creates a new officer repository
func NewOfficerRepository(db *sql.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

// FindActiveByPincode returns the id of an active officer covering pincode.
// When several officers overlap, whichever row MySQL returns first wins.
func (r *OfficerRepository) FindActiveByPincode(ctx context.Context, pincode string) (string, bool, error) {
	query := `
		SELECT o.id
		FROM officers o
		JOIN officer_pincodes p ON p.officer_id = o.id
		WHERE p.pincode = ? AND o.is_active = TRUE
		LIMIT 1
	`

	var officerID string
	err := r.db.QueryRowContext(ctx, query, pincode).Scan(&officerID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve officer for pincode %s: %w", pincode, err)
	}
	return officerID, true, nil
}

// Create inserts the officer and its pincode set in one transaction.
// A taken username surfaces as models.ErrConflict.
func (r *OfficerRepository) Create(ctx context.Context, o *models.Officer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO officers (id, username, name, password_hash, is_active, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Username, o.Name, o.PasswordHash, o.IsActive, o.CreatedBy, o.CreatedAt,
	)
	if err != nil {
		return translateError(err, "officer username", "create officer")
	}

	if err := insertPincodes(ctx, tx, o.ID, o.Pincodes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit officer: %w", err)
	}
	return nil
}

// GetByID retrieves an officer with its pincodes
func (r *OfficerRepository) GetByID(ctx context.Context, id string) (*models.Officer, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetByUsername retrieves an officer (active or not) by login name
func (r *OfficerRepository) GetByUsername(ctx context.Context, username string) (*models.Officer, error) {
	return r.getOne(ctx, sq.Eq{"username": username})
}

func (r *OfficerRepository) getOne(ctx context.Context, where sq.Sqlizer) (*models.Officer, error) {
	query, args, err := builder().
		Select("id", "username", "name", "password_hash", "is_active", "created_by", "created_at").
		From("officers").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build officer query: %w", err)
	}

	var o models.Officer
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&o.ID, &o.Username, &o.Name, &o.PasswordHash, &o.IsActive, &o.CreatedBy, &o.CreatedAt)
	if err != nil {
		return nil, translateError(err, "officer", "get officer")
	}

	pincodes, err := r.pincodesFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Pincodes = pincodes[o.ID]
	if o.Pincodes == nil {
		o.Pincodes = []string{}
	}
	return &o, nil
}

// List returns officers ordered by username; activeOnly hides deactivated accounts.
func (r *OfficerRepository) List(ctx context.Context, activeOnly bool) ([]models.Officer, error) {
	q := builder().
		Select("id", "username", "name", "password_hash", "is_active", "created_by", "created_at").
		From("officers").OrderBy("username")
	if activeOnly {
		q = q.Where(sq.Eq{"is_active": true})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build officer list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list officers: %w", err)
	}
	defer rows.Close()

	officers := make([]models.Officer, 0)
	var ids []string
	for rows.Next() {
		var o models.Officer
		if err := rows.Scan(&o.ID, &o.Username, &o.Name, &o.PasswordHash, &o.IsActive, &o.CreatedBy, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan officer: %w", err)
		}
		officers = append(officers, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating officers: %w", err)
	}

	pincodes, err := r.pincodesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range officers {
		officers[i].Pincodes = pincodes[officers[i].ID]
		if officers[i].Pincodes == nil {
			officers[i].Pincodes = []string{}
		}
	}
	return officers, nil
}

// Pincodes returns the pincode set of one officer
func (r *OfficerRepository) Pincodes(ctx context.Context, id string) ([]string, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	pincodes, err := r.pincodesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if pincodes[id] == nil {
		return []string{}, nil
	}
	return pincodes[id], nil
}

// Update writes name and active flag and replaces the pincode set.
func (r *OfficerRepository) Update(ctx context.Context, o *models.Officer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE officers SET name = ?, is_active = ? WHERE id = ?`,
		o.Name, o.IsActive, o.ID,
	); err != nil {
		return fmt.Errorf("failed to update officer: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM officer_pincodes WHERE officer_id = ?`, o.ID); err != nil {
		return fmt.Errorf("failed to clear officer pincodes: %w", err)
	}
	if err := insertPincodes(ctx, tx, o.ID, o.Pincodes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit officer update: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored bcrypt hash
func (r *OfficerRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE officers SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update officer password: %w", err)
	}
	return requireAffected(res, "officer")
}

// Delete removes an officer and (by cascade) its pincodes. Complaints keep the reference.
func (r *OfficerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM officers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete officer: %w", err)
	}
	return requireAffected(res, "officer")
}

func (r *OfficerRepository) pincodesFor(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := builder().Select("officer_id", "pincode").From("officer_pincodes").
		Where(sq.Eq{"officer_id": ids}).OrderBy("officer_id", "pincode").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build pincode query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query officer pincodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var officerID, pincode string
		if err := rows.Scan(&officerID, &pincode); err != nil {
			return nil, fmt.Errorf("failed to scan officer pincode: %w", err)
		}
		out[officerID] = append(out[officerID], pincode)
	}
	return out, rows.Err()
}

func insertPincodes(ctx context.Context, tx *sql.Tx, officerID string, pincodes []string) error {
	q := builder().Insert("officer_pincodes").Columns("officer_id", "pincode")
	n := 0
	for _, p := range pincodes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		q = q.Values(officerID, p)
		n++
	}
	if n == 0 {
		return nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build pincode insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert officer pincodes: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	}
	return nil
}
