package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"cmrp/models"

	sq "github.com/Masterminds/squirrel"
)

const complaintTable = "complaints"

var complaintColumns = []string{
	"id", "public_id", "title", "description", "category", "priority",
	"latitude", "longitude", "address", "pincode", "status", "assigned_to",
	"user_id", "user_name", "user_email", "image_url", "admin_comments",
	"created_at", "updated_at",
}

// ComplaintRepository handles database operations for complaints
type ComplaintRepository struct {
	db *sql.DB
}

// NewComplaintRepository creates a new complaint repository
func NewComplaintRepository(db *sql.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a complaint. A duplicate public_id surfaces as models.ErrConflict.
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	query, args, err := builder().Insert(complaintTable).
		Columns(complaintColumns...).
		Values(
			c.ID, c.PublicID, c.Title, c.Description, c.Category, string(c.Priority),
			c.Latitude, c.Longitude, c.Address, c.Pincode, c.Status, nullableString(c.AssignedTo),
			c.UserID, c.UserName, c.UserEmail, nullableString(c.ImageURL), nullableString(c.AdminComments),
			c.CreatedAt, c.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build complaint insert: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return translateError(err, "complaint", "create complaint")
}

// PublicIDExists reports whether a complaint already uses publicID
func (r *ComplaintRepository) PublicIDExists(ctx context.Context, publicID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints WHERE public_id = ?`, publicID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check public id: %w", err)
	}
	return count > 0, nil
}

// GetByID retrieves a complaint by id
func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetForAssignee retrieves a complaint only if it is assigned to officerID
func (r *ComplaintRepository) GetForAssignee(ctx context.Context, id, officerID string) (*models.Complaint, error) {
	return r.getOne(ctx, sq.Eq{"id": id, "assigned_to": officerID})
}

// GetForOwner retrieves a complaint only if userID filed it
func (r *ComplaintRepository) GetForOwner(ctx context.Context, id, userID string) (*models.Complaint, error) {
	return r.getOne(ctx, sq.Eq{"id": id, "user_id": userID})
}

// GetByPublicID retrieves a complaint by its public tracking id
func (r *ComplaintRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Complaint, error) {
	return r.getOne(ctx, sq.Eq{"public_id": publicID})
}

func (r *ComplaintRepository) getOne(ctx context.Context, where sq.Sqlizer) (*models.Complaint, error) {
	query, args, err := builder().Select(complaintColumns...).From(complaintTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build complaint query: %w", err)
	}

	c, err := scanComplaint(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError(err, "complaint", "get complaint")
	}
	return c, nil
}

// ListByUser returns the complaints filed by userID, newest first
func (r *ComplaintRepository) ListByUser(ctx context.Context, userID string) ([]models.Complaint, error) {
	return r.list(ctx, builder().Select(complaintColumns...).From(complaintTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC"))
}

// ListByAssignee returns the complaints assigned to officerID, optionally narrowed by status
func (r *ComplaintRepository) ListByAssignee(ctx context.Context, officerID string, status *models.ComplaintStatus) ([]models.Complaint, error) {
	q := builder().Select(complaintColumns...).From(complaintTable).Where(sq.Eq{"assigned_to": officerID})
	if status != nil {
		q = q.Where(sq.Eq{"status": status.StoredSpellings()})
	}
	return r.list(ctx, q.OrderBy("created_at DESC"))
}

// List returns complaints matching the filter, newest first, paginated when PageSize is set
func (r *ComplaintRepository) List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	return r.list(ctx, complaintListQuery(f))
}

// ListReconcileCandidates returns complaints whose assignment may need re-deriving.
func (r *ComplaintRepository) ListReconcileCandidates(ctx context.Context, mode models.ReconcileMode) ([]models.Complaint, error) {
	return r.list(ctx, reconcileCandidateQuery(mode))
}

func (r *ComplaintRepository) list(ctx context.Context, q sq.SelectBuilder) ([]models.Complaint, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build complaint list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer rows.Close()

	complaints := make([]models.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate complaints: %w", err)
	}
	return complaints, nil
}

// ListLocations returns map markers for complaints that carry coordinates
func (r *ComplaintRepository) ListLocations(ctx context.Context, f models.ComplaintFilter) ([]models.LocationItem, error) {
	hasLocation := true
	f.HasLocation = &hasLocation
	f.PageSize = 0

	q := applyComplaintFilter(
		builder().Select("public_id", "latitude", "longitude", "status", "category").From(complaintTable),
		f,
	).OrderBy("created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build locations query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	items := make([]models.LocationItem, 0)
	for rows.Next() {
		var item models.LocationItem
		var publicID sql.NullString
		if err := rows.Scan(&publicID, &item.Latitude, &item.Longitude, &item.Status, &item.Category); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		item.PublicID = publicID.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update writes the patch columns and bumps updated_at. The caller has already
// verified the complaint exists.
func (r *ComplaintRepository) Update(ctx context.Context, id string, patch models.ComplaintPatch) error {
	q := builder().Update(complaintTable).Set("updated_at", time.Now().UTC()).Where(sq.Eq{"id": id})
	if patch.Status != nil {
		q = q.Set("status", *patch.Status)
	}
	if patch.AssignedTo != nil {
		q = q.Set("assigned_to", nullableString(patch.AssignedTo))
	}
	if patch.AdminComments != nil {
		q = q.Set("admin_comments", *patch.AdminComments)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build complaint update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update complaint: %w", err)
	}
	return nil
}

// SetImageURL records the uploaded photo for a complaint
func (r *ComplaintRepository) SetImageURL(ctx context.Context, id, url string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET image_url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set complaint image: %w", err)
	}
	return nil
}

// ConditionalAssign sets assignment and status only while the row still holds expected.
// It returns false when the guard was lost to a concurrent write.
func (r *ComplaintRepository) ConditionalAssign(ctx context.Context, id string, expected models.ComplaintStatus, assignedTo *string, status models.ComplaintStatus) (bool, error) {
	query, args, err := conditionalAssignQuery(id, expected, assignedTo, status).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build conditional assign: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to assign complaint %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// AssignUnrouted moves every NO_OFFICER (or unassigned PENDING) complaint in pincodes
// to officerID as PENDING and returns how many changed.
func (r *ComplaintRepository) AssignUnrouted(ctx context.Context, officerID string, pincodes []string) (int, error) {
	if len(pincodes) == 0 {
		return 0, nil
	}

	query, args, err := builder().Update(complaintTable).
		Set("assigned_to", officerID).
		Set("status", models.StatusPending).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"pincode": pincodes}).
		Where(sq.Or{
			statusIs(models.StatusNoOfficer),
			sq.And{unassigned(), statusIs(models.StatusPending)},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build officer backfill: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill complaints for officer %s: %w", officerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

// CountByStatus returns complaint counts keyed by canonical status
func (r *ComplaintRepository) CountByStatus(ctx context.Context) (map[models.ComplaintStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM complaints GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ComplaintStatus]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		if s, err := models.ParseStatus(raw); err == nil {
			counts[s] += n
		}
	}
	return counts, rows.Err()
}

// CategoryStats returns per-category totals and resolved counts, largest first
func (r *ComplaintRepository) CategoryStats(ctx context.Context) ([]models.CategoryStat, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, status, COUNT(*) FROM complaints GROUP BY category, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints by category: %w", err)
	}
	defer rows.Close()

	byName := map[string]*models.CategoryStat{}
	for rows.Next() {
		var category, raw string
		var n int
		if err := rows.Scan(&category, &raw, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stat, ok := byName[category]
		if !ok {
			stat = &models.CategoryStat{Name: category}
			byName[category] = stat
		}
		stat.Total += n
		if s, err := models.ParseStatus(raw); err == nil && s == models.StatusResolved {
			stat.Resolved += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := make([]models.CategoryStat, 0, len(byName))
	for _, s := range byName {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Total != stats[j].Total {
			return stats[i].Total > stats[j].Total
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

func complaintListQuery(f models.ComplaintFilter) sq.SelectBuilder {
	q := applyComplaintFilter(builder().Select(complaintColumns...).From(complaintTable), f).
		OrderBy("created_at DESC")
	if f.PageSize > 0 {
		q = q.Limit(uint64(f.PageSize)).Offset(uint64(f.Offset()))
	}
	return q
}

func applyComplaintFilter(q sq.SelectBuilder, f models.ComplaintFilter) sq.SelectBuilder {
	if f.Status != nil {
		q = q.Where(statusIs(*f.Status))
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Zone != "" {
		q = q.Where(sq.Like{"address": "%" + escapeLike(f.Zone) + "%"})
	}
	if f.HasLocation != nil {
		if *f.HasLocation {
			q = q.Where(sq.NotEq{"latitude": nil}).Where(sq.NotEq{"longitude": nil})
		} else {
			q = q.Where(sq.Or{sq.Eq{"latitude": nil}, sq.Eq{"longitude": nil}})
		}
	}
	if f.From != nil {
		q = q.Where(sq.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(sq.LtOrEq{"created_at": *f.To})
	}
	return q
}

// reconcileCandidateQuery never selects IN_PROGRESS or RESOLVED rows.
func reconcileCandidateQuery(mode models.ReconcileMode) sq.SelectBuilder {
	notStarted := sq.Or{
		sq.NotEq{"status": models.SpellingsOf(models.StatusInProgress, models.StatusResolved)},
		sq.Eq{"status": nil},
	}

	q := builder().Select(complaintColumns...).From(complaintTable)
	if mode == models.ReconcileUnassigned {
		q = q.Where(sq.And{unassigned(), notStarted})
	} else {
		q = q.Where(sq.Or{
			sq.Eq{"status": models.SpellingsOf(models.StatusNoOfficer, models.StatusPending)},
			sq.And{unassigned(), notStarted},
		})
	}
	return q.OrderBy("created_at ASC")
}

func conditionalAssignQuery(id string, expected models.ComplaintStatus, assignedTo *string, status models.ComplaintStatus) sq.UpdateBuilder {
	return builder().Update(complaintTable).
		Set("assigned_to", nullableString(assignedTo)).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Where(statusIs(expected))
}

// statusIs matches every stored spelling of s. Legacy rows with a NULL status read back
// as NO_OFFICER, so they match it too.
func statusIs(s models.ComplaintStatus) sq.Sqlizer {
	if s == models.StatusNoOfficer {
		return sq.Or{sq.Eq{"status": s.StoredSpellings()}, sq.Eq{"status": nil}}
	}
	return sq.Eq{"status": s.StoredSpellings()}
}

func unassigned() sq.Sqlizer {
	return sq.Or{sq.Eq{"assigned_to": nil}, sq.Eq{"assigned_to": ""}}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var c models.Complaint
	var publicID sql.NullString
	var priority string
	err := row.Scan(
		&c.ID, &publicID, &c.Title, &c.Description, &c.Category, &priority,
		&c.Latitude, &c.Longitude, &c.Address, &c.Pincode, &c.Status, &c.AssignedTo,
		&c.UserID, &c.UserName, &c.UserEmail, &c.ImageURL, &c.AdminComments,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.PublicID = publicID.String
	c.Priority = models.NormalizePriority(priority)
	return &c, nil
}
