package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"cmrp/models"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplaintListQueryFilters(t *testing.T) {
	status := models.StatusResolved
	hasLocation := true
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)

	query, args, err := complaintListQuery(models.ComplaintFilter{
		Status:      &status,
		Category:    "Roads",
		Zone:        "Ward_5",
		HasLocation: &hasLocation,
		From:        &from,
		To:          &to,
		Page:        3,
		PageSize:    20,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM complaints")
	assert.Contains(t, query, "status IN (?,?,?)")
	assert.Contains(t, query, "category = ?")
	assert.Contains(t, query, "address LIKE ?")
	assert.Contains(t, query, "latitude IS NOT NULL")
	assert.Contains(t, query, "longitude IS NOT NULL")
	assert.Contains(t, query, "created_at >= ?")
	assert.Contains(t, query, "created_at <= ?")
	assert.Contains(t, query, "ORDER BY created_at DESC LIMIT 20 OFFSET 40")

	assert.Equal(t, []interface{}{
		"RESOLVED", "resolved", "closed",
		"Roads",
		`%Ward\_5%`,
		from, to,
	}, args)
}

func TestComplaintListQueryNoFilter(t *testing.T) {
	query, args, err := complaintListQuery(models.ComplaintFilter{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.NotContains(t, query, "LIMIT")
	assert.Empty(t, args)
}

func TestComplaintListQueryWithoutLocation(t *testing.T) {
	hasLocation := false
	query, _, err := complaintListQuery(models.ComplaintFilter{HasLocation: &hasLocation}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "(latitude IS NULL OR longitude IS NULL)")
}

func TestReconcileCandidateQueryExcludesStartedWork(t *testing.T) {
	for _, mode := range []models.ReconcileMode{models.ReconcileFull, models.ReconcileUnassigned} {
		t.Run(string(mode), func(t *testing.T) {
			query, args, err := reconcileCandidateQuery(mode).ToSql()
			require.NoError(t, err)

			assert.Contains(t, query, "status NOT IN (?,?,?,?,?)")
			assert.Contains(t, query, "assigned_to IS NULL")
			assert.Subset(t, args, []interface{}{"IN_PROGRESS", "in_progress", "RESOLVED", "resolved", "closed"})

			if mode == models.ReconcileFull {
				assert.Subset(t, args, []interface{}{"NO_OFFICER", "no_officer", "PENDING", "pending", "open"})
			} else {
				assert.NotContains(t, args, "NO_OFFICER")
			}
		})
	}
}

func TestConditionalAssignQueryMatchesNullStatusForNoOfficer(t *testing.T) {
	officer := "o1"
	query, args, err := conditionalAssignQuery("c1", models.StatusNoOfficer, &officer, models.StatusPending).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE complaints SET assigned_to = ?, status = ?, updated_at = ?")
	assert.Contains(t, query, "WHERE id = ? AND (status IN (?,?) OR status IS NULL)")
	require.Len(t, args, 6)
	assert.Equal(t, []interface{}{"c1", "NO_OFFICER", "no_officer"}, args[3:])
}

func TestConditionalAssignQueryOtherStatusesExcludeNull(t *testing.T) {
	query, args, err := conditionalAssignQuery("c1", models.StatusPending, nil, models.StatusNoOfficer).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "WHERE id = ? AND status IN (?,?,?)")
	assert.NotContains(t, query, "status IS NULL")
	assert.Equal(t, []interface{}{"c1", "PENDING", "pending", "open"}, args[3:])
}

func TestComplaintListQueryNoOfficerIncludesNullStatus(t *testing.T) {
	status := models.StatusNoOfficer
	query, _, err := complaintListQuery(models.ComplaintFilter{Status: &status}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "(status IN (?,?) OR status IS NULL)")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_sale\\x`, escapeLike(`50% off_sale\x`))
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil, "complaint", "get complaint"))
	assert.ErrorIs(t, translateError(sql.ErrNoRows, "complaint", "get complaint"), models.ErrNotFound)
	assert.ErrorIs(t,
		translateError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, "officer", "create officer"),
		models.ErrConflict,
	)

	boom := errors.New("connection reset")
	err := translateError(boom, "complaint", "get complaint")
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "failed to get complaint: connection reset")
}
