// Package schema: upgrade complaints tables created before routing and tracking columns existed.

package schema

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// legacyComplaintColumns are added to an existing complaints table when missing.
var legacyComplaintColumns = []struct {
	column     string
	definition string
}{
	{"public_id", "VARCHAR(32) UNIQUE NULL COMMENT 'Public tracking id CMP-YYYY-######'"},
	{"address", "VARCHAR(500) NOT NULL DEFAULT ''"},
	{"pincode", "VARCHAR(20) NOT NULL DEFAULT ''"},
	{"assigned_to", "CHAR(36) NULL"},
	{"image_url", "VARCHAR(1024) NULL"},
	{"admin_comments", "TEXT NULL"},
	{"updated_at", "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"},
}

// EnsureComplaintColumns adds only missing columns to complaints. Existing rows keep their data;
// legacy status spellings are left in place and decoded on read.
func EnsureComplaintColumns(db *sql.DB, logger logrus.FieldLogger) error {
	for _, c := range legacyComplaintColumns {
		added, err := ensureColumn(db, tableComplaints, c.column, c.definition)
		if err != nil {
			return err
		}
		if added {
			logger.WithField("column", c.column).Info("added missing complaints column")
		}
	}
	logger.Debug("schema check passed")
	return nil
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		table,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func ensureColumn(db *sql.DB, table, column, definition string) (bool, error) {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	if exists {
		return false, nil
	}
	// MySQL does not support ADD COLUMN IF NOT EXISTS; we checked above so safe to add
	query := "ALTER TABLE " + table + " ADD COLUMN " + column + " " + definition
	if _, err := db.Exec(query); err != nil {
		return false, fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return true, nil
}
