// Package schema provides startup validation of required DB columns to prevent schema-code mismatch.
package schema

import (
	"database/sql"
	"fmt"
	"strings"
)

// RequiredColumn defines a required column for a table.
type RequiredColumn struct {
	Table  string
	Column string
}

// DefaultRequiredColumns returns the columns routing, tracking and reconciliation read.
// If any are missing, the server should not start.
var DefaultRequiredColumns = []RequiredColumn{
	{Table: tableComplaints, Column: "public_id"},
	{Table: tableComplaints, Column: "pincode"},
	{Table: tableComplaints, Column: "status"},
	{Table: tableComplaints, Column: "assigned_to"},
	{Table: tableOfficerPincodes, Column: "pincode"},
	{Table: tableOfficers, Column: "is_active"},
}

// ValidateRequiredColumns checks that all required columns exist and lists any that are missing.
func ValidateRequiredColumns(db *sql.DB, required []RequiredColumn) error {
	if len(required) == 0 {
		required = DefaultRequiredColumns
	}
	var missing []string
	for _, rc := range required {
		exists, err := columnExists(db, rc.Table, rc.Column)
		if err != nil {
			return fmt.Errorf("failed to check column %s.%s: %w", rc.Table, rc.Column, err)
		}
		if !exists {
			missing = append(missing, rc.Table+"."+rc.Column)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns (run `cmrp serve` once to migrate): %s", strings.Join(missing, ", "))
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.COLUMNS
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
