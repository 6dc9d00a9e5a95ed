// Package schema creates missing tables at startup. It never drops or overwrites existing ones.

package schema

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	tableUsers            = "users"
	tableOfficers         = "officers"
	tableOfficerPincodes  = "officer_pincodes"
	tableComplaints       = "complaints"
	tableComplaintComment = "complaint_comments"
	tableComplaintNotes   = "complaint_work_notes"
)

type tableDef struct {
	name string
	ddl  string
}

// tables in creation order (FK parents first)
var tables = []tableDef{
	{tableUsers, createUsersTable},
	{tableOfficers, createOfficersTable},
	{tableOfficerPincodes, createOfficerPincodesTable},
	{tableComplaints, createComplaintsTable},
	{tableComplaintComment, createCommentsTable},
	{tableComplaintNotes, createWorkNotesTable},
}

// InitializeDatabase ensures core tables exist. Checks INFORMATION_SCHEMA.TABLES and creates only
// missing tables, then runs EnsureComplaintColumns to upgrade complaints tables created by older
// releases. Does not drop or recreate tables; does not remove data.
func InitializeDatabase(db *sql.DB, logger logrus.FieldLogger) error {
	logger = logger.WithField("component", "schema")

	for _, t := range tables {
		exists, err := tableExists(db, t.name)
		if err != nil {
			return fmt.Errorf("failed to check if table %s exists: %w", t.name, err)
		}
		if exists {
			logger.Debugf("%s table exists", t.name)
			continue
		}
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
		logger.Infof("created %s table", t.name)
	}

	return EnsureComplaintColumns(db, logger)
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id CHAR(36) PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL COMMENT 'Login identity',
    full_name VARCHAR(255) NOT NULL DEFAULT '',
    phone VARCHAR(20) NOT NULL DEFAULT '',
    role VARCHAR(20) NOT NULL DEFAULT 'citizen' COMMENT 'citizen | officer | admin',
    password_hash VARCHAR(255) NOT NULL,
    officer_request_status VARCHAR(20) NOT NULL DEFAULT 'none' COMMENT 'none | pending | approved | rejected',
    officer_request_department VARCHAR(255) NULL,
    officer_request_designation VARCHAR(255) NULL,
    officer_request_reason TEXT NULL,
    officer_request_id_proof_url VARCHAR(1024) NULL,
    officer_request_submitted_at TIMESTAMP NULL,
    officer_request_reviewed_at TIMESTAMP NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_officer_request_status (officer_request_status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

const createOfficersTable = `
CREATE TABLE IF NOT EXISTS officers (
    id CHAR(36) PRIMARY KEY,
    username VARCHAR(100) UNIQUE NOT NULL COMMENT 'Unique regardless of is_active',
    name VARCHAR(255) NOT NULL DEFAULT '',
    password_hash VARCHAR(255) NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_by VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_is_active (is_active)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

const createOfficerPincodesTable = `
CREATE TABLE IF NOT EXISTS officer_pincodes (
    officer_id CHAR(36) NOT NULL,
    pincode VARCHAR(20) NOT NULL,
    PRIMARY KEY (officer_id, pincode),
    FOREIGN KEY (officer_id) REFERENCES officers(id) ON DELETE CASCADE,
    INDEX idx_pincode (pincode)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

// status is VARCHAR so rows written by older releases (lower-case spellings) stay readable.
// assigned_to has no FK: deleting an officer keeps the reference on its complaints.
const createComplaintsTable = `
CREATE TABLE IF NOT EXISTS complaints (
    id CHAR(36) PRIMARY KEY,
    public_id VARCHAR(32) UNIQUE NULL COMMENT 'Public tracking id CMP-YYYY-######',
    title VARCHAR(500) NOT NULL,
    description TEXT NOT NULL,
    category VARCHAR(100) NOT NULL DEFAULT '',
    priority VARCHAR(20) NOT NULL DEFAULT 'medium',
    latitude DECIMAL(10, 8) NULL,
    longitude DECIMAL(11, 8) NULL,
    address VARCHAR(500) NOT NULL DEFAULT '',
    pincode VARCHAR(20) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'NO_OFFICER',
    assigned_to CHAR(36) NULL,
    user_id CHAR(36) NOT NULL,
    user_name VARCHAR(255) NOT NULL DEFAULT '',
    user_email VARCHAR(255) NOT NULL DEFAULT '',
    image_url VARCHAR(1024) NULL,
    admin_comments TEXT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_user_id (user_id),
    INDEX idx_assigned_to (assigned_to),
    INDEX idx_status (status),
    INDEX idx_pincode (pincode),
    INDEX idx_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

const createCommentsTable = `
CREATE TABLE IF NOT EXISTS complaint_comments (
    id CHAR(36) PRIMARY KEY,
    complaint_id CHAR(36) NOT NULL,
    author_id VARCHAR(255) NOT NULL,
    author_name VARCHAR(255) NOT NULL DEFAULT '',
    author_role VARCHAR(20) NOT NULL,
    message TEXT NOT NULL,
    visibility VARCHAR(20) NOT NULL DEFAULT 'public',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (complaint_id) REFERENCES complaints(id) ON DELETE CASCADE,
    INDEX idx_complaint_created (complaint_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

const createWorkNotesTable = `
CREATE TABLE IF NOT EXISTS complaint_work_notes (
    id CHAR(36) PRIMARY KEY,
    complaint_id CHAR(36) NOT NULL,
    officer_id CHAR(36) NOT NULL,
    note TEXT NOT NULL,
    photo_url VARCHAR(1024) NULL,
    photo_sha256 CHAR(64) NULL COMMENT 'SHA-256 of the uploaded photo bytes',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (complaint_id) REFERENCES complaints(id) ON DELETE CASCADE,
    INDEX idx_complaint_created (complaint_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
