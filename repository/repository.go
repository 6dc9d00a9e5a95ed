package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"cmrp/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// builder generates MySQL-flavoured SQL with ? placeholders.
func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// translateError maps driver errors onto the service error kinds. what names the entity in
// not-found/conflict messages; anything else is wrapped as "failed to <action>".
func translateError(err error, what, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s already exists", models.ErrConflict, what)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// nullableString turns "" into SQL NULL.
func nullableString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
