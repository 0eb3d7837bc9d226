// package repositories provides the upsert-oriented persistence layer for containers and items.
//
// Every write is a single statement keyed on the natural identifier, so repeating it is a no-op
// apart from refreshing mutable fields.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// pqUniqueViolation is the SQLSTATE postgres reports for unique index violations.
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY constraint on any supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	// modernc.org/sqlite only exposes the message text
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

// storageError maps a driver error onto [shared.ErrIdentityConflict] or [shared.ErrStorage].
func storageError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s: %v", shared.ErrIdentityConflict, op, err)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrStorage, op, err)
}

// getError maps [sql.ErrNoRows] onto [shared.ErrNotFound].
func getError(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, id)
	}
	return storageError("get "+kind, err)
}

// sectionOrDefault fills in [models.DefaultSection] for blank sections.
func sectionOrDefault(section string) string {
	if s := strings.TrimSpace(section); s != "" {
		return s
	}
	return models.DefaultSection
}

// sectionCriteria appends a section filter taken from criteria["section"] to query.
// "all" and blank values leave the query unfiltered.
func sectionCriteria(query string, args []any, criteria map[string]any) (string, []any) {
	if section, ok := criteria["section"].(string); ok && section != "" && !strings.EqualFold(section, models.SectionAll) {
		query += " AND section = ?"
		args = append(args, section)
	}
	return query, args
}
