package pg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const uniqueViolation = "23505"

// sqliteUnique matches the text SQLite reports for unique violations, e.g.
// "UNIQUE constraint failed: products.sku (2067)".
var sqliteUnique = regexp.MustCompile(`UNIQUE constraint failed: ([\w.]+(?:, [\w.]+)*)`)

// IsConflict reports whether err is a unique constraint violation, on either
// PostgreSQL or SQLite.
func IsConflict(err error) bool {
	conflict, _ := inspectUnique(err)
	return conflict
}

// ConstraintName returns the violated constraint. SQLite does not name its
// constraints, so there the offending "table.column" list is returned instead.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	_, name := inspectUnique(err)
	return name
}

func inspectUnique(err error) (bool, string) {
	if err == nil {
		return false, ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation, pgErr.ConstraintName
	}
	if m := sqliteUnique.FindStringSubmatch(err.Error()); m != nil {
		return true, m[1]
	}
	return false, ""
}

// GetPgErrorDetails builds errx details for a failed query: the rendered query
// and either the non-empty fields of a PostgreSQL error or the driver message.
func GetPgErrorDetails(err error, query fmt.Stringer) errx.D {
	details := errx.D{}
	if q := render(query); q != "" {
		details["query"] = strings.ReplaceAll(q, `"`, ``)
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		fields := lo.OmitByValues(map[string]any{
			"pg.code":       pgErr.Code,
			"pg.severity":   pgErr.Severity,
			"pg.message":    pgErr.Message,
			"pg.detail":     pgErr.Detail,
			"pg.hint":       pgErr.Hint,
			"pg.schema":     pgErr.SchemaName,
			"pg.table":      pgErr.TableName,
			"pg.column":     pgErr.ColumnName,
			"pg.data_type":  pgErr.DataTypeName,
			"pg.constraint": pgErr.ConstraintName,
		}, []any{""})
		for k, v := range fields {
			details[k] = v
		}
	case err != nil:
		details["db.error"] = err.Error()
	}

	return details
}

// render returns "" for nil queries and for bun queries that panic while
// rendering an invalid model.
func render(query fmt.Stringer) (s string) {
	if query == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	return query.String()
}
