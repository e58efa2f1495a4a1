package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// SQLExecutor is satisfied by both *sqlx.DB and *sqlx.Tx, so every repository
// method can run standalone or inside a service-level transaction.
type SQLExecutor interface {
	sqlx.ExtContext
}

func getExecutor(exec SQLExecutor, fallback *sqlx.DB) SQLExecutor {
	if exec != nil {
		return exec
	}
	return fallback
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

type constraintKind int

const (
	constraintNone constraintKind = iota
	constraintUnique
	constraintForeignKey
)

// classifyConstraintError recognises unique and foreign key violations from either
// driver. detail carries the postgres constraint name or the sqlite message, both of
// which name the offending column.
func classifyConstraintError(err error) (kind constraintKind, detail string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return constraintUnique, pqErr.Constraint
		case "23503": // foreign_key_violation
			return constraintForeignKey, pqErr.Constraint
		}
		return constraintNone, ""
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return constraintUnique, liteErr.Error()
		case sqlite3.ErrConstraintForeignKey:
			return constraintForeignKey, liteErr.Error()
		}
	}
	return constraintNone, ""
}

func isUniqueViolation(err error, column string) bool {
	kind, detail := classifyConstraintError(err)
	return kind == constraintUnique && strings.Contains(detail, column)
}

func isForeignKeyViolation(err error) bool {
	kind, _ := classifyConstraintError(err)
	return kind == constraintForeignKey
}
