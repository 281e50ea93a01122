package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ConstraintKind is the kind of a violated database constraint.
type ConstraintKind uint8

// Constraint kinds.
const (
	UniqueConstraint ConstraintKind = iota + 1
	ForeignKeyConstraint
	CheckConstraint
)

// String returns the name of the constraint kind.
func (k ConstraintKind) String() string {
	switch k {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign key"
	case CheckConstraint:
		return "check"
	default:
		return "unknown"
	}
}

// ConstraintError wraps a database error caused by a constraint violation.
type ConstraintError struct {
	Kind ConstraintKind
	Err  error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return "dialect/sql: " + e.Kind.String() + " constraint violated: " + e.Err.Error()
}

// Unwrap returns the driver error.
func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) || classify(err) != 0
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool { return kindOf(err) == UniqueConstraint }

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool { return kindOf(err) == ForeignKeyConstraint }

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool { return kindOf(err) == CheckConstraint }

func kindOf(err error) ConstraintKind {
	var e *ConstraintError
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQLite extended result codes for constraint violations.
const (
	sqliteCheck      = 275
	sqliteForeignKey = 787
	sqlitePrimaryKey = 1555
	sqliteUnique     = 2067
)

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

// classify returns the kind of constraint a driver error reports, or 0.
func classify(err error) ConstraintKind {
	if err == nil {
		return 0
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch string(pe.Code) {
		case pgUniqueViolation:
			return UniqueConstraint
		case pgForeignKeyViolation:
			return ForeignKeyConstraint
		case pgCheckViolation:
			return CheckConstraint
		}
		return 0
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return UniqueConstraint
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ForeignKeyConstraint
		case mysqlCheckConstraintViolate:
			return CheckConstraint
		}
		return 0
	}
	var se sqliteCoder
	if errors.As(err, &se) {
		switch se.Code() {
		case sqliteUnique, sqlitePrimaryKey:
			return UniqueConstraint
		case sqliteForeignKey:
			return ForeignKeyConstraint
		case sqliteCheck:
			return CheckConstraint
		}
	}
	// Fallback to string matching for drivers without typed errors.
	msg := err.Error()
	switch {
	case containsAny(msg, "violates unique constraint", "UNIQUE constraint failed", "Cannot insert duplicate key", "Violation of UNIQUE KEY constraint"):
		return UniqueConstraint
	case containsAny(msg, "violates foreign key constraint", "FOREIGN KEY constraint failed", "conflicted with the FOREIGN KEY constraint"):
		return ForeignKeyConstraint
	case containsAny(msg, "violates check constraint", "CHECK constraint failed", "conflicted with the CHECK constraint"):
		return CheckConstraint
	}
	return 0
}

// wrapError turns a constraint violation into a ConstraintError.
func wrapError(err error) error {
	if k := classify(err); k != 0 {
		return &ConstraintError{Kind: k, Err: err}
	}
	return err
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
