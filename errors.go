package veloxql

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the compiler. Every typed error below matches one of
// them with errors.Is.
var (
	// ErrUnsupportedExpression is returned when an expression has no SQL lowering.
	ErrUnsupportedExpression = errors.New("veloxql: unsupported expression")

	// ErrAliasResolution is returned when a column references a table that is
	// not visible in the scope it is used in.
	ErrAliasResolution = errors.New("veloxql: alias resolution failed")

	// ErrInvalidClauseState is returned when a clause is added in a state that
	// does not accept it, e.g. after the query was compiled.
	ErrInvalidClauseState = errors.New("veloxql: invalid clause state")

	// ErrTypeConversion is returned when a value cannot be formatted or bound.
	ErrTypeConversion = errors.New("veloxql: type conversion failed")
)

// UnsupportedExpressionError reports an expression node the translator
// cannot lower.
type UnsupportedExpressionError struct {
	Kind   NodeKind
	Path   string // e.g. "Where/Binary.Right/Call(Levenshtein)"
	Detail string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	msg := fmt.Sprintf("veloxql: unsupported %s expression at %s", e.Kind, e.Path)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports whether the target error matches UnsupportedExpressionError.
func (e *UnsupportedExpressionError) Is(err error) bool {
	return err == ErrUnsupportedExpression
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedExpressionError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedExpression)
}

// AliasResolutionError reports a column whose table is not visible in the
// current scope, or a field the table does not have.
type AliasResolutionError struct {
	Table string // entity name or alias
	Field string
	Path  string
}

// Error returns the error string.
func (e *AliasResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("veloxql: cannot resolve ")
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q of ", e.Field)
	}
	fmt.Fprintf(&b, "table %q", e.Table)
	if e.Path != "" {
		b.WriteString(" at " + e.Path)
	}
	return b.String()
}

// Is reports whether the target error matches AliasResolutionError.
func (e *AliasResolutionError) Is(err error) bool {
	return err == ErrAliasResolution
}

// IsAliasResolution returns true if the error is an AliasResolutionError.
func IsAliasResolution(err error) bool {
	if err == nil {
		return false
	}
	var e *AliasResolutionError
	return errors.As(err, &e) || errors.Is(err, ErrAliasResolution)
}

// InvalidClauseStateError reports a builder call that is not valid in the
// current state of the chain.
type InvalidClauseStateError struct {
	Clause string
	Reason string
}

// Error returns the error string.
func (e *InvalidClauseStateError) Error() string {
	return fmt.Sprintf("veloxql: invalid %s clause: %s", e.Clause, e.Reason)
}

// Is reports whether the target error matches InvalidClauseStateError.
func (e *InvalidClauseStateError) Is(err error) bool {
	return err == ErrInvalidClauseState
}

// NewInvalidClauseStateError returns a new InvalidClauseStateError.
func NewInvalidClauseStateError(clause, reason string) *InvalidClauseStateError {
	return &InvalidClauseStateError{Clause: clause, Reason: reason}
}

// IsInvalidClauseState returns true if the error is an InvalidClauseStateError.
func IsInvalidClauseState(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidClauseStateError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidClauseState)
}

// TypeConversionError wraps a type handler failure.
type TypeConversionError struct {
	Value any
	Path  string
	Err   error
}

// Error returns the error string.
func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("veloxql: cannot convert %T at %s: %v", e.Value, e.Path, e.Err)
}

// Unwrap implements the errors.Wrapper interface.
func (e *TypeConversionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches TypeConversionError.
func (e *TypeConversionError) Is(err error) bool {
	return err == ErrTypeConversion
}

// IsTypeConversion returns true if the error is a TypeConversionError.
func IsTypeConversion(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeConversionError
	return errors.As(err, &e) || errors.Is(err, ErrTypeConversion)
}
