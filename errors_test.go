package veloxql_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/veloxql"
)

func TestUnsupportedExpressionError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &veloxql.UnsupportedExpressionError{Kind: veloxql.KindCall, Path: "Where/Call(Soundex)"}
		assert.Equal(t, "veloxql: unsupported Call expression at Where/Call(Soundex)", err.Error())

		err.Detail = "no mysql mapping"
		assert.Equal(t, "veloxql: unsupported Call expression at Where/Call(Soundex): no mysql mapping", err.Error())
	})

	t.Run("IsUnsupportedExpression", func(t *testing.T) {
		err := &veloxql.UnsupportedExpressionError{Kind: veloxql.KindLambda}
		assert.True(t, errors.Is(err, veloxql.ErrUnsupportedExpression))
		assert.True(t, veloxql.IsUnsupportedExpression(err))

		// Wrapped error
		assert.True(t, veloxql.IsUnsupportedExpression(fmt.Errorf("wrapper: %w", err)))

		// Sentinel error
		assert.True(t, veloxql.IsUnsupportedExpression(veloxql.ErrUnsupportedExpression))

		// Non-matching error
		assert.False(t, veloxql.IsUnsupportedExpression(errors.New("other error")))
		assert.False(t, veloxql.IsUnsupportedExpression(nil))
	})
}

func TestAliasResolutionError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &veloxql.AliasResolutionError{Table: "User", Field: "Nick", Path: "Where/Column(Nick)"}
		assert.Equal(t, `veloxql: cannot resolve field "Nick" of table "User" at Where/Column(Nick)`, err.Error())

		err = &veloxql.AliasResolutionError{Table: "b"}
		assert.Equal(t, `veloxql: cannot resolve table "b"`, err.Error())
	})

	t.Run("IsAliasResolution", func(t *testing.T) {
		err := &veloxql.AliasResolutionError{Table: "User"}
		assert.True(t, errors.Is(err, veloxql.ErrAliasResolution))
		assert.True(t, veloxql.IsAliasResolution(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, veloxql.IsAliasResolution(veloxql.ErrAliasResolution))
		assert.False(t, veloxql.IsAliasResolution(veloxql.ErrInvalidClauseState))
		assert.False(t, veloxql.IsAliasResolution(nil))
	})
}

func TestInvalidClauseStateError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := veloxql.NewInvalidClauseStateError("Where", "statement is already compiled")
		assert.Equal(t, "veloxql: invalid Where clause: statement is already compiled", err.Error())
	})

	t.Run("IsInvalidClauseState", func(t *testing.T) {
		err := veloxql.NewInvalidClauseStateError("Take", "negative count")
		assert.True(t, errors.Is(err, veloxql.ErrInvalidClauseState))
		assert.True(t, veloxql.IsInvalidClauseState(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, veloxql.IsInvalidClauseState(veloxql.ErrInvalidClauseState))
		assert.False(t, veloxql.IsInvalidClauseState(errors.New("other error")))
		assert.False(t, veloxql.IsInvalidClauseState(nil))
	})
}

func TestTypeConversionError(t *testing.T) {
	inner := errors.New("unsupported value")
	err := &veloxql.TypeConversionError{Value: struct{}{}, Path: "Where/Binary.Right", Err: inner}

	t.Run("Error", func(t *testing.T) {
		assert.Equal(t, "veloxql: cannot convert struct {} at Where/Binary.Right: unsupported value", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		assert.True(t, errors.Is(err, inner))
		assert.True(t, errors.Is(err, veloxql.ErrTypeConversion))
	})

	t.Run("IsTypeConversion", func(t *testing.T) {
		assert.True(t, veloxql.IsTypeConversion(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, veloxql.IsTypeConversion(veloxql.ErrTypeConversion))
		assert.False(t, veloxql.IsTypeConversion(inner))
		assert.False(t, veloxql.IsTypeConversion(nil))
	})
}
