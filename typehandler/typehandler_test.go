package typehandler_test

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema/field"
	"github.com/syssam/veloxql/typehandler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Status int

const (
	Pending Status = iota
	Active
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Active:
		return "Active"
	}
	return "Unknown"
}

type Money struct{ Cents int64 }

func TestRegistry_Format(t *testing.T) {
	r := typehandler.New(dialect.NewMySQL().Literals())
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	name := "kevin"
	var nilName *string
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"nil pointer", nilName, "NULL"},
		{"pointer", &name, "'kevin'"},
		{"true", true, "1"},
		{"false", false, "0"},
		{"int", 42, "42"},
		{"negative", int8(-3), "-3"},
		{"uint", uint32(7), "7"},
		{"float", 1.5, "1.5"},
		{"float32", float32(0.1), "0.1"},
		{"float32 fraction", float32(2.675), "2.675"},
		{"string", "it's", "'it''s'"},
		{"backslash", `a\b`, `'a\\b'`},
		{"bytes", []byte{0x01, 0xff}, "X'01FF'"},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 6000000, time.UTC), "'2024-01-02 03:04:05.006'"},
		{"uuid", id, "'6ba7b810-9dad-11d1-80b4-00c04fd430c8'"},
		{"decimal", decimal.RequireFromString("12.50"), "12.5"},
		{"enum without hint", Active, "1"},
		{"raw json", json.RawMessage(`{"a":1}`), `'{"a":1}'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Format(tt.in, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_Format_Dialects(t *testing.T) {
	pg := typehandler.New(dialect.NewPostgres().Literals())
	got, err := pg.Format(true, nil)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", got)

	mssql := typehandler.New(dialect.NewSQLServer().Literals())
	got, err = mssql.Format("x", nil)
	require.NoError(t, err)
	assert.Equal(t, "N'x'", got)
}

func TestRegistry_Enum(t *testing.T) {
	r := typehandler.New(dialect.NewMySQL().Literals())
	numeric := field.Enum("Status").Descriptor()
	named := field.Enum("Status").AsString().Descriptor()

	got, err := r.Format(Active, numeric)
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	got, err = r.Format(Active, named)
	require.NoError(t, err)
	assert.Equal(t, "'Active'", got)

	v, err := r.ToBindable(Active, numeric)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = r.ToBindable(Active, named)
	require.NoError(t, err)
	assert.Equal(t, "Active", v)

	_, err = r.ToBindable("Active", numeric)
	assert.ErrorIs(t, err, typehandler.ErrUnsupported)
	_, err = r.ToBindable(1.5, named)
	assert.ErrorIs(t, err, typehandler.ErrUnsupported)
}

func TestRegistry_JSON(t *testing.T) {
	r := typehandler.New(dialect.NewPostgres().Literals())
	hint := field.JSON("Meta").Descriptor()
	got, err := r.Format(map[string]int{"a": 1}, hint)
	require.NoError(t, err)
	assert.Equal(t, `'{"a":1}'`, got)

	v, err := r.ToBindable([]int{1, 2}, hint)
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", v)

	v, err = r.ToBindable(`{"b":2}`, hint)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, v)
}

func TestRegistry_ToBindable(t *testing.T) {
	r := typehandler.New(dialect.NewSQLite().Literals())
	id := uuid.New()
	now := time.Now()
	d := decimal.NewFromInt(3)
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"int", 7, int64(7)},
		{"named int", Active, int64(1)},
		{"uint", uint(3), int64(3)},
		{"large uint", uint64(math.MaxUint64), "18446744073709551615"},
		{"float32", float32(0.5), float64(0.5)},
		{"float32 widened", float32(0.1), float64(0.1)},
		{"string", "s", "s"},
		{"bool", true, true},
		{"uuid", id, id.String()},
		{"time", now, now},
		{"decimal", d, d},
		{"bytes", []byte("x"), []byte("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ToBindable(tt.in, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	r := typehandler.New(dialect.NewMySQL().Literals())
	_, err := r.Format(struct{}{}, nil)
	assert.ErrorIs(t, err, typehandler.ErrUnsupported)
	_, err = r.Format(math.NaN(), nil)
	assert.ErrorIs(t, err, typehandler.ErrUnsupported)
	_, err = r.ToBindable([]int{1}, nil)
	assert.ErrorIs(t, err, typehandler.ErrUnsupported)
}

func TestRegistry_Register(t *testing.T) {
	r := typehandler.New(dialect.NewMySQL().Literals())
	r.Register(reflect.TypeOf(Money{}), typehandler.Funcs{
		FormatFunc: func(v any) (string, error) {
			return decimal.New(v.(Money).Cents, -2).String(), nil
		},
		BindFunc: func(v any) (any, error) { return v.(Money).Cents, nil },
	})
	got, err := r.Format(Money{Cents: 1999}, nil)
	require.NoError(t, err)
	assert.Equal(t, "19.99", got)

	v, err := r.ToBindable(&Money{Cents: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}
