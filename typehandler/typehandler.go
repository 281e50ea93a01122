// Package typehandler converts host values into SQL literals and bindable
// parameter values.
//
// A Registry is built once per connection profile from the literal style of
// its dialect, optionally extended with Register, and is read-only
// afterwards:
//
//	reg := typehandler.New(dialect.NewMySQL().Literals())
//	reg.Format("it's", nil)       // 'it''s'
//	reg.ToBindable(Active, desc)  // 1, or "Active" for string-backed enums
package typehandler

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema/field"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnsupported is returned for values no handler can represent.
var ErrUnsupported = errors.New("typehandler: unsupported value")

// Handler converts values of one host type.
type Handler interface {
	// Format returns the value as an inline SQL literal.
	Format(v any) (string, error)
	// ToBindable returns the value handed to the database driver.
	ToBindable(v any) (any, error)
}

// Funcs adapts a pair of functions to the Handler interface.
type Funcs struct {
	FormatFunc func(any) (string, error)
	BindFunc   func(any) (any, error)
}

// Format calls f.FormatFunc(v).
func (f Funcs) Format(v any) (string, error) { return f.FormatFunc(v) }

// ToBindable calls f.BindFunc(v), or returns v if BindFunc is nil.
func (f Funcs) ToBindable(v any) (any, error) {
	if f.BindFunc == nil {
		return v, nil
	}
	return f.BindFunc(v)
}

// Registry resolves handlers by the dynamic type of a value.
type Registry struct {
	style    dialect.LiteralStyle
	handlers map[reflect.Type]Handler
}

// New returns a registry holding the built-in handlers for the given
// literal style.
func New(style dialect.LiteralStyle) *Registry {
	r := &Registry{style: style, handlers: make(map[reflect.Type]Handler)}
	r.Register(reflect.TypeOf(time.Time{}), Funcs{
		FormatFunc: func(v any) (string, error) { return style.FormatTime(v.(time.Time)), nil },
	})
	r.Register(reflect.TypeOf(uuid.UUID{}), Funcs{
		FormatFunc: func(v any) (string, error) { return style.QuoteString(v.(uuid.UUID).String()), nil },
		BindFunc:   func(v any) (any, error) { return v.(uuid.UUID).String(), nil },
	})
	r.Register(reflect.TypeOf(decimal.Decimal{}), Funcs{
		FormatFunc: func(v any) (string, error) { return v.(decimal.Decimal).String(), nil },
	})
	r.Register(reflect.TypeOf([]byte(nil)), Funcs{
		FormatFunc: func(v any) (string, error) { return style.FormatBytes(v.([]byte)), nil },
	})
	r.Register(reflect.TypeOf(json.RawMessage(nil)), Funcs{
		FormatFunc: func(v any) (string, error) { return style.QuoteString(string(v.(json.RawMessage))), nil },
		BindFunc:   func(v any) (any, error) { return string(v.(json.RawMessage)), nil },
	})
	return r
}

// Register sets the handler of a host type, replacing any previous one.
// It must not be called once the registry is in use.
func (r *Registry) Register(t reflect.Type, h Handler) *Registry {
	r.handlers[t] = h
	return r
}

// Style returns the literal style of the registry.
func (r *Registry) Style() dialect.LiteralStyle {
	return r.style
}

// Format returns v as an inline SQL literal. The optional hint is the
// field the value is compared with or assigned to; it selects the enum
// codec and JSON encoding.
func (r *Registry) Format(v any, hint *field.Descriptor) (string, error) {
	v, ok := deref(v)
	if !ok {
		return "NULL", nil
	}
	if hint != nil {
		switch hint.Type {
		case field.TypeEnum:
			ev, err := encodeEnum(v, hint)
			if err != nil {
				return "", err
			}
			if s, ok := ev.(string); ok {
				return r.style.QuoteString(s), nil
			}
			return fmt.Sprint(ev), nil
		case field.TypeJSON:
			if _, ok := v.(string); !ok {
				s, err := encodeJSON(v)
				if err != nil {
					return "", err
				}
				return r.style.QuoteString(s), nil
			}
		}
	}
	if h, ok := r.handlers[reflect.TypeOf(v)]; ok {
		return h.Format(v)
	}
	if vr, ok := v.(driver.Valuer); ok {
		dv, err := vr.Value()
		if err != nil {
			return "", fmt.Errorf("%w: %T: %w", ErrUnsupported, v, err)
		}
		return r.Format(dv, nil)
	}
	return r.formatKind(v)
}

func (r *Registry) formatKind(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return r.style.True, nil
		}
		return r.style.False, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %v cannot be written as a literal", ErrUnsupported, f)
		}
		return strconv.FormatFloat(f, 'f', -1, rv.Type().Bits()), nil
	case reflect.String:
		return r.style.QuoteString(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return r.style.FormatBytes(rv.Bytes()), nil
		}
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// ToBindable returns the driver value of v. The hint has the same meaning
// as in Format.
func (r *Registry) ToBindable(v any, hint *field.Descriptor) (any, error) {
	v, ok := deref(v)
	if !ok {
		return nil, nil
	}
	if hint != nil {
		switch hint.Type {
		case field.TypeEnum:
			return encodeEnum(v, hint)
		case field.TypeJSON:
			if _, ok := v.(string); !ok {
				return encodeJSON(v)
			}
		}
	}
	if h, ok := r.handlers[reflect.TypeOf(v)]; ok {
		return h.ToBindable(v)
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return strconv.FormatUint(u, 10), nil
		}
		return int64(u), nil
	case reflect.Float32:
		// Widen through the shortest decimal form so 0.1 stays 0.1.
		return strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
	case reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// deref follows pointers. It reports false for nil values.
func deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

// encodeEnum applies the codec of an enum field: the member name for
// string-backed enums, the underlying number otherwise.
func encodeEnum(v any, hint *field.Descriptor) (any, error) {
	rv := reflect.ValueOf(v)
	if hint.EnumAsString {
		if s, ok := v.(fmt.Stringer); ok {
			return s.String(), nil
		}
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
		return nil, fmt.Errorf("%w: %T is not a named enum value for %q", ErrUnsupported, v, hint.Name)
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("%w: %T is not a numeric enum value for %q", ErrUnsupported, v, hint.Name)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %T: %w", ErrUnsupported, v, err)
	}
	return string(b), nil
}
