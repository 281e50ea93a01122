package veloxql

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema/field"
	"github.com/syssam/veloxql/typehandler"
)

// Parameter is a bound statement parameter.
type Parameter struct {
	Name           string
	Value          any
	IsBatchIndexed bool
	SourceField    string
}

// binder decides between inline literals and bound parameters and records
// parameters in the order they are bound.
type binder struct {
	dialect  dialect.Provider
	handlers *typehandler.Registry
	params   []Parameter
	index    map[string]int
	anon     int
}

func newBinder(d dialect.Provider, h *typehandler.Registry) *binder {
	return &binder{dialect: d, handlers: h, index: make(map[string]int)}
}

// inline formats a constant as a literal. No parameter is created.
func (b *binder) inline(v any, hint *field.Descriptor, path string) (string, error) {
	s, err := b.handlers.Format(v, hint)
	if err != nil {
		return "", &TypeConversionError{Value: v, Path: path, Err: err}
	}
	return s, nil
}

// bind binds a captured value under the next anonymous name: p0, p1, ...
func (b *binder) bind(v any, hint *field.Descriptor, path string) (string, error) {
	name := "p" + strconv.Itoa(b.anon)
	for b.index[name] != 0 {
		b.anon++
		name = "p" + strconv.Itoa(b.anon)
	}
	b.anon++
	return b.add(Parameter{Name: name, Value: v}, hint, path)
}

// bindNamed binds a value under an explicit name. A name that is already
// bound is reused when it holds the same value; binding another value
// under it is an error.
func (b *binder) bindNamed(name string, v any, hint *field.Descriptor, batch bool, path string) (string, error) {
	if i, ok := b.index[name]; ok {
		bv, err := b.handlers.ToBindable(v, hint)
		if err != nil {
			return "", &TypeConversionError{Value: v, Path: path, Err: err}
		}
		if !reflect.DeepEqual(b.params[i-1].Value, bv) {
			clause, _, _ := strings.Cut(path, "/")
			return "", NewInvalidClauseStateError(clause, "parameter @"+name+" is already bound to another value")
		}
		return b.dialect.Placeholder(name), nil
	}
	p := Parameter{Name: name, Value: v, IsBatchIndexed: batch}
	if hint != nil {
		p.SourceField = hint.Name
	}
	return b.add(p, hint, path)
}

func (b *binder) add(p Parameter, hint *field.Descriptor, path string) (string, error) {
	bv, err := b.handlers.ToBindable(p.Value, hint)
	if err != nil {
		return "", &TypeConversionError{Value: p.Value, Path: path, Err: err}
	}
	p.Value = bv
	if p.SourceField == "" && hint != nil {
		p.SourceField = hint.Name
	}
	b.params = append(b.params, p)
	b.index[p.Name] = len(b.params)
	return b.dialect.Placeholder(p.Name), nil
}

// isNil reports if v is nil or a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// elements returns the elements of a slice or array value, excluding
// byte slices which are scalar values.
func elements(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}
