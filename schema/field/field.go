package field

import (
	"fmt"
	"strings"
)

// Type is the storage type of a field.
type Type uint8

// Field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeInt64
	TypeFloat64
	TypeDecimal
	TypeString
	TypeTime
	TypeUUID
	TypeBytes
	TypeEnum
	TypeJSON
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeDecimal: "decimal",
	TypeString:  "string",
	TypeTime:    "time",
	TypeUUID:    "uuid",
	TypeBytes:   "bytes",
	TypeEnum:    "enum",
	TypeJSON:    "json",
}

// String returns the string representation of a type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	switch t {
	case TypeInt, TypeInt64, TypeFloat64, TypeDecimal:
		return true
	}
	return false
}

// Valid reports if the given type is known.
func (t Type) Valid() bool {
	return t > TypeInvalid && int(t) < len(typeNames)
}

// ParseType returns the type for its name, as written in schema files.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "integer":
		return TypeInt, nil
	case "float", "double":
		return TypeFloat64, nil
	case "text":
		return TypeString, nil
	case "datetime", "timestamp":
		return TypeTime, nil
	}
	for t, n := range typeNames {
		if n == name && Type(t) != TypeInvalid {
			return Type(t), nil
		}
	}
	return TypeInvalid, fmt.Errorf("field: unknown type %q", s)
}

// A Descriptor for field configuration.
type Descriptor struct {
	Name          string // logical name, used by expressions.
	Column        string // column name, defaults to Name.
	Type          Type
	Key           bool
	Nullable      bool
	AutoIncrement bool
	EnumAsString  bool // enum values are stored by member name instead of number.
	Comment       string
}

// ColumnName returns the column the field is stored in.
func (d *Descriptor) ColumnName() string {
	if d.Column != "" {
		return d.Column
	}
	return d.Name
}

// Err returns a validation error of the descriptor, if any.
func (d *Descriptor) Err() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("field: missing name")
	case !d.Type.Valid():
		return fmt.Errorf("field: %q has invalid type", d.Name)
	case d.EnumAsString && d.Type != TypeEnum:
		return fmt.Errorf("field: %q: AsString is only valid on enum fields", d.Name)
	case d.AutoIncrement && !d.Type.Numeric():
		return fmt.Errorf("field: %q: AutoIncrement requires a numeric type", d.Name)
	}
	return nil
}

// Builder is the builder for all field types.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: t}}
}

// Bool returns a new field with type bool.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Int returns a new field with type int.
func Int(name string) *Builder { return newBuilder(name, TypeInt) }

// Int64 returns a new field with type int64.
func Int64(name string) *Builder { return newBuilder(name, TypeInt64) }

// Float64 returns a new field with type float64.
func Float64(name string) *Builder { return newBuilder(name, TypeFloat64) }

// Decimal returns a new field holding exact decimal numbers.
func Decimal(name string) *Builder { return newBuilder(name, TypeDecimal) }

// String returns a new field with type string.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Time returns a new field with type time.Time.
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// UUID returns a new field with type uuid.UUID.
func UUID(name string) *Builder { return newBuilder(name, TypeUUID) }

// Bytes returns a new field with type []byte.
func Bytes(name string) *Builder { return newBuilder(name, TypeBytes) }

// JSON returns a new field holding a JSON document.
func JSON(name string) *Builder { return newBuilder(name, TypeJSON) }

// Enum returns a new enum field. Values are stored by their numeric value
// unless AsString is set.
func Enum(name string) *Builder { return newBuilder(name, TypeEnum) }

// New returns a new field with the given type.
func New(name string, t Type) *Builder { return newBuilder(name, t) }

// Column sets the column name of the field.
func (b *Builder) Column(name string) *Builder {
	b.desc.Column = name
	return b
}

// Key marks the field as part of the primary key.
func (b *Builder) Key() *Builder {
	b.desc.Key = true
	return b
}

// Nullable indicates that the column accepts NULL values.
func (b *Builder) Nullable() *Builder {
	b.desc.Nullable = true
	return b
}

// AutoIncrement marks the field as generated by the database on insert.
func (b *Builder) AutoIncrement() *Builder {
	b.desc.AutoIncrement = true
	return b
}

// AsString stores enum values by their member name.
func (b *Builder) AsString() *Builder {
	b.desc.EnumAsString = true
	return b
}

// Comment sets the comment of the field.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor returns the field descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
