package gen

import (
	"go/token"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/edge"
	"github.com/syssam/veloxql/schema/field"
)

// The following types describe the generated identifiers of a registry.
type (
	// Graph holds the types of a registry in registration order.
	Graph struct {
		Types []*Type
	}

	// Type represents one entity and the identifiers generated for it.
	Type struct {
		Entity *schema.Entity
		// Name is the exported identifier of the entity variable.
		Name string
		// Fields and Edges are in declaration order.
		Fields []*Field
		Edges  []*Edge
	}

	// Field is an entity field and its accessor name.
	Field struct {
		Desc *field.Descriptor
		// Method is the accessor name on the typed table.
		Method string
		// Const is the name of the field-name constant.
		Const string
	}

	// Edge is a navigation and the name of its constant.
	Edge struct {
		Desc  *edge.Descriptor
		Const string
	}
)

// reserved holds the method names of the generated table types.
var reserved = map[string]bool{"Source": true}

// NewGraph builds the generated identifiers of a registry. Identifiers
// that are not valid Go or that collide within the package are reported
// as *SchemaError.
func NewGraph(r *schema.Registry) (*Graph, error) {
	g := &Graph{}
	declared := make(map[string]string)
	declare := func(ident, entity, member string) error {
		if !token.IsIdentifier(ident) {
			return NewSchemaError(entity, member, "generated identifier "+ident+" is not valid Go")
		}
		if prev, ok := declared[ident]; ok {
			return NewSchemaError(entity, member, "identifier "+ident+" collides with "+prev)
		}
		declared[ident] = entity + "." + member
		return nil
	}
	for _, e := range r.Entities() {
		t := &Type{Entity: e, Name: pascal(e.Name())}
		for _, ident := range []string{t.Name, t.TableType(), t.Name + "Of"} {
			if err := declare(ident, e.Name(), ""); err != nil {
				return nil, err
			}
		}
		methods := make(map[string]bool)
		for _, d := range e.FieldList() {
			f := &Field{Desc: d, Method: pascal(d.Name)}
			if reserved[f.Method] {
				f.Method += "Field"
			}
			if methods[f.Method] {
				return nil, NewSchemaError(e.Name(), d.Name, "accessor "+f.Method+" is declared twice")
			}
			methods[f.Method] = true
			f.Const = t.Name + "Field" + f.Method
			if err := declare(f.Const, e.Name(), d.Name); err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		}
		for _, d := range e.EdgeList() {
			ed := &Edge{Desc: d, Const: t.Name + "Edge" + pascal(d.Name)}
			if err := declare(ed.Const, e.Name(), d.Name); err != nil {
				return nil, err
			}
			t.Edges = append(t.Edges, ed)
		}
		g.Types = append(g.Types, t)
	}
	if err := declare("Registry", "", "Registry"); err != nil {
		return nil, err
	}
	return g, nil
}

// TableType returns the name of the typed table view.
func (t *Type) TableType() string { return t.Name + "Table" }

// FileName returns the name of the file holding the type accessors.
// "OrderDetail" is written to "order_detail.go".
func (t *Type) FileName() string { return inflect.Underscore(t.Entity.Name()) + ".go" }

// pascal returns the exported Go identifier of a schema name.
// "created_at" and "created-at" become "CreatedAt", "Id" stays "Id".
func pascal(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	// A Caser is stateful and must not be shared between goroutines.
	title := cases.Title(language.English, cases.NoLower)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(title.String(p))
	}
	s := b.String()
	if s != "" && !unicode.IsLetter([]rune(s)[0]) {
		s = "X" + s
	}
	return s
}
