package gen

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/edge"
	"github.com/syssam/veloxql/schema/field"
)

const (
	veloxqlPkg = "github.com/syssam/veloxql"
	schemaPkg  = "github.com/syssam/veloxql/schema"
	fieldPkg   = "github.com/syssam/veloxql/schema/field"
	edgePkg    = "github.com/syssam/veloxql/schema/edge"
)

// Generator renders a schema registry as a Go package: one variable per
// entity, a Registry function, and a typed table view per entity whose
// methods return the entity columns.
type Generator struct {
	cfg   *Config
	graph *Graph
}

// NewGenerator returns a generator of the registry entities.
//
//	cfg, _ := gen.NewConfig("internal/model", gen.WithPackage("model"))
//	g, err := gen.NewGenerator(reg, cfg)
//	err = g.Generate(ctx)
func NewGenerator(r *schema.Registry, cfg *Config) (*Generator, error) {
	if cfg == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if len(r.Entities()) == 0 {
		return nil, NewSchemaError("", "", "registry has no entities")
	}
	g, err := NewGraph(r)
	if err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, graph: g}, nil
}

// Graph returns the generated identifiers.
func (g *Generator) Graph() *Graph { return g.graph }

// Render renders every file in memory, keyed by file name.
func (g *Generator) Render(ctx context.Context) (map[string][]byte, error) {
	var (
		mu    sync.Mutex
		files = make(map[string][]byte, len(g.graph.Types)+1)
	)
	err := g.each(ctx, func(name string, f *jen.File) error {
		var buf bytes.Buffer
		if err := f.Render(&buf); err != nil {
			return &GenerationError{File: name, Cause: err}
		}
		mu.Lock()
		files[name] = buf.Bytes()
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Generate writes every file to the target directory.
func (g *Generator) Generate(ctx context.Context) error {
	if err := os.MkdirAll(g.cfg.Target, 0o755); err != nil {
		return &GenerationError{File: g.cfg.Target, Cause: err}
	}
	return g.each(ctx, g.writeFile)
}

// Files returns the names of the generated files, sorted.
func (g *Generator) Files() []string {
	names := []string{"registry.go"}
	for _, t := range g.graph.Types {
		names = append(names, t.FileName())
	}
	sort.Strings(names)
	return names
}

// each builds the files in parallel and passes them to fn.
func (g *Generator) each(ctx context.Context, fn func(string, *jen.File) error) error {
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(g.cfg.Workers)
	errg.Go(func() error {
		return fn("registry.go", g.registryFile())
	})
	for _, t := range g.graph.Types {
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(t.FileName(), g.typeFile(t))
		})
	}
	return errg.Wait()
}

func (g *Generator) writeFile(name string, f *jen.File) error {
	out, err := os.Create(filepath.Join(g.cfg.Target, name))
	if err != nil {
		return &GenerationError{File: name, Cause: err}
	}
	defer out.Close()
	// Jennifer renders with correct imports and formatting.
	if err := f.Render(out); err != nil {
		return &GenerationError{File: name, Cause: err}
	}
	return nil
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	return f
}

// registryFile declares the entity variables and the Registry function.
func (g *Generator) registryFile() *jen.File {
	f := g.newFile()
	f.PackageComment("Package " + g.cfg.Package + " holds the veloxql entities of the schema.")
	defs := make([]jen.Code, 0, len(g.graph.Types))
	names := make([]jen.Code, 0, len(g.graph.Types))
	for _, t := range g.graph.Types {
		defs = append(defs, jen.Comment(t.Name+" maps to table "+quote(t.Entity.TableName())+"."), jen.Id(t.Name).Op("=").Add(entityDecl(t)))
		names = append(names, jen.Id(t.Name))
	}
	f.Var().Defs(defs...)
	f.Line()
	f.Comment("Registry returns a registry of the package entities.")
	f.Func().Id("Registry").Params().Params(jen.Op("*").Qual(schemaPkg, "Registry"), jen.Error()).Block(
		jen.Return(jen.Qual(schemaPkg, "NewRegistry").Call(names...)),
	)
	return f
}

// entityDecl renders the builder chain declaring an entity.
func entityDecl(t *Type) *jen.Statement {
	e := t.Entity
	s := jen.Qual(schemaPkg, "New").Call(jen.Lit(e.Name())).Dot("Table").Call(jen.Lit(e.TableName()))
	fields := make([]jen.Code, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = fieldDecl(f.Desc)
	}
	s = s.Dot("Fields").Call(multiline(fields)...)
	if len(t.Edges) > 0 {
		edges := make([]jen.Code, len(t.Edges))
		for i, ed := range t.Edges {
			edges[i] = edgeDecl(ed.Desc)
		}
		s = s.Dot("Edges").Call(multiline(edges)...)
	}
	return s
}

var typeConsts = map[field.Type]string{
	field.TypeBool:    "TypeBool",
	field.TypeInt:     "TypeInt",
	field.TypeInt64:   "TypeInt64",
	field.TypeFloat64: "TypeFloat64",
	field.TypeDecimal: "TypeDecimal",
	field.TypeString:  "TypeString",
	field.TypeTime:    "TypeTime",
	field.TypeUUID:    "TypeUUID",
	field.TypeBytes:   "TypeBytes",
	field.TypeEnum:    "TypeEnum",
	field.TypeJSON:    "TypeJSON",
}

func fieldDecl(d *field.Descriptor) jen.Code {
	s := jen.Qual(fieldPkg, "New").Call(jen.Lit(d.Name), jen.Qual(fieldPkg, typeConsts[d.Type]))
	if d.Column != "" && d.Column != d.Name {
		s = s.Dot("Column").Call(jen.Lit(d.Column))
	}
	if d.Key {
		s = s.Dot("Key").Call()
	}
	if d.Nullable {
		s = s.Dot("Nullable").Call()
	}
	if d.AutoIncrement {
		s = s.Dot("AutoIncrement").Call()
	}
	if d.EnumAsString {
		s = s.Dot("AsString").Call()
	}
	if d.Comment != "" {
		s = s.Dot("Comment").Call(jen.Lit(d.Comment))
	}
	return s
}

// edgeDecl renders a navigation with its resolved key pairs.
func edgeDecl(d *edge.Descriptor) jen.Code {
	fn := "One"
	if d.Cardinality == edge.ToMany {
		fn = "Many"
	}
	s := jen.Qual(edgePkg, fn).Call(jen.Lit(d.Name), jen.Lit(d.Target))
	for _, p := range d.Pairs {
		s = s.Dot("On").Call(jen.Lit(p.Source), jen.Lit(p.Target))
	}
	if d.Comment != "" {
		s = s.Dot("Comment").Call(jen.Lit(d.Comment))
	}
	return s
}

// typeFile declares the name constants and the typed table view of t.
func (g *Generator) typeFile(t *Type) *jen.File {
	f := g.newFile()
	consts := make([]jen.Code, 0, len(t.Fields)+len(t.Edges))
	for _, fd := range t.Fields {
		consts = append(consts, jen.Id(fd.Const).Op("=").Lit(fd.Desc.Name))
	}
	for _, ed := range t.Edges {
		consts = append(consts, jen.Id(ed.Const).Op("=").Lit(ed.Desc.Name))
	}
	f.Comment("Field and navigation names of " + t.Entity.Name() + ".")
	f.Const().Defs(consts...)
	f.Line()

	view := t.TableType()
	f.Commentf("%s is a typed view of a %s source in a query.", view, t.Entity.Name())
	f.Type().Id(view).Struct(jen.Id("t").Op("*").Qual(veloxqlPkg, "Table"))
	f.Line()
	f.Commentf("%sOf returns the typed view of a %s source.", t.Name, t.Entity.Name())
	f.Func().Id(t.Name+"Of").Params(jen.Id("t").Op("*").Qual(veloxqlPkg, "Table")).Id(view).Block(
		jen.Return(jen.Id(view).Values(jen.Id("t"))),
	)
	f.Line()
	f.Comment("Source returns the underlying table.")
	f.Func().Params(jen.Id("v").Id(view)).Id("Source").Params().Op("*").Qual(veloxqlPkg, "Table").Block(
		jen.Return(jen.Id("v").Dot("t")),
	)
	for _, fd := range t.Fields {
		f.Line()
		if fd.Desc.Comment != "" {
			f.Commentf("%s returns the %s column. %s", fd.Method, fd.Desc.Name, fd.Desc.Comment)
		} else {
			f.Commentf("%s returns the %s column.", fd.Method, fd.Desc.Name)
		}
		f.Func().Params(jen.Id("v").Id(view)).Id(fd.Method).Params().Op("*").Qual(veloxqlPkg, "Column").Block(
			jen.Return(jen.Id("v").Dot("t").Dot("Col").Call(jen.Id(fd.Const))),
		)
	}
	return f
}

// multiline places each argument on its own line.
func multiline(args []jen.Code) []jen.Code {
	out := make([]jen.Code, 0, len(args)+1)
	for _, a := range args {
		out = append(out, jen.Line().Add(a))
	}
	return append(out, jen.Line())
}

func quote(s string) string { return `"` + s + `"` }
