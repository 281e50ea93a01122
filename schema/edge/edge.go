package edge

import "fmt"

// Cardinality of a navigation.
type Cardinality uint8

// Navigation cardinalities.
const (
	ToOne Cardinality = iota + 1
	ToMany
)

// String returns the cardinality name.
func (c Cardinality) String() string {
	switch c {
	case ToOne:
		return "One"
	case ToMany:
		return "Many"
	default:
		return fmt.Sprintf("cardinality(%d)", c)
	}
}

// Pair joins a field of the owning entity to a field of the target entity.
type Pair struct {
	Source string
	Target string
}

// A Descriptor for edge configuration.
type Descriptor struct {
	Name        string
	Target      string // target entity name.
	Cardinality Cardinality
	Pairs       []Pair
	// ForeignKey and Reference are the shorthand forms. They are expanded
	// into Pairs against the key fields when the schema registry is built.
	ForeignKey string
	Reference  string
	Comment    string
}

// Resolved reports if the key pairs of the edge are known.
func (d *Descriptor) Resolved() bool {
	return len(d.Pairs) > 0
}

// SourceFields returns the owning entity fields of the join, in order.
func (d *Descriptor) SourceFields() []string {
	fields := make([]string, len(d.Pairs))
	for i, p := range d.Pairs {
		fields[i] = p.Source
	}
	return fields
}

// TargetFields returns the target entity fields of the join, in order.
func (d *Descriptor) TargetFields() []string {
	fields := make([]string, len(d.Pairs))
	for i, p := range d.Pairs {
		fields[i] = p.Target
	}
	return fields
}

// Builder for edges.
type Builder struct {
	desc *Descriptor
}

// To returns a new edge builder with the given cardinality.
func To(name, target string, c Cardinality) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Target: target, Cardinality: c}}
}

// One returns a builder for a single-valued navigation.
func One(name, target string) *Builder {
	return To(name, target, ToOne)
}

// Many returns a builder for a collection navigation.
func Many(name, target string) *Builder {
	return To(name, target, ToMany)
}

// On adds a key pair to the join condition of the edge.
func (b *Builder) On(source, target string) *Builder {
	b.desc.Pairs = append(b.desc.Pairs, Pair{Source: source, Target: target})
	return b
}

// Field sets the foreign-key field on the owning entity. The edge joins it
// to the single key field of the target.
func (b *Builder) Field(name string) *Builder {
	b.desc.ForeignKey = name
	return b
}

// Ref sets the foreign-key field on the target entity. The edge joins the
// single key field of the owning entity to it.
func (b *Builder) Ref(name string) *Builder {
	b.desc.Reference = name
	return b
}

// Comment sets the comment of the edge.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor returns the edge descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// Err returns a validation error of the descriptor, if any.
func (d *Descriptor) Err() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("edge: missing name")
	case d.Target == "":
		return fmt.Errorf("edge: %q: missing target entity", d.Name)
	case d.Cardinality != ToOne && d.Cardinality != ToMany:
		return fmt.Errorf("edge: %q: invalid cardinality", d.Name)
	case d.ForeignKey != "" && d.Reference != "":
		return fmt.Errorf("edge: %q: Field and Ref are mutually exclusive", d.Name)
	case len(d.Pairs) > 0 && (d.ForeignKey != "" || d.Reference != ""):
		return fmt.Errorf("edge: %q: On cannot be combined with Field or Ref", d.Name)
	case len(d.Pairs) == 0 && d.ForeignKey == "" && d.Reference == "":
		return fmt.Errorf("edge: %q: missing join keys", d.Name)
	}
	return nil
}
