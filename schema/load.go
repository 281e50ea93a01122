package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/syssam/veloxql/schema/edge"
	"github.com/syssam/veloxql/schema/field"

	"gopkg.in/yaml.v3"
)

type (
	fileSchema struct {
		Entities []fileEntity `yaml:"entities"`
	}
	fileEntity struct {
		Name   string      `yaml:"name"`
		Table  string      `yaml:"table"`
		Fields []fileField `yaml:"fields"`
		Edges  []fileEdge  `yaml:"edges"`
	}
	fileField struct {
		Name          string `yaml:"name"`
		Column        string `yaml:"column"`
		Type          string `yaml:"type"`
		Key           bool   `yaml:"key"`
		Nullable      bool   `yaml:"nullable"`
		AutoIncrement bool   `yaml:"auto_increment"`
		AsString      bool   `yaml:"as_string"`
		Comment       string `yaml:"comment"`
	}
	fileEdge struct {
		Name        string      `yaml:"name"`
		Target      string      `yaml:"target"`
		Cardinality string      `yaml:"cardinality"`
		Field       string      `yaml:"field"`
		Ref         string      `yaml:"ref"`
		On          []edge.Pair `yaml:"on"`
		Comment     string      `yaml:"comment"`
	}
)

// LoadFile reads a YAML schema file and builds its registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: reading %s: %w", path, err)
	}
	return Load(bytes.NewReader(data))
}

// Load decodes a YAML schema document and builds its registry.
//
//	entities:
//	  - name: User
//	    table: sys_user
//	    fields:
//	      - {name: Id, type: int, key: true, auto_increment: true}
//	      - {name: Name, type: string}
//	    edges:
//	      - {name: Orders, target: Order, cardinality: many, ref: BuyerId}
func Load(r io.Reader) (*Registry, error) {
	var doc fileSchema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decoding yaml: %w", err)
	}
	entities := make([]*Entity, 0, len(doc.Entities))
	for _, fe := range doc.Entities {
		e, err := fe.entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return NewRegistry(entities...)
}

func (fe fileEntity) entity() (*Entity, error) {
	e := New(fe.Name)
	if fe.Table != "" {
		e.Table(fe.Table)
	}
	for _, ff := range fe.Fields {
		t, err := field.ParseType(ff.Type)
		if err != nil {
			return nil, fmt.Errorf("schema: entity %q: %w", fe.Name, err)
		}
		e.AddField(&field.Descriptor{
			Name:          ff.Name,
			Column:        ff.Column,
			Type:          t,
			Key:           ff.Key,
			Nullable:      ff.Nullable,
			AutoIncrement: ff.AutoIncrement,
			EnumAsString:  ff.AsString,
			Comment:       ff.Comment,
		})
	}
	for _, fd := range fe.Edges {
		var c edge.Cardinality
		switch fd.Cardinality {
		case "", "one":
			c = edge.ToOne
		case "many":
			c = edge.ToMany
		default:
			return nil, fmt.Errorf("schema: edge %s.%s: unknown cardinality %q", fe.Name, fd.Name, fd.Cardinality)
		}
		e.AddEdge(&edge.Descriptor{
			Name:        fd.Name,
			Target:      fd.Target,
			Cardinality: c,
			Pairs:       fd.On,
			ForeignKey:  fd.Field,
			Reference:   fd.Ref,
			Comment:     fd.Comment,
		})
	}
	return e, nil
}
