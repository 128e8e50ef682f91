package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/aleics/gql-dyn/internal/ir"
)

// Shape is a comparable description of a schema's types. Two schemas built
// from equal configurations have equal shapes.
type Shape struct {
	Types []TypeShape `json:"types"`
}

// TypeShape describes an interface or object type.
type TypeShape struct {
	Name       string       `json:"name"`
	Kind       string       `json:"kind"` // "interface" | "object"
	Interfaces []string     `json:"interfaces,omitempty"`
	Fields     []FieldShape `json:"fields"`
}

// FieldShape describes one field and its arguments.
type FieldShape struct {
	Name string       `json:"name"`
	Type string       `json:"type"`
	Args []FieldShape `json:"args,omitempty"`
}

// Shape lists the interface, the kind objects in kind order, then the query
// root. Fields are ordered with the shared name field first.
func (s *Schema) Shape() Shape {
	iface := s.dispatcher.Interface()
	types := []TypeShape{{
		Name:   iface.Name(),
		Kind:   "interface",
		Fields: fieldShapes(iface.Fields()),
	}}

	for _, kind := range s.context.Kinds() {
		obj, ok := s.registry.lookup(kind)
		if !ok {
			continue
		}
		types = append(types, objectShape(obj))
	}
	types = append(types, objectShape(s.query))
	return Shape{Types: types}
}

func objectShape(obj *graphql.Object) TypeShape {
	ts := TypeShape{
		Name:   obj.Name(),
		Kind:   "object",
		Fields: fieldShapes(obj.Fields()),
	}
	for _, iface := range obj.Interfaces() {
		ts.Interfaces = append(ts.Interfaces, iface.Name())
	}
	return ts
}

func fieldShapes(defs graphql.FieldDefinitionMap) []FieldShape {
	out := make([]FieldShape, 0, len(defs))
	for _, name := range orderedFieldNames(defs) {
		def := defs[name]
		fs := FieldShape{Name: name, Type: def.Type.String()}
		args := slices.Clone(def.Args)
		slices.SortFunc(args, func(a, b *graphql.Argument) int {
			return strings.Compare(a.Name(), b.Name())
		})
		for _, arg := range args {
			fs.Args = append(fs.Args, FieldShape{Name: arg.Name(), Type: arg.Type.String()})
		}
		out = append(out, fs)
	}
	return out
}

// orderedFieldNames puts the shared name field first and sorts the rest.
func orderedFieldNames(defs graphql.FieldDefinitionMap) []string {
	names := make([]string, 0, len(defs))
	for name := range defs {
		if name != ir.SharedField {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := defs[ir.SharedField]; ok {
		names = append([]string{ir.SharedField}, names...)
	}
	return names
}

// SDL prints the schema in GraphQL schema definition language with a stable
// type and field order.
func (s *Schema) SDL() string {
	return s.Shape().SDL()
}

// SDL prints the shape in GraphQL schema definition language.
func (sh Shape) SDL() string {
	var b strings.Builder
	for i, ts := range sh.Types {
		if i > 0 {
			b.WriteString("\n")
		}
		keyword := "type"
		if ts.Kind == "interface" {
			keyword = "interface"
		}
		fmt.Fprintf(&b, "%s %s", keyword, ts.Name)
		if len(ts.Interfaces) > 0 {
			fmt.Fprintf(&b, " implements %s", strings.Join(ts.Interfaces, " & "))
		}
		b.WriteString(" {\n")
		for _, f := range ts.Fields {
			fmt.Fprintf(&b, "  %s%s: %s\n", f.Name, formatArgs(f.Args), f.Type)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func formatArgs(args []FieldShape) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%s: %s", a.Name, a.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
