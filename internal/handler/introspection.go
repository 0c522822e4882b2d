package handler

// introspection.go implements the resolvers for the GraphQL __schema and __type queries (and the
// introspection types __Schema, __Type, etc) using the schema as the source of all the data

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RyotaIwahashi/phonebook/internal/resolver"
	"github.com/vektah/gqlparser/v2/ast"
)

type (
	// typeRef is the source value of a __Type - either a named type (def) or a wrapper (LIST or NON_NULL) of t
	typeRef struct {
		def *ast.Definition
		t   *ast.Type
	}

	// inputValue is the source of an __InputValue - made from a field argument or an input object field
	inputValue struct {
		name, description string
		t                 *ast.Type
		defaultValue      *ast.Value
	}

	introspection struct {
		schema *ast.Schema
	}
)

// introspectionResolvers returns the resolvers for __schema and __type (on the query type) and for the
// fields of the introspection types
func introspectionResolvers(schema *ast.Schema) resolver.Set {
	i := introspection{schema: schema}
	r := resolver.Set{
		"__Schema": {
			"description":      func(context.Context, resolver.Params) (interface{}, error) { return nil, nil },
			"types":            i.types,
			"queryType":        i.rootType(func(s *ast.Schema) *ast.Definition { return s.Query }),
			"mutationType":     i.rootType(func(s *ast.Schema) *ast.Definition { return s.Mutation }),
			"subscriptionType": i.rootType(func(s *ast.Schema) *ast.Definition { return s.Subscription }),
			"directives":       i.directives,
		},
		"__Type": {
			"kind":           i.kind,
			"name":           typeField(func(def *ast.Definition) interface{} { return def.Name }),
			"description":    typeField(func(def *ast.Definition) interface{} { return optional(def.Description) }),
			"specifiedByURL": typeField(func(*ast.Definition) interface{} { return nil }),
			"fields":         i.fields,
			"interfaces":     i.interfaces,
			"possibleTypes":  i.possibleTypes,
			"enumValues":     i.enumValues,
			"inputFields":    i.inputFields,
			"ofType":         i.ofType,
		},
		"__Field": {
			"name":              fieldDefField(func(f *ast.FieldDefinition) interface{} { return f.Name }),
			"description":       fieldDefField(func(f *ast.FieldDefinition) interface{} { return optional(f.Description) }),
			"args":              fieldDefField(func(f *ast.FieldDefinition) interface{} { return argValues(f.Arguments) }),
			"type":              fieldDefField(func(f *ast.FieldDefinition) interface{} { return i.ref(f.Type) }),
			"isDeprecated":      fieldDefField(func(f *ast.FieldDefinition) interface{} { return isDeprecated(f.Directives) }),
			"deprecationReason": fieldDefField(func(f *ast.FieldDefinition) interface{} { return deprecationReason(f.Directives) }),
		},
		"__InputValue": {
			"name":         inputValueField(func(v inputValue) interface{} { return v.name }),
			"description":  inputValueField(func(v inputValue) interface{} { return optional(v.description) }),
			"type":         inputValueField(func(v inputValue) interface{} { return i.ref(v.t) }),
			"defaultValue": inputValueField(func(v inputValue) interface{} {
				if v.defaultValue == nil {
					return nil
				}
				return v.defaultValue.String()
			}),
		},
		"__EnumValue": {
			"name":              enumValueField(func(v *ast.EnumValueDefinition) interface{} { return v.Name }),
			"description":       enumValueField(func(v *ast.EnumValueDefinition) interface{} { return optional(v.Description) }),
			"isDeprecated":      enumValueField(func(v *ast.EnumValueDefinition) interface{} { return isDeprecated(v.Directives) }),
			"deprecationReason": enumValueField(func(v *ast.EnumValueDefinition) interface{} { return deprecationReason(v.Directives) }),
		},
		"__Directive": {
			"name":         directiveField(func(d *ast.DirectiveDefinition) interface{} { return d.Name }),
			"description":  directiveField(func(d *ast.DirectiveDefinition) interface{} { return optional(d.Description) }),
			"isRepeatable": directiveField(func(d *ast.DirectiveDefinition) interface{} { return d.IsRepeatable }),
			"args":         directiveField(func(d *ast.DirectiveDefinition) interface{} { return argValues(d.Arguments) }),
			"locations": directiveField(func(d *ast.DirectiveDefinition) interface{} {
				r := make([]string, 0, len(d.Locations))
				for _, loc := range d.Locations {
					r = append(r, string(loc))
				}
				return r
			}),
		},
	}
	if schema.Query != nil {
		r[schema.Query.Name] = map[string]resolver.Func{
			"__schema": func(context.Context, resolver.Params) (interface{}, error) { return schema, nil },
			"__type":   i.getType,
		}
	}
	return r
}

func (i introspection) getType(_ context.Context, p resolver.Params) (interface{}, error) {
	name, _, err := resolver.StringArg(p.Args, "name")
	if err != nil {
		return nil, err
	}
	if def := i.schema.Types[name]; def != nil {
		return typeRef{def: def}, nil
	}
	return nil, nil
}

// types returns all the named types in the schema, sorted by name
func (i introspection) types(context.Context, resolver.Params) (interface{}, error) {
	names := make([]string, 0, len(i.schema.Types))
	for name := range i.schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	r := make([]typeRef, 0, len(names))
	for _, name := range names {
		r = append(r, typeRef{def: i.schema.Types[name]})
	}
	return r, nil
}

func (i introspection) rootType(get func(*ast.Schema) *ast.Definition) resolver.Func {
	return func(context.Context, resolver.Params) (interface{}, error) {
		if def := get(i.schema); def != nil {
			return typeRef{def: def}, nil
		}
		return nil, nil
	}
}

func (i introspection) directives(context.Context, resolver.Params) (interface{}, error) {
	names := make([]string, 0, len(i.schema.Directives))
	for name := range i.schema.Directives {
		names = append(names, name)
	}
	sort.Strings(names)

	r := make([]*ast.DirectiveDefinition, 0, len(names))
	for _, name := range names {
		r = append(r, i.schema.Directives[name])
	}
	return r, nil
}

// ref converts a type (of a field, argument etc) to the source of an __Type
func (i introspection) ref(t *ast.Type) typeRef {
	if t.NonNull || t.Elem != nil {
		return typeRef{t: t}
	}
	return typeRef{def: i.schema.Types[t.NamedType]}
}

func (i introspection) kind(_ context.Context, p resolver.Params) (interface{}, error) {
	ref, err := sourceOf[typeRef](p)
	if err != nil {
		return nil, err
	}
	switch {
	case ref.def != nil:
		return string(ref.def.Kind), nil
	case ref.t.NonNull:
		return "NON_NULL", nil
	}
	return "LIST", nil
}

func (i introspection) ofType(_ context.Context, p resolver.Params) (interface{}, error) {
	ref, err := sourceOf[typeRef](p)
	if err != nil || ref.def != nil {
		return nil, err
	}
	if ref.t.NonNull {
		inner := *ref.t
		inner.NonNull = false
		return i.ref(&inner), nil
	}
	return i.ref(ref.t.Elem), nil
}

func (i introspection) fields(_ context.Context, p resolver.Params) (interface{}, error) {
	ref, err := sourceOf[typeRef](p)
	if err != nil || ref.def == nil || (ref.def.Kind != ast.Object && ref.def.Kind != ast.Interface) {
		return nil, err
	}
	includeDeprecated, err := resolver.BoolArg(p.Args, "includeDeprecated")
	if err != nil {
		return nil, err
	}
	r := make([]*ast.FieldDefinition, 0, len(ref.def.Fields))
	for _, f := range ref.def.Fields {
		if strings.HasPrefix(f.Name, "__") || (!includeDeprecated && isDeprecated(f.Directives)) {
			continue
		}
		r = append(r, f)
	}
	return r, nil
}

func (i introspection) interfaces(_ context.Context, p resolver.Params) (interface{}, error) {
	ref, err := sourceOf[typeRef](p)
	if err != nil || ref.def == nil || (ref.def.Kind != ast.Object && ref.def.Kind != ast.Interface) {
		return nil, err
	}
	r := make([]typeRef, 0, len(ref.def.Interfaces))
	for _, name := range ref.def.Interfaces {
		if def := i.schema.Types[name]; def != nil {
			r = append(r, typeRef{def: def})
		}
	}
	return r, nil
}

func (i introspection) possibleTypes(_ context.Context, p resolver.Params) (interface{}, error) {
	ref, err := sourceOf[typeRef](p)
	if err != nil || ref.def == nil || (ref.def.Kind != ast.Interface && ref.def.Kind != ast.Union) {
		return nil, err
	}
	var r []typeRef
	for _, def := range i.schema.GetPossibleTypes(ref.def) {
		r = append(r, typeRef{def: def})
	}
	sort.Slice(r, func(a, b int) bool { return r[a].def.Name < r[b].def.Name })
	return r, nil
}

func (i introspection) enumValues(_ context.Context, p resolver.Params) (interface{}, error) {
	ref, err := sourceOf[typeRef](p)
	if err != nil || ref.def == nil || ref.def.Kind != ast.Enum {
		return nil, err
	}
	includeDeprecated, err := resolver.BoolArg(p.Args, "includeDeprecated")
	if err != nil {
		return nil, err
	}
	r := make([]*ast.EnumValueDefinition, 0, len(ref.def.EnumValues))
	for _, v := range ref.def.EnumValues {
		if includeDeprecated || !isDeprecated(v.Directives) {
			r = append(r, v)
		}
	}
	return r, nil
}

func (i introspection) inputFields(_ context.Context, p resolver.Params) (interface{}, error) {
	ref, err := sourceOf[typeRef](p)
	if err != nil || ref.def == nil || ref.def.Kind != ast.InputObject {
		return nil, err
	}
	r := make([]inputValue, 0, len(ref.def.Fields))
	for _, f := range ref.def.Fields {
		r = append(r, inputValue{name: f.Name, description: f.Description, t: f.Type, defaultValue: f.DefaultValue})
	}
	return r, nil
}

func argValues(args ast.ArgumentDefinitionList) []inputValue {
	r := make([]inputValue, 0, len(args))
	for _, arg := range args {
		r = append(r, inputValue{name: arg.Name, description: arg.Description, t: arg.Type, defaultValue: arg.DefaultValue})
	}
	return r
}

func isDeprecated(directives ast.DirectiveList) bool {
	return directives.ForName("deprecated") != nil
}

func deprecationReason(directives ast.DirectiveList) interface{} {
	d := directives.ForName("deprecated")
	if d == nil {
		return nil
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return "No longer supported"
}

// optional returns nil for an empty string (so that a missing description is null rather than "")
func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// sourceOf gets the parent value of an introspection resolver as the expected type
func sourceOf[T any](p resolver.Params) (T, error) {
	v, ok := p.Source.(T)
	if !ok {
		return v, fmt.Errorf("introspection: unexpected source %T", p.Source)
	}
	return v, nil
}

func typeField(get func(*ast.Definition) interface{}) resolver.Func {
	return func(_ context.Context, p resolver.Params) (interface{}, error) {
		ref, err := sourceOf[typeRef](p)
		if err != nil || ref.def == nil {
			return nil, err // wrapper types have no name etc
		}
		return get(ref.def), nil
	}
}

func fieldDefField(get func(*ast.FieldDefinition) interface{}) resolver.Func {
	return func(_ context.Context, p resolver.Params) (interface{}, error) {
		f, err := sourceOf[*ast.FieldDefinition](p)
		if err != nil {
			return nil, err
		}
		return get(f), nil
	}
}

func inputValueField(get func(inputValue) interface{}) resolver.Func {
	return func(_ context.Context, p resolver.Params) (interface{}, error) {
		v, err := sourceOf[inputValue](p)
		if err != nil {
			return nil, err
		}
		return get(v), nil
	}
}

func enumValueField(get func(*ast.EnumValueDefinition) interface{}) resolver.Func {
	return func(_ context.Context, p resolver.Params) (interface{}, error) {
		v, err := sourceOf[*ast.EnumValueDefinition](p)
		if err != nil {
			return nil, err
		}
		return get(v), nil
	}
}

func directiveField(get func(*ast.DirectiveDefinition) interface{}) resolver.Func {
	return func(_ context.Context, p resolver.Params) (interface{}, error) {
		d, err := sourceOf[*ast.DirectiveDefinition](p)
		if err != nil {
			return nil, err
		}
		return get(d), nil
	}
}
