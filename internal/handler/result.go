package handler

// result.go is used to generate the query output by calling resolvers for the selections of the query

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/RyotaIwahashi/phonebook/internal/resolver"
	"github.com/dolmen-go/jsonmap"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

type (
	// gqlOperation controls an operation (query/mutation) of a GraphQL request
	gqlOperation struct {
		*Handler // required for resolver lookups, options etc

		isMutation bool
		variables  map[string]interface{} // variables valid for this op (extracted from the request)

		mtx    sync.Mutex    // protects errors (resolvers may run in parallel)
		errors gqlerror.List // errors found while resolving fields
	}

	// gqlValue contains the result of one field, plus the name (alias) it is returned as
	gqlValue struct {
		name  string      // name/alias of the entry/resolver
		value interface{} // scalar, nested result (jsonmap.Ordered), list ([]interface{}) or nil
		ok    bool        // false if the field could not be resolved and is non-nullable (so the parent must be null)
	}

	// fieldGroup is all the fields of a selection set with the same response name (alias)
	fieldGroup struct {
		name   string
		fields []*ast.Field
	}
)

// GetSelections resolves the selections in a query by finding and evaluating the corresponding resolver(s)
// Returns a jsonmap.Ordered (a map of values and a slice that remembers the order they were added) that contains an
// entry for each selection, where the map "key" is the name of the entry/resolver and the value is:
//
//	a) scalar value (stored in an interface})
//	b) a nested jsonmap.Ordered if the resolver returns an object
//	c) a slice (ie []interface{}) if the resolver returns a list
//
// Parameters:
//
//	ctx = a Go context that could expire at any time
//	set = list of selections from a GraphQL query to be resolved
//	def = the object type that the selections are made on
//	source = the value of the object (passed to the resolvers of the fields)
//	path = path to the object in the result (used in error messages)
//
// The bool return is false if a non-nullable field could not be resolved, whence the whole object must be null.
func (op *gqlOperation) GetSelections(ctx context.Context, set ast.SelectionSet, def *ast.Definition, source interface{},
	path ast.Path,
) (jsonmap.Ordered, bool) {
	groups := op.collectFields(def, set, nil, map[string]bool{})

	resultChans := make([]<-chan gqlValue, 0, len(groups))
	for _, group := range groups {
		fieldPath := make(ast.Path, len(path), len(path)+1)
		copy(fieldPath, path)
		fieldPath = append(fieldPath, ast.PathName(group.name))

		ch := make(chan gqlValue, 1) // buffered so resolvers never block if we stop listening
		if op.isMutation || op.noConcurrency {
			// Mutations are run sequentially
			op.wrapResolve(ctx, def, group, source, fieldPath, ch)
		} else {
			// Calling wrapResolve as a go routine allows resolvers to run in parallel
			go op.wrapResolve(ctx, def, group, source, fieldPath, ch)
		}
		resultChans = append(resultChans, ch)
	}

	// Now extract the values (will block until all channels have a value)
	r := jsonmap.Ordered{
		Data:  make(map[string]interface{}, len(groups)),
		Order: make([]string, 0, len(groups)),
	}
	ok := true
	for i, ch := range resultChans {
		select {
		case v := <-ch:
			if !v.ok {
				ok = false
			}
			r.Order = append(r.Order, v.name)
			r.Data[v.name] = v.value
		case <-ctx.Done():
			// Wait for resolvers still running so that nothing is added to op.errors after we return
			for _, pending := range resultChans[i:] {
				<-pending
			}
			op.addError(&gqlerror.Error{Message: ctx.Err().Error(), Path: path, Extensions: map[string]interface{}{"code": codeInternal}})
			return jsonmap.Ordered{}, false
		}
	}
	if !ok {
		return jsonmap.Ordered{}, false
	}
	return r, true
}

// collectFields gets the fields of a selection set (in order) grouping them by response name, after expanding
// fragments and removing anything excluded by @skip/@include directives.
func (op *gqlOperation) collectFields(def *ast.Definition, set ast.SelectionSet, groups []fieldGroup,
	visited map[string]bool,
) []fieldGroup {
	for _, s := range set {
		switch selection := s.(type) {
		case *ast.Field:
			if op.directiveBypass(selection.Directives) {
				continue
			}
			name := selection.Alias
			if name == "" {
				name = selection.Name
			}
			found := false
			for i := range groups {
				if groups[i].name == name {
					groups[i].fields = append(groups[i].fields, selection)
					found = true
					break
				}
			}
			if !found {
				groups = append(groups, fieldGroup{name: name, fields: []*ast.Field{selection}})
			}

		case *ast.InlineFragment:
			if op.directiveBypass(selection.Directives) || !op.typeMatches(selection.TypeCondition, def) {
				continue
			}
			groups = op.collectFields(def, selection.SelectionSet, groups, visited)

		case *ast.FragmentSpread:
			if op.directiveBypass(selection.Directives) || visited[selection.Name] || selection.Definition == nil {
				continue
			}
			visited[selection.Name] = true
			if !op.typeMatches(selection.Definition.TypeCondition, def) {
				continue
			}
			groups = op.collectFields(def, selection.Definition.SelectionSet, groups, visited)
		}
	}
	return groups
}

// typeMatches checks if a fragment's type condition applies to an object type
func (op *gqlOperation) typeMatches(condition string, def *ast.Definition) bool {
	if condition == "" || condition == def.Name {
		return true
	}
	conditionDef := op.schema.Types[condition]
	if conditionDef == nil {
		return false
	}
	for _, possible := range op.schema.GetPossibleTypes(conditionDef) {
		if possible.Name == def.Name {
			return true
		}
	}
	return false
}

// directiveBypass handles field directives - just standard "skip" and "include" for now
// Returns: true if a directive indicates the field is not to be processed
func (op *gqlOperation) directiveBypass(directives ast.DirectiveList) bool {
	for _, d := range directives {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		if b, ok := d.ArgumentMap(op.variables)["if"].(bool); ok && b == (d.Name == "skip") {
			return true
		}
	}
	return false
}

// wrapResolve calls resolveField putting the return value on a chan and converting any panic to an error
func (op *gqlOperation) wrapResolve(ctx context.Context, def *ast.Definition, group fieldGroup, source interface{},
	path ast.Path, ch chan<- gqlValue,
) {
	defer func() {
		// Convert any panics in resolvers into an (internal) error
		if recoverValue := recover(); recoverValue != nil {
			op.log.Error("resolver panic", zap.String("field", def.Name+"."+group.fields[0].Name),
				zap.Any("panic", recoverValue))
			op.addError(op.fieldError(fmt.Errorf("internal error: panic %v", recoverValue), group.fields[0], path))
			ch <- gqlValue{name: group.name, ok: op.nullable(def, group.fields[0])}
		}
	}()
	ch <- op.resolveField(ctx, def, group, source, path)
}

// nullable returns true if the field can be null
func (op *gqlOperation) nullable(def *ast.Definition, astField *ast.Field) bool {
	fieldDef := astField.Definition
	if fieldDef == nil {
		fieldDef = def.Fields.ForName(astField.Name)
	}
	return fieldDef == nil || !fieldDef.Type.NonNull
}

// resolveField calls the resolver of a field then converts the result according to the type of the field
func (op *gqlOperation) resolveField(ctx context.Context, def *ast.Definition, group fieldGroup, source interface{},
	path ast.Path,
) gqlValue {
	astField := group.fields[0]
	if astField.Name == "__typename" { // meta-field allowed on any object
		return gqlValue{name: group.name, value: def.Name, ok: true}
	}

	fieldDef := astField.Definition
	if fieldDef == nil {
		fieldDef = def.Fields.ForName(astField.Name)
	}
	f := op.resolvers.Lookup(def.Name, astField.Name)
	if f == nil || fieldDef == nil {
		msg := fmt.Sprintf("no resolver for field %q of %q", astField.Name, def.Name)
		if op.noIntrospection && (astField.Name == "__schema" || astField.Name == "__type") {
			msg = "GraphQL introspection is not allowed"
		}
		op.addError(op.fieldError(errors.New(msg), astField, path))
		return gqlValue{name: group.name, ok: op.nullable(def, astField)}
	}

	value, err := f(ctx, resolver.Params{Source: source, Args: astField.ArgumentMap(op.variables)})
	if err != nil {
		op.addError(op.fieldError(err, astField, path))
		return gqlValue{name: group.name, ok: !fieldDef.Type.NonNull}
	}
	v, ok := op.completeValue(ctx, fieldDef.Type, group.fields, value, path)
	return gqlValue{name: group.name, value: v, ok: ok}
}

// completeValue converts a value returned from a resolver into what is returned in the result.  The bool return
// is false if the value is null (or an error occurred) and the type is non-nullable.
func (op *gqlOperation) completeValue(ctx context.Context, t *ast.Type, fields []*ast.Field, value interface{},
	path ast.Path,
) (interface{}, bool) {
	v, failed := op.completeNullable(ctx, t, fields, value, path)
	if t.NonNull {
		if failed {
			return nil, false // error already recorded
		}
		if v == nil {
			op.addError(op.fieldError(fmt.Errorf("cannot return null for non-nullable field %s",
				fieldName(fields[0])), fields[0], path))
			return nil, false
		}
	}
	if failed {
		return nil, true
	}
	return v, true
}

// completeNullable converts a value ignoring non-nullability of the type.  The bool return is true if
// there was an error (already recorded) and the value must be null.
func (op *gqlOperation) completeNullable(ctx context.Context, t *ast.Type, fields []*ast.Field, value interface{},
	path ast.Path,
) (interface{}, bool) {
	if isNull(value) {
		return nil, false
	}

	if t.Elem != nil {
		v := reflect.ValueOf(value)
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			op.addError(op.fieldError(fmt.Errorf("expected a list for %s but got %T", fieldName(fields[0]), value),
				fields[0], path))
			return nil, true
		}
		results := make([]interface{}, 0, v.Len()) // to distinguish empty slice from nil slice
		for i := 0; i < v.Len(); i++ {
			elementPath := make(ast.Path, len(path), len(path)+1)
			copy(elementPath, path)
			elementPath = append(elementPath, ast.PathIndex(i))
			element, ok := op.completeValue(ctx, t.Elem, fields, v.Index(i).Interface(), elementPath)
			if !ok {
				return nil, true // the whole list is null
			}
			results = append(results, element)
		}
		return results, false
	}

	def := op.schema.Types[t.NamedType]
	if def == nil {
		op.addError(op.fieldError(fmt.Errorf("unknown type %q", t.NamedType), fields[0], path))
		return nil, true
	}
	switch def.Kind {
	case ast.Scalar, ast.Enum:
		v, err := serialize(def, value)
		if err != nil {
			op.addError(op.fieldError(fmt.Errorf("%s: %w", fieldName(fields[0]), err), fields[0], path))
			return nil, true
		}
		return v, false

	case ast.Interface, ast.Union:
		typed, ok := value.(resolver.TypeNamer)
		if !ok {
			op.addError(op.fieldError(fmt.Errorf("cannot determine object type of %T for abstract type %s",
				value, def.Name), fields[0], path))
			return nil, true
		}
		def = op.schema.Types[typed.TypeName()]
		if def == nil || def.Kind != ast.Object || !op.typeMatches(t.NamedType, def) {
			op.addError(op.fieldError(fmt.Errorf("%q is not a possible type of %s", typed.TypeName(), t.NamedType),
				fields[0], path))
			return nil, true
		}
	}

	// Merge the sub-selections of all fields with the same response name
	var set ast.SelectionSet
	for _, f := range fields {
		set = append(set, f.SelectionSet...)
	}
	result, ok := op.GetSelections(ctx, set, def, value, path)
	if !ok {
		return nil, true
	}
	return result, false
}

// serialize converts a resolver's value to a scalar or enum value suitable for JSON encoding
func serialize(def *ast.Definition, value interface{}) (interface{}, error) {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem() // follow indirection (isNull has already checked for nil)
	}

	if def.Kind == ast.Enum {
		if v.Kind() != reflect.String || def.EnumValues.ForName(v.String()) == nil {
			return nil, fmt.Errorf("%v is not a valid %s value", v.Interface(), def.Name)
		}
		return v.String(), nil
	}

	switch def.Name {
	case "Int":
		var i int64
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i = v.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v.Uint() > 1<<31-1 {
				return nil, fmt.Errorf("%d is out of range for Int", v.Uint())
			}
			i = int64(v.Uint())
		default:
			return nil, fmt.Errorf("expected an integer value for Int, got %T", value)
		}
		if i < -1<<31 || i > 1<<31-1 {
			return nil, fmt.Errorf("%d is out of range for Int", i)
		}
		return i, nil

	case "Float":
		switch v.Kind() {
		case reflect.Float32, reflect.Float64:
			return v.Float(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(v.Int()), nil
		}
		return nil, fmt.Errorf("expected a number for Float, got %T", value)

	case "String":
		if v.Kind() != reflect.String {
			return nil, fmt.Errorf("expected a string for String, got %T", value)
		}
		return v.String(), nil

	case "Boolean":
		if v.Kind() != reflect.Bool {
			return nil, fmt.Errorf("expected a bool for Boolean, got %T", value)
		}
		return v.Bool(), nil

	case "ID":
		switch v.Kind() {
		case reflect.String:
			return v.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(v.Int(), 10), nil
		}
		return nil, fmt.Errorf("expected a string or integer for ID, got %T", value)
	}
	return v.Interface(), nil // custom scalar - encoded as is
}

// isNull checks for a nil value including a nil pointer, slice or map stored in the interface
func isNull(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// fieldError makes a GraphQL error for a field, including the location in the query and the path in the result
func (op *gqlOperation) fieldError(err error, astField *ast.Field, path ast.Path) *gqlerror.Error {
	r := &gqlerror.Error{
		Message: err.Error(),
		Path:    path,
	}
	if astField.Position != nil {
		r.Locations = []gqlerror.Location{{Line: astField.Position.Line, Column: astField.Position.Column}}
	}
	var extended resolver.ExtendedError
	if errors.As(err, &extended) {
		r.Extensions = extended.Extensions()
	} else {
		r.Extensions = map[string]interface{}{"code": codeInternal}
	}
	return r
}

func (op *gqlOperation) addError(err *gqlerror.Error) {
	op.mtx.Lock()
	op.errors = append(op.errors, err)
	op.mtx.Unlock()
}

// errorList returns a copy of the errors found so far
func (op *gqlOperation) errorList() gqlerror.List {
	op.mtx.Lock()
	defer op.mtx.Unlock()
	if op.errors == nil {
		return nil
	}
	return append(gqlerror.List(nil), op.errors...)
}

func fieldName(f *ast.Field) string {
	if f.ObjectDefinition != nil {
		return f.ObjectDefinition.Name + "." + f.Name
	}
	return f.Name
}
