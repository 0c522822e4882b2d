// Package resolver declares how GraphQL fields are resolved.  A Set maps every
// field of every object type in the schema to a Func - there is no implicit
// resolution of a field from a same-named Go struct field or map entry.
package resolver

import (
	"context"
	"fmt"
)

type (
	// Params is what a resolver function gets to work with
	Params struct {
		Source interface{}            // value of the parent object (nil for root query/mutation fields)
		Args   map[string]interface{} // argument values (after defaults and variables are applied)
	}

	// Func resolves the value of one field.  For an object (or list of objects) the returned value is
	// the Source of the resolvers of the (nested) selections. A nil value (or nil pointer) gives a null result.
	Func func(ctx context.Context, p Params) (interface{}, error)

	// Set holds resolvers indexed by object type name then field name
	Set map[string]map[string]Func

	// ExtendedError is an error that has extra info (such as a machine-readable error code) to
	// be returned in the "extensions" of the GraphQL error
	ExtendedError interface {
		error
		Extensions() map[string]interface{}
	}

	// TypeNamer is implemented by values resolved for an interface or union type, to say which object type they are
	TypeNamer interface {
		TypeName() string
	}

	// InputError is returned by a resolver when an argument value is not acceptable
	InputError struct {
		Message     string
		InvalidArgs interface{} // the offending argument value(s)
		Err         error       // underlying cause (optional)
	}
)

// CodeBadUserInput is the "code" extension of an InputError
const CodeBadUserInput = "BAD_USER_INPUT"

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Extensions() map[string]interface{} {
	return map[string]interface{}{
		"code":        CodeBadUserInput,
		"invalidArgs": e.InvalidArgs,
	}
}

// Lookup returns the resolver for a field of an object type (or nil if there is none)
func (s Set) Lookup(typeName, fieldName string) Func {
	return s[typeName][fieldName]
}

// Merge returns a new Set with all the resolvers of the sets - if the same field appears in more
// than one set the last one wins
func Merge(sets ...Set) Set {
	r := make(Set)
	for _, set := range sets {
		for typeName, fields := range set {
			if r[typeName] == nil {
				r[typeName] = make(map[string]Func, len(fields))
			}
			for fieldName, f := range fields {
				r[typeName][fieldName] = f
			}
		}
	}
	return r
}

// StringArg gets the value of a string argument.  The bool return is false if the arg
// was not supplied or is null.
func StringArg(args map[string]interface{}, name string) (string, bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("argument %q: expected a string, got %T", name, v)
	}
	return s, true, nil
}

// BoolArg gets a Boolean argument, returning false if it was not supplied
func BoolArg(args map[string]interface{}, name string) (bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q: expected a Boolean, got %T", name, v)
	}
	return b, nil
}
