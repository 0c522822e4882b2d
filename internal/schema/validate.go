package schema

// validate.go checks that a resolver set matches the schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RyotaIwahashi/phonebook/internal/resolver"
	"github.com/vektah/gqlparser/v2/ast"
)

// CheckResolvers makes sure that every field of every (non built-in) object type in the schema
// has a resolver, and that there are no resolvers for types or fields that don't exist.
// Introspection fields (starting with a double underscore) are handled by the executor.
func CheckResolvers(s *ast.Schema, set resolver.Set) error {
	var problems []string

	for _, def := range s.Types {
		if def.Kind != ast.Object || def.BuiltIn || strings.HasPrefix(def.Name, "__") {
			continue
		}
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			if set.Lookup(def.Name, f.Name) == nil {
				problems = append(problems, fmt.Sprintf("no resolver for %s.%s", def.Name, f.Name))
			}
		}
	}

	for typeName, fields := range set {
		if strings.HasPrefix(typeName, "__") {
			continue
		}
		def := s.Types[typeName]
		if def == nil || def.Kind != ast.Object {
			problems = append(problems, fmt.Sprintf("resolvers given for %q which is not an object type", typeName))
			continue
		}
		for fieldName := range fields {
			if def.Fields.ForName(fieldName) == nil {
				problems = append(problems, fmt.Sprintf("resolver given for unknown field %s.%s", typeName, fieldName))
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems) // map iteration order is random
		return fmt.Errorf("schema and resolvers do not match: %s", strings.Join(problems, "; "))
	}
	return nil
}
