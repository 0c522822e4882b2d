// Package schema has the GraphQL schema of the phone book.  The schema text is the
// contract with clients, so it is kept as a GraphQL document (schema.graphql) rather
// than generated, and is parsed/validated with gqlparser when the server starts.
package schema

// schema.go contains the exported functions - SDL, Load and MustLoad

import (
	_ "embed"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

//go:embed schema.graphql
var sdl string

// SDL returns the text of the schema (GraphQL schema definition language)
func SDL() string {
	return sdl
}

// Load parses and validates the phone book schema (plus any extra schema documents)
func Load(extra ...string) (*ast.Schema, *gqlerror.Error) {
	sources := []*ast.Source{{Name: "schema.graphql", Input: sdl}}
	for _, s := range extra {
		sources = append(sources, &ast.Source{Name: "extra", Input: s})
	}
	return gqlparser.LoadSchema(sources...)
}

// MustLoad is the same as Load but panics on error
func MustLoad(extra ...string) *ast.Schema {
	s, err := Load(extra...)
	if err != nil {
		panic("phonebook schema: " + err.Message)
	}
	return s
}
