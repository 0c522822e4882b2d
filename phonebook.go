package phonebook

// phonebook.go provides New for generating the GraphQL HTTP handler of a contact store

import (
	"fmt"
	"net/http"

	"github.com/RyotaIwahashi/phonebook/internal/handler"
	"github.com/RyotaIwahashi/phonebook/internal/resolver"
	"github.com/RyotaIwahashi/phonebook/internal/schema"
	"github.com/RyotaIwahashi/phonebook/internal/store"
)

// New returns the HTTP handler that handles GraphQL queries and mutations of the contacts in s.
// If s is nil a new store containing the standard three contacts is used.
func New(s *store.Store, opts ...func(*options)) (http.Handler, error) {
	if s == nil {
		s = store.New(store.WithContacts(store.Seed()...))
	}
	astSchema, gqlErr := schema.Load()
	if gqlErr != nil {
		return nil, fmt.Errorf("loading schema: %w", gqlErr)
	}
	resolvers := resolver.Contacts(s)
	if err := schema.CheckResolvers(astSchema, resolvers); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	return handler.New(astSchema, resolvers,
		handler.Logger(opt.log),
		handler.NoIntrospection(opt.noIntrospection),
		handler.NoConcurrency(opt.noConcurrency),
		handler.InitialTimeout(opt.initialTimeout),
		handler.PingFrequency(opt.pingFrequency),
		handler.PongTimeout(opt.pongTimeout),
	), nil
}

// Schema returns the GraphQL schema (SDL) served by the handler
func Schema() string {
	return schema.SDL()
}
