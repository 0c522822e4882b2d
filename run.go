package phonebook

// run.go provides the MustRun function for quickly creating a GraphQL http handler

import (
	"net/http"
)

// MustRun creates an http handler that handles GraphQL requests for a new store
// containing the three standard contacts.  It panics if the handler cannot be created.
func MustRun(opts ...func(*options)) http.Handler {
	h, err := New(nil, opts...)
	if err != nil {
		panic(err)
	}
	return h
}
