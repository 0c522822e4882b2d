// Package handler implements an HTTP handler to process GraphQL queries and
// mutations given a GraphQL schema and a set of resolvers for it.
package handler

// handler.go implements the handler and its ServeHTTP method

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/RyotaIwahashi/phonebook/internal/resolver"
	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

type (
	// Handler stores the invariants (schema and resolvers) used in the GraphQL requests
	Handler struct {
		schema    *ast.Schema
		resolvers resolver.Set
		log       *zap.Logger

		noIntrospection, noConcurrency             bool
		initialTimeout, pingFrequency, pongTimeout time.Duration
	}

	// requestError is a problem with the HTTP request itself (rather than the GraphQL query)
	requestError struct {
		code int // HTTP status
		err  error
	}
)

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

// New returns an HTTP handler for the schema, where resolvers must have a resolver for every
// field of every object type of the schema (see schema.CheckResolvers).
func New(schema *ast.Schema, resolvers resolver.Set, options ...func(*Handler)) *Handler {
	h := &Handler{
		schema: schema,
	}
	h.SetOptions(options...)

	if h.noIntrospection {
		h.resolvers = resolvers
	} else {
		h.resolvers = resolver.Merge(introspectionResolvers(schema), resolvers)
	}
	return h
}

// ServeHTTP receives a GraphQL query as an HTTP request, executes the
// query (or mutation) and generates an HTTP response or error message
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.serveWS(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	g, err := h.decode(r)
	if err != nil {
		var reqErr *requestError
		code := http.StatusBadRequest
		if errors.As(err, &reqErr) {
			code = reqErr.code
		}
		if code == http.StatusMethodNotAllowed {
			w.Header().Set("Allow", "GET, POST")
		}
		h.log.Debug("bad GraphQL request", zap.Int("status", code), zap.Error(err))
		w.WriteHeader(code)
		buf, _ := json.Marshal(gqlResult{Errors: gqlerror.List{{Message: err.Error()}}})
		_, _ = w.Write(buf)
		return
	}

	// Execute it and write the result or error
	if buf, err := json.Marshal(g.Execute(r.Context())); err != nil {
		h.log.Error("encoding GraphQL response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"data": null,"errors": [{"message": "Error encoding JSON response"}]}`))
	} else {
		_, _ = w.Write(buf)
	}
}

// decode gets the query, operation name and variables from a GET or POST request
func (h *Handler) decode(r *http.Request) (*gqlRequest, error) {
	g := &gqlRequest{h: h}

	switch r.Method {
	case http.MethodGet:
		values := r.URL.Query()
		g.Query = values.Get("query")
		g.OperationName = values.Get("operationName")
		g.queryOnly = true // a GET request must not change anything
		if v := values.Get("variables"); v != "" {
			if err := decodeJSON([]byte(v), &g.Variables); err != nil {
				return nil, &requestError{http.StatusBadRequest, fmt.Errorf("error decoding variables: %w", err)}
			}
		}

	case http.MethodPost:
		contentType := "application/json"
		if raw := r.Header.Get("Content-Type"); raw != "" {
			var err error
			if contentType, _, err = mime.ParseMediaType(raw); err != nil {
				return nil, &requestError{http.StatusUnsupportedMediaType, fmt.Errorf("invalid content type %q", raw)}
			}
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, &requestError{http.StatusBadRequest, fmt.Errorf("error reading request: %w", err)}
		}
		switch contentType {
		case "application/json":
			if err := decodeJSON(body, g); err != nil {
				return nil, &requestError{http.StatusBadRequest, fmt.Errorf("error decoding JSON request: %w", err)}
			}
		case "application/graphql":
			g.Query = string(body)
		default:
			return nil, &requestError{http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", contentType)}
		}

	default:
		return nil, &requestError{http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method)}
	}

	if err := FixNumberVariables(g.Variables); err != nil {
		return nil, &requestError{http.StatusBadRequest, err}
	}
	return g, nil
}

// decodeJSON decodes using json.Number for numbers (see FixNumberVariables)
func decodeJSON(buf []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(buf))
	decoder.UseNumber()
	return decoder.Decode(v)
}

// FixNumberVariables goes through the structure created by the JSON decoder, converting any json.Number values to
// either an int64 or a float64.  This assumes that all the JSON numbers were decoded into a json.Number type, rather
// than int/float, by use of the json.Decode.UseNumber() method.
func FixNumberVariables(m map[string]interface{}) error {
	for key, val := range m {
		v, err := fixNumber(val)
		if err != nil {
			return fmt.Errorf("variable %q: %w", key, err)
		}
		m[key] = v
	}
	return nil
}

func fixNumber(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("invalid number %q", v.String())

	case map[string]interface{}:
		return v, FixNumberVariables(v) // recursively handle nested numbers

	case []interface{}:
		for i := range v {
			var err error
			if v[i], err = fixNumber(v[i]); err != nil {
				return nil, err
			}
		}
	}
	return val, nil
}
