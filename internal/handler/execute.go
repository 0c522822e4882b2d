package handler

// execute.go handles the execution of a GraphQL request

import (
	"context"
	"time"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	"go.uber.org/zap"
)

// Error codes (in the "code" extension of GraphQL errors) for problems found before resolvers are run
const (
	codeParseFailed      = "GRAPHQL_PARSE_FAILED"
	codeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
	codeBadUserInput     = "BAD_USER_INPUT"
	codeBadRequest       = "BAD_REQUEST"
	codeInternal         = "INTERNAL_SERVER_ERROR"
)

type (
	// gqlRequest decodes and handles each GraphQL request
	gqlRequest struct {
		h         *Handler
		queryOnly bool // mutations not allowed (eg GET request)

		// These are decoded from the http request body (JSON)
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
		Extensions    map[string]interface{} `json:"extensions"`
	}

	// gqlResult contains the result (or errors) of the request to be encoded in JSON
	gqlResult struct {
		Data   interface{}   `json:"data"` // jsonmap.Ordered or nil
		Errors gqlerror.List `json:"errors,omitempty"`

		executed bool // false if the request failed before any resolvers were run
	}
)

// Execute parses, validates and runs the request and returns the result
func (g *gqlRequest) Execute(ctx context.Context) (r gqlResult) {
	start := time.Now()
	defer func() {
		g.h.log.Debug("GraphQL request",
			zap.String("operationName", g.OperationName),
			zap.Bool("executed", r.executed),
			zap.Int("errors", len(r.Errors)),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	// First analyse and validate the query string
	query, pgqlError := parser.ParseQuery(&ast.Source{
		Name:  "query",
		Input: g.Query,
	})
	if pgqlError != nil {
		r.Errors = withCode(gqlerror.List{pgqlError}, codeParseFailed)
		return
	}
	if errs := validator.Validate(g.h.schema, query); len(errs) > 0 {
		r.Errors = withCode(errs, codeValidationFailed)
		return
	}

	operation := query.Operations.ForName(g.OperationName)
	if operation == nil {
		msg := "Unknown operation named \"" + g.OperationName + "\"."
		if g.OperationName == "" {
			if len(query.Operations) == 0 {
				msg = "No operation found in the request."
			} else {
				msg = "Must provide operation name if query contains multiple operations."
			}
		}
		r.Errors = withCode(gqlerror.List{{Message: msg}}, codeBadRequest)
		return
	}

	op := &gqlOperation{Handler: g.h}

	// Get variables (checked against the types declared in the operation and with defaults applied)
	var varError *gqlerror.Error
	if op.variables, varError = validator.VariableValues(g.h.schema, operation, g.Variables); varError != nil {
		r.Errors = withCode(gqlerror.List{varError}, codeBadUserInput)
		return
	}

	var root *ast.Definition
	switch operation.Operation {
	case ast.Query:
		root = g.h.schema.Query
	case ast.Mutation:
		if g.queryOnly {
			r.Errors = withCode(gqlerror.List{{Message: "Mutations are only allowed in POST requests."}}, codeBadRequest)
			return
		}
		op.isMutation = true
		root = g.h.schema.Mutation
	case ast.Subscription:
		r.Errors = withCode(gqlerror.List{{Message: "Subscriptions are not supported."}}, codeBadRequest)
		return
	}
	if root == nil {
		r.Errors = withCode(gqlerror.List{{Message: "Schema does not support " + string(operation.Operation) + " operations."}}, codeBadRequest)
		return
	}

	r.executed = true
	if data, ok := op.GetSelections(ctx, operation.SelectionSet, root, nil, nil); ok {
		r.Data = data
	}
	r.Errors = op.errorList()
	return
}

// withCode adds a "code" extension to errors that don't already have one
func withCode(errs gqlerror.List, code string) gqlerror.List {
	for _, err := range errs {
		if err.Extensions == nil {
			err.Extensions = make(map[string]interface{}, 1)
		}
		if _, ok := err.Extensions["code"]; !ok {
			err.Extensions["code"] = code
		}
	}
	return errs
}
