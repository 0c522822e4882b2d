package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/RyotaIwahashi/phonebook/internal/handler"
	"github.com/RyotaIwahashi/phonebook/internal/resolver"
	"github.com/RyotaIwahashi/phonebook/internal/schema"
	"github.com/RyotaIwahashi/phonebook/internal/store"
)

// errorData is for testing GraphQL error responses returned for a bad query or a resolver error
var errorData = map[string]struct {
	query     string                 // GraphQL query to send to the handler (query syntax)
	variables map[string]interface{} // variables sent with the query

	expData  string // expected "data" (JSON) or empty if there should be no data
	expError string // expected message of the first error
	expCode  string // expected "code" extension of the first error (if not empty)
}{
	"QueryError":    {`x`, nil, "", `Unexpected Name "x"`, "GRAPHQL_PARSE_FAILED"},
	"UnknownQuery":  {`{ unknown }`, nil, "", `Cannot query field "unknown" on type "Query".`, "GRAPHQL_VALIDATION_FAILED"},
	"BadEnum":       {`{ allPersons(phone: MAYBE) { name } }`, nil, "", "", "GRAPHQL_VALIDATION_FAILED"},
	"MissingArg":    {`{ findPerson { name } }`, nil, "", "", "GRAPHQL_VALIDATION_FAILED"},
	"NoSelection":   {`{ findPerson(name: "Arto Hellas") }`, nil, "", "", "GRAPHQL_VALIDATION_FAILED"},
	"MissingVar":    {`query($n: String!) { findPerson(name: $n) { name } }`, nil, "", "", "BAD_USER_INPUT"},
	"BadVarEnum":    {`query($p: YesNo) { allPersons(phone: $p) { name } }`, map[string]interface{}{"p": "MAYBE"}, "", "", "BAD_USER_INPUT"},
	"NoOperation":   {``, nil, "", "No operation found in the request.", "BAD_REQUEST"},
	"Multiple":      {`query A { personCount } query B { personCount }`, nil, "", "Must provide operation name if query contains multiple operations.", "BAD_REQUEST"},
	"DuplicateName": {`mutation { addPerson(name: "Arto Hellas", street: "s", city: "c") { id } }`, nil, `{"addPerson": null}`, "Name must be unique", "BAD_USER_INPUT"},
}

func TestErrors(t *testing.T) {
	for name, testData := range errorData {
		h, _ := newHandler()
		writer := post(h, testData.query, testData.variables)

		// All of these tests should give status OK
		if writer.Result().StatusCode != http.StatusOK {
			t.Logf("%12s: Unexpected response code %d", name, writer.Code)
			t.Fail()
			continue
		}
		result := decodeResponse(t, writer)

		// Check that the resulting GraphQL result (error and data)
		if testData.expData == "" {
			Assertf(t, result.Data == nil, "%12s: Expected no data and got %v", name, result.Data)
		} else {
			Assertf(t, result.Data != nil, "%12s: Expected data and got none", name)
		}
		if len(result.Errors) == 0 {
			t.Errorf("%12s: Expected an error", name)
			continue
		}
		if testData.expError != "" {
			Assertf(t, result.Errors[0].Message == testData.expError, "%12s: Expected error %q, got %q", name, testData.expError, result.Errors[0].Message)
		}
		Assertf(t, testData.expCode == "" || result.Errors[0].Extensions["code"] == testData.expCode, "%12s: Expected code %q, got %v", name, testData.expCode, result.Errors[0].Extensions)
	}
}

func TestDuplicateNameError(t *testing.T) {
	h, s := newHandler()
	result := decodeResponse(t, post(h, `mutation { addPerson(name: "Matti Luukkainen", street: "s", city: "c") { id } }`, nil))

	if len(result.Errors) != 1 {
		t.Fatalf("Expected one error, got %v", result.Errors)
	}
	err := result.Errors[0]
	expected := JsonObject{"code": "BAD_USER_INPUT", "invalidArgs": "Matti Luukkainen"}
	Assertf(t, err.Message == "Name must be unique", "Expected message %q, got %q", "Name must be unique", err.Message)
	Assertf(t, reflect.DeepEqual(err.Extensions, expected), "Expected extensions %v, got %v", expected, err.Extensions)
	Assertf(t, reflect.DeepEqual(err.Path, []interface{}{"addPerson"}), "Expected path [addPerson], got %v", err.Path)
	Assertf(t, len(err.Locations) == 1 && err.Locations[0].Line == 1 && err.Locations[0].Column == 12,
		"Expected location 1:12, got %v", err.Locations)
	Assertf(t, s.Count() == 3, "Expected the store to be unchanged, got %d contacts", s.Count())
}

// TestNonNullPropagation checks that an error in a non-nullable field makes the nearest nullable parent null
func TestNonNullPropagation(t *testing.T) {
	s := store.New(store.WithContacts(store.Seed()...))
	resolvers := resolver.Contacts(s)
	resolvers["Address"]["city"] = func(context.Context, resolver.Params) (interface{}, error) {
		return nil, errors.New("no city")
	}
	h := handler.New(schema.MustLoad(), resolvers)

	tests := map[string]struct {
		query    string
		expected interface{}
	}{
		"Nullable":  {`{ personCount findPerson(name: "Arto Hellas") { name address { city } } }`, JsonObject{"personCount": 3.0, "findPerson": nil}},
		"ListItem":  {`{ personCount allPersons { address { city } } }`, nil},
		"Unrelated": {`{ personCount findPerson(name: "Arto Hellas") { name } }`, JsonObject{"personCount": 3.0, "findPerson": JsonObject{"name": "Arto Hellas"}}},
	}
	for name, test := range tests {
		result := decodeResponse(t, post(h, test.query, nil))
		Assertf(t, reflect.DeepEqual(result.Data, test.expected), "%12s: Expected %v, got %v", name, test.expected, result.Data)
		if name != "Unrelated" {
			if len(result.Errors) == 0 {
				t.Errorf("%12s: Expected an error", name)
				continue
			}
			Assertf(t, result.Errors[0].Message == "no city", "%12s: Expected resolver error, got %v", name, result.Errors)
			Assertf(t, result.Errors[0].Extensions["code"] == "INTERNAL_SERVER_ERROR", "%12s: Expected internal error code, got %v",
				name, result.Errors[0].Extensions)
		}
	}
}

// TestPanic checks that a panic in a resolver is returned as an error
func TestPanic(t *testing.T) {
	s := store.New()
	resolvers := resolver.Contacts(s)
	resolvers["Query"]["personCount"] = func(context.Context, resolver.Params) (interface{}, error) {
		panic("oops")
	}
	h := handler.New(schema.MustLoad(), resolvers, handler.NoConcurrency(true))

	result := decodeResponse(t, post(h, `{ personCount }`, nil))
	Assertf(t, result.Data == nil, "Expected no data, got %v", result.Data)
	Assertf(t, len(result.Errors) == 1 && result.Errors[0].Message == "internal error: panic oops",
		"Expected panic error, got %v", result.Errors)
}

// TestCancelled checks that a request whose context expires while a resolver is still running
// waits for the resolver, so that its error is reported along with the context error
func TestCancelled(t *testing.T) {
	s := store.New()
	resolvers := resolver.Contacts(s)
	resolvers["Query"]["personCount"] = func(context.Context, resolver.Params) (interface{}, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, errors.New("count too slow")
	}
	h := handler.New(schema.MustLoad(), resolvers)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	request := httptest.NewRequest("POST", "/", strings.NewReader(`{"query":"{ personCount }"}`)).WithContext(ctx)
	request.Header.Add("Content-Type", "application/json")
	writer := httptest.NewRecorder()
	h.ServeHTTP(writer, request)

	result := decodeResponse(t, writer)
	Assertf(t, result.Data == nil, "Expected no data, got %v", result.Data)
	messages := make(map[string]bool)
	for _, e := range result.Errors {
		messages[e.Message] = true
	}
	Assertf(t, len(result.Errors) == 2 && messages["count too slow"] && messages[context.DeadlineExceeded.Error()],
		"Expected resolver and deadline errors, got %v", result.Errors)
}

// TestIntrospectionOff checks that introspection queries fail when turned off (but __typename still works)
func TestIntrospectionOff(t *testing.T) {
	h, _ := newHandler(handler.NoIntrospection(true))

	result := decodeResponse(t, post(h, `{ __schema { queryType { name } } }`, nil))
	Assertf(t, result.Data == nil, "Expected no data, got %v", result.Data)
	Assertf(t, len(result.Errors) == 1 && result.Errors[0].Message == "GraphQL introspection is not allowed",
		"Expected introspection error, got %v", result.Errors)

	result = decodeResponse(t, post(h, `{ __typename }`, nil))
	Assertf(t, reflect.DeepEqual(result.Data, JsonObject{"__typename": "Query"}), "Expected __typename, got %v", result.Data)
}
