package phonebook_test

// End-to-end tests (also see low-level tests in the store, resolver, schema and handler packages)

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/RyotaIwahashi/phonebook"
	"github.com/RyotaIwahashi/phonebook/internal/store"
)

type (
	person struct {
		Name    string
		Phone   *string
		ID      string
		Address *struct{ Street, City string }
	}

	response struct {
		Data struct {
			PersonCount int
			AllPersons  []person
			FindPerson  *person
			AddPerson   *person
			EditNumber  *person
		}
		Errors []struct {
			Message    string
			Path       []interface{}
			Extensions map[string]interface{}
		}
	}
)

// send posts a GraphQL request to the server and decodes the response
func send(t *testing.T, url, query string, variables map[string]interface{}) response {
	t.Helper()
	buf, _ := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Error posting request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected response code %d", resp.StatusCode)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("Error decoding response: %v", err)
	}
	return r
}

func names(persons []person) []string {
	r := make([]string, 0, len(persons))
	for _, p := range persons {
		r = append(r, p.Name)
	}
	return r
}

// TestWorkedExample runs the example session: list contacts with a phone, then add one
func TestWorkedExample(t *testing.T) {
	server := httptest.NewServer(phonebook.MustRun())
	defer server.Close()

	r := send(t, server.URL, `{ allPersons(phone: YES) { name } }`, nil)
	if got := names(r.Data.AllPersons); !reflect.DeepEqual(got, []string{"Arto Hellas", "Matti Luukkainen"}) {
		t.Fatalf("Expected Arto Hellas and Matti Luukkainen, got %v", got)
	}

	r = send(t, server.URL, `mutation {
		addPerson(name: "Pekka Mikkola", phone: "045-2374321", street: "Vilppulantie 25", city: "Helsinki") { name phone id }
	}`, nil)
	if r.Errors != nil || r.Data.AddPerson == nil || r.Data.AddPerson.Name != "Pekka Mikkola" || r.Data.AddPerson.ID == "" {
		t.Fatalf("Unexpected addPerson result %+v (errors %v)", r.Data.AddPerson, r.Errors)
	}

	r = send(t, server.URL, `{ personCount }`, nil)
	if r.Data.PersonCount != 4 {
		t.Fatalf("Expected 4 persons, got %d", r.Data.PersonCount)
	}
}

// TestProperties checks properties that should hold for any contents of the store
func TestProperties(t *testing.T) {
	s := store.New(store.WithContacts(store.Seed()...))
	h, err := phonebook.New(s)
	if err != nil {
		t.Fatalf("Error creating handler: %v", err)
	}
	server := httptest.NewServer(h)
	defer server.Close()

	const all = `{ personCount allPersons { name phone id address { street city } } }`
	before := send(t, server.URL, all, nil)
	if before.Data.PersonCount != len(before.Data.AllPersons) {
		t.Errorf("personCount %d != len(allPersons) %d", before.Data.PersonCount, len(before.Data.AllPersons))
	}

	// YES and NO partition all persons (preserving order)
	yes := send(t, server.URL, `{ allPersons(phone: YES) { name } }`, nil)
	no := send(t, server.URL, `{ allPersons(phone: NO) { name } }`, nil)
	if len(yes.Data.AllPersons)+len(no.Data.AllPersons) != before.Data.PersonCount {
		t.Errorf("YES (%d) + NO (%d) != personCount (%d)", len(yes.Data.AllPersons), len(no.Data.AllPersons), before.Data.PersonCount)
	}
	for _, p := range yes.Data.AllPersons {
		for _, q := range no.Data.AllPersons {
			if p.Name == q.Name {
				t.Errorf("%q is in both YES and NO lists", p.Name)
			}
		}
	}

	// findPerson returns the exact same record as allPersons for every name
	for _, p := range before.Data.AllPersons {
		r := send(t, server.URL, `query($n: String!) { findPerson(name: $n) { name phone id address { street city } } }`,
			map[string]interface{}{"n": p.Name})
		if r.Data.FindPerson == nil || !reflect.DeepEqual(*r.Data.FindPerson, p) {
			t.Errorf("findPerson(%q) = %+v, expected %+v", p.Name, r.Data.FindPerson, p)
		}
	}

	// A duplicate add is an error and changes nothing
	dupe := send(t, server.URL, `mutation { addPerson(name: "Venla Ruuska", street: "x", city: "y") { id } }`, nil)
	if dupe.Data.AddPerson != nil || len(dupe.Errors) != 1 {
		t.Fatalf("Expected a null result and one error, got %+v %v", dupe.Data.AddPerson, dupe.Errors)
	}
	expected := map[string]interface{}{"code": "BAD_USER_INPUT", "invalidArgs": "Venla Ruuska"}
	if dupe.Errors[0].Message != "Name must be unique" || !reflect.DeepEqual(dupe.Errors[0].Extensions, expected) {
		t.Errorf("Unexpected error %+v", dupe.Errors[0])
	}
	if s.Count() != before.Data.PersonCount {
		t.Errorf("Store changed by duplicate add: %d contacts", s.Count())
	}

	// A new add increments the count and gets a distinct id
	added := send(t, server.URL, `mutation { addPerson(name: "Venla ruuska", street: "x", city: "y") { id phone } }`, nil)
	if added.Data.AddPerson == nil || added.Data.AddPerson.Phone != nil {
		t.Fatalf("Unexpected addPerson result %+v (errors %v)", added.Data.AddPerson, added.Errors)
	}
	for _, p := range before.Data.AllPersons {
		if p.ID == added.Data.AddPerson.ID {
			t.Errorf("New contact has the same id as %q", p.Name)
		}
	}
	if after := send(t, server.URL, `{ personCount }`, nil); after.Data.PersonCount != before.Data.PersonCount+1 {
		t.Errorf("Expected count %d, got %d", before.Data.PersonCount+1, after.Data.PersonCount)
	}

	// editNumber changes only the phone
	edited := send(t, server.URL, `mutation { editNumber(name: "Matti Luukkainen", phone: "050-1") { name phone id address { street city } } }`, nil)
	want := before.Data.AllPersons[1]
	phone := "050-1"
	want.Phone = &phone
	if edited.Data.EditNumber == nil || !reflect.DeepEqual(*edited.Data.EditNumber, want) {
		t.Errorf("editNumber = %+v, expected %+v", edited.Data.EditNumber, want)
	}
	if r := send(t, server.URL, `mutation { editNumber(name: "Nobody", phone: "1") { id } }`, nil); r.Data.EditNumber != nil || r.Errors != nil {
		t.Errorf("Expected null result and no error for unknown name, got %+v %v", r.Data.EditNumber, r.Errors)
	}
}

func TestSchema(t *testing.T) {
	for _, want := range []string{
		"allPersons(phone: YesNo): [Person!]!",
		"findPerson(name: String!): Person",
		"addPerson(name: String!, phone: String, street: String!, city: String!): Person",
		"editNumber(name: String!, phone: String!): Person",
		"personCount: Int!",
		"enum YesNo",
	} {
		if !strings.Contains(phonebook.Schema(), want) {
			t.Errorf("Expected schema to contain %q", want)
		}
	}
}

func TestOptions(t *testing.T) {
	h, err := phonebook.New(nil, phonebook.NoIntrospection(true), phonebook.NoConcurrency(true))
	if err != nil {
		t.Fatalf("Error creating handler: %v", err)
	}
	request := httptest.NewRequest("POST", "/", strings.NewReader(`{"query":"{ __schema { queryType { name } } }"}`))
	request.Header.Add("Content-Type", "application/json")
	writer := httptest.NewRecorder()
	h.ServeHTTP(writer, request)

	var result struct {
		Data   interface{}
		Errors []struct{ Message string }
	}
	if err := json.NewDecoder(writer.Body).Decode(&result); err != nil {
		t.Fatalf("Error decoding response: %v", err)
	}
	if result.Data != nil || len(result.Errors) != 1 {
		t.Errorf("Expected introspection to be refused, got %v %v", result.Data, result.Errors)
	}
}
