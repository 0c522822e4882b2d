package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/RyotaIwahashi/phonebook/internal/resolver"
	"github.com/RyotaIwahashi/phonebook/internal/store"
	"github.com/google/go-cmp/cmp"
)

func newSet() (resolver.Set, *store.Store) {
	s := store.New(store.WithContacts(store.Seed()...))
	return resolver.Contacts(s), s
}

func call(t *testing.T, set resolver.Set, typeName, fieldName string, source interface{}, args map[string]interface{}) (interface{}, error) {
	t.Helper()
	f := set.Lookup(typeName, fieldName)
	if f == nil {
		t.Fatalf("no resolver for %s.%s", typeName, fieldName)
	}
	return f(context.Background(), resolver.Params{Source: source, Args: args})
}

func TestPersonCount(t *testing.T) {
	set, _ := newSet()
	v, err := call(t, set, "Query", "personCount", nil, nil)
	if err != nil || v != 3 {
		t.Errorf("expected 3, got %v (error %v)", v, err)
	}
}

func TestAllPersons(t *testing.T) {
	tests := map[string]struct {
		args     map[string]interface{}
		expected []string
	}{
		"NoArg":   {nil, []string{"Arto Hellas", "Matti Luukkainen", "Venla Ruuska"}},
		"NullArg": {map[string]interface{}{"phone": nil}, []string{"Arto Hellas", "Matti Luukkainen", "Venla Ruuska"}},
		"Yes":     {map[string]interface{}{"phone": "YES"}, []string{"Arto Hellas", "Matti Luukkainen"}},
		"No":      {map[string]interface{}{"phone": "NO"}, []string{"Venla Ruuska"}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			set, _ := newSet()
			v, err := call(t, set, "Query", "allPersons", nil, test.args)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			var got []string
			for _, c := range v.([]store.Contact) {
				got = append(got, c.Name)
			}
			if diff := cmp.Diff(test.expected, got); diff != "" {
				t.Errorf("allPersons mismatch (-want +got):\n%s", diff)
			}
		})
	}

	set, _ := newSet()
	if _, err := call(t, set, "Query", "allPersons", nil, map[string]interface{}{"phone": "MAYBE"}); err == nil {
		t.Error("expected error for invalid enum value")
	}
}

func TestFindPerson(t *testing.T) {
	set, _ := newSet()
	v, err := call(t, set, "Query", "findPerson", nil, map[string]interface{}{"name": "Venla Ruuska"})
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := v.(store.Contact); !ok || c.ID != "3d599471-3436-11e9-bc57-8b80ba54c431" {
		t.Errorf("unexpected result %#v", v)
	}

	v, err = call(t, set, "Query", "findPerson", nil, map[string]interface{}{"name": "Nobody"})
	if err != nil || v != nil {
		t.Errorf("expected nil result for unknown name, got %v (error %v)", v, err)
	}
}

func TestPersonFields(t *testing.T) {
	set, _ := newSet()
	arto := store.Seed()[0]
	venla := store.Seed()[2]

	tests := map[string]struct {
		typeName, fieldName string
		source              interface{}
		expected            interface{}
	}{
		"Name":    {"Person", "name", arto, "Arto Hellas"},
		"Phone":   {"Person", "phone", arto, "040-123543"},
		"NoPhone": {"Person", "phone", venla, nil},
		"ID":      {"Person", "id", &arto, "3d594650-3436-11e9-bc57-8b80ba54c431"},
		"Address": {"Person", "address", arto, resolver.Address{Street: "Tapiolankatu 5 A", City: "Espoo"}},
		"Street":  {"Address", "street", resolver.Address{Street: "Malminkaari 10 A", City: "Helsinki"}, "Malminkaari 10 A"},
		"City":    {"Address", "city", resolver.Address{Street: "Malminkaari 10 A", City: "Helsinki"}, "Helsinki"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := call(t, set, test.typeName, test.fieldName, test.source, nil)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.expected, v); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := call(t, set, "Person", "name", "not a person", nil); err == nil {
		t.Error("expected error for wrong source type")
	}
}

func TestAddPerson(t *testing.T) {
	set, s := newSet()
	args := map[string]interface{}{
		"name":   "Pekka Mikkola",
		"phone":  "045-2374321",
		"street": "Vilppulantie 25",
		"city":   "Helsinki",
	}
	v, err := call(t, set, "Mutation", "addPerson", nil, args)
	if err != nil {
		t.Fatal(err)
	}
	c := v.(store.Contact)
	if c.Name != "Pekka Mikkola" || c.Phone == nil || *c.Phone != "045-2374321" || c.Street != "Vilppulantie 25" || c.City != "Helsinki" {
		t.Errorf("unexpected contact %+v", c)
	}
	if c.ID == "" || s.Count() != 4 {
		t.Errorf("expected new ID and count 4, got %q and %d", c.ID, s.Count())
	}

	// phone is optional
	v, err = call(t, set, "Mutation", "addPerson", nil, map[string]interface{}{"name": "No Phone", "street": "s", "city": "c"})
	if err != nil {
		t.Fatal(err)
	}
	if v.(store.Contact).Phone != nil {
		t.Errorf("expected no phone")
	}
}

func TestAddPersonDuplicate(t *testing.T) {
	set, s := newSet()
	_, err := call(t, set, "Mutation", "addPerson", nil, map[string]interface{}{
		"name": "Matti Luukkainen", "street": "s", "city": "c",
	})
	var inputErr *resolver.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
	want := map[string]interface{}{"code": "BAD_USER_INPUT", "invalidArgs": "Matti Luukkainen"}
	if diff := cmp.Diff(want, inputErr.Extensions()); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, store.ErrDuplicateName) {
		t.Error("expected error to wrap ErrDuplicateName")
	}
	if s.Count() != 3 {
		t.Errorf("store changed: count %d", s.Count())
	}
}

func TestEditNumber(t *testing.T) {
	set, _ := newSet()
	v, err := call(t, set, "Mutation", "editNumber", nil, map[string]interface{}{"name": "Arto Hellas", "phone": "040-999"})
	if err != nil {
		t.Fatal(err)
	}
	c := v.(store.Contact)
	if *c.Phone != "040-999" || c.ID != "3d594650-3436-11e9-bc57-8b80ba54c431" || c.Street != "Tapiolankatu 5 A" {
		t.Errorf("unexpected contact %+v", c)
	}

	v, err = call(t, set, "Mutation", "editNumber", nil, map[string]interface{}{"name": "Nobody", "phone": "1"})
	if err != nil || v != nil {
		t.Errorf("expected nil for unknown name, got %v (error %v)", v, err)
	}
}

func TestMerge(t *testing.T) {
	a := resolver.Set{"Query": {"x": nil, "y": nil}}
	f := func(context.Context, resolver.Params) (interface{}, error) { return 1, nil }
	b := resolver.Set{"Query": {"y": f}, "Other": {"z": f}}

	m := resolver.Merge(a, b)
	if _, ok := m["Query"]["x"]; !ok {
		t.Error("Merge lost Query.x")
	}
	if m.Lookup("Query", "y") == nil || m.Lookup("Other", "z") == nil {
		t.Error("Merge did not take resolvers from the last set")
	}
	if len(a["Query"]) != 2 || a["Other"] != nil {
		t.Error("Merge modified its input")
	}
}
