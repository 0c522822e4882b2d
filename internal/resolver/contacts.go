package resolver

// contacts.go has the resolvers of the phone book schema (Query, Mutation, Person and Address)

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyotaIwahashi/phonebook/internal/store"
)

// Address is the value resolved for Person.address - it is made from the contact's street and city
// when it is read, and is not stored
type Address struct {
	Street string
	City   string
}

type contacts struct {
	store *store.Store
}

// Contacts returns the resolvers for the phone book (all fields of all object types) using the store
func Contacts(s *store.Store) Set {
	c := contacts{store: s}
	return Set{
		"Query": {
			"personCount": c.personCount,
			"allPersons":  c.allPersons,
			"findPerson":  c.findPerson,
		},
		"Mutation": {
			"addPerson":  c.addPerson,
			"editNumber": c.editNumber,
		},
		"Person": {
			"name": personField(func(p store.Contact) interface{} { return p.Name }),
			"phone": personField(func(p store.Contact) interface{} {
				if p.Phone == nil {
					return nil
				}
				return *p.Phone
			}),
			"address": personField(func(p store.Contact) interface{} { return Address{Street: p.Street, City: p.City} }),
			"id":      personField(func(p store.Contact) interface{} { return p.ID }),
		},
		"Address": {
			"street": addressField(func(a Address) interface{} { return a.Street }),
			"city":   addressField(func(a Address) interface{} { return a.City }),
		},
	}
}

func (c contacts) personCount(context.Context, Params) (interface{}, error) {
	return c.store.Count(), nil
}

func (c contacts) allPersons(_ context.Context, p Params) (interface{}, error) {
	yesNo, ok, err := StringArg(p.Args, "phone")
	if err != nil {
		return nil, err
	}
	filter := store.AnyPhone
	if ok {
		switch yesNo {
		case "YES":
			filter = store.WithPhone
		case "NO":
			filter = store.WithoutPhone
		default:
			return nil, fmt.Errorf("invalid YesNo value %q", yesNo)
		}
	}
	return c.store.All(filter), nil
}

func (c contacts) findPerson(_ context.Context, p Params) (interface{}, error) {
	name, _, err := StringArg(p.Args, "name")
	if err != nil {
		return nil, err
	}
	if person, ok := c.store.FindByName(name); ok {
		return person, nil
	}
	return nil, nil
}

func (c contacts) addPerson(_ context.Context, p Params) (interface{}, error) {
	var in store.NewContact
	var err error
	if in.Name, _, err = StringArg(p.Args, "name"); err != nil {
		return nil, err
	}
	if phone, ok, err := StringArg(p.Args, "phone"); err != nil {
		return nil, err
	} else if ok {
		in.Phone = &phone
	}
	if in.Street, _, err = StringArg(p.Args, "street"); err != nil {
		return nil, err
	}
	if in.City, _, err = StringArg(p.Args, "city"); err != nil {
		return nil, err
	}

	person, err := c.store.Add(in)
	if err != nil {
		var dupe *store.DuplicateNameError
		if errors.As(err, &dupe) {
			return nil, &InputError{Message: "Name must be unique", InvalidArgs: dupe.Name, Err: err}
		}
		return nil, err
	}
	return person, nil
}

func (c contacts) editNumber(_ context.Context, p Params) (interface{}, error) {
	name, _, err := StringArg(p.Args, "name")
	if err != nil {
		return nil, err
	}
	phone, _, err := StringArg(p.Args, "phone")
	if err != nil {
		return nil, err
	}
	if person, ok := c.store.UpdatePhone(name, phone); ok {
		return person, nil
	}
	return nil, nil
}

// personField makes a resolver for a field of Person from a function that gets the value from a contact
func personField(get func(store.Contact) interface{}) Func {
	return func(_ context.Context, p Params) (interface{}, error) {
		switch c := p.Source.(type) {
		case store.Contact:
			return get(c), nil
		case *store.Contact:
			return get(*c), nil
		}
		return nil, fmt.Errorf("person resolver: unexpected source %T", p.Source)
	}
}

func addressField(get func(Address) interface{}) Func {
	return func(_ context.Context, p Params) (interface{}, error) {
		a, ok := p.Source.(Address)
		if !ok {
			return nil, fmt.Errorf("address resolver: unexpected source %T", p.Source)
		}
		return get(a), nil
	}
}
