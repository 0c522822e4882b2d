// Package store holds the contact records served by the GraphQL resolvers.
// A Store lives only as long as the process (nothing is persisted) and is
// safe for use by concurrent requests.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type (
	// Contact is a person in the phone book.  Phone is nil if no number is known.
	Contact struct {
		ID     string
		Name   string
		Phone  *string
		Street string
		City   string
	}

	// NewContact has the fields supplied when a contact is created (the ID is generated)
	NewContact struct {
		Name   string
		Phone  *string
		Street string
		City   string
	}

	// PhoneFilter selects contacts by whether they have a phone number
	PhoneFilter int

	// Store is an in-memory list of contacts kept in insertion order
	Store struct {
		mtx      sync.RWMutex
		contacts []Contact
		newID    func() string
	}

	// Option configures a Store created with New
	Option func(*Store)
)

const (
	AnyPhone     PhoneFilter = iota // all contacts
	WithPhone                       // only contacts with a phone number
	WithoutPhone                    // only contacts without a phone number
)

// ErrDuplicateName is matched (using errors.Is) by the error returned from Add
// when a contact with the same name already exists.
var ErrDuplicateName = errors.New("duplicate name")

// DuplicateNameError is returned by Add, and carries the offending name
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("contact %q already exists", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// HasPhone reports whether the contact has a (non-empty) phone number
func (c Contact) HasPhone() bool {
	return c.Phone != nil && *c.Phone != ""
}

// New creates an empty store (use WithContacts(Seed()...) for the standard data)
func New(options ...Option) *Store {
	s := &Store{
		newID: uuid.NewString,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// WithContacts adds initial contacts to the store (their IDs are used as is)
func WithContacts(contacts ...Contact) Option {
	return func(s *Store) {
		s.contacts = append(s.contacts, contacts...)
	}
}

// WithIDGenerator replaces the function used to generate the ID of a new contact
func WithIDGenerator(f func() string) Option {
	return func(s *Store) {
		s.newID = f
	}
}

// Count returns the number of contacts
func (s *Store) Count() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.contacts)
}

// All returns (copies of) the contacts selected by the filter in the order they were added
func (s *Store) All(filter PhoneFilter) []Contact {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	r := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		switch {
		case filter == WithPhone && !c.HasPhone():
			continue
		case filter == WithoutPhone && c.HasPhone():
			continue
		}
		r = append(r, c)
	}
	return r
}

// FindByName returns the first contact with exactly the given name
func (s *Store) FindByName(name string) (Contact, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if i := s.index(name); i >= 0 {
		return s.contacts[i], true
	}
	return Contact{}, false
}

// Add creates a contact with a new unique ID.  It returns a *DuplicateNameError
// (and leaves the store unchanged) if a contact with the name already exists.
func (s *Store) Add(in NewContact) (Contact, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.index(in.Name) >= 0 {
		return Contact{}, &DuplicateNameError{Name: in.Name}
	}
	c := Contact{
		ID:     s.uniqueID(),
		Name:   in.Name,
		Phone:  in.Phone,
		Street: in.Street,
		City:   in.City,
	}
	s.contacts = append(s.contacts, c)
	return c, nil
}

// UpdatePhone replaces the phone number of the named contact, returning false if there is no such contact
func (s *Store) UpdatePhone(name, phone string) (Contact, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	i := s.index(name)
	if i < 0 {
		return Contact{}, false
	}
	s.contacts[i].Phone = &phone
	return s.contacts[i], true
}

// index returns the position of the first contact called name or -1 (caller must hold the lock)
func (s *Store) index(name string) int {
	for i := range s.contacts {
		if s.contacts[i].Name == name {
			return i
		}
	}
	return -1
}

// uniqueID gets a new ID, trying again if it happens to clash with an existing contact (caller must hold the lock)
func (s *Store) uniqueID() string {
	for {
		ID := s.newID()
		clash := false
		for i := range s.contacts {
			if s.contacts[i].ID == ID {
				clash = true
				break
			}
		}
		if ID != "" && !clash {
			return ID
		}
	}
}
