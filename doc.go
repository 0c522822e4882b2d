// Package phonebook is a GraphQL server for a small phone book of contacts.
//
// Contacts (name, optional phone number, street and city) are kept in memory
// and can be listed, counted, looked up by name, added and have their phone
// number changed.  For example, here is the code for a complete server:
//
//	package main
//
//	import (
//	    "net/http"
//
//	    "github.com/RyotaIwahashi/phonebook"
//	)
//
//	func main() {
//	    http.Handle("/", phonebook.MustRun())
//	    http.ListenAndServe(":4000", nil)
//	}
//
// which can be sent a query like this:
//
//	{
//	    allPersons(phone: YES) { name phone }
//	}
//
// returning this JSON:
//
//	{
//	    "data": {
//	        "allPersons": [
//	            { "name": "Arto Hellas", "phone": "040-123543" },
//	            { "name": "Matti Luukkainen", "phone": "040-432342" }
//	        ]
//	    }
//	}
//
// The cmd/phonebook command runs the server (and a simple client) using a
// configuration file.
package phonebook
