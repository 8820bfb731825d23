// Package datastore defines the persistence abstraction the admin
// interface runs against.
//
// A Datastore serves CRUD and pagination for every model in a
// metadata.Registry. Three implementations ship with this module:
//
//   - sqlstore: database/sql against SQLite or PostgreSQL
//   - mongostore: a document store over the MongoDB driver
//   - Memory: an in-process store for tests and prototyping
//
// Stores that also implement Auditor record add/edit/delete actions;
// the admin index shows the most recent ones when the capability is
// present.
//
// Lookup failures use sentinel errors: check with errors.Is against
// ErrNotFound and ErrNotRegistered.
package datastore
