// ABOUTME: Datastore interface, sentinel errors, and the audit capability
// ABOUTME: Backends implement CRUD plus pagination over registered models

package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/2389/modeladmin/metadata"
)

// ErrNotFound is returned when a requested instance does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotRegistered is returned for model names the registry does not know.
var ErrNotRegistered = errors.New("model not registered")

// Ref is a key/label pair used to populate relation select fields.
type Ref struct {
	Key   string
	Label string
}

// Datastore is the persistence abstraction the admin runs against.
// Implementations look models up in a shared metadata registry and
// exchange instances with the form layer.
type Datastore interface {
	// Registry returns the model registry this store serves.
	Registry() *metadata.Registry

	// FindPage returns one page of instances. Pages are 1-based; out
	// of range pages return empty pages, not errors.
	FindPage(ctx context.Context, model string, page, perPage int) (*Pagination, error)

	// Find returns the instance with the given key, or ErrNotFound.
	Find(ctx context.Context, model, key string) (*metadata.Instance, error)

	// Save persists the instance: zero keys get an auto key assigned
	// back onto the instance and insert, preset keys insert or update
	// whichever applies.
	Save(ctx context.Context, model string, inst *metadata.Instance) error

	// Delete removes the instance with the given key, or ErrNotFound.
	Delete(ctx context.Context, model, key string) error

	// ListRefs returns key/label pairs for every instance of the
	// model, for relation choices.
	ListRefs(ctx context.Context, model string) ([]Ref, error)

	Close() error
}

// Action kinds recorded in the audit trail.
const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Action is one recorded admin operation.
type Action struct {
	ID        string
	Action    string
	Model     string
	Key       string
	Summary   string
	CreatedAt time.Time
}

// Auditor is an optional datastore capability. Stores that implement
// it feed the admin index's recent-actions panel.
type Auditor interface {
	RecordAction(ctx context.Context, a *Action) error
	RecentActions(ctx context.Context, limit int) ([]*Action, error)
}

// NormalizePage clamps page and perPage the way every backend should:
// pages are 1-based, page sizes default to 25 and cap at 500.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 25
	}
	if perPage > 500 {
		perPage = 500
	}
	return page, perPage
}
