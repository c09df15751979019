package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/hbnb/internal/config"
	"github.com/roach88/hbnb/internal/model"
)

// Backend is the contract every durable store implements.
//
// Entities handed in and out are copies: a caller mutating a returned entity
// changes nothing until it passes the entity back through New.
type Backend interface {
	// All returns every entity of kind keyed by id, or every entity of every
	// kind when kind is empty. It never mutates.
	All(ctx context.Context, kind model.Kind) (map[string]model.Entity, error)

	// Get returns the entity, or (nil, nil) when id does not exist for kind.
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)

	// New stages e for insertion or replacement. Nothing is durable until Save.
	New(ctx context.Context, e model.Entity) error

	// Save makes every staged change durable, atomically.
	Save(ctx context.Context) error

	// Delete stages removal of e. Deleting an absent entity is a no-op.
	Delete(ctx context.Context, e model.Entity) error

	// Count returns the number of entities of kind, or of all kinds when
	// kind is empty.
	Count(ctx context.Context, kind model.Kind) (int, error)

	// Reload discards staged changes and repopulates from durable state.
	// Missing durable state yields empty tables.
	Reload(ctx context.Context) error

	// Close releases held resources and discards unsaved changes. It is
	// idempotent; the backend reopens on next use.
	Close() error

	// Link stages a (place, amenity) pair. Linking an existing pair is a no-op.
	Link(ctx context.Context, placeID, amenityID string) error

	// Unlink stages removal of a (place, amenity) pair.
	Unlink(ctx context.Context, placeID, amenityID string) error

	// Links returns the current link table.
	Links(ctx context.Context) ([]model.Link, error)
}

// ChildFinder is implemented by backends that can filter children by foreign
// key more cheaply than a full scan.
type ChildFinder interface {
	Children(ctx context.Context, rel model.Relation, parentID string) (map[string]model.Entity, error)
}

// Factory builds a backend from configuration.
type Factory func(ctx context.Context, cfg config.Config) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under name. It panics on duplicates.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("storage: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("storage: Register called twice for backend " + name)
	}
	registry[name] = f
}

// Backends lists registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Factory, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (registered: %v)", name, Backends())
	}
	return f, nil
}

// CheckKind validates an optional kind filter. The empty kind means "all".
func CheckKind(op string, kind model.Kind) error {
	if kind == "" || kind.Valid() {
		return nil
	}
	return MalformedError(op, kind, fmt.Errorf("unknown kind %q", kind))
}

// CheckEntity validates an entity handed to New or Delete.
func CheckEntity(op string, e model.Entity) error {
	if e == nil {
		return MalformedError(op, "", fmt.Errorf("nil entity"))
	}
	if e.Meta().ID == "" {
		return MalformedError(op, e.Kind(), fmt.Errorf("entity has no id"))
	}
	return nil
}
