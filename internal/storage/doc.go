// Package storage is the hbnb persistence engine.
//
// It defines the Backend contract shared by every durable store, the typed
// errors backends report, and Engine, the facade callers hold for the life of
// the process.
//
// # Backends
//
// Backends register themselves by name, the way database/sql drivers do:
//
//	import _ "github.com/roach88/hbnb/internal/storage/filestore"
//	import _ "github.com/roach88/hbnb/internal/storage/sqlstore"
//
// Open picks the backend named by config.Config.Storage, reloads it and wraps
// it in an Engine.
//
// # Staging
//
// New, Delete, Link and Unlink only stage changes. Save makes every staged
// change durable in one atomic step; a failed Save leaves the stage intact so
// the caller may retry. Close releases resources and discards whatever was
// not saved; the next call reopens the backend.
//
// # Cascade
//
// Deleting a parent removes everything reachable below it:
//
//	State -> City -> Place -> Review
//	User  -> Place, Review
//	Place -> link rows
//	Amenity -> link rows (places are kept)
//
// The Engine computes the cascade, so both backends behave identically.
//
// # Thread Safety
//
// Readers never block each other. Mutations, Save, Reload and Close are
// serialized by the Engine and by each backend's own lock.
package storage
