// Package model defines the six hbnb entity kinds and their common base.
//
// Every entity embeds Base (id, created_at, updated_at) and implements the
// closed Entity interface. Entities render themselves as flat records via
// ToMap and are reconstructed from the same records via FromMap, so a record
// written by one backend can be read back by any other.
//
// # Mutation
//
// Callers never set fields by name through reflection. Each kind has a fixed
// allow-list of mutable attributes applied with Entity.Apply; identity,
// timestamps and foreign keys are never patched.
//
// # Relationships
//
// Foreign keys are plain string attributes (City.StateID, Place.CityID, ...).
// The Relations table enumerates every 1:N edge; the Place/Amenity M:N edge is
// represented by Link pairs kept outside either entity's record.
package model
