package model

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies creation and modification times.
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies entity ids.
type IDGenerator interface {
	Generate() string
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// UUIDGenerator returns random (version 4) UUIDs in hyphenated form.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// Factory stamps new entities with an id and matching created/updated times.
type Factory struct {
	Clock Clock
	IDs   IDGenerator
}

// DefaultFactory uses the wall clock and random UUIDs.
var DefaultFactory = Factory{Clock: SystemClock{}, IDs: UUIDGenerator{}}

// NewBase returns a fresh Base: new id, created_at == updated_at == now.
func (f Factory) NewBase() Base {
	now := normalizeTime(f.Clock.Now())
	return Base{ID: f.IDs.Generate(), CreatedAt: now, UpdatedAt: now}
}

// New returns an empty entity of kind k with a fresh Base.
func (f Factory) New(k Kind) (Entity, error) {
	e, err := Empty(k)
	if err != nil {
		return nil, err
	}
	*e.Meta() = f.NewBase()
	return e, nil
}

// NewBase is DefaultFactory.NewBase.
func NewBase() Base {
	return DefaultFactory.NewBase()
}

// New is DefaultFactory.New.
func New(k Kind) (Entity, error) {
	return DefaultFactory.New(k)
}
