package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/hbnb/internal/config"
	"github.com/roach88/hbnb/internal/model"
)

// Engine is the single access point through which callers persist entities.
// Construct it once per process with Open (or New for an explicit backend)
// and pass it to whatever needs storage.
type Engine struct {
	backend Backend
	clock   model.Clock
	logger  *slog.Logger

	// mu serializes writers: staging, cascade planning, Save, Reload, Close.
	// Readers go straight to the backend.
	mu     sync.Mutex
	counts countCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to refresh updated_at.
func WithClock(c model.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New wraps an already constructed backend. It does not reload; call Reload
// before first use, or use Open.
func New(b Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: b,
		clock:   model.SystemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.counts.reset()
	return e
}

// Open builds the backend named by cfg.Storage, reloads it from durable
// state and returns the engine. A reload failure is fatal: the backend is
// closed and the error returned.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Engine, error) {
	factory, err := lookup(cfg.Storage)
	if err != nil {
		return nil, err
	}
	b, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Storage, err)
	}

	e := New(b, opts...)
	e.logger.Info("storage opening", "backend", cfg.Storage)
	if err := e.Reload(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return e, nil
}

// Backend returns the underlying backend.
func (e *Engine) Backend() Backend {
	return e.backend
}

// All returns every entity of kind keyed by id (every kind when kind is "").
func (e *Engine) All(ctx context.Context, kind model.Kind) (map[string]model.Entity, error) {
	if err := CheckKind("all", kind); err != nil {
		return nil, err
	}
	return e.backend.All(ctx, kind)
}

// Get returns the entity or (nil, nil) when it does not exist.
func (e *Engine) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := CheckKind("get", kind); err != nil {
		return nil, err
	}
	if kind == "" {
		return nil, MalformedError("get", kind, fmt.Errorf("kind is required"))
	}
	return e.backend.Get(ctx, kind, id)
}

// Count returns the number of entities of kind (all kinds when kind is "").
// Results are cached until the next mutation.
func (e *Engine) Count(ctx context.Context, kind model.Kind) (int, error) {
	if err := CheckKind("count", kind); err != nil {
		return 0, err
	}
	if n, ok := e.counts.get(kind); ok {
		return n, nil
	}
	gen := e.counts.generation()
	n, err := e.backend.Count(ctx, kind)
	if err != nil {
		return 0, err
	}
	e.counts.put(gen, kind, n)
	return n, nil
}

// Stats counts every kind.
func (e *Engine) Stats(ctx context.Context) (map[model.Kind]int, error) {
	out := make(map[model.Kind]int, len(model.Kinds))
	for _, k := range model.Kinds {
		n, err := e.Count(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

// New stages ent. It becomes durable on the next Save.
func (e *Engine) New(ctx context.Context, ent model.Entity) error {
	if err := CheckEntity("new", ent); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.counts.reset()

	e.logger.Debug("staging entity", "kind", ent.Kind(), "id", ent.Meta().ID)
	return e.backend.New(ctx, ent)
}

// Save makes every staged change durable.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.counts.reset()

	if err := e.backend.Save(ctx); err != nil {
		e.logger.Error("save failed", "error", err)
		return err
	}
	e.logger.Debug("saved")
	return nil
}

// Create stages ent and saves it.
func (e *Engine) Create(ctx context.Context, ent model.Entity) error {
	if err := e.New(ctx, ent); err != nil {
		return err
	}
	return e.Save(ctx)
}

// Touch refreshes ent's updated_at, stages it and saves. It is what an
// entity's own save does.
func (e *Engine) Touch(ctx context.Context, ent model.Entity) error {
	if err := CheckEntity("touch", ent); err != nil {
		return err
	}
	ent.Meta().Touch(e.clock.Now())
	return e.Create(ctx, ent)
}

// Update applies the allow-listed attributes of patch to ent and saves it.
// A patch value of the wrong shape fails before ent is modified.
func (e *Engine) Update(ctx context.Context, ent model.Entity, patch model.Patch) error {
	if err := CheckEntity("update", ent); err != nil {
		return err
	}
	if err := ent.Apply(patch); err != nil {
		return MalformedError("update", ent.Kind(), err)
	}
	return e.Touch(ctx, ent)
}

// Delete stages removal of ent and of everything the cascade policy reaches
// from it. Nothing is durable until Save.
func (e *Engine) Delete(ctx context.Context, ent model.Entity) error {
	if err := CheckEntity("delete", ent); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.counts.reset()

	plan, err := e.planCascade(ctx, ent)
	if err != nil {
		return err
	}
	if err := e.stageCascade(ctx, plan); err != nil {
		return err
	}
	e.logger.Debug("staged delete",
		"kind", ent.Kind(),
		"id", ent.Meta().ID,
		"cascaded", len(plan.entities)-1,
		"links", len(plan.links),
	)
	return nil
}

// stageCascade stages every unlink and delete of plan. If the backend
// rejects one, the steps already staged are put back so a failed Delete
// leaves nothing half removed.
func (e *Engine) stageCascade(ctx context.Context, plan *cascadePlan) error {
	var undo []func() error
	rollback := func(cause error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](); err != nil {
				e.logger.Error("restoring partial cascade failed", "error", err)
			}
		}
		return cause
	}

	for _, l := range plan.links {
		if err := e.backend.Unlink(ctx, l.PlaceID, l.AmenityID); err != nil {
			return rollback(err)
		}
		undo = append(undo, func() error { return e.backend.Link(ctx, l.PlaceID, l.AmenityID) })
	}
	for _, victim := range plan.entities {
		if err := e.backend.Delete(ctx, victim); err != nil {
			return rollback(err)
		}
		undo = append(undo, func() error { return e.backend.New(ctx, victim) })
	}
	return nil
}

// Reload discards staged changes and repopulates from durable state.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.counts.reset()

	if err := e.backend.Reload(ctx); err != nil {
		e.logger.Error("reload failed", "error", err)
		return err
	}
	e.logger.Info("storage reloaded")
	return nil
}

// Close releases backend resources and drops unsaved changes. Safe to call
// repeatedly; the next operation reopens the backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.counts.reset()

	return e.backend.Close()
}
