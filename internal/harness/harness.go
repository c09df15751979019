package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
	"github.com/roach88/hbnb/internal/testutil"
)

// Opener returns a fresh backend for one scenario run.
type Opener func() (storage.Backend, error)

// Harness executes one scenario against one engine.
type Harness struct {
	eng     *storage.Engine
	factory model.Factory
	aliases map[string]ref
	names   map[string]string // id -> alias
	result  *Result
}

type ref struct {
	kind model.Kind
	id   string
}

// Run executes scenario against a backend from open. The returned error
// reports harness failures (bad backend, unresolvable alias); step and
// assertion failures are recorded in the Result.
func Run(ctx context.Context, scenario *Scenario, open Opener, opts ...storage.Option) (*Result, error) {
	backend, err := open()
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	clock := testutil.NewDeterministicClock()
	engineOpts := append([]storage.Option{
		storage.WithClock(clock),
		storage.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	eng := storage.New(backend, engineOpts...)
	defer eng.Close()

	h := &Harness{
		eng:     eng,
		factory: model.Factory{Clock: clock, IDs: testutil.NewSequenceGenerator(scenario.Name)},
		aliases: make(map[string]ref),
		names:   make(map[string]string),
		result:  NewResult(),
	}

	if err := eng.Reload(ctx); err != nil {
		return nil, fmt.Errorf("initial reload: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.step(ctx, i+1, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if err := h.snapshot(ctx); err != nil {
		return nil, err
	}
	for i, a := range scenario.Assertions {
		if err := h.assert(ctx, a); err != nil {
			h.result.AddError("assertions[%d] (%s): %v", i, a.Type, err)
		}
	}
	return h.result, nil
}

// step executes one step and records its trace event. Only errors that make
// the scenario itself unusable are returned.
func (h *Harness) step(ctx context.Context, seq int, s Step) error {
	event := TraceEvent{Seq: seq, Op: s.Op}
	var opErr error

	switch s.Op {
	case OpNew, OpCreate:
		event.Kind, event.Target = s.Kind, s.As
		ent, err := h.build(s)
		if err != nil {
			opErr = storage.MalformedError(s.Op, model.Kind(s.Kind), err)
			break
		}
		h.aliases[s.As] = ref{kind: ent.Kind(), id: ent.Meta().ID}
		h.names[ent.Meta().ID] = s.As
		if s.Op == OpNew {
			opErr = h.eng.New(ctx, ent)
		} else {
			opErr = h.eng.Create(ctx, ent)
		}

	case OpUpdate, OpDelete:
		event.Target = s.Ref
		r, ok := h.aliases[s.Ref]
		if !ok {
			return fmt.Errorf("unknown alias %q", s.Ref)
		}
		ent, err := h.eng.Get(ctx, r.kind, r.id)
		if err != nil {
			opErr = err
			break
		}
		if ent == nil {
			opErr = storage.NotFoundError(s.Op, r.kind, r.id)
			break
		}
		if s.Op == OpUpdate {
			opErr = h.eng.Update(ctx, ent, h.patch(s))
		} else {
			opErr = h.eng.Delete(ctx, ent)
		}

	case OpLink, OpUnlink:
		event.Target = s.Place + "/" + s.Amenity
		placeID, amenityID := h.id(s.Place), h.id(s.Amenity)
		if s.Op == OpLink {
			opErr = h.eng.LinkAmenity(ctx, placeID, amenityID)
		} else {
			opErr = h.eng.UnlinkAmenity(ctx, placeID, amenityID)
		}

	case OpSave:
		opErr = h.eng.Save(ctx)
	case OpReload:
		opErr = h.eng.Reload(ctx)
	case OpClose:
		opErr = h.eng.Close()
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}

	event.Outcome = outcome(opErr)
	h.result.Trace = append(h.result.Trace, event)

	expected := s.Expect
	if expected == "" {
		expected = "ok"
	}
	if event.Outcome != expected {
		h.result.AddError("step %02d %s: expected %s, got %s (%v)", seq, s.Op, expected, event.Outcome, opErr)
	}
	return nil
}

// build makes a new entity of the step's kind from its literal and
// referenced attributes.
func (h *Harness) build(s Step) (model.Entity, error) {
	kind, err := model.ParseKind(s.Kind)
	if err != nil {
		return nil, err
	}
	fresh, err := h.factory.New(kind)
	if err != nil {
		return nil, err
	}
	rec := fresh.ToMap()
	for k, v := range h.patch(s) {
		switch k {
		case "id", "created_at", "updated_at", model.ClassKey:
			continue
		}
		rec[k] = v
	}
	return model.FromRecord(kind, rec)
}

func (h *Harness) patch(s Step) model.Patch {
	p := make(model.Patch, len(s.Attrs)+len(s.Refs))
	for k, v := range s.Attrs {
		p[k] = v
	}
	for k, alias := range s.Refs {
		p[k] = h.id(alias)
	}
	return p
}

// id resolves an alias. Names that are not aliases are used verbatim.
func (h *Harness) id(alias string) string {
	if r, ok := h.aliases[alias]; ok {
		return r.id
	}
	return alias
}

// name maps an id back to its alias.
func (h *Harness) name(id string) string {
	if alias, ok := h.names[id]; ok {
		return alias
	}
	return id
}

// snapshot records final counts and links.
func (h *Harness) snapshot(ctx context.Context) error {
	stats, err := h.eng.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	for k, n := range stats {
		h.result.Counts[string(k)] = n
	}

	links, err := h.eng.Links(ctx)
	if err != nil {
		return fmt.Errorf("links: %w", err)
	}
	for _, l := range links {
		h.result.Links = append(h.result.Links, h.name(l.PlaceID)+"/"+h.name(l.AmenityID))
	}
	sort.Strings(h.result.Links)
	return nil
}

// outcome names err by its storage error code.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var se *storage.Error
	if !errors.As(err, &se) {
		return "error"
	}
	switch se.Code {
	case storage.ErrCodeMalformed:
		return "malformed"
	default:
		return strings.ToLower(string(se.Code))
	}
}
