package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/hbnb/internal/model"
)

// Children resolves a 1:N edge: every childKind entity whose foreign key
// points at parentID. Backends implementing ChildFinder get the filter pushed
// down; otherwise All(childKind) is filtered in memory.
func (e *Engine) Children(ctx context.Context, parentKind model.Kind, parentID string, childKind model.Kind) (map[string]model.Entity, error) {
	rel, ok := model.RelationBetween(parentKind, childKind)
	if !ok {
		return nil, MalformedError("children", childKind,
			fmt.Errorf("%s has no %s children", parentKind, childKind))
	}
	return e.children(ctx, rel, parentID)
}

func (e *Engine) children(ctx context.Context, rel model.Relation, parentID string) (map[string]model.Entity, error) {
	if cf, ok := e.backend.(ChildFinder); ok {
		return cf.Children(ctx, rel, parentID)
	}
	all, err := e.backend.All(ctx, rel.Child)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Entity)
	for id, child := range all {
		if rel.ForeignKey(child) == parentID {
			out[id] = child
		}
	}
	return out, nil
}

// CitiesOf returns the cities of a state.
func (e *Engine) CitiesOf(ctx context.Context, s *model.State) ([]*model.City, error) {
	children, err := e.children(ctx, relation(model.KindState, model.KindCity), s.ID)
	if err != nil {
		return nil, err
	}
	return typed[*model.City](children), nil
}

// PlacesOf returns the places in a city.
func (e *Engine) PlacesOf(ctx context.Context, c *model.City) ([]*model.Place, error) {
	children, err := e.children(ctx, relation(model.KindCity, model.KindPlace), c.ID)
	if err != nil {
		return nil, err
	}
	return typed[*model.Place](children), nil
}

// ReviewsOf returns the reviews of a place.
func (e *Engine) ReviewsOf(ctx context.Context, p *model.Place) ([]*model.Review, error) {
	children, err := e.children(ctx, relation(model.KindPlace, model.KindReview), p.ID)
	if err != nil {
		return nil, err
	}
	return typed[*model.Review](children), nil
}

// PlacesOfUser returns the places a user hosts.
func (e *Engine) PlacesOfUser(ctx context.Context, u *model.User) ([]*model.Place, error) {
	children, err := e.children(ctx, relation(model.KindUser, model.KindPlace), u.ID)
	if err != nil {
		return nil, err
	}
	return typed[*model.Place](children), nil
}

// ReviewsOfUser returns the reviews a user wrote.
func (e *Engine) ReviewsOfUser(ctx context.Context, u *model.User) ([]*model.Review, error) {
	children, err := e.children(ctx, relation(model.KindUser, model.KindReview), u.ID)
	if err != nil {
		return nil, err
	}
	return typed[*model.Review](children), nil
}

// LinkAmenity associates an amenity with a place. Both must exist; linking
// twice has no further effect. Durable on the next Save.
func (e *Engine) LinkAmenity(ctx context.Context, placeID, amenityID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.counts.reset()

	if err := e.mustExist(ctx, "link", model.KindPlace, placeID); err != nil {
		return err
	}
	if err := e.mustExist(ctx, "link", model.KindAmenity, amenityID); err != nil {
		return err
	}
	e.logger.Debug("staging link", "place_id", placeID, "amenity_id", amenityID)
	return e.backend.Link(ctx, placeID, amenityID)
}

// UnlinkAmenity removes the association. Durable on the next Save.
func (e *Engine) UnlinkAmenity(ctx context.Context, placeID, amenityID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.counts.reset()

	e.logger.Debug("staging unlink", "place_id", placeID, "amenity_id", amenityID)
	return e.backend.Unlink(ctx, placeID, amenityID)
}

// Links returns the current link table.
func (e *Engine) Links(ctx context.Context) ([]model.Link, error) {
	return e.backend.Links(ctx)
}

// AmenitiesOf returns the amenities linked to a place. Link rows whose
// amenity no longer exists are skipped.
func (e *Engine) AmenitiesOf(ctx context.Context, placeID string) ([]*model.Amenity, error) {
	links, err := e.backend.Links(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.Amenity
	for _, l := range links {
		if l.PlaceID != placeID {
			continue
		}
		ent, err := e.backend.Get(ctx, model.KindAmenity, l.AmenityID)
		if err != nil {
			return nil, err
		}
		if a, ok := ent.(*model.Amenity); ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PlacesWith returns the places linked to an amenity.
func (e *Engine) PlacesWith(ctx context.Context, amenityID string) ([]*model.Place, error) {
	links, err := e.backend.Links(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.Place
	for _, l := range links {
		if l.AmenityID != amenityID {
			continue
		}
		ent, err := e.backend.Get(ctx, model.KindPlace, l.PlaceID)
		if err != nil {
			return nil, err
		}
		if p, ok := ent.(*model.Place); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (e *Engine) mustExist(ctx context.Context, op string, kind model.Kind, id string) error {
	ent, err := e.backend.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if ent == nil {
		return ReferentialError(op, kind, id)
	}
	return nil
}

func relation(parent, child model.Kind) model.Relation {
	rel, _ := model.RelationBetween(parent, child)
	return rel
}

// typed converts a resolver result to a slice of concrete entities, ordered
// by id.
func typed[T model.Entity](m map[string]model.Entity) []T {
	out := make([]T, 0, len(m))
	for _, id := range sortedIDs(m) {
		if v, ok := m[id].(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func sortedIDs(m map[string]model.Entity) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
