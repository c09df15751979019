package storage

import (
	"context"

	"github.com/roach88/hbnb/internal/model"
)

type cascadePlan struct {
	// entities holds the root first, then every dependent in breadth-first
	// order.
	entities []model.Entity
	links    []model.Link
}

// planCascade walks the relationship graph below root. Callers hold e.mu.
func (e *Engine) planCascade(ctx context.Context, root model.Entity) (*cascadePlan, error) {
	plan := &cascadePlan{}
	seen := map[string]bool{model.Key(root): true}
	queue := []model.Entity{root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		plan.entities = append(plan.entities, node)

		for _, rel := range model.ChildRelations(node.Kind()) {
			children, err := e.children(ctx, rel, node.Meta().ID)
			if err != nil {
				return nil, err
			}
			for _, id := range sortedIDs(children) {
				child := children[id]
				if key := model.Key(child); !seen[key] {
					seen[key] = true
					queue = append(queue, child)
				}
			}
		}
	}

	links, err := e.backend.Links(ctx)
	if err != nil {
		return nil, err
	}
	doomed := make(map[string]bool)
	for _, ent := range plan.entities {
		switch ent.Kind() {
		case model.KindPlace, model.KindAmenity:
			doomed[model.Key(ent)] = true
		}
	}
	for _, l := range links {
		if doomed[string(model.KindPlace)+"."+l.PlaceID] || doomed[string(model.KindAmenity)+"."+l.AmenityID] {
			plan.links = append(plan.links, l)
		}
	}
	return plan, nil
}
