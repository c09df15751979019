package sqlstore

import (
	"sort"

	"github.com/roach88/hbnb/internal/model"
)

// stage is the unit of work pending the next Save. A nil entity marks a
// staged delete; a false link marks a staged unlink.
type stage struct {
	entities map[model.Kind]map[string]model.Entity
	links    map[model.Link]bool
}

func newStage() *stage {
	return &stage{
		entities: make(map[model.Kind]map[string]model.Entity),
		links:    make(map[model.Link]bool),
	}
}

func (st *stage) empty() bool {
	for _, m := range st.entities {
		if len(m) > 0 {
			return false
		}
	}
	return len(st.links) == 0
}

func (st *stage) put(kind model.Kind, id string, e model.Entity) {
	m, ok := st.entities[kind]
	if !ok {
		m = make(map[string]model.Entity)
		st.entities[kind] = m
	}
	m[id] = e
}

// lookup reports whether id of kind is staged, and the staged entity (nil
// for a delete).
func (st *stage) lookup(kind model.Kind, id string) (model.Entity, bool) {
	e, ok := st.entities[kind][id]
	return e, ok
}

// overlay applies staged work of kind onto committed rows. keep filters
// staged puts; a staged put failing keep removes the row.
func (st *stage) overlay(kind model.Kind, rows map[string]model.Entity, keep func(model.Entity) bool) {
	for id, e := range st.entities[kind] {
		if e == nil || (keep != nil && !keep(e)) {
			delete(rows, id)
			continue
		}
		rows[id] = e.Clone()
	}
}

func (st *stage) overlayLinks(rows map[model.Link]struct{}) {
	for l, add := range st.links {
		if add {
			rows[l] = struct{}{}
		} else {
			delete(rows, l)
		}
	}
}

// stagedEntity is one staged put or delete, in apply order.
type stagedEntity struct {
	kind   model.Kind
	id     string
	entity model.Entity
}

// ordered lists staged entity work by kind order, then id, so a Save issues
// statements in a stable order.
func (st *stage) ordered() []stagedEntity {
	var out []stagedEntity
	for _, k := range model.Kinds {
		m := st.entities[k]
		ids := make([]string, 0, len(m))
		for id := range m {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, stagedEntity{kind: k, id: id, entity: m[id]})
		}
	}
	return out
}

func (st *stage) orderedLinks() []model.Link {
	out := make([]model.Link, 0, len(st.links))
	for l := range st.links {
		out = append(out, l)
	}
	sortLinks(out)
	return out
}

func sortLinks(links []model.Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].PlaceID != links[j].PlaceID {
			return links[i].PlaceID < links[j].PlaceID
		}
		return links[i].AmenityID < links[j].AmenityID
	})
}

func tableNames() []string {
	names := make([]string, 0, len(model.Kinds)+1)
	for _, k := range model.Kinds {
		names = append(names, k.Table())
	}
	return append(names, linkTable)
}
