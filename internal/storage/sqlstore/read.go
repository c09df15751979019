package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
)

// All implements storage.Backend.
func (s *Store) All(ctx context.Context, kind model.Kind) (map[string]model.Entity, error) {
	if err := storage.CheckKind("all", kind); err != nil {
		return nil, err
	}
	kinds := model.Kinds
	if kind != "" {
		kinds = []model.Kind{kind}
	}

	out := make(map[string]model.Entity)
	err := s.read(ctx, "all", func(db *sql.DB) error {
		for _, k := range kinds {
			rows, err := s.selectEntities(ctx, db, k, nil)
			if err != nil {
				return err
			}
			s.stage.overlay(k, rows, nil)
			for id, e := range rows {
				out[id] = e
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get implements storage.Backend.
func (s *Store) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := storage.CheckKind("get", kind); err != nil {
		return nil, err
	}
	var found model.Entity
	err := s.read(ctx, "get", func(db *sql.DB) error {
		if e, ok := s.stage.lookup(kind, id); ok {
			if e != nil {
				found = e.Clone()
			}
			return nil
		}
		rows, err := s.selectEntities(ctx, db, kind, goqu.Ex{"id": id})
		if err != nil {
			return err
		}
		found = rows[id]
		return nil
	})
	return found, err
}

// Count implements storage.Backend.
func (s *Store) Count(ctx context.Context, kind model.Kind) (int, error) {
	if err := storage.CheckKind("count", kind); err != nil {
		return 0, err
	}
	kinds := model.Kinds
	if kind != "" {
		kinds = []model.Kind{kind}
	}

	n := 0
	err := s.read(ctx, "count", func(db *sql.DB) error {
		for _, k := range kinds {
			ids, err := s.selectIDs(ctx, db, k)
			if err != nil {
				return err
			}
			for id, e := range s.stage.entities[k] {
				if e == nil {
					delete(ids, id)
				} else {
					ids[id] = struct{}{}
				}
			}
			n += len(ids)
		}
		return nil
	})
	return n, err
}

// Children implements storage.ChildFinder with an indexed foreign-key
// lookup.
func (s *Store) Children(ctx context.Context, rel model.Relation, parentID string) (map[string]model.Entity, error) {
	if err := storage.CheckKind("children", rel.Child); err != nil {
		return nil, err
	}
	var out map[string]model.Entity
	err := s.read(ctx, "children", func(db *sql.DB) error {
		rows, err := s.selectEntities(ctx, db, rel.Child, goqu.Ex{rel.Column: parentID})
		if err != nil {
			return err
		}
		s.stage.overlay(rel.Child, rows, func(e model.Entity) bool {
			return rel.ForeignKey(e) == parentID
		})
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Links implements storage.Backend. Rows are ordered by place, then amenity.
func (s *Store) Links(ctx context.Context) ([]model.Link, error) {
	var out []model.Link
	err := s.read(ctx, "links", func(db *sql.DB) error {
		query, args, err := s.dialect.From(linkTable).
			Select("place_id", "amenity_id").
			Prepared(true).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build links query: %w", err)
		}

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query links: %w", err)
		}
		defer rows.Close()

		set := make(map[model.Link]struct{})
		for rows.Next() {
			var l model.Link
			if err := rows.Scan(&l.PlaceID, &l.AmenityID); err != nil {
				return fmt.Errorf("scan link: %w", err)
			}
			set[l] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate links: %w", err)
		}

		s.stage.overlayLinks(set)
		out = make([]model.Link, 0, len(set))
		for l := range set {
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortLinks(out)
	return out, nil
}

// selectEntities reads committed rows of kind matching where (all rows when
// where is nil).
func (s *Store) selectEntities(ctx context.Context, db *sql.DB, kind model.Kind, where goqu.Ex) (map[string]model.Entity, error) {
	cols := model.Attributes(kind)
	selection := make([]any, len(cols))
	for i, c := range cols {
		selection[i] = c
	}

	ds := s.dialect.From(kind.Table()).Select(selection...).Order(goqu.I("id").Asc()).Prepared(true)
	if where != nil {
		ds = ds.Where(where)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", kind.Table(), err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind.Table(), err)
	}
	defer rows.Close()

	out := make(map[string]model.Entity)
	for rows.Next() {
		e, err := scanEntity(rows, kind, cols)
		if err != nil {
			return nil, err
		}
		out[e.Meta().ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind.Table(), err)
	}
	return out, nil
}

func (s *Store) selectIDs(ctx context.Context, db *sql.DB, kind model.Kind) (map[string]struct{}, error) {
	query, args, err := s.dialect.From(kind.Table()).Select("id").Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s id query: %w", kind.Table(), err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s ids: %w", kind.Table(), err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", kind.Table(), err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", kind.Table(), err)
	}
	return ids, nil
}

// scanEntity converts the current row into an entity of kind.
func scanEntity(rows *sql.Rows, kind model.Kind, cols []string) (model.Entity, error) {
	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", kind.Table(), err)
	}

	rec := make(map[string]any, len(cols))
	for i, c := range cols {
		rec[c] = values[i]
	}
	e, err := model.FromRecord(kind, rec)
	if err != nil {
		return nil, fmt.Errorf("%s row: %w", kind.Table(), err)
	}
	return e, nil
}
