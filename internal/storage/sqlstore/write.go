package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
)

// New implements storage.Backend. The row is written on Save.
func (s *Store) New(ctx context.Context, e model.Entity) error {
	if err := storage.CheckEntity("new", e); err != nil {
		return err
	}
	return s.write(ctx, func() error {
		s.stage.put(e.Kind(), e.Meta().ID, e.Clone())
		return nil
	})
}

// Delete implements storage.Backend.
func (s *Store) Delete(ctx context.Context, e model.Entity) error {
	if err := storage.CheckEntity("delete", e); err != nil {
		return err
	}
	return s.write(ctx, func() error {
		s.stage.put(e.Kind(), e.Meta().ID, nil)
		return nil
	})
}

// Link implements storage.Backend.
func (s *Store) Link(ctx context.Context, placeID, amenityID string) error {
	return s.write(ctx, func() error {
		s.stage.links[model.Link{PlaceID: placeID, AmenityID: amenityID}] = true
		return nil
	})
}

// Unlink implements storage.Backend.
func (s *Store) Unlink(ctx context.Context, placeID, amenityID string) error {
	return s.write(ctx, func() error {
		s.stage.links[model.Link{PlaceID: placeID, AmenityID: amenityID}] = false
		return nil
	})
}

// Save implements storage.Backend. The stage is applied in one transaction
// and cleared only after commit; on failure it is kept for a retry.
func (s *Store) Save(ctx context.Context) error {
	return s.write(ctx, func() error {
		if s.stage.empty() {
			return nil
		}
		entities, links := s.stage.ordered(), s.stage.orderedLinks()
		if err := s.apply(ctx, entities, links); err != nil {
			return storage.DurabilityError("save", err)
		}
		s.stage = newStage()
		s.logger.Debug("changes committed", "entities", len(entities), "links", len(links))
		return nil
	})
}

// sqlBuilder is satisfied by goqu's insert and delete datasets.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (s *Store) apply(ctx context.Context, entities []stagedEntity, links []model.Link) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op after commit

	for _, w := range entities {
		// Replace is delete then insert, which both dialects run the same way.
		del := s.dialect.Delete(w.kind.Table()).Where(goqu.Ex{"id": w.id}).Prepared(true)
		if err := exec(ctx, tx, del); err != nil {
			return fmt.Errorf("delete %s %s: %w", w.kind, w.id, err)
		}
		if w.entity == nil {
			continue
		}
		ins := s.dialect.Insert(w.kind.Table()).Rows(record(w.entity)).Prepared(true)
		if err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert %s %s: %w", w.kind, w.id, err)
		}
	}

	for _, l := range links {
		pair := goqu.Ex{"place_id": l.PlaceID, "amenity_id": l.AmenityID}
		if err := exec(ctx, tx, s.dialect.Delete(linkTable).Where(pair).Prepared(true)); err != nil {
			return fmt.Errorf("unlink %s/%s: %w", l.PlaceID, l.AmenityID, err)
		}
		if !s.stage.links[l] {
			continue
		}
		row := goqu.Record{"place_id": l.PlaceID, "amenity_id": l.AmenityID}
		if err := exec(ctx, tx, s.dialect.Insert(linkTable).Rows(row).Prepared(true)); err != nil {
			return fmt.Errorf("link %s/%s: %w", l.PlaceID, l.AmenityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func exec(ctx context.Context, tx *sql.Tx, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// record converts e into a column/value row.
func record(e model.Entity) goqu.Record {
	rec := e.ToMap()
	delete(rec, model.ClassKey)
	return goqu.Record(rec)
}
