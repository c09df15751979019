package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/roach88/hbnb/internal/config"
	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
)

func init() {
	storage.Register(config.StorageFile, func(_ context.Context, cfg config.Config) (storage.Backend, error) {
		return Open(cfg.File.Path), nil
	})
}

// Store keeps every table in memory and persists them to one JSON file.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	loaded bool
	tables map[model.Kind]map[string]model.Entity
	links  map[model.Link]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open returns a store backed by the file at path. No I/O happens until the
// first operation or an explicit Reload.
func Open(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// read runs fn under the read lock, loading the file first if needed.
func (s *Store) read(fn func()) error {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		fn()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	fn()
	return nil
}

// write runs fn under the write lock, loading the file first if needed.
func (s *Store) write(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	return fn()
}

func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	return s.reloadLocked()
}

// All implements storage.Backend.
func (s *Store) All(_ context.Context, kind model.Kind) (map[string]model.Entity, error) {
	if err := storage.CheckKind("all", kind); err != nil {
		return nil, err
	}
	out := make(map[string]model.Entity)
	err := s.read(func() {
		for k, table := range s.tables {
			if kind != "" && k != kind {
				continue
			}
			for id, e := range table {
				out[id] = e.Clone()
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get implements storage.Backend.
func (s *Store) Get(_ context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := storage.CheckKind("get", kind); err != nil {
		return nil, err
	}
	var found model.Entity
	err := s.read(func() {
		if e, ok := s.tables[kind][id]; ok {
			found = e.Clone()
		}
	})
	return found, err
}

// Count implements storage.Backend.
func (s *Store) Count(_ context.Context, kind model.Kind) (int, error) {
	if err := storage.CheckKind("count", kind); err != nil {
		return 0, err
	}
	n := 0
	err := s.read(func() {
		for k, table := range s.tables {
			if kind == "" || k == kind {
				n += len(table)
			}
		}
	})
	return n, err
}

// New implements storage.Backend.
func (s *Store) New(_ context.Context, e model.Entity) error {
	if err := storage.CheckEntity("new", e); err != nil {
		return err
	}
	return s.write(func() error {
		s.tables[e.Kind()][e.Meta().ID] = e.Clone()
		return nil
	})
}

// Delete implements storage.Backend.
func (s *Store) Delete(_ context.Context, e model.Entity) error {
	if err := storage.CheckEntity("delete", e); err != nil {
		return err
	}
	return s.write(func() error {
		delete(s.tables[e.Kind()], e.Meta().ID)
		return nil
	})
}

// Link implements storage.Backend.
func (s *Store) Link(_ context.Context, placeID, amenityID string) error {
	return s.write(func() error {
		s.links[model.Link{PlaceID: placeID, AmenityID: amenityID}] = struct{}{}
		return nil
	})
}

// Unlink implements storage.Backend.
func (s *Store) Unlink(_ context.Context, placeID, amenityID string) error {
	return s.write(func() error {
		delete(s.links, model.Link{PlaceID: placeID, AmenityID: amenityID})
		return nil
	})
}

// Links implements storage.Backend. Rows are ordered by place, then amenity.
func (s *Store) Links(_ context.Context) ([]model.Link, error) {
	var out []model.Link
	err := s.read(func() {
		out = make([]model.Link, 0, len(s.links))
		for l := range s.links {
			out = append(out, l)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlaceID != out[j].PlaceID {
			return out[i].PlaceID < out[j].PlaceID
		}
		return out[i].AmenityID < out[j].AmenityID
	})
	return out, nil
}

// Save implements storage.Backend. The in-memory tables are untouched
// whether or not the write succeeds.
func (s *Store) Save(_ context.Context) error {
	return s.write(func() error {
		data, err := encode(s.tables, s.links)
		if err != nil {
			return storage.DurabilityError("save", err)
		}
		if err := writeFileAtomic(s.path, data); err != nil {
			return storage.DurabilityError("save", err)
		}
		s.logger.Debug("file saved", "path", s.path, "bytes", len(data))
		return nil
	})
}

// Reload implements storage.Backend. On failure the previous tables are kept.
func (s *Store) Reload(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Store) reloadLocked() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.tables, s.links = emptyTables(), make(map[model.Link]struct{})
		s.loaded = true
		s.logger.Info("no storage file yet, starting empty", "path", s.path)
		return nil
	}
	if err != nil {
		return storage.DurabilityError("reload", err)
	}

	tables, links, err := decode(data, s.logger)
	if err != nil {
		return storage.DurabilityError("reload", fmt.Errorf("%s: %w", s.path, err))
	}
	s.tables, s.links = tables, links
	s.loaded = true
	return nil
}

// Close implements storage.Backend. Unsaved changes are dropped; the file is
// read again on next use.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.tables, s.links = nil, nil
	return nil
}

// writeFileAtomic replaces path with data via a synced temp file in the same
// directory and a rename.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
