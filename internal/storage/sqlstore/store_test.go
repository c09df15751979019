package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hbnb/internal/config"
	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
	"github.com/roach88/hbnb/internal/storage/storagetest"
	"github.com/roach88/hbnb/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore opens a SQLite store over a fresh temp file.
func createTestStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := Open(context.Background(), DriverSQLite, path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createMockStore wraps a sqlmock handle in a postgres-dialect store.
func createMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(db, DriverPostgres, WithLogger(quietLogger()))
	require.NoError(t, err)
	return s, mock
}

func newFactory(prefix string) model.Factory {
	return model.Factory{Clock: testutil.NewDeterministicClock(), IDs: testutil.NewSequenceGenerator(prefix)}
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Opener {
		path := filepath.Join(t.TempDir(), "hbnb.db")
		return func() storage.Backend { return createTestStore(t, path) }
	})
}

func TestStore_Registered(t *testing.T) {
	assert.Contains(t, storage.Backends(), config.StorageDB)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestOpen_ThroughEngine(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage = config.StorageDB
	cfg.DB.Driver = DriverSQLite
	cfg.DB.DSN = filepath.Join(t.TempDir(), "hbnb.db")

	eng, err := storage.Open(ctx, cfg, storage.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer eng.Close()

	_, ok := eng.Backend().(storage.ChildFinder)
	assert.True(t, ok, "db backend pushes child lookups into SQL")

	st := &model.State{Base: model.NewBase(), Name: "Nevada"}
	require.NoError(t, eng.Create(ctx, st))
	n, err := eng.Count(ctx, model.KindState)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_ResetDropsTables(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hbnb.db")

	first := createTestStore(t, path)
	require.NoError(t, first.New(ctx, &model.Amenity{Base: model.NewBase(), Name: "Pool"}))
	require.NoError(t, first.Link(ctx, "p1", "a1"))
	require.NoError(t, first.Save(ctx))
	require.NoError(t, first.Close())

	kept := createTestStore(t, path)
	n, err := kept.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, kept.Close())

	reset := createTestStore(t, path, WithReset(true))
	n, err = reset.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	links, err := reset.Links(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestStore_StagedWorkIsPrivateUntilSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hbnb.db")
	writer := createTestStore(t, path)
	reader := createTestStore(t, path)
	f := newFactory("st")

	st := &model.State{Base: f.NewBase(), Name: "Oregon"}
	require.NoError(t, writer.New(ctx, st))

	got, err := writer.Get(ctx, model.KindState, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got, "staged entity visible to its own store")

	got, err = reader.Get(ctx, model.KindState, st.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "not visible elsewhere before save")

	require.NoError(t, writer.Save(ctx))
	got, err = reader.Get(ctx, model.KindState, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestStore_StagedDeleteHidesRow(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, filepath.Join(t.TempDir(), "hbnb.db"))
	f := newFactory("del")

	st := &model.State{Base: f.NewBase(), Name: "Utah"}
	city := &model.City{Base: f.NewBase(), StateID: st.ID, Name: "Provo"}
	require.NoError(t, s.New(ctx, st))
	require.NoError(t, s.New(ctx, city))
	require.NoError(t, s.Save(ctx))

	require.NoError(t, s.Delete(ctx, city))
	rel, ok := model.RelationBetween(model.KindState, model.KindCity)
	require.True(t, ok)

	children, err := s.Children(ctx, rel, st.ID)
	require.NoError(t, err)
	assert.Empty(t, children)

	n, err := s.Count(ctx, model.KindCity)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Reload(ctx))
	children, err = s.Children(ctx, rel, st.ID)
	require.NoError(t, err)
	assert.Len(t, children, 1, "reload discards the staged delete")
}

func TestStore_PlaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hbnb.db")
	s := createTestStore(t, path)
	f := newFactory("rt")

	place := &model.Place{Base: f.NewBase(), CityID: "c1", UserID: "u1", Name: "Loft",
		Description: "top floor", NumberRooms: 3, NumberBathrooms: 2, MaxGuest: 6,
		PriceByNight: 250, Latitude: 37.7749, Longitude: -122.4194}
	require.NoError(t, s.New(ctx, place))
	require.NoError(t, s.Save(ctx))

	other := createTestStore(t, path)
	got, err := other.Get(ctx, model.KindPlace, place.ID)
	require.NoError(t, err)
	assert.Equal(t, place, got)
}

func TestStore_SaveFailureKeepsStage(t *testing.T) {
	ctx := context.Background()
	s, mock := createMockStore(t)
	st := &model.State{Base: newFactory("mock").NewBase(), Name: "Texas"}
	require.NoError(t, s.New(ctx, st))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "states"`)).
		WithArgs(st.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "states"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Save(ctx)
	require.Error(t, err)
	assert.True(t, storage.IsDurability(err))
	assert.Contains(t, err.Error(), "disk full")

	got, err := s.Get(ctx, model.KindState, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got, "stage survives a failed save")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "states"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "states"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveWithEmptyStageIsNoop(t *testing.T) {
	s, mock := createMockStore(t)
	require.NoError(t, s.Save(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveLinks(t *testing.T) {
	ctx := context.Background()
	s, mock := createMockStore(t)
	require.NoError(t, s.Link(ctx, "p1", "a1"))
	require.NoError(t, s.Unlink(ctx, "p1", "a2"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "place_amenity"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "place_amenity"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "place_amenity"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ChildrenFiltersInSQL(t *testing.T) {
	ctx := context.Background()
	s, mock := createMockStore(t)
	rel, ok := model.RelationBetween(model.KindState, model.KindCity)
	require.True(t, ok)

	rows := sqlmock.NewRows(model.Attributes(model.KindCity)).
		AddRow("c1", "2017-03-25T02:17:06.000000", "2017-03-25T02:17:07.000000", "s1", "Napa")
	mock.ExpectQuery(`FROM "cities" WHERE \("state_id" = \$1\)`).
		WithArgs("s1").
		WillReturnRows(rows)

	children, err := s.Children(ctx, rel, "s1")
	require.NoError(t, err)
	require.Len(t, children, 1)
	city := children["c1"].(*model.City)
	assert.Equal(t, "Napa", city.Name)
	assert.Equal(t, "s1", city.StateID)
	assert.Equal(t, testutil.Epoch, city.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CorruptRowIsDurabilityError(t *testing.T) {
	s, mock := createMockStore(t)
	rows := sqlmock.NewRows(model.Attributes(model.KindState)).
		AddRow("s1", "yesterday", "today", "Iowa")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "states"`)).WillReturnRows(rows)

	_, err := s.Get(context.Background(), model.KindState, "s1")
	require.Error(t, err)
	assert.True(t, storage.IsDurability(err))
}

func TestStore_QueryErrorIsDurabilityError(t *testing.T) {
	s, mock := createMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "amenities"`)).WillReturnError(errors.New("connection reset"))

	_, err := s.All(context.Background(), model.KindAmenity)
	require.Error(t, err)
	assert.True(t, storage.IsDurability(err))
}

func TestStore_WrappedHandleCannotReconnect(t *testing.T) {
	s, mock := createMockStore(t)
	mock.ExpectClose()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err := s.Count(context.Background(), "")
	require.Error(t, err)
	assert.True(t, storage.IsDurability(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReopensAfterClose(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, filepath.Join(t.TempDir(), "hbnb.db"))
	st := &model.State{Base: model.NewBase(), Name: "Idaho"}
	require.NoError(t, s.New(ctx, st))
	require.NoError(t, s.Save(ctx))
	require.NoError(t, s.New(ctx, &model.State{Base: model.NewBase(), Name: "Unsaved"}))

	require.NoError(t, s.Close())

	all, err := s.All(ctx, model.KindState)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, st, all[st.ID])
}
