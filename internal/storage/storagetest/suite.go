// Package storagetest holds the behaviour every storage.Backend must share.
// Backend packages run it from their own tests:
//
//	storagetest.Run(t, func(t *testing.T) storagetest.Opener {
//	    path := filepath.Join(t.TempDir(), "file.json")
//	    return func() storage.Backend { return filestore.Open(path) }
//	})
package storagetest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
	"github.com/roach88/hbnb/internal/testutil"
)

// Opener returns a new backend over the same durable location each call.
type Opener func() storage.Backend

// Setup prepares a fresh durable location for one test.
type Setup func(t *testing.T) Opener

// Fixture is an engine plus a factory for deterministic entities.
type Fixture struct {
	T       *testing.T
	Ctx     context.Context
	Engine  *storage.Engine
	Factory model.Factory
	open    Opener
}

// NewFixture opens and reloads an engine over a fresh location.
func NewFixture(t *testing.T, setup Setup) *Fixture {
	t.Helper()
	f := &Fixture{
		T:   t,
		Ctx: context.Background(),
		Factory: model.Factory{
			Clock: testutil.NewDeterministicClock(),
			IDs:   testutil.NewSequenceGenerator(t.Name()),
		},
		open: setup(t),
	}
	f.Engine = f.Reopen()
	return f
}

// Reopen builds a second, independent engine over the same durable state.
func (f *Fixture) Reopen() *storage.Engine {
	f.T.Helper()
	eng := storage.New(f.open(),
		storage.WithClock(f.Factory.Clock),
		storage.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(f.T, eng.Reload(f.Ctx))
	f.T.Cleanup(func() { eng.Close() })
	return eng
}

func (f *Fixture) State(name string) *model.State {
	s := &model.State{Base: f.Factory.NewBase(), Name: name}
	require.NoError(f.T, f.Engine.New(f.Ctx, s))
	return s
}

func (f *Fixture) City(s *model.State, name string) *model.City {
	c := &model.City{Base: f.Factory.NewBase(), StateID: s.ID, Name: name}
	require.NoError(f.T, f.Engine.New(f.Ctx, c))
	return c
}

func (f *Fixture) User(email string) *model.User {
	u := &model.User{Base: f.Factory.NewBase(), Email: email, Password: "pwd"}
	require.NoError(f.T, f.Engine.New(f.Ctx, u))
	return u
}

func (f *Fixture) Place(c *model.City, u *model.User, name string) *model.Place {
	p := &model.Place{Base: f.Factory.NewBase(), CityID: c.ID, UserID: u.ID, Name: name,
		NumberRooms: 2, MaxGuest: 4, PriceByNight: 100, Latitude: 37.77, Longitude: -122.42}
	require.NoError(f.T, f.Engine.New(f.Ctx, p))
	return p
}

func (f *Fixture) Review(p *model.Place, u *model.User, text string) *model.Review {
	r := &model.Review{Base: f.Factory.NewBase(), PlaceID: p.ID, UserID: u.ID, Text: text}
	require.NoError(f.T, f.Engine.New(f.Ctx, r))
	return r
}

func (f *Fixture) Amenity(name string) *model.Amenity {
	a := &model.Amenity{Base: f.Factory.NewBase(), Name: name}
	require.NoError(f.T, f.Engine.New(f.Ctx, a))
	return a
}

func (f *Fixture) Save() {
	f.T.Helper()
	require.NoError(f.T, f.Engine.Save(f.Ctx))
}

// Run executes the whole suite.
func Run(t *testing.T, setup Setup) {
	t.Run("MissingStateStartsEmpty", func(t *testing.T) { testMissingState(t, setup) })
	t.Run("GetAfterSave", func(t *testing.T) { testGetAfterSave(t, setup) })
	t.Run("GetAbsent", func(t *testing.T) { testGetAbsent(t, setup) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, setup) })
	t.Run("SaveIdempotent", func(t *testing.T) { testSaveIdempotent(t, setup) })
	t.Run("UpdateTouches", func(t *testing.T) { testUpdate(t, setup) })
	t.Run("CascadeState", func(t *testing.T) { testCascadeState(t, setup) })
	t.Run("CascadeUser", func(t *testing.T) { testCascadeUser(t, setup) })
	t.Run("ManyToMany", func(t *testing.T) { testManyToMany(t, setup) })
	t.Run("LinkRequiresBothEnds", func(t *testing.T) { testLinkReferential(t, setup) })
	t.Run("CountMatchesAll", func(t *testing.T) { testCountConsistency(t, setup) })
	t.Run("CaliforniaScenario", func(t *testing.T) { testCalifornia(t, setup) })
	t.Run("CloseDiscardsUnsaved", func(t *testing.T) { testCloseDiscards(t, setup) })
	t.Run("ReturnedEntitiesAreCopies", func(t *testing.T) { testCopies(t, setup) })
	t.Run("UnknownKind", func(t *testing.T) { testUnknownKind(t, setup) })
	t.Run("ConcurrentReaders", func(t *testing.T) { testConcurrentReaders(t, setup) })
}

func testMissingState(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)

	all, err := f.Engine.All(f.Ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := f.Engine.Count(f.Ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testGetAfterSave(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Nevada")
	u := f.User("host@example.com")
	c := f.City(s, "Reno")
	p := f.Place(c, u, "Cabin")
	f.Save()

	for _, want := range []model.Entity{s, u, c, p} {
		got, err := f.Engine.Get(f.Ctx, want.Kind(), want.Meta().ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func testGetAbsent(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	f.State("Oregon")
	f.Save()

	got, err := f.Engine.Get(f.Ctx, model.KindState, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testRoundTrip(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Texas")
	c := f.City(s, "Austin")
	u := f.User("ann@example.com")
	p := f.Place(c, u, "Loft")
	f.Review(p, u, "Lovely")
	a1 := f.Amenity("Wifi")
	a2 := f.Amenity("Pool")
	require.NoError(t, f.Engine.LinkAmenity(f.Ctx, p.ID, a1.ID))
	require.NoError(t, f.Engine.LinkAmenity(f.Ctx, p.ID, a2.ID))
	f.Save()

	before, err := f.Engine.All(f.Ctx, "")
	require.NoError(t, err)
	linksBefore, err := f.Engine.Links(f.Ctx)
	require.NoError(t, err)

	fresh := f.Reopen()
	after, err := fresh.All(f.Ctx, "")
	require.NoError(t, err)
	linksAfter, err := fresh.Links(f.Ctx)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.ElementsMatch(t, linksBefore, linksAfter)
	assert.Len(t, linksAfter, 2)
}

func testSaveIdempotent(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Utah")
	f.City(s, "Provo")
	f.Save()

	once, err := f.Reopen().All(f.Ctx, "")
	require.NoError(t, err)

	f.Save()
	twice, err := f.Reopen().All(f.Ctx, "")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func testUpdate(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Ohio")
	f.Save()

	got, err := f.Engine.Get(f.Ctx, model.KindState, s.ID)
	require.NoError(t, err)
	require.NoError(t, f.Engine.Update(f.Ctx, got, model.Patch{"name": "Buckeye", "id": "nope"}))

	reloaded, err := f.Reopen().Get(f.Ctx, model.KindState, s.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	st := reloaded.(*model.State)
	assert.Equal(t, "Buckeye", st.Name)
	assert.Equal(t, s.CreatedAt, st.CreatedAt)
	assert.True(t, st.UpdatedAt.After(st.CreatedAt))

	err = f.Engine.Update(f.Ctx, got, model.Patch{"name": 7})
	assert.True(t, storage.IsMalformed(err))
}

func testCascadeState(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	u := f.User("guest@example.com")
	s := f.State("Oregon")
	other := f.State("Idaho")
	keep := f.City(other, "Boise")
	for _, name := range []string{"Portland", "Eugene"} {
		c := f.City(s, name)
		p := f.Place(c, u, name+" flat")
		f.Review(p, u, "ok")
	}
	f.Save()

	require.NoError(t, f.Engine.Delete(f.Ctx, s))
	f.Save()

	eng := f.Reopen()
	cities, err := eng.All(f.Ctx, model.KindCity)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, keysOf(cities))

	for _, k := range []model.Kind{model.KindPlace, model.KindReview} {
		n, err := eng.Count(f.Ctx, k)
		require.NoError(t, err)
		assert.Zero(t, n, "kind %s", k)
	}

	n, err := eng.Count(f.Ctx, model.KindUser)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "users are not owned by states")
}

func testCascadeUser(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Maine")
	c := f.City(s, "Portland")
	host := f.User("host@example.com")
	guest := f.User("guest@example.com")
	hosted := f.Place(c, host, "Hosted")
	other := f.Place(c, guest, "Other")
	f.Review(hosted, guest, "by guest on hosted")
	f.Review(other, host, "by host on other")
	f.Review(other, guest, "by guest on other")
	a := f.Amenity("Wifi")
	require.NoError(t, f.Engine.LinkAmenity(f.Ctx, other.ID, a.ID))
	f.Save()

	require.NoError(t, f.Engine.Delete(f.Ctx, guest))
	f.Save()

	places, err := f.Engine.All(f.Ctx, model.KindPlace)
	require.NoError(t, err)
	assert.Equal(t, []string{hosted.ID}, keysOf(places))

	reviews, err := f.Engine.All(f.Ctx, model.KindReview)
	require.NoError(t, err)
	assert.Empty(t, reviews, "guest reviews and reviews of guest's place are gone")

	links, err := f.Engine.Links(f.Ctx)
	require.NoError(t, err)
	assert.Empty(t, links)

	amenity, err := f.Engine.Get(f.Ctx, model.KindAmenity, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, amenity)
}

func testManyToMany(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Vermont")
	c := f.City(s, "Burlington")
	u := f.User("u@example.com")
	p := f.Place(c, u, "Barn")
	a := f.Amenity("Fireplace")
	b := f.Amenity("Sauna")
	f.Save()

	require.NoError(t, f.Engine.LinkAmenity(f.Ctx, p.ID, a.ID))
	f.Save()
	once, err := f.Engine.AmenitiesOf(f.Ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.Engine.LinkAmenity(f.Ctx, p.ID, a.ID))
	f.Save()
	twice, err := f.Engine.AmenitiesOf(f.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	require.Len(t, twice, 1)
	assert.Equal(t, a.ID, twice[0].ID)

	require.NoError(t, f.Engine.LinkAmenity(f.Ctx, p.ID, b.ID))
	f.Save()
	places, err := f.Engine.PlacesWith(f.Ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, p.ID, places[0].ID)

	require.NoError(t, f.Engine.Delete(f.Ctx, a))
	f.Save()

	eng := f.Reopen()
	got, err := eng.Get(f.Ctx, model.KindPlace, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, got, "removing an amenity keeps the place")

	amenities, err := eng.AmenitiesOf(f.Ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, amenities, 1)
	assert.Equal(t, b.ID, amenities[0].ID)

	require.NoError(t, eng.UnlinkAmenity(f.Ctx, p.ID, b.ID))
	require.NoError(t, eng.Save(f.Ctx))
	links, err := eng.Links(f.Ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func testLinkReferential(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	a := f.Amenity("Wifi")
	f.Save()

	err := f.Engine.LinkAmenity(f.Ctx, "no-such-place", a.ID)
	assert.True(t, storage.IsReferential(err))
}

func testCountConsistency(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	check := func(step string) {
		for _, k := range append([]model.Kind{""}, model.Kinds...) {
			all, err := f.Engine.All(f.Ctx, k)
			require.NoError(t, err)
			n, err := f.Engine.Count(f.Ctx, k)
			require.NoError(t, err)
			assert.Equal(t, len(all), n, "%s: kind %q", step, k)
		}
	}

	check("empty")
	s := f.State("Iowa")
	check("after new")
	c := f.City(s, "Ames")
	f.Amenity("Parking")
	f.Save()
	check("after save")
	require.NoError(t, f.Engine.Delete(f.Ctx, c))
	check("after delete")
	f.Save()
	check("after second save")
	require.NoError(t, f.Engine.Delete(f.Ctx, s))
	f.State("Kansas")
	check("after mixed")
}

func testCalifornia(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s1 := &model.State{Base: f.Factory.NewBase(), Name: "California"}
	require.NoError(t, f.Engine.Create(f.Ctx, s1))
	c1 := &model.City{Base: f.Factory.NewBase(), Name: "San Francisco", StateID: s1.ID}
	require.NoError(t, f.Engine.Create(f.Ctx, c1))

	cities, err := f.Engine.Children(f.Ctx, model.KindState, s1.ID, model.KindCity)
	require.NoError(t, err)
	assert.Equal(t, []string{c1.ID}, keysOf(cities))

	typed, err := f.Engine.CitiesOf(f.Ctx, s1)
	require.NoError(t, err)
	require.Len(t, typed, 1)
	assert.Equal(t, "San Francisco", typed[0].Name)

	require.NoError(t, f.Engine.Delete(f.Ctx, s1))
	f.Save()

	all, err := f.Engine.All(f.Ctx, model.KindCity)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testCloseDiscards(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	kept := f.State("Saved")
	f.Save()
	f.State("Unsaved")

	require.NoError(t, f.Engine.Close())
	require.NoError(t, f.Engine.Close(), "close is idempotent")

	all, err := f.Engine.All(f.Ctx, model.KindState)
	require.NoError(t, err)
	assert.Equal(t, []string{kept.ID}, keysOf(all))
}

func testCopies(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Florida")
	f.Save()

	got, err := f.Engine.Get(f.Ctx, model.KindState, s.ID)
	require.NoError(t, err)
	got.(*model.State).Name = "Changed without save"

	again, err := f.Engine.Get(f.Ctx, model.KindState, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Florida", again.(*model.State).Name)
}

func testUnknownKind(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	_, err := f.Engine.All(f.Ctx, model.Kind("BaseModel"))
	assert.True(t, storage.IsMalformed(err))
	_, err = f.Engine.Count(f.Ctx, model.Kind("BaseModel"))
	assert.True(t, storage.IsMalformed(err))
}

func testConcurrentReaders(t *testing.T, setup Setup) {
	f := NewFixture(t, setup)
	s := f.State("Georgia")
	for i := 0; i < 5; i++ {
		f.City(s, "City")
	}
	f.Save()

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Engine.All(f.Ctx, model.KindCity); err != nil {
				errs <- err
			}
			if _, err := f.Engine.Count(f.Ctx, model.KindCity); err != nil {
				errs <- err
			}
			if _, err := f.Engine.Get(f.Ctx, model.KindState, s.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func keysOf(m map[string]model.Entity) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
