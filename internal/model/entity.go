package model

import "fmt"

// Entity is implemented by the six kinds in this package and nothing else.
type Entity interface {
	// Kind returns the entity's kind tag.
	Kind() Kind
	// Meta exposes identity and timestamps.
	Meta() *Base
	// ToMap renders every persisted attribute, foreign keys included, as a
	// flat record tagged with "__class__".
	ToMap() map[string]any
	// Apply writes the allow-listed attributes present in p. Identity,
	// timestamps and foreign keys are left alone.
	Apply(p Patch) error
	// Clone returns an independent copy.
	Clone() Entity

	sealed()
}

// ClassKey is the record key holding the kind tag.
const ClassKey = "__class__"

// State is a top-level region owning cities.
type State struct {
	Base
	Name string
}

func (*State) Kind() Kind { return KindState }
func (*State) sealed()    {}

func (s *State) ToMap() map[string]any {
	m := s.fields()
	m[ClassKey] = string(KindState)
	m["name"] = s.Name
	return m
}

func (s *State) Apply(p Patch) error {
	pt := newPatcher(KindState, p)
	pt.str("name", &s.Name)
	return pt.commit()
}

func (s *State) Clone() Entity { c := *s; return &c }

// City belongs to a State.
type City struct {
	Base
	StateID string
	Name    string
}

func (*City) Kind() Kind { return KindCity }
func (*City) sealed()    {}

func (c *City) ToMap() map[string]any {
	m := c.fields()
	m[ClassKey] = string(KindCity)
	m["state_id"] = c.StateID
	m["name"] = c.Name
	return m
}

func (c *City) Apply(p Patch) error {
	pt := newPatcher(KindCity, p)
	pt.str("name", &c.Name)
	return pt.commit()
}

func (c *City) Clone() Entity { cp := *c; return &cp }

// User owns places and reviews. Email uniqueness is not enforced here.
type User struct {
	Base
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (*User) Kind() Kind { return KindUser }
func (*User) sealed()    {}

func (u *User) ToMap() map[string]any {
	m := u.fields()
	m[ClassKey] = string(KindUser)
	m["email"] = u.Email
	m["password"] = u.Password
	m["first_name"] = u.FirstName
	m["last_name"] = u.LastName
	return m
}

func (u *User) Apply(p Patch) error {
	pt := newPatcher(KindUser, p)
	pt.str("password", &u.Password)
	pt.str("first_name", &u.FirstName)
	pt.str("last_name", &u.LastName)
	return pt.commit()
}

func (u *User) Clone() Entity { c := *u; return &c }

// Place is a rentable listing in a City, hosted by a User.
type Place struct {
	Base
	CityID          string
	UserID          string
	Name            string
	Description     string
	NumberRooms     int
	NumberBathrooms int
	MaxGuest        int
	PriceByNight    int
	Latitude        float64
	Longitude       float64
}

func (*Place) Kind() Kind { return KindPlace }
func (*Place) sealed()    {}

func (pl *Place) ToMap() map[string]any {
	m := pl.fields()
	m[ClassKey] = string(KindPlace)
	m["city_id"] = pl.CityID
	m["user_id"] = pl.UserID
	m["name"] = pl.Name
	m["description"] = pl.Description
	m["number_rooms"] = pl.NumberRooms
	m["number_bathrooms"] = pl.NumberBathrooms
	m["max_guest"] = pl.MaxGuest
	m["price_by_night"] = pl.PriceByNight
	m["latitude"] = pl.Latitude
	m["longitude"] = pl.Longitude
	return m
}

func (pl *Place) Apply(p Patch) error {
	pt := newPatcher(KindPlace, p)
	pt.str("name", &pl.Name)
	pt.str("description", &pl.Description)
	pt.int("number_rooms", &pl.NumberRooms)
	pt.int("number_bathrooms", &pl.NumberBathrooms)
	pt.int("max_guest", &pl.MaxGuest)
	pt.int("price_by_night", &pl.PriceByNight)
	pt.float("latitude", &pl.Latitude)
	pt.float("longitude", &pl.Longitude)
	return pt.commit()
}

func (pl *Place) Clone() Entity { c := *pl; return &c }

// Review is a User's text about a Place.
type Review struct {
	Base
	PlaceID string
	UserID  string
	Text    string
}

func (*Review) Kind() Kind { return KindReview }
func (*Review) sealed()    {}

func (r *Review) ToMap() map[string]any {
	m := r.fields()
	m[ClassKey] = string(KindReview)
	m["place_id"] = r.PlaceID
	m["user_id"] = r.UserID
	m["text"] = r.Text
	return m
}

func (r *Review) Apply(p Patch) error {
	pt := newPatcher(KindReview, p)
	pt.str("text", &r.Text)
	return pt.commit()
}

func (r *Review) Clone() Entity { c := *r; return &c }

// Amenity is a feature linked to many places.
type Amenity struct {
	Base
	Name string
}

func (*Amenity) Kind() Kind { return KindAmenity }
func (*Amenity) sealed()    {}

func (a *Amenity) ToMap() map[string]any {
	m := a.fields()
	m[ClassKey] = string(KindAmenity)
	m["name"] = a.Name
	return m
}

func (a *Amenity) Apply(p Patch) error {
	pt := newPatcher(KindAmenity, p)
	pt.str("name", &a.Name)
	return pt.commit()
}

func (a *Amenity) Clone() Entity { c := *a; return &c }

// Empty returns a zero-valued entity of kind k.
func Empty(k Kind) (Entity, error) {
	switch k {
	case KindState:
		return &State{}, nil
	case KindCity:
		return &City{}, nil
	case KindUser:
		return &User{}, nil
	case KindPlace:
		return &Place{}, nil
	case KindReview:
		return &Review{}, nil
	case KindAmenity:
		return &Amenity{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

// Key returns the "<Kind>.<id>" key used by the file backend.
func Key(e Entity) string {
	return string(e.Kind()) + "." + e.Meta().ID
}
