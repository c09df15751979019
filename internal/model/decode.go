package model

import (
	"errors"
	"fmt"
)

// FromMap reconstructs an entity from a record produced by ToMap. The record
// must carry a "__class__" tag; unknown tags yield ErrUnknownKind.
func FromMap(rec map[string]any) (Entity, error) {
	tag, err := stringField(rec, ClassKey)
	if err != nil {
		return nil, err
	}
	return FromRecord(Kind(tag), rec)
}

// FromRecord reconstructs an entity of kind k from a flat record. Attributes
// the record lacks take their zero value; id and created_at are required.
func FromRecord(k Kind, rec map[string]any) (Entity, error) {
	e, err := Empty(k)
	if err != nil {
		return nil, err
	}
	if err := e.Meta().decode(rec); err != nil {
		return nil, withKind(k, err)
	}
	if err := decodeAttributes(e, rec); err != nil {
		return nil, withKind(k, err)
	}
	return e, nil
}

func withKind(k Kind, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) && fe.Kind == "" {
		fe.Kind = k
	}
	return fmt.Errorf("decode %s: %w", k, err)
}

func decodeAttributes(e Entity, rec map[string]any) error {
	d := decoder{rec: rec}
	switch v := e.(type) {
	case *State:
		d.str("name", &v.Name)
	case *City:
		d.str("state_id", &v.StateID)
		d.str("name", &v.Name)
	case *User:
		d.str("email", &v.Email)
		d.str("password", &v.Password)
		d.str("first_name", &v.FirstName)
		d.str("last_name", &v.LastName)
	case *Place:
		d.str("city_id", &v.CityID)
		d.str("user_id", &v.UserID)
		d.str("name", &v.Name)
		d.str("description", &v.Description)
		d.int("number_rooms", &v.NumberRooms)
		d.int("number_bathrooms", &v.NumberBathrooms)
		d.int("max_guest", &v.MaxGuest)
		d.int("price_by_night", &v.PriceByNight)
		d.float("latitude", &v.Latitude)
		d.float("longitude", &v.Longitude)
	case *Review:
		d.str("place_id", &v.PlaceID)
		d.str("user_id", &v.UserID)
		d.str("text", &v.Text)
	case *Amenity:
		d.str("name", &v.Name)
	}
	return d.err
}

type decoder struct {
	rec map[string]any
	err error
}

func (d *decoder) str(key string, dst *string) {
	if d.err == nil {
		*dst, d.err = stringField(d.rec, key)
	}
}

func (d *decoder) int(key string, dst *int) {
	if d.err == nil {
		*dst, d.err = intField(d.rec, key)
	}
}

func (d *decoder) float(key string, dst *float64) {
	if d.err == nil {
		*dst, d.err = floatField(d.rec, key)
	}
}

// Attributes lists the persisted attribute names of kind k, base fields
// first. It is the column list of the kind's relational table.
func Attributes(k Kind) []string {
	base := []string{"id", "created_at", "updated_at"}
	switch k {
	case KindState, KindAmenity:
		return append(base, "name")
	case KindCity:
		return append(base, "state_id", "name")
	case KindUser:
		return append(base, "email", "password", "first_name", "last_name")
	case KindPlace:
		return append(base, "city_id", "user_id", "name", "description",
			"number_rooms", "number_bathrooms", "max_guest", "price_by_night",
			"latitude", "longitude")
	case KindReview:
		return append(base, "place_id", "user_id", "text")
	}
	return nil
}
