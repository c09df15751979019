package model

import "fmt"

// Kind names one of the six entity kinds. The string value is the class tag
// written into persisted records.
type Kind string

const (
	KindAmenity Kind = "Amenity"
	KindCity    Kind = "City"
	KindPlace   Kind = "Place"
	KindReview  Kind = "Review"
	KindState   Kind = "State"
	KindUser    Kind = "User"
)

// Kinds lists every kind in a fixed order.
var Kinds = []Kind{KindAmenity, KindCity, KindPlace, KindReview, KindState, KindUser}

var tables = map[Kind]string{
	KindAmenity: "amenities",
	KindCity:    "cities",
	KindPlace:   "places",
	KindReview:  "reviews",
	KindState:   "states",
	KindUser:    "users",
}

// Valid reports whether k is one of the six known kinds.
func (k Kind) Valid() bool {
	_, ok := tables[k]
	return ok
}

// Table returns the relational table name for k ("states", "cities", ...).
func (k Kind) Table() string {
	return tables[k]
}

// ParseKind accepts either the class tag ("State") or the table name
// ("states").
func ParseKind(s string) (Kind, error) {
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	for k, t := range tables {
		if t == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}
