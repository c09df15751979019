package model

// Relation is a 1:N edge: every Child holds Parent's id in Column.
type Relation struct {
	Parent Kind
	Child  Kind
	Column string
}

// Relations enumerates every 1:N edge in the model.
var Relations = []Relation{
	{Parent: KindState, Child: KindCity, Column: "state_id"},
	{Parent: KindCity, Child: KindPlace, Column: "city_id"},
	{Parent: KindUser, Child: KindPlace, Column: "user_id"},
	{Parent: KindPlace, Child: KindReview, Column: "place_id"},
	{Parent: KindUser, Child: KindReview, Column: "user_id"},
}

// ChildRelations returns the edges whose parent is k.
func ChildRelations(k Kind) []Relation {
	var out []Relation
	for _, r := range Relations {
		if r.Parent == k {
			out = append(out, r)
		}
	}
	return out
}

// RelationBetween finds the edge from parent to child.
func RelationBetween(parent, child Kind) (Relation, bool) {
	for _, r := range Relations {
		if r.Parent == parent && r.Child == child {
			return r, true
		}
	}
	return Relation{}, false
}

// ForeignKey returns the value of the relation's column on child, or "" when
// child is not of the relation's child kind.
func (r Relation) ForeignKey(child Entity) string {
	switch v := child.(type) {
	case *City:
		if r.Column == "state_id" {
			return v.StateID
		}
	case *Place:
		switch r.Column {
		case "city_id":
			return v.CityID
		case "user_id":
			return v.UserID
		}
	case *Review:
		switch r.Column {
		case "place_id":
			return v.PlaceID
		case "user_id":
			return v.UserID
		}
	}
	return ""
}

// Link is one row of the Place/Amenity link table.
type Link struct {
	PlaceID   string `json:"place_id"`
	AmenityID string `json:"amenity_id"`
}
