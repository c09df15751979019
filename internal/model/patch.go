package model

import "fmt"

// Patch is a set of attribute updates keyed by persisted attribute name.
type Patch map[string]any

// protected lists attributes no patch may change, per kind. Base fields are
// protected for every kind.
var protected = map[Kind][]string{
	KindCity:   {"state_id"},
	KindPlace:  {"city_id", "user_id"},
	KindReview: {"place_id", "user_id"},
	KindUser:   {"email"},
}

// Mutable returns the attributes Apply will change for kind k.
func Mutable(k Kind) []string {
	switch k {
	case KindState, KindCity, KindAmenity:
		return []string{"name"}
	case KindUser:
		return []string{"password", "first_name", "last_name"}
	case KindPlace:
		return []string{
			"name", "description", "number_rooms", "number_bathrooms",
			"max_guest", "price_by_night", "latitude", "longitude",
		}
	case KindReview:
		return []string{"text"}
	}
	return nil
}

// Protected reports whether field may never be patched on kind k.
func Protected(k Kind, field string) bool {
	switch field {
	case "id", "created_at", "updated_at", "__class__":
		return true
	}
	for _, f := range protected[k] {
		if f == field {
			return true
		}
	}
	return false
}

// patcher applies allow-listed fields for one entity. Unknown and protected
// keys are ignored; values of the wrong shape fail the whole patch before any
// field is written.
type patcher struct {
	kind    Kind
	patch   Patch
	pending []func()
	err     error
}

func newPatcher(k Kind, p Patch) *patcher {
	return &patcher{kind: k, patch: p}
}

func (p *patcher) str(key string, dst *string) {
	v, ok := p.patch[key]
	if !ok || p.err != nil {
		return
	}
	s, ok := asString(v)
	if !ok {
		p.fail(key, fmt.Sprintf("want string, got %T", v))
		return
	}
	p.pending = append(p.pending, func() { *dst = s })
}

func (p *patcher) int(key string, dst *int) {
	v, ok := p.patch[key]
	if !ok || p.err != nil {
		return
	}
	n, ok := asInt(v)
	if !ok {
		p.fail(key, fmt.Sprintf("want integer, got %v", v))
		return
	}
	p.pending = append(p.pending, func() { *dst = n })
}

func (p *patcher) float(key string, dst *float64) {
	v, ok := p.patch[key]
	if !ok || p.err != nil {
		return
	}
	f, ok := asFloat(v)
	if !ok {
		p.fail(key, fmt.Sprintf("want number, got %v", v))
		return
	}
	p.pending = append(p.pending, func() { *dst = f })
}

func (p *patcher) fail(key, reason string) {
	p.err = &FieldError{Kind: p.kind, Field: key, Reason: reason}
}

func (p *patcher) commit() error {
	if p.err != nil {
		return p.err
	}
	for _, set := range p.pending {
		set()
	}
	return nil
}
