package harness

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/hbnb/internal/model"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Expected any
	Actual   any
	Message  string
}

func (e *AssertionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: expected %v, got %v", e.Type, e.Expected, e.Actual)
}

func (h *Harness) assert(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertCount:
		return h.assertCount(a)
	case AssertExists, AssertAbsent:
		return h.assertPresence(ctx, a)
	case AssertAttrs:
		return h.assertAttrs(ctx, a)
	case AssertChildren:
		return h.assertChildren(ctx, a)
	case AssertAmenities:
		return h.assertAmenities(ctx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (h *Harness) assertCount(a Assertion) error {
	var got int
	if a.Kind != "" {
		got = h.result.Counts[a.Kind]
	} else {
		for _, n := range h.result.Counts {
			got += n
		}
	}
	if got != a.Count {
		return &AssertionError{Type: a.Type, Expected: a.Count, Actual: got}
	}
	return nil
}

func (h *Harness) assertPresence(ctx context.Context, a Assertion) error {
	r, ok := h.aliases[a.Ref]
	if !ok {
		return fmt.Errorf("unknown alias %q", a.Ref)
	}
	ent, err := h.eng.Get(ctx, r.kind, r.id)
	if err != nil {
		return err
	}
	if found := ent != nil; found != (a.Type == AssertExists) {
		return &AssertionError{Type: a.Type, Message: fmt.Sprintf("%s %s: expected present=%t", r.kind, a.Ref, !found)}
	}
	return nil
}

func (h *Harness) assertAttrs(ctx context.Context, a Assertion) error {
	r, ok := h.aliases[a.Ref]
	if !ok {
		return fmt.Errorf("unknown alias %q", a.Ref)
	}
	ent, err := h.eng.Get(ctx, r.kind, r.id)
	if err != nil {
		return err
	}
	if ent == nil {
		return &AssertionError{Type: a.Type, Message: fmt.Sprintf("%s %s does not exist", r.kind, a.Ref)}
	}
	rec := ent.ToMap()
	for key, want := range a.Expect {
		got, ok := rec[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s=%v", key, want), Actual: fmt.Sprintf("%s=%v", key, got)}
		}
	}
	return nil
}

func (h *Harness) assertChildren(ctx context.Context, a Assertion) error {
	r, ok := h.aliases[a.Ref]
	if !ok {
		return fmt.Errorf("unknown alias %q", a.Ref)
	}
	children, err := h.eng.Children(ctx, r.kind, r.id, model.Kind(a.Kind))
	if err != nil {
		return err
	}
	got := make([]string, 0, len(children))
	for id := range children {
		got = append(got, h.name(id))
	}
	return compareNames(a, got)
}

func (h *Harness) assertAmenities(ctx context.Context, a Assertion) error {
	amenities, err := h.eng.AmenitiesOf(ctx, h.id(a.Ref))
	if err != nil {
		return err
	}
	got := make([]string, 0, len(amenities))
	for _, am := range amenities {
		got = append(got, h.name(am.ID))
	}
	return compareNames(a, got)
}

func compareNames(a Assertion, got []string) error {
	want := slices.Clone(a.Refs)
	sort.Strings(want)
	sort.Strings(got)
	if !slices.Equal(want, got) {
		return &AssertionError{Type: a.Type, Expected: want, Actual: got}
	}
	return nil
}
