package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/hbnb/internal/model"
)

func TestError_Predicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"not found", NotFoundError("get", model.KindState, "s1"), IsNotFound},
		{"malformed", MalformedError("update", model.KindPlace, errors.New("bad")), IsMalformed},
		{"durability", DurabilityError("save", errors.New("disk full")), IsDurability},
		{"referential", ReferentialError("link", model.KindAmenity, "a1"), IsReferential},
	}
	predicates := []func(error) bool{IsNotFound, IsMalformed, IsDurability, IsReferential}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.True(t, tt.is(fmt.Errorf("wrapped: %w", tt.err)))

			matches := 0
			for _, p := range predicates {
				if p(tt.err) {
					matches++
				}
			}
			assert.Equal(t, 1, matches, "exactly one predicate matches")
		})
	}
}

func TestError_PredicatesRejectPlainErrors(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsNotFound(err))
	assert.False(t, IsMalformed(err))
	assert.False(t, IsDurability(err))
	assert.False(t, IsReferential(err))
	assert.False(t, IsDurability(nil))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: show State.s1", NotFoundError("show", model.KindState, "s1").Error())
	assert.Equal(t, "DURABILITY: save: disk full", DurabilityError("save", errors.New("disk full")).Error())
	assert.Equal(t, "MALFORMED_INPUT: all Planet: unknown kind \"Planet\"",
		CheckKind("all", "Planet").Error())
	assert.Equal(t, "REFERENTIAL: link Amenity.a1: Amenity a1 does not exist",
		ReferentialError("link", model.KindAmenity, "a1").Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := DurabilityError("save", cause)
	assert.ErrorIs(t, err, cause)
}
