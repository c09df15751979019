package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAssignments(t *testing.T) {
	attrs, skipped := parseAssignments([]string{
		`name="My_little_house"`,
		`description="say_\"hi\""`,
		"number_rooms=4",
		"latitude=37.77",
		"longitude=-122.43",
		"max_guest=lots",
		"price=1.2.3",
		"noequals",
		"=5",
	})

	assert.Equal(t, map[string]any{
		"name":         "My little house",
		"description":  `say "hi"`,
		"number_rooms": 4,
		"latitude":     37.77,
		"longitude":    -122.43,
	}, attrs)
	assert.Equal(t, []string{"max_guest=lots", "price=1.2.3", "noequals", "=5"}, skipped)
}

func TestParseValue_EmptyString(t *testing.T) {
	v, ok := parseValue(`""`)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = parseValue(`"`)
	assert.False(t, ok)
}
