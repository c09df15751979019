package model

import (
	"fmt"
	"time"
)

// TimeLayout is the persisted timestamp format (microsecond precision, UTC).
const TimeLayout = "2006-01-02T15:04:05.000000"

// Base carries the identity and timestamps shared by every entity.
type Base struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Meta returns the embedded base so callers can reach identity fields through
// the Entity interface.
func (b *Base) Meta() *Base {
	return b
}

// Touch refreshes UpdatedAt. It never moves UpdatedAt before CreatedAt.
func (b *Base) Touch(now time.Time) {
	now = normalizeTime(now)
	if now.Before(b.CreatedAt) {
		now = b.CreatedAt
	}
	b.UpdatedAt = now
}

func (b *Base) fields() map[string]any {
	return map[string]any{
		"id":         b.ID,
		"created_at": b.CreatedAt.Format(TimeLayout),
		"updated_at": b.UpdatedAt.Format(TimeLayout),
	}
}

func (b *Base) decode(rec map[string]any) error {
	var err error
	if b.ID, err = stringField(rec, "id"); err != nil {
		return err
	}
	if b.ID == "" {
		return &FieldError{Field: "id", Reason: "missing"}
	}
	if b.CreatedAt, err = timeField(rec, "created_at"); err != nil {
		return err
	}
	if b.UpdatedAt, err = timeField(rec, "updated_at"); err != nil {
		return err
	}
	if b.UpdatedAt.Before(b.CreatedAt) {
		b.UpdatedAt = b.CreatedAt
	}
	return nil
}

// normalizeTime drops everything the persisted form cannot represent so an
// entity compares equal to its reloaded copy.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// ParseTime parses a TimeLayout timestamp. RFC 3339 is accepted as well.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		var rfcErr error
		if t, rfcErr = time.Parse(time.RFC3339Nano, s); rfcErr != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return normalizeTime(t), nil
}
