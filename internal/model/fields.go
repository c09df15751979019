package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrUnknownKind is returned by FromMap when a record's class tag names no
// known kind.
var ErrUnknownKind = errors.New("unknown kind")

// FieldError reports an attribute whose value has the wrong shape.
type FieldError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s.%s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case nil:
		return "", true
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case []byte:
		i, err := strconv.Atoi(string(n))
		return i, err == nil
	case nil:
		return 0, true
	}
	return 0, false
}

// asFloat accepts finite numbers only; NaN and ±Inf cannot be persisted.
func asFloat(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case nil:
		return 0, true
	}
	return 0, false
}

func stringField(rec map[string]any, key string) (string, error) {
	v, ok := rec[key]
	if !ok {
		return "", nil
	}
	s, ok := asString(v)
	if !ok {
		return "", &FieldError{Field: key, Reason: fmt.Sprintf("want string, got %T", v)}
	}
	return s, nil
}

func intField(rec map[string]any, key string) (int, error) {
	v, ok := rec[key]
	if !ok {
		return 0, nil
	}
	n, ok := asInt(v)
	if !ok {
		return 0, &FieldError{Field: key, Reason: fmt.Sprintf("want integer, got %v", v)}
	}
	return n, nil
}

func floatField(rec map[string]any, key string) (float64, error) {
	v, ok := rec[key]
	if !ok {
		return 0, nil
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, &FieldError{Field: key, Reason: fmt.Sprintf("want number, got %v", v)}
	}
	return f, nil
}

func timeField(rec map[string]any, key string) (time.Time, error) {
	v, ok := rec[key]
	if !ok {
		return time.Time{}, &FieldError{Field: key, Reason: "missing"}
	}
	switch t := v.(type) {
	case time.Time:
		return normalizeTime(t), nil
	case string:
		return ParseTime(t)
	case []byte:
		return ParseTime(string(t))
	}
	return time.Time{}, &FieldError{Field: key, Reason: fmt.Sprintf("want timestamp, got %T", v)}
}
