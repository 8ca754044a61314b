package model

import (
	"encoding/json"
	"math"
	"time"
)

// Helpers for reading loosely typed document fields.
//
// Documents round-trip through JSON, so numbers may come back as float64
// or json.Number depending on how they were decoded, and timestamps are
// ISO-8601 strings. These helpers absorb that variance in one place.

func docString(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key].(string)
	return v, ok
}

func docInt(fields map[string]any, key string) (int64, bool) {
	switch v := fields[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		// A fractional value is not an integer field; truncating it
		// would quietly change the stored amount.
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func docTime(fields map[string]any, key string) time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func docStringSlice(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
