package crunchdao

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/iancoleman/strcase"
)

// Row is an API object flattened into snake_case columns.
type Row map[string]any

// Int returns the named column as an integer.
func (r Row) Int(col string) (int, bool) {
	switch v := r[col].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// String returns the named column if it is a string.
func (r Row) String(col string) string {
	s, _ := r[col].(string)
	return s
}

// Bool returns the named column if it is a boolean.
func (r Row) Bool(col string) bool {
	b, _ := r[col].(bool)
	return b
}

// Time parses the named column as a date or RFC 3339 timestamp.
func (r Row) Time(col string) (time.Time, bool) {
	s, ok := r[col].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := parseTime(s)
	return t, err == nil
}

// Map returns r as a plain map.
func (r Row) Map() map[string]any {
	return map[string]any(r)
}

// merge copies src into r under snake_case keys, applying renames first and
// prefixing every key.
func (r Row) merge(src map[string]any, prefix string, renames map[string]string, drop ...string) {
	skip := make(map[string]bool, len(drop))
	for _, k := range drop {
		skip[k] = true
	}
	for k, v := range src {
		if skip[k] {
			continue
		}
		if to, ok := renames[k]; ok {
			k = to
		}
		r[prefix+strcase.ToSnake(k)] = v
	}
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
