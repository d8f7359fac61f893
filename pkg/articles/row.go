package articles

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/query"
)

// Layouts seen in timestamp columns across the supported databases.
var timestampLayouts = []string{
	"20060102150405",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

func hasValue(row map[string]any, key string) bool {
	v, ok := row[key]
	return ok && v != nil
}

func rowString(row map[string]any, key string) (string, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	}
	return fmt.Sprint(v), true
}

func rowInt(row map[string]any, key string) (int64, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, false
	}
	n, err := query.ToInt64(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseTimestamp reads a stored UTC timestamp.
func parseTimestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts.UTC(), nil
	case []byte:
		return parseTimestamp(string(ts))
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", ts)
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
}
