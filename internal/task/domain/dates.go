package domain

import (
	"encoding/json"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// CanonicalTimeLayout is the single wire format for dates in task views
const CanonicalTimeLayout = "2006-01-02T15:04:05.000Z"

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInstant converts the date shapes found in stored documents and
// request bodies into a time. Recognized: time.Time, *time.Time,
// *timestamppb.Timestamp, epoch-seconds objects ({"seconds": n} or
// {"_seconds": n} with optional nanoseconds), integer epoch seconds and
// ISO-8601 strings. Anything else, including nil, yields nil.
func ParseInstant(v any) *time.Time {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		if val.IsZero() {
			return nil
		}
		t := val.UTC()
		return &t
	case *time.Time:
		if val == nil {
			return nil
		}
		return ParseInstant(*val)
	case *timestamppb.Timestamp:
		if val == nil || val.CheckValid() != nil {
			return nil
		}
		t := val.AsTime().UTC()
		return &t
	case map[string]any:
		return parseEpochObject(val)
	case string:
		return parseISO(val)
	case *string:
		if val == nil {
			return nil
		}
		return parseISO(*val)
	case int64:
		t := time.Unix(val, 0).UTC()
		return &t
	case int:
		t := time.Unix(int64(val), 0).UTC()
		return &t
	case float64:
		t := time.Unix(int64(val), 0).UTC()
		return &t
	case json.Number:
		if n, err := val.Int64(); err == nil {
			t := time.Unix(n, 0).UTC()
			return &t
		}
	}
	return nil
}

func parseEpochObject(m map[string]any) *time.Time {
	secs, ok := numberField(m, "seconds", "_seconds")
	if !ok {
		return nil
	}
	nanos, _ := numberField(m, "nanoseconds", "_nanoseconds", "nanos")
	t := time.Unix(secs, nanos).UTC()
	return &t
}

func numberField(m map[string]any, keys ...string) (int64, bool) {
	for _, k := range keys {
		switch n := m[k].(type) {
		case int64:
			return n, true
		case int:
			return int64(n), true
		case float64:
			return int64(n), true
		case json.Number:
			if v, err := n.Int64(); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func parseISO(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FormatInstant renders t in the canonical layout, or nil when absent
func FormatInstant(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(CanonicalTimeLayout)
	return &s
}

// NormalizeInstant is ParseInstant followed by FormatInstant
func NormalizeInstant(v any) *string {
	return FormatInstant(ParseInstant(v))
}
