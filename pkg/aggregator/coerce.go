package aggregator

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// objectIDPattern and uuidPattern mirror the shape checks
// result_aggregator.py's _compare_values_with_coercion uses to decide
// whether two differently-typed identifiers (a postgres uuid column, a
// mongo ObjectId, a plain string) should be compared as equivalent.
var (
	objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	uuidPattern     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// normalizeString renders identifiers (ObjectId-shaped hex, UUIDs,
// plain strings) held as a string or []byte to a comparable string
// form, following the source's practice of comparing Mongo ObjectIds
// against Postgres UUID/text columns as plain strings. Any other type
// reports false.
func normalizeString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// isIdentifierShaped reports whether s looks like a Mongo ObjectId or a
// UUID, the two identifier shapes the source special-cases: both are
// hex strings that would otherwise misparse as nothing useful, but
// must never be mistaken for a bare number or a date.
func isIdentifierShaped(s string) bool {
	return objectIDPattern.MatchString(s) || uuidPattern.MatchString(s)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		if isIdentifierShaped(t) {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// stringSlice renders every element of v to a string, failing if any
// element has no string form.
func stringSlice(v []any) ([]string, bool) {
	out := make([]string, len(v))
	for i, e := range v {
		s, ok := normalizeString(e)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// compositeKey builds the lookup key for a multi-field join: each
// field's value is canonicalized independently and concatenated, so a
// row missing any field never matches (same as the source's tuple
// composite key, which requires every field present).
func compositeKey(row map[string]any, fields []string) (string, bool) {
	key := ""
	for i, f := range fields {
		v, ok := row[f]
		if !ok {
			return "", false
		}
		if i > 0 {
			key += "\x1f"
		}
		key += keyPart(v)
	}
	return key, true
}

// keyPart canonicalizes a join-key value the way
// _compare_values_with_coercion compares a pair of values, but rendered
// as a single hashable string rather than a pairwise predicate: this is
// what lets a join match a postgres numeric column against a mongo
// string column, or a string timestamp against a time.Time, without an
// O(rows_a * rows_b) comparison pass. Order of checks matters — a
// numeric string must canonicalize as a number before it falls through
// to the plain-string branch, and an identifier-shaped string must
// never be misread as a timestamp.
func keyPart(v any) string {
	if f, ok := asFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if t, ok := asTime(v); ok {
		return "t:" + t.Format(time.RFC3339Nano)
	}
	if list, ok := v.([]any); ok {
		if ss, ok := stringSlice(list); ok {
			sorted := append([]string(nil), ss...)
			sort.Strings(sorted)
			return "l:" + strings.Join(sorted, "\x1e")
		}
	}
	if s, ok := normalizeString(v); ok {
		return "s:" + s
	}
	return ""
}
