package modeljson

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxUnwrapDepth bounds recursive re-parsing of double-stringified payloads.
// A model can nest a JSON string inside a JSON string a couple of levels
// deep; anything beyond this is treated as plain text.
const maxUnwrapDepth = 4

// Normalize coerces a parsed value into the shape declared for genCtx. It
// never fails: a field that cannot be coerced is replaced by its kind's
// default. Callers should treat an unexpectedly empty result as a quality
// signal, not an error. Normalize is idempotent.
func Normalize(v any, genCtx GenContext) map[string]any {
	shape, ok := contextShapes[genCtx]
	if !ok {
		shape = map[string]fieldKind{}
	}

	obj, ok := unwrap(v, 0).(map[string]any)
	if !ok {
		obj = map[string]any{}
	}

	out := make(map[string]any, len(obj)+len(shape))
	for k, val := range obj {
		out[k] = val
	}
	for field, kind := range shape {
		switch kind {
		case kindSequence:
			out[field] = EnsureSequence(out[field])
		case kindInteger:
			out[field] = ExtractFirstInteger(out[field])
		case kindText:
			out[field] = FlattenText(out[field])
		}
	}
	return out
}

// unwrap peels off layers of stringified JSON up to maxUnwrapDepth.
func unwrap(v any, depth int) any {
	if depth >= maxUnwrapDepth {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "\"") {
		return v
	}
	var inner any
	if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
		return v
	}
	return unwrap(inner, depth+1)
}

// EnsureSequence coerces a value into a slice. Strings that themselves
// contain JSON (models sometimes double-encode a list as a string) are
// re-parsed; any other scalar becomes a singleton.
func EnsureSequence(v any) []any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		return t
	case string:
		if t == "" {
			return []any{}
		}
		inner := unwrap(t, 0)
		if seq, ok := inner.([]any); ok {
			return seq
		}
		return []any{inner}
	default:
		return []any{v}
	}
}

// ExtractFirstInteger coerces a value into an int. Strings fall back to a
// digit scan, so "Week 3" yields 3. Unusable values yield 0.
func ExtractFirstInteger(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
	case string:
		start := -1
		for i := 0; i < len(t); i++ {
			if t[i] >= '0' && t[i] <= '9' {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				return atoiOrZero(t[start:i])
			}
		}
		if start >= 0 {
			return atoiOrZero(t[start:])
		}
	}
	return 0
}

func atoiOrZero(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
		if n < 0 {
			return 0
		}
	}
	return n
}

// FlattenText coerces a value into free text. Objects are flattened to
// "key: value" lines (sorted by key, for determinism) so no structured
// payload leaks into a downstream text renderer.
func FlattenText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, FlattenText(t[k])))
		}
		return strings.Join(parts, "\n")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, FlattenText(item))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprintf("%v", v)
	}
}
