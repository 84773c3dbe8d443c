package remote

import (
	"fmt"
	"strings"
	"time"
)

// lookup returns the value at a dotted path, or nil.
func lookup(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = doc
	for _, p := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// setPath writes value at a dotted path, creating intermediate objects.
func setPath(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(cur[p])
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// copyValue deep-copies maps and slices so stored documents never alias caller data.
func copyValue(v any) any {
	switch t := v.(type) {
	case Document:
		return copyMap(t)
	case map[string]any:
		return copyMap(t)
	case map[string]int64:
		out := make(map[string]any, len(t))
		for k, n := range t {
			out[k] = n
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	}
	return v
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toInt64(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("remote: field is %T, not a number", v)
}

// typeRank orders values of different kinds: nil < bool < number < string < time.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	case time.Time:
		return 4
	}
	if _, ok := toFloat(v); ok {
		return 2
	}
	return 5
}

// compareValues returns -1, 0 or 1.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		y := b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func listValues(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

func matches(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v := lookup(doc, f.Path)
		switch f.Op {
		case OpEqual:
			if typeRank(v) != typeRank(f.Value) || compareValues(v, f.Value) != 0 {
				return false
			}
		case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
			if v == nil || typeRank(v) != typeRank(f.Value) {
				return false
			}
			c := compareValues(v, f.Value)
			ok := (f.Op == OpLess && c < 0) || (f.Op == OpLessEqual && c <= 0) ||
				(f.Op == OpGreater && c > 0) || (f.Op == OpGreaterEqual && c >= 0)
			if !ok {
				return false
			}
		case OpIn:
			found := false
			for _, c := range listValues(f.Value) {
				if compareValues(v, c) == 0 && typeRank(v) == typeRank(c) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case OpArrayContains:
			found := false
			for _, e := range listValues(v) {
				if compareValues(e, f.Value) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}
