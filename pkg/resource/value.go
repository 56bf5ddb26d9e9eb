package resource

import "sort"

// normalizeValue canonicalizes a value for storage in the tree.
// All integer types collapse to int64 and float32 widens to float64,
// so that a value survives a serialize/load cycle unchanged: the loader
// produces int64/float64 for numeric literals, and AllValues equality
// must not depend on which Go integer type the author happened to use.
// Containers are normalized recursively.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool, string, int64, float64, []byte, *Table:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = int64(e)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		// Unrecognized types are stored as-is; the serializer rejects
		// them with NOT_SERIALIZABLE if they reach ToSource.
		return v
	}
}

// deepCopyValue returns a copy of v that shares no mutable state with it.
// Values handed out by AllValues and Replicate are copied so callers
// cannot mutate the tree behind its back.
func deepCopyValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopyValue(e)
		}
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	case *Table:
		return t.clone()
	default:
		return t
	}
}

// sortedKeys returns the keys of m in lexicographic order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
