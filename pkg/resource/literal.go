package resource

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// literal renders a stored value as the Go expression that reproduces
// it. Every emitted form is one the source loader evaluates back to an
// equal value. A type with no literal form fails the whole
// serialization with NOT_SERIALIZABLE naming the offending path.
func literal(v any, path []string) (string, error) {
	switch t := v.(type) {
	case nil:
		return "nil", nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return floatLiteral(t, path)
	case string:
		return strconv.Quote(t), nil
	case []byte:
		return byteLiteral(t), nil
	case []any:
		return sliceLiteral(t, path)
	case map[string]any:
		return mapLiteral(t, path)
	case *Table:
		return tableLiteral(t, path)
	default:
		return "", NewErrorf(ErrCodeNotSerializable,
			"value of type %T has no literal form", v).WithPath(path...)
	}
}

// floatLiteral keeps the emitted token a Go float: integral values get
// a trailing ".0" so re-execution does not silently narrow to int.
func floatLiteral(f float64, path []string) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", NewErrorf(ErrCodeNotSerializable,
			"float value %v has no literal form", f).WithPath(path...)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

func byteLiteral(b []byte) string {
	if len(b) == 0 {
		return "[]byte{}"
	}
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("0x%02x", c)
	}
	return "[]byte{" + strings.Join(parts, ", ") + "}"
}

func sliceLiteral(s []any, path []string) (string, error) {
	parts := make([]string, len(s))
	for i, e := range s {
		lit, err := literal(e, path)
		if err != nil {
			return "", err
		}
		parts[i] = lit
	}
	return "[]any{" + strings.Join(parts, ", ") + "}", nil
}

func mapLiteral(m map[string]any, path []string) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		lit, err := literal(m[k], path)
		if err != nil {
			return "", err
		}
		parts[i] = strconv.Quote(k) + ": " + lit
	}
	return "map[string]any{" + strings.Join(parts, ", ") + "}", nil
}

func tableLiteral(t *Table, path []string) (string, error) {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = strconv.Quote(c)
	}

	var b strings.Builder
	b.WriteString("resource.NewTable([]string{")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString("}")
	for _, row := range t.Rows {
		lit, err := sliceLiteral(row, path)
		if err != nil {
			return "", err
		}
		b.WriteString(", ")
		b.WriteString(lit)
	}
	b.WriteString(")")
	return b.String(), nil
}
