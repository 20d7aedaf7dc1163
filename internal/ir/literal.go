package ir

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Literal renders a decoded JSON value as a Python literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return NullLiteral
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return QuoteString(x)
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Literal(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = QuoteString(k) + ": " + Literal(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return QuoteString(fmt.Sprint(x))
	}
}

// FormatNumber renders integral values without a fractional part.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// QuoteString renders s as a double-quoted Python string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// QuotePattern renders a regular expression as a raw Python string when it
// can be represented as one, and as an escaped string otherwise.
func QuotePattern(p string) string {
	if !strings.ContainsAny(p, "\"\n\r") && !strings.HasSuffix(p, `\`) {
		return `r"` + p + `"`
	}
	return QuoteString(p)
}
