package dom

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClassList is an element's class attribute split into tokens, in order.
type ClassList []string

// First returns the first class token, or "" when there is none.
func (c ClassList) First() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// String joins the tokens back into an attribute value.
func (c ClassList) String() string {
	return strings.Join(c, " ")
}

// ParseClassList normalizes a class attribute value of any shape into a
// ClassList. Plain strings are split on whitespace. Everything else is
// coerced to a string first:
//
//   - SVG animated strings ({"baseVal": "..."}) use baseVal
//   - raw JSON is decoded and normalized again
//   - fmt.Stringer values use String()
//   - token lists ([]string, []any) are joined
//   - anything else goes through fmt.Sprint
func ParseClassList(v any) ClassList {
	switch x := v.(type) {
	case nil:
		return nil
	case ClassList:
		return x
	case string:
		return tokenize(x)
	case json.RawMessage:
		return parseRaw(x)
	case []byte:
		return parseRaw(x)
	case map[string]any:
		if base, ok := x["baseVal"]; ok {
			return ParseClassList(base)
		}
		return nil
	case []string:
		return tokenize(strings.Join(x, " "))
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, fmt.Sprint(p))
		}
		return tokenize(strings.Join(parts, " "))
	case fmt.Stringer:
		return tokenize(x.String())
	default:
		return tokenize(fmt.Sprint(x))
	}
}

func parseRaw(raw []byte) ClassList {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return tokenize(string(raw))
	}
	return ParseClassList(decoded)
}

func tokenize(s string) ClassList {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return ClassList(fields)
}
