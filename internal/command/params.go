package command

import (
	"fmt"
	"strconv"
	"strings"
)

func stringParam(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func boolParam(params map[string]any, key string) bool {
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

// textsParam accepts a list of texts or a single value, which becomes a
// one-element list.
func textsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case nil:
		return []string{}
	case []string:
		return v
	case []any:
		texts := make([]string, 0, len(v))
		for _, item := range v {
			texts = append(texts, fmt.Sprint(item))
		}
		return texts
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	default:
		return []string{fmt.Sprint(v)}
	}
}
