package sandbox

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Inspect renders a sandbox value as the bounded, language-neutral
// representation fed back to the LLM (§4.6): nesting stops at
// maxDepth and the whole rendering is truncated to maxWidth bytes, so a
// pathological or very large value cannot blow up the prompt.
func Inspect(v starlark.Value, maxDepth, maxWidth int) string {
	return truncateWidth(inspectDepth(v, maxDepth), maxWidth)
}

func inspectDepth(v starlark.Value, depth int) string {
	if depth <= 0 {
		return "…"
	}

	switch val := v.(type) {
	case *starlark.List:
		items := make([]string, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			items = append(items, inspectDepth(val.Index(i), depth-1))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case starlark.Tuple:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, inspectDepth(item, depth-1))
		}
		return "(" + strings.Join(items, ", ") + ")"
	case *starlark.Dict:
		items := make([]string, 0, val.Len())
		for _, item := range val.Items() {
			key, value := item[0], item[1]
			items = append(items, fmt.Sprintf("%s: %s", inspectDepth(key, depth-1), inspectDepth(value, depth-1)))
		}
		return "{" + strings.Join(items, ", ") + "}"
	case starlark.String:
		return string(val)
	case starlark.NoneType:
		return "None"
	default:
		return v.String()
	}
}

func truncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 || len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth] + "…"
}
