package handlers

import (
	"strings"

	"affiliate-studio/internal/prompt"
)

// splitList splits command arguments on commas, or on whitespace when the
// user typed no comma.
func splitList(args string) []string {
	args = strings.TrimSpace(args)
	if args == "" {
		return nil
	}

	var raw []string
	if strings.Contains(args, ",") {
		raw = strings.Split(args, ",")
	} else {
		raw = strings.Fields(args)
	}

	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// resolveAngles maps ids or labels to catalog angle labels, keeping order.
func resolveAngles(cat *prompt.Catalog, tokens []string) (labels, unknown []string) {
	for _, t := range tokens {
		if a, ok := cat.Angle(t); ok {
			labels = append(labels, a.Label)
			continue
		}
		unknown = append(unknown, t)
	}
	return labels, unknown
}

// isReferenceCaption reports whether a photo's caption marks it as the style
// reference rather than a product image.
func isReferenceCaption(caption string) bool {
	c := strings.ToLower(strings.TrimSpace(caption))
	if c == "" {
		return false
	}

	keywords := []string{
		"#ref", "ref", "reference", "referensi",
		"style", "gaya",
	}
	first := strings.TrimRight(strings.Fields(c)[0], ":,.-")
	for _, kw := range keywords {
		if first == kw {
			return true
		}
	}
	return false
}

func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
