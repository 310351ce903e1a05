package markers

import (
	"regexp"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\{\{([^}|]+)(?:\|([^}]*))?\}\}`)

// Apply substitutes {{key}} and {{key|default}} placeholders from values.
// Unknown keys without a default are left as-is.
func Apply(template string, values map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		parts := placeholderRegex.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val, ok := values[parts[1]]; ok {
			return val
		}
		if strings.Contains(match, "|") {
			return parts[2]
		}
		return match
	})
}

// Render returns a copy of spec with placeholders resolved.
func (spec CheckSpec) Render(values map[string]string) CheckSpec {
	out := CheckSpec{Status: spec.Status}
	if len(spec.Contains) > 0 {
		out.Contains = make([]string, len(spec.Contains))
		for i, s := range spec.Contains {
			out.Contains[i] = Apply(s, values)
		}
	}
	if len(spec.Absent) > 0 {
		out.Absent = make([]string, len(spec.Absent))
		for i, s := range spec.Absent {
			out.Absent[i] = Apply(s, values)
		}
	}
	return out
}
