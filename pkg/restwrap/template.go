package restwrap

import (
	"regexp"
	"slices"
	"strings"
)

// Params holds the values used to fill URL template placeholders.
type Params map[string]string

// placeholderPattern matches a {name} token. Literal braces cannot be
// expressed in a template; there is no escape syntax.
var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Placeholders returns the placeholder names of template in order of first
// appearance.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))

	for _, match := range matches {
		if !slices.Contains(names, match[1]) {
			names = append(names, match[1])
		}
	}

	return names
}

// ResolveTemplate fills every {name} token of template from params. Values are
// substituted verbatim. Params not referenced by the template are ignored.
func ResolveTemplate(template string, params Params) (string, error) {
	var missing []string

	for _, name := range Placeholders(template) {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return "", &UnboundPlaceholderError{Name: missing[0], Template: template, Missing: missing}
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		return params[strings.Trim(token, "{}")]
	}), nil
}

// UnusedParams returns the sorted names of params that template never references.
func UnusedParams(template string, params Params) []string {
	used := Placeholders(template)

	var unused []string

	for name := range params {
		if !slices.Contains(used, name) {
			unused = append(unused, name)
		}
	}

	slices.Sort(unused)

	return unused
}

func (p Params) merge(other Params) Params {
	merged := make(Params, len(p)+len(other))

	for key, value := range p {
		merged[key] = value
	}

	for key, value := range other {
		merged[key] = value
	}

	return merged
}
