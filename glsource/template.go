package glsource

import (
	"fmt"
	"regexp"
	"strings"
)

// funcTemplate is a GLSL source fragment with declared substitution points of
// the form ${name}. Rendering with an unknown or missing binding is an error,
// which keeps agent names and numeric flags from being spliced into the wrong
// slot silently.
type funcTemplate struct {
	text         string
	placeholders []string
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9]*)\}`)

func mustTemplate(text string) funcTemplate {
	seen := make(map[string]bool)
	var placeholders []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			placeholders = append(placeholders, m[1])
		}
	}
	return funcTemplate{text: text, placeholders: placeholders}
}

func (t funcTemplate) render(bindings map[string]string) (string, error) {
	for name := range bindings {
		if !t.has(name) {
			return "", fmt.Errorf("template has no placeholder %q", name)
		}
	}
	out := t.text
	for _, name := range t.placeholders {
		value, ok := bindings[name]
		if !ok {
			return "", fmt.Errorf("placeholder %q left unbound", name)
		}
		out = strings.ReplaceAll(out, "${"+name+"}", value)
	}
	return out, nil
}

func (t funcTemplate) has(name string) bool {
	for _, p := range t.placeholders {
		if p == name {
			return true
		}
	}
	return false
}

// SubstituteMacros replaces whole-word occurrences of each macro name in src.
// It is how the numeric scattering order and the ground-only flag are baked
// into shader variants: static values instead of uniforms avoid runtime
// branching and keep the active-uniform list meaningful when debugging.
func SubstituteMacros(src string, macros map[string]string) string {
	for name, value := range macros {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		src = pattern.ReplaceAllString(src, value)
	}
	return src
}
