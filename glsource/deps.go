package glsource

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxIncludeRecursion bounds dependency discovery. Legitimate include graphs
// are shallow; hitting the bound means a cycle.
const maxIncludeRecursion = 50

var headerIncludePattern = regexp.MustCompile(`^#include "([^"]+)(\.h\.glsl)"$`)

// LinkDependencies returns the sorted transitive set of fragment-source
// counterparts the named fragment shader must be linked with. Every header a
// shader includes is assumed to have a same-stem ".frag" companion, except
// the constants header which has none. Virtual generated sources are added
// but not scanned further.
func LinkDependencies(lib *Library, filename string) ([]string, error) {
	set := make(map[string]bool)
	if err := collectLinkDeps(lib, filename, 0, set); err != nil {
		return nil, err
	}
	deps := make([]string, 0, len(set))
	for name := range set {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	return deps, nil
}

func collectLinkDeps(lib *Library, filename string, depth int, out map[string]bool) error {
	if depth > maxIncludeRecursion {
		return fmt.Errorf("%w %d at %q", ErrRecursionLimit, maxIncludeRecursion, filename)
	}
	src, err := lib.Resolve(filename)
	if err != nil {
		return err
	}
	for _, line := range splitLines(src) {
		m := headerIncludePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		base := m[1]
		if base+m[2] == ConstantsHeader { // no companion source for constants header
			continue
		}
		companion := base + ".frag"
		out[companion] = true
		if !virtualSources[companion] && companion != filename {
			if err := collectLinkDeps(lib, companion, depth+1, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// NumberedSource renders src with 1-based line numbers in a fixed-width
// gutter, resetting the counter at #line directives the same way a GLSL
// compiler would. It is the source dump printed alongside compiler
// diagnostics.
func NumberedSource(src string) string {
	lines := splitLines(src)
	width := len(fmt.Sprint(len(lines)))
	var out strings.Builder
	n := 0
	for _, line := range lines {
		n++
		fmt.Fprintf(&out, "%*d %s\n", width, n, line)
		if m := linePattern.FindStringSubmatch(line); m != nil {
			logical, _ := strconv.Atoi(m[1])
			n = logical - 1
		}
	}
	return out.String()
}
