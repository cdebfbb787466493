package glsource

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	includePattern = regexp.MustCompile(`^#include "([^"]+)"$`)
	linePattern    = regexp.MustCompile(`^\s*#\s*line\s+([0-9]+)\s+([0-9]+)\s*(?://\s*(.*))?$`)
)

// ExpandIncludes rewrites every `#include "x.h.glsl"` directive in src into
// the inlined header text. filename is used only for diagnostics. Each
// inlined body is delimited by #line markers recording the header slot number
// and the original file line to resume at, so that compiler diagnostics over
// the concatenated text can be translated back to the source they came from.
// Headers are expanded a single level deep: they must not include further
// headers themselves.
func ExpandIncludes(lib *Library, src, filename string) (string, error) {
	var out strings.Builder
	headerNumber := 1
	lineNumber := 0
	for _, line := range splitLines(src) {
		lineNumber++
		if !strings.HasPrefix(strings.TrimSpace(line), `#include "`) {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		m := includePattern.FindStringSubmatch(line)
		if m == nil {
			return "", fmt.Errorf("%s:%d: %w", filename, lineNumber, ErrIncludeSyntax)
		}
		headerName := m[1]
		if !strings.HasSuffix(headerName, HeaderSuffix) {
			return "", fmt.Errorf("%s:%d: %q: %w %q", filename, lineNumber, headerName, ErrHeaderSuffix, HeaderSuffix)
		}
		header, err := lib.resolveHeader(headerName)
		if err != nil {
			return "", fmt.Errorf("%s:%d: %w", filename, lineNumber, err)
		}
		fmt.Fprintf(&out, "#line 1 %d // %s\n", headerNumber, headerName)
		headerNumber++
		out.WriteString(header)
		if !strings.HasSuffix(header, "\n") {
			out.WriteByte('\n')
		}
		fmt.Fprintf(&out, "#line %d 0 // %s\n", lineNumber+1, filename)
	}
	return out.String(), nil
}

// TranslateExpandedLine maps a 1-based diagnostic line number over expanded
// source text back to the original location: the source name (header file or
// main file) and the line within it. Unknown positions past the end report
// the last tracked location.
func TranslateExpandedLine(expanded, mainFile string, diagLine int) (source string, line int) {
	source, line = mainFile, 1
	n := 0
	for _, l := range splitLines(expanded) {
		n++
		if n == diagLine {
			return source, line
		}
		if m := linePattern.FindStringSubmatch(l); m != nil {
			// The directive renumbers the following line.
			line, _ = strconv.Atoi(m[1])
			if m[2] == "0" {
				source = mainFile
			} else if m[3] != "" {
				source = m[3]
			}
			continue
		}
		line++
	}
	return source, line
}

// splitLines splits on newlines without producing a trailing empty line for
// newline-terminated text.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
