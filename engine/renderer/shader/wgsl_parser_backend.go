package shader

import (
	"regexp"
	"sort"
	"strings"
)

// stripComments blanks out line and block comments. Newlines are kept so byte offsets
// in the result map back to the same line and column of the original source.
//
// Parameters:
//   - source: raw WGSL source string
//
// Returns:
//   - string: source with all comments replaced by spaces
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments blanks out single-line // comments
func stripLineComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx] + strings.Repeat(" ", len(line)-idx)
		}
		sb.WriteString(line)
		if i < len(lines)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// stripBlockComments blanks out block comments (/* ... */), handling nested block comments
// as WGSL allows. Newlines inside a comment are preserved.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				sb.WriteString("  ")
				i += 2
				continue
			}
			if depth > 0 && source[i] == '*' && source[i+1] == '/' {
				depth--
				sb.WriteString("  ")
				i += 2
				continue
			}
		}
		if depth == 0 || source[i] == '\n' {
			sb.WriteByte(source[i])
		} else {
			sb.WriteByte(' ')
		}
		i++
	}
	return sb.String()
}

// lineColumn converts a byte offset into a 1-based line and column.
func lineColumn(source string, offset int) (int, int) {
	if offset > len(source) {
		offset = len(source)
	}
	prefix := source[:offset]
	line := strings.Count(prefix, "\n") + 1
	col := offset - strings.LastIndexByte(prefix, '\n')
	return line, col
}

// functionParams returns the text between the parentheses of the named function's parameter list.
//
// Parameters:
//   - cleaned: WGSL source with comments blanked out
//   - name: the function name
//
// Returns:
//   - string: the raw parameter list
//   - bool: false if the function or a balanced parameter list was not found
func functionParams(cleaned, name string) (string, bool) {
	re := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(name) + `\s*\(`)
	loc := re.FindStringIndex(cleaned)
	if loc == nil {
		return "", false
	}
	start := loc[1]
	depth := 1
	for i := start; i < len(cleaned); i++ {
		switch cleaned[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return cleaned[start:i], true
			}
		}
	}
	return "", false
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets
// or parentheses. This handles WGSL types like array<T, 6> and attributes with arguments.
//
// Parameters:
//   - s: the string to split (a struct body or a parameter list)
//
// Returns:
//   - []string: substrings between top-level commas
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func sortInputs(inputs []VertexInput) {
	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Location < inputs[j].Location
	})
}
