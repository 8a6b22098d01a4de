package config

import "strings"

// prettyReplacements maps the labeled phrases of the human-friendly format to
// their reserved INI keys.
var prettyReplacements = map[string]string{
	"Objects:":    "objects=",
	"Force stop:": "force_stop=",
	"Version:":    "version=",
}

// FromPretty converts the human-friendly labeled format into the INI form
// consumed by ParseText. The line above the first separator line (one whose
// first character is "-") becomes the bracketed header; every following
// non-comment line has its label replaced and its first colon turned into "=".
func FromPretty(text string) (string, error) {
	lines := strings.Split(text, "\n")

	sepIdx := -1
	for idx, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "-") {
			sepIdx = idx
			break
		}
	}
	if sepIdx < 1 {
		return "", &ParseError{Reason: "could not find header separator line"}
	}

	var b strings.Builder
	b.WriteString("[" + strings.TrimSpace(lines[sepIdx-1]) + "]\n")

	for _, line := range lines[sepIdx+1:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for label, key := range prettyReplacements {
			if strings.HasPrefix(line, label) {
				line = strings.Replace(line, label, key, 1)
				break
			}
		}
		line = strings.Replace(line, ": ", "=", 1)
		line = strings.Replace(line, ":", "=", 1)
		line = strings.Replace(line, "= ", "=", 1)

		b.WriteString(line + "\n")
	}

	return strings.TrimSpace(b.String()), nil
}

// IsPretty reports whether text looks like the labeled format rather than the
// INI form, judged by its first non-blank, non-comment line.
func IsPretty(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return !strings.HasPrefix(line, "[")
	}
	return false
}
