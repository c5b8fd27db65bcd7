package expand

import (
	"regexp"
	"strings"
)

var listMarker = regexp.MustCompile(`^(?:\d{1,3}[.)]|[-*+•])(?:\s+|$)`)

// ParseQueries extracts at most n queries from model output, one per line.
func ParseQueries(output string, n int) []string {
	if n <= 0 {
		return []string{}
	}

	queries := make([]string, 0, n)
	for _, line := range strings.Split(output, "\n") {
		query := cleanLine(line)
		if query == "" {
			continue
		}
		queries = append(queries, query)
		if len(queries) == n {
			break
		}
	}
	return queries
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = listMarker.ReplaceAllString(line, "")
	return strings.TrimSpace(unquote(line))
}

func unquote(s string) string {
	pairs := [][2]string{{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"`", "`"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return s[len(p[0]) : len(s)-len(p[1])]
		}
	}
	return s
}
