package env

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseDotenv reads KEY=VALUE lines. A run of "#" lines directly above a
// variable becomes its comment; blank lines reset it. An "export " prefix
// and matching surrounding quotes are stripped.
func ParseDotenv(r io.Reader) (*Map, error) {
	m := &Map{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var comment []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			comment = nil
			continue
		case strings.HasPrefix(line, "#"):
			comment = append(comment, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}

		line = strings.TrimPrefix(line, "export ")
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '='", lineNo)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("line %d: %w", lineNo, ErrEmptyName)
		}

		e := New(name, unquote(strings.TrimSpace(value)))
		if len(comment) > 0 {
			e = e.WithComment(strings.Join(comment, "\n"))
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		m.Insert(e)
		comment = nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dotenv: %w", err)
	}
	return m, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1]
		}
	}
	return v
}
