package document

import (
	"fmt"
	"strings"
)

// Segment is one step of a population path: a reference field name plus an
// optional projection restricting which fields are copied from the target.
type Segment struct {
	Field   string
	Project []string // nil or empty = full document
}

// Path is an ordered chain of segments. "posts.author" asks for the posts
// references to be expanded and, inside each resolved post, the author
// reference as well. Nothing is expanded that is not named here.
type Path struct {
	Segments []Segment
}

// String renders the path back to its wire form.
func (p Path) String() string {
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		if len(s.Project) > 0 {
			parts[i] = s.Field + "(" + strings.Join(s.Project, ",") + ")"
		} else {
			parts[i] = s.Field
		}
	}
	return strings.Join(parts, ".")
}

// ParsePath parses a dot-separated path specification. Each segment may
// carry a projection as a parenthesized field list:
//
//	posts
//	posts.author
//	posts(title,status).author(name)
func ParsePath(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	var p Path
	for _, part := range splitSegments(raw) {
		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("path %q: %w", raw, err)
		}
		p.Segments = append(p.Segments, seg)
	}
	return p, nil
}

// ParsePaths parses a comma-separated list of paths, preserving order.
// Projections use parentheses, so commas inside them do not split paths.
func ParsePaths(raw string) ([]Path, error) {
	var paths []Path
	for _, part := range splitTopLevel(raw, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := ParsePath(part)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func parseSegment(part string) (Segment, error) {
	part = strings.TrimSpace(part)
	open := strings.IndexByte(part, '(')
	if open < 0 {
		if part == "" {
			return Segment{}, fmt.Errorf("empty segment")
		}
		return Segment{Field: part}, nil
	}
	if !strings.HasSuffix(part, ")") {
		return Segment{}, fmt.Errorf("segment %q: unterminated projection", part)
	}
	field := strings.TrimSpace(part[:open])
	if field == "" {
		return Segment{}, fmt.Errorf("segment %q: missing field name", part)
	}
	var project []string
	for _, f := range strings.Split(part[open+1:len(part)-1], ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			project = append(project, f)
		}
	}
	return Segment{Field: field, Project: project}, nil
}

// splitSegments splits on '.' outside parentheses.
func splitSegments(raw string) []string {
	return splitTopLevel(raw, '.')
}

func splitTopLevel(raw string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				out = append(out, raw[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, raw[start:])
	return out
}
