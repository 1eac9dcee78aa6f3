package router

import (
	"regexp"
	"strings"
)

// PathMatcher is the interface for path matching.
type PathMatcher interface {
	Match(path string) (bool, map[string]string)
	Type() string
	Pattern() string
}

// ExactMatcher matches exact paths.
type ExactMatcher struct {
	path string
}

// NewExactMatcher creates a new exact path matcher.
func NewExactMatcher(path string) *ExactMatcher {
	return &ExactMatcher{path: path}
}

// Match checks if the path matches exactly.
func (m *ExactMatcher) Match(path string) (matched bool, params map[string]string) {
	return path == m.path, nil
}

// Type returns the matcher type.
func (m *ExactMatcher) Type() string {
	return "exact"
}

// Pattern returns the pattern.
func (m *ExactMatcher) Pattern() string {
	return m.path
}

// RegexMatcher matches paths using regular expressions. Named groups,
// written (?<name>...) or (?P<name>...), are returned as parameters.
type RegexMatcher struct {
	pattern string
	regex   *regexp.Regexp
}

// NewRegexMatcher creates a new regex path matcher.
func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexMatcher{pattern: pattern, regex: regex}, nil
}

// Match checks if the path matches the regex.
func (m *RegexMatcher) Match(path string) (matched bool, params map[string]string) {
	return matchNamed(m.regex, path)
}

// Type returns the matcher type.
func (m *RegexMatcher) Type() string {
	return "regex"
}

// Pattern returns the pattern.
func (m *RegexMatcher) Pattern() string {
	return m.pattern
}

// GlobMatcher matches ant-style path patterns. A single star matches
// within one segment and a double star matches across segments. A
// {name} segment matches one segment and captures it as parameter name.
//
// A trailing "/**" also matches the bare prefix, so /api/pagos/** matches
// /api/pagos as well as /api/pagos/1.
type GlobMatcher struct {
	pattern string
	regex   *regexp.Regexp
}

// NewGlobMatcher creates a new glob path matcher.
func NewGlobMatcher(pattern string) (*GlobMatcher, error) {
	regex, err := regexp.Compile(globToRegex(pattern))
	if err != nil {
		return nil, err
	}
	return &GlobMatcher{pattern: pattern, regex: regex}, nil
}

// globToRegex converts a glob pattern to an anchored regex.
func globToRegex(pattern string) string {
	var result strings.Builder
	result.WriteString("^")

	body := pattern
	trailing := strings.HasSuffix(pattern, "/**")
	if trailing {
		body = strings.TrimSuffix(pattern, "/**")
	}

	i := 0
	for i < len(body) {
		switch {
		case strings.HasPrefix(body[i:], "**"):
			result.WriteString(".*")
			i += 2
		case body[i] == '*':
			result.WriteString("[^/]*")
			i++
		case body[i] == '{':
			end := strings.IndexByte(body[i:], '}')
			if end < 0 {
				result.WriteString(regexp.QuoteMeta(body[i:]))
				i = len(body)
				continue
			}
			result.WriteString("(?P<")
			result.WriteString(body[i+1 : i+end])
			result.WriteString(">[^/]+)")
			i += end + 1
		default:
			result.WriteString(regexp.QuoteMeta(string(body[i])))
			i++
		}
	}

	if trailing {
		result.WriteString("(?:/.*)?")
	}
	result.WriteString("$")
	return result.String()
}

// Match checks if the path matches the glob pattern.
func (m *GlobMatcher) Match(path string) (matched bool, params map[string]string) {
	return matchNamed(m.regex, path)
}

// Type returns the matcher type.
func (m *GlobMatcher) Type() string {
	return "glob"
}

// Pattern returns the pattern.
func (m *GlobMatcher) Pattern() string {
	return m.pattern
}

// LiteralPrefix returns the part of the pattern before the first
// wildcard or parameter. Longer prefixes are more specific.
func (m *GlobMatcher) LiteralPrefix() string {
	if i := strings.IndexAny(m.pattern, "*{"); i >= 0 {
		return m.pattern[:i]
	}
	return m.pattern
}

func matchNamed(re *regexp.Regexp, path string) (bool, map[string]string) {
	matches := re.FindStringSubmatch(path)
	if matches == nil {
		return false, nil
	}

	var params map[string]string
	for i, name := range re.SubexpNames() {
		if i > 0 && name != "" {
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = matches[i]
		}
	}
	return true, params
}

// MethodMatcher matches HTTP methods. An empty matcher matches all methods.
type MethodMatcher struct {
	methods map[string]bool
}

// NewMethodMatcher creates a new method matcher.
func NewMethodMatcher(methods []string) *MethodMatcher {
	m := &MethodMatcher{methods: make(map[string]bool, len(methods))}
	for _, method := range methods {
		m.methods[strings.ToUpper(method)] = true
	}
	return m
}

// Match checks if the method matches.
func (m *MethodMatcher) Match(method string) bool {
	if m == nil || len(m.methods) == 0 || m.methods["*"] {
		return true
	}
	return m.methods[strings.ToUpper(method)]
}

// Len returns the number of methods constrained; zero means any method.
func (m *MethodMatcher) Len() int {
	if m == nil || m.methods["*"] {
		return 0
	}
	return len(m.methods)
}

// NewPathMatcher builds the matcher for whichever of exact, glob or regex is set.
func NewPathMatcher(exact, glob, regex string) (PathMatcher, error) {
	switch {
	case exact != "":
		return NewExactMatcher(exact), nil
	case glob != "":
		return NewGlobMatcher(glob)
	case regex != "":
		return NewRegexMatcher(regex)
	default:
		return nil, nil
	}
}
