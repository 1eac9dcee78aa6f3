package router

import "regexp"

// Rewriter rewrites a request path with a regex and a replacement
// template. The template may reference named groups as ${name} or $name.
type Rewriter struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRewriter compiles a rewrite rule.
func NewRewriter(pattern, replacement string) (*Rewriter, error) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Rewriter{regex: regex, replacement: replacement}, nil
}

// Rewrite applies the rule. A path the regex does not match is
// returned unchanged. An empty result becomes "/".
func (rw *Rewriter) Rewrite(path string) (string, map[string]string) {
	if rw == nil {
		return path, nil
	}
	matched, params := matchNamed(rw.regex, path)
	if !matched {
		return path, nil
	}
	out := rw.regex.ReplaceAllString(path, rw.replacement)
	if out == "" {
		out = "/"
	}
	return out, params
}
