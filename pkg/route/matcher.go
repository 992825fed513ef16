package route

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher decides whether a request path matches and extracts its parameters.
// Implementations must be deterministic and free of side effects.
type Matcher interface {
	Match(path string) (Params, bool)
}

// MatcherFunc is a function adapter for Matcher.
type MatcherFunc func(path string) (Params, bool)

// Match implements Matcher.
func (f MatcherFunc) Match(path string) (Params, bool) {
	return f(path)
}

// Match applies every matcher to path. All of them must match; parameters from
// later matchers replace those of earlier ones with the same name.
// An empty matcher list matches every path.
func Match(matchers []Matcher, path string) (Params, bool) {
	params := Params{}
	for _, m := range matchers {
		p, ok := m.Match(path)
		if !ok {
			return nil, false
		}
		if len(p) > 0 {
			params = params.Merge(p)
		}
	}
	return params, true
}

// Condition returns a matcher that accepts the path when fn returns true.
// It contributes no parameters.
func Condition(fn func(path string) bool) Matcher {
	return MatcherFunc(func(path string) (Params, bool) {
		if fn(path) {
			return Params{}, true
		}
		return nil, false
	})
}

// PathPattern is a compiled Sinatra-style path pattern.
type PathPattern struct {
	source string
	re     *regexp.Regexp
	names  []string
}

// Pattern compiles p and panics if it is invalid.
// Use it for patterns known at registration time.
func Pattern(p string) *PathPattern {
	pp, err := CompilePattern(p)
	if err != nil {
		panic(err)
	}
	return pp
}

// CompilePattern compiles a path pattern.
//
// Supported syntax:
//   - ":name" matches one non-empty segment
//   - "*name" matches the rest of the path, slashes included
//   - "*" matches lazily and is collected under SplatKey; it may repeat
//
// Everything else matches literally.
func CompilePattern(p string) (*PathPattern, error) {
	var (
		b     strings.Builder
		names []string
	)
	b.WriteString("^")

	for i := 0; i < len(p); {
		c := p[i]
		switch c {
		case ':':
			name, n := readIdent(p[i+1:])
			if n == 0 {
				return nil, fmt.Errorf("route: pattern %q: missing parameter name at offset %d", p, i)
			}
			b.WriteString(`([^/?#]+)`)
			names = append(names, name)
			i += 1 + n
		case '*':
			name, n := readIdent(p[i+1:])
			if n == 0 {
				b.WriteString(`(.*?)`)
				names = append(names, SplatKey)
			} else {
				b.WriteString(`(.*)`)
				names = append(names, name)
			}
			i += 1 + n
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("route: pattern %q: %w", p, err)
	}
	return &PathPattern{source: p, re: re, names: names}, nil
}

// readIdent reads a parameter identifier from the start of s.
func readIdent(s string) (string, int) {
	n := 0
	for n < len(s) {
		c := s[n]
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && n > 0) {
			break
		}
		n++
	}
	return s[:n], n
}

// Match implements Matcher.
func (pp *PathPattern) Match(path string) (Params, bool) {
	m := pp.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	params := Params{}
	for i, name := range pp.names {
		params.Add(name, m[i+1])
	}
	return params, true
}

// String returns the source pattern.
func (pp *PathPattern) String() string {
	return pp.source
}

// RegexpMatcher matches paths with a regular expression.
// Named groups become parameters; unnamed groups are collected under CapturesKey.
type RegexpMatcher struct {
	re *regexp.Regexp
}

// Regexp returns a matcher for re. The expression is used as-is, so anchor it
// if a full-path match is intended.
func Regexp(re *regexp.Regexp) *RegexpMatcher {
	return &RegexpMatcher{re: re}
}

// Match implements Matcher. Groups that did not take part in the match, such
// as an unmatched optional group, add no parameter.
func (r *RegexpMatcher) Match(path string) (Params, bool) {
	loc := r.re.FindStringSubmatchIndex(path)
	if loc == nil {
		return nil, false
	}
	params := Params{}
	for i, name := range r.re.SubexpNames() {
		if i == 0 || loc[2*i] < 0 {
			continue
		}
		if name == "" {
			name = CapturesKey
		}
		params.Add(name, path[loc[2*i]:loc[2*i+1]])
	}
	return params, true
}

// String returns the expression source.
func (r *RegexpMatcher) String() string {
	return r.re.String()
}
