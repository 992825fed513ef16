// Package routepath normalizes request paths before they are matched.
package routepath

import (
	"errors"
	"net/http"
	"strings"
)

// Canonicalization errors.
var (
	ErrBackslash        = errors.New("routepath: path contains backslash")
	ErrNullByte         = errors.New("routepath: path contains null byte")
	ErrBadPercentEscape = errors.New("routepath: invalid percent escape")
	ErrEscapesRoot      = errors.New("routepath: path escapes root via ..")
)

// Clean returns the canonical form of an escaped request path:
//   - a leading slash is added and repeated slashes are collapsed
//   - "." segments are dropped and ".." segments resolved
//   - the trailing slash is removed, except for the root
//
// Backslashes, NUL bytes (literal or %00), malformed percent escapes and
// ".." above the root are rejected. Escapes are validated but never decoded,
// so an encoded slash stays inside its segment.
func Clean(escaped string) (string, error) {
	if escaped == "" {
		return "/", nil
	}
	if strings.ContainsRune(escaped, '\\') {
		return "", ErrBackslash
	}
	if strings.ContainsRune(escaped, 0) {
		return "", ErrNullByte
	}
	if err := checkEscapes(escaped); err != nil {
		return "", err
	}

	segments := make([]string, 0, strings.Count(escaped, "/")+1)
	for _, seg := range strings.Split(escaped, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return "", ErrEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}
	return "/" + strings.Join(segments, "/"), nil
}

// Canonical returns the canonical URL for r and whether it differs from the
// requested one. The query string is carried over unchanged.
func Canonical(r *http.Request) (target string, changed bool, err error) {
	escaped := r.URL.EscapedPath()
	clean, err := Clean(escaped)
	if err != nil {
		return "", false, err
	}
	target = clean
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target, clean != escaped, nil
}

func checkEscapes(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return ErrBadPercentEscape
		}
		if s[i+1] == '0' && s[i+2] == '0' {
			return ErrNullByte
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
