package routepath

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "root", input: "/", want: "/"},
		{name: "empty", input: "", want: "/"},
		{name: "no leading slash", input: "about", want: "/about"},
		{name: "collapse slashes", input: "/blog//post", want: "/blog/post"},
		{name: "dot segment", input: "/blog/./post", want: "/blog/post"},
		{name: "dot dot", input: "/blog/posts/../other", want: "/blog/other"},
		{name: "dot dot to root", input: "/blog/../", want: "/"},
		{name: "trailing slash", input: "/users/", want: "/users"},
		{name: "encoded slash kept", input: "/files/a%2Fb", want: "/files/a%2Fb"},
		{name: "valid escapes", input: "/caf%C3%A9", want: "/caf%C3%A9"},
		{name: "backslash", input: `/a\b`, wantErr: ErrBackslash},
		{name: "encoded nul", input: "/a%00b", wantErr: ErrNullByte},
		{name: "literal nul", input: "/a\x00b", wantErr: ErrNullByte},
		{name: "bad escape", input: "/a%GG", wantErr: ErrBadPercentEscape},
		{name: "truncated escape", input: "/a%2", wantErr: ErrBadPercentEscape},
		{name: "escapes root", input: "/../secret", wantErr: ErrEscapesRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Clean(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Clean(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		target      string
		want        string
		wantChanged bool
	}{
		{"/users/7", "/users/7", false},
		{"/users//7/", "/users/7", true},
		{"/a/./b?x=1&y=2", "/a/b?x=1&y=2", true},
		{"/search?q=%2F", "/search?q=%2F", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.target, nil)
		got, changed, err := Canonical(r)
		if err != nil {
			t.Fatalf("Canonical(%q): %v", tt.target, err)
		}
		if got != tt.want || changed != tt.wantChanged {
			t.Errorf("Canonical(%q) = %q, %v; want %q, %v", tt.target, got, changed, tt.want, tt.wantChanged)
		}
	}
}
