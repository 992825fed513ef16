package render

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestInferContentType(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"nil", nil, ""},
		{"unit", Unit, ""},
		{"string", "hi", "text/plain"},
		{"bytes", []byte("<!DOCTYPE html><html></html>"), "text/html; charset=utf-8"},
		{"int", 200, "text/html"},
		{"struct", struct{}{}, "text/html"},
		{"result header", Ok("x").WithHeader("Content-Type", "application/json"), "application/json"},
		{"result body", Ok("x"), "text/plain"},
		{"result unit body", NoContent(), ""},
		{"file by extension", File{Path: "style.css"}, "text/css; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := InferContentType(tt.v)
			if got != tt.want {
				t.Errorf("InferContentType(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

func TestInferContentType_StreamKeepsSniffedBytes(t *testing.T) {
	src := io.NopCloser(strings.NewReader("%PDF-1.4 document body"))

	ct, replaced := InferContentType(src)
	if ct != "application/pdf" {
		t.Fatalf("content type = %q, want application/pdf", ct)
	}
	r, ok := replaced.(io.Reader)
	if !ok {
		t.Fatalf("replacement is %T, want an io.Reader", replaced)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "%PDF-1.4 document body" {
		t.Errorf("stream lost data: %q", data)
	}
	if _, ok := replaced.(io.Closer); !ok {
		t.Error("replacement should still be closable")
	}
}

func TestInferContentType_ResultStreamBodyReplaced(t *testing.T) {
	body := strings.NewReader("GIF89a....")
	ct, replaced := InferContentType(Ok(body))
	if ct != "image/gif" {
		t.Fatalf("content type = %q, want image/gif", ct)
	}
	res, ok := replaced.(Result)
	if !ok {
		t.Fatalf("replacement is %T, want Result", replaced)
	}
	if res.Body == any(body) {
		t.Error("stream body should be replaced by its sniffing wrapper")
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Status)
	}
}

func TestInferContentType_RendererClaimsFirst(t *testing.T) {
	ct, _ := InferContentType(upper{"x"}, upperRenderer{})
	if ct != "text/x-upper" {
		t.Errorf("content type = %q, want text/x-upper", ct)
	}
	ct, _ = InferContentType("x", upperRenderer{})
	if ct != "text/plain" {
		t.Errorf("unclaimed value: content type = %q, want text/plain", ct)
	}
}
