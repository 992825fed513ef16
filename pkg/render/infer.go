package render

import (
	"bufio"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// sniffLen is how many leading bytes http.DetectContentType considers.
const sniffLen = 512

// InferContentType returns the content type for v and the value to render in
// its place. The replacement differs from v only for streams, which are wrapped
// so the sniffed bytes are not lost. An empty content type means "leave unset".
//
// Renderers get the first chance to claim v.
func InferContentType(v any, renderers ...Renderer) (string, any) {
	for _, r := range renderers {
		if ct, ok := r.ContentType(v); ok {
			return ct, v
		}
	}

	switch x := v.(type) {
	case nil, unit:
		return "", v
	case string:
		return "text/plain", v
	case []byte:
		return http.DetectContentType(x), v
	case File:
		return fileContentType(x.Path, nil), v
	case *os.File:
		return fileContentType(x.Name(), x), v
	case io.Reader:
		return sniffStream(x)
	case Result:
		if ct := x.Headers.Get("Content-Type"); ct != "" {
			return ct, v
		}
		ct, body := InferContentType(x.Body, renderers...)
		x.Body = body
		return ct, x
	case *Result:
		if x == nil {
			return "", v
		}
		return InferContentType(*x, renderers...)
	default:
		return "text/html", v
	}
}

// fileContentType guesses from the extension and falls back to sniffing.
func fileContentType(path string, f *os.File) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	head := make([]byte, sniffLen)
	var n int
	if f != nil {
		n, _ = f.ReadAt(head, 0)
	} else if opened, err := os.Open(path); err == nil {
		n, _ = io.ReadFull(opened, head)
		opened.Close()
	}
	return http.DetectContentType(head[:n])
}

// sniffedStream keeps the closer of a stream that was wrapped for sniffing.
type sniffedStream struct {
	io.Reader
	closer io.Closer
}

func (s *sniffedStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func sniffStream(r io.Reader) (string, any) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)
	wrapped := &sniffedStream{Reader: br}
	if c, ok := r.(io.Closer); ok {
		wrapped.closer = c
	}
	return http.DetectContentType(head), wrapped
}

// detectCharset sets the response charset from the leading bytes of a text body.
// It does nothing for non-text content types.
func detectCharset(w *Response, head []byte) {
	ct := w.ContentType()
	if !strings.HasPrefix(ct, "text") {
		return
	}
	_, name, certain := charset.DetermineEncoding(head, ct)
	if !certain && utf8.Valid(head) {
		name = "utf-8"
	}
	if name != "" {
		w.SetCharset(name)
	}
}
