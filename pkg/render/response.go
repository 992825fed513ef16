package render

import (
	"io"
	"mime"
	"net/http"
	"os"
)

// Response is the narrow view of the transport that the pipeline writes to.
// The status line is deferred until the first body write or Commit, so the
// status and headers stay mutable until then.
type Response struct {
	w         http.ResponseWriter
	req       *http.Request
	status    int
	charset   string
	committed bool
	written   int64
}

// NewResponse wraps w for the request r. The initial status is 200.
func NewResponse(w http.ResponseWriter, r *http.Request) *Response {
	return &Response{w: w, req: r, status: http.StatusOK}
}

// Request returns the request being answered.
func (r *Response) Request() *http.Request {
	return r.req
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.w.Header()
}

// Status returns the current status code.
func (r *Response) Status() int {
	return r.status
}

// SetStatus sets the status code. It has no effect once the response is committed.
func (r *Response) SetStatus(code int) {
	if r.committed {
		return
	}
	r.status = code
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.w.Header().Get("Content-Type")
}

// SetContentType sets the Content-Type header. A charset chosen earlier with
// SetCharset is carried over unless ct names its own.
func (r *Response) SetContentType(ct string) {
	if ct == "" {
		r.w.Header().Del("Content-Type")
		return
	}
	if r.charset != "" {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			if _, ok := params["charset"]; !ok {
				params["charset"] = r.charset
				ct = mime.FormatMediaType(mt, params)
			}
		}
	}
	r.w.Header().Set("Content-Type", ct)
}

// Charset returns the charset parameter of the Content-Type header, or the
// pending charset when no content type is set yet.
func (r *Response) Charset() string {
	if ct := r.ContentType(); ct != "" {
		if _, params, err := mime.ParseMediaType(ct); err == nil {
			return params["charset"]
		}
	}
	return r.charset
}

// SetCharset sets the character encoding of the response.
func (r *Response) SetCharset(cs string) {
	r.charset = cs
	ct := r.ContentType()
	if ct == "" {
		return
	}
	mt, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return
	}
	params["charset"] = cs
	r.w.Header().Set("Content-Type", mime.FormatMediaType(mt, params))
}

// Write writes body bytes, committing the status line first.
func (r *Response) Write(p []byte) (int, error) {
	r.Commit()
	n, err := r.w.Write(p)
	r.written += int64(n)
	return n, err
}

// WriteString writes s as body bytes.
func (r *Response) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

// ReadFrom copies src into the body. Files are handed to the underlying
// writer so net/http can send them without a userspace copy; other streams
// commit on their first chunk, so a stream that fails before producing data
// leaves the status unwritten.
func (r *Response) ReadFrom(src io.Reader) (int64, error) {
	if _, ok := src.(*os.File); ok {
		r.Commit()
		n, err := io.Copy(r.w, src)
		r.written += n
		return n, err
	}
	return io.Copy(writerOnly{r}, src)
}

// writerOnly hides Response.ReadFrom from io.Copy.
type writerOnly struct {
	io.Writer
}

// WriteHeader sets the status and commits it, so a Response can be handed to
// a plain http.Handler.
func (r *Response) WriteHeader(code int) {
	r.SetStatus(code)
	r.Commit()
}

// Commit writes the status line and headers if that has not happened yet.
func (r *Response) Commit() {
	if r.committed {
		return
	}
	r.committed = true
	r.w.WriteHeader(r.status)
}

// Committed reports whether the status line has been written.
func (r *Response) Committed() bool {
	return r.committed
}

// MarkCommitted records that the connection was taken over (for example
// hijacked for a WebSocket) so Commit will not write a status line.
func (r *Response) MarkCommitted() {
	r.committed = true
}

// Written returns the number of body bytes written.
func (r *Response) Written() int64 {
	return r.written
}

// Flush sends buffered data to the client if the writer supports it.
func (r *Response) Flush() {
	r.Commit()
	if f, ok := r.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter.
func (r *Response) Unwrap() http.ResponseWriter {
	return r.w
}
