package render

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// DefaultMaxSteps bounds the number of pipeline iterations per render.
const DefaultMaxSteps = 64

// ErrRenderLoop is returned when a result keeps producing new results
// without reaching Unit.
var ErrRenderLoop = errors.New("render: pipeline did not terminate")

// Renderer extends the pipeline with additional result types.
type Renderer interface {
	// ContentType reports the content type to use for v. ok is false when the
	// renderer does not handle v; an empty type with ok true leaves it unset.
	ContentType(v any) (ct string, ok bool)

	// Render handles v. handled is false when v is not a type this renderer
	// knows, in which case the built-in rules apply.
	Render(w *Response, v any) (next any, handled bool, err error)
}

// Pipeline renders action results onto a Response.
type Pipeline struct {
	// NotFound produces the result rendered for 404 values. When nil a plain
	// 404 status is written.
	NotFound func() (any, error)

	// Renderers are consulted, in order, before the built-in rules.
	Renderers []Renderer

	// MaxSteps bounds the loop. Zero means DefaultMaxSteps.
	MaxSteps int
}

// Render feeds v through the pipeline until it yields Unit.
func (p *Pipeline) Render(w *Response, v any) error {
	max := p.MaxSteps
	if max <= 0 {
		max = DefaultMaxSteps
	}
	for steps := 0; !IsUnit(v); steps++ {
		if steps >= max {
			Release(v)
			return ErrRenderLoop
		}
		next, err := p.step(w, v)
		if err != nil {
			return err
		}
		v = next
	}
	return nil
}

// step applies the first matching rule to v.
func (p *Pipeline) step(w *Response, v any) (any, error) {
	for _, r := range p.Renderers {
		next, handled, err := r.Render(w, v)
		if err != nil {
			return nil, err
		}
		if handled {
			return next, nil
		}
	}

	switch x := v.(type) {
	case int:
		if x == http.StatusNotFound {
			return p.notFound()
		}
		w.SetStatus(x)
		return Unit, nil

	case *Result:
		if x == nil {
			return Unit, nil
		}
		return p.result(w, *x)

	case Result:
		return p.result(w, x)

	case []byte:
		detectCharset(w, x)
		_, err := w.Write(x)
		return Unit, err

	case string:
		if strings.HasPrefix(w.ContentType(), "text") && w.Charset() == "" {
			w.SetCharset("utf-8")
		}
		_, err := w.WriteString(x)
		return Unit, err

	case File:
		f, err := os.Open(x.Path)
		if err != nil {
			return nil, fmt.Errorf("render: open %s: %w", x.Path, err)
		}
		return Unit, writeFile(w, f)

	case *os.File:
		return Unit, writeFile(w, x)

	case io.Reader:
		return Unit, writeStream(w, x)

	case unit:
		return Unit, nil

	case fmt.Stringer:
		_, err := w.WriteString(x.String())
		return Unit, err

	default:
		_, err := fmt.Fprint(w, x)
		return Unit, err
	}
}

func (p *Pipeline) result(w *Response, r Result) (any, error) {
	if n, ok := r.Body.(int); ok {
		if r.Status != 0 {
			w.SetStatus(r.Status)
		}
		r.applyHeaders(w)
		_, err := w.WriteString(strconv.Itoa(n))
		return Unit, err
	}
	if r.Status == http.StatusNotFound && IsUnit(r.Body) {
		return p.notFound()
	}
	if r.Status != 0 {
		w.SetStatus(r.Status)
	}
	r.applyHeaders(w)
	return r.Body, nil
}

func (p *Pipeline) notFound() (any, error) {
	if p.NotFound == nil {
		return Result{Status: http.StatusNotFound, Body: http.StatusText(http.StatusNotFound)}, nil
	}
	return p.NotFound()
}

// writeFile copies f into the body and closes it on every path.
func writeFile(w *Response, f *os.File) error {
	defer f.Close()
	if strings.HasPrefix(w.ContentType(), "text") {
		head := make([]byte, 1024)
		n, _ := f.ReadAt(head, 0)
		detectCharset(w, head[:n])
	}
	_, err := w.ReadFrom(f)
	return err
}

// writeStream copies r into the body and closes it if it is an io.Closer.
func writeStream(w *Response, r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	_, err := w.ReadFrom(r)
	return err
}

// Release closes v if it is a stream, including a stream carried as the body
// of a Result. Use it for results that will not be rendered.
func Release(v any) {
	switch x := v.(type) {
	case Result:
		Release(x.Body)
	case *Result:
		if x != nil {
			Release(x.Body)
		}
	case io.Closer:
		x.Close()
	}
}
