// Package wsrender lets actions answer with a WebSocket session.
//
//	d := dispatch.New(dispatch.WithRenderer(wsrender.New()))
//	d.Get("/echo", func(c *dispatch.Context) (any, error) {
//	    return wsrender.Upgrade{Handler: func(conn *websocket.Conn) error {
//	        for {
//	            mt, msg, err := conn.ReadMessage()
//	            if err != nil {
//	                return nil
//	            }
//	            if err := conn.WriteMessage(mt, msg); err != nil {
//	                return err
//	            }
//	        }
//	    }}, nil
//	})
//
// The handler runs on the request goroutine and the connection is closed when
// it returns.
package wsrender

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/switchyard/pkg/render"
)

// ErrCommitted is returned when an upgrade is rendered after the response
// was already committed.
var ErrCommitted = errors.New("wsrender: response already committed")

// Upgrade is an action result that switches the connection to WebSocket.
type Upgrade struct {
	// Handler owns the connection until it returns.
	Handler func(conn *websocket.Conn) error

	// Header is sent with the 101 response, e.g. Sec-WebSocket-Protocol.
	Header http.Header
}

// Renderer is a render.Renderer for Upgrade results.
type Renderer struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBufferSizes sets the read and write buffer sizes.
func WithBufferSizes(read, write int) Option {
	return func(r *Renderer) {
		r.upgrader.ReadBufferSize = read
		r.upgrader.WriteBufferSize = write
	}
}

// WithCheckOrigin replaces the same-origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(r *Renderer) { r.upgrader.CheckOrigin = fn }
}

// WithSubprotocols sets the supported subprotocols in preference order.
func WithSubprotocols(protocols ...string) Option {
	return func(r *Renderer) { r.upgrader.Subprotocols = protocols }
}

// WithLogger sets the logger for failed handshakes.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New returns a Renderer that only accepts same-origin upgrades.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     SameOriginCheck,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host equals the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}

func asUpgrade(v any) (Upgrade, bool) {
	switch u := v.(type) {
	case Upgrade:
		return u, true
	case *Upgrade:
		if u != nil {
			return *u, true
		}
	}
	return Upgrade{}, false
}

// ContentType claims Upgrade results and leaves the content type unset.
func (r *Renderer) ContentType(v any) (string, bool) {
	_, ok := asUpgrade(v)
	return "", ok
}

// Render performs the handshake and runs the handler. A failed handshake has
// already been answered by the upgrader, so it ends rendering without error.
func (r *Renderer) Render(w *render.Response, v any) (any, bool, error) {
	u, ok := asUpgrade(v)
	if !ok {
		return nil, false, nil
	}
	if u.Handler == nil {
		return nil, true, errors.New("wsrender: upgrade without handler")
	}
	if w.Committed() {
		return nil, true, ErrCommitted
	}

	// From here on the upgrader owns the status line.
	w.MarkCommitted()
	conn, err := r.upgrader.Upgrade(w.Unwrap(), w.Request(), u.Header)
	if err != nil {
		r.logger.Debug("websocket handshake failed", "error", err, "path", w.Request().URL.Path)
		return render.Unit, true, nil
	}
	defer conn.Close()

	if err := u.Handler(conn); err != nil {
		return nil, true, fmt.Errorf("wsrender: handler: %w", err)
	}
	return render.Unit, true, nil
}
