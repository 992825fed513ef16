package wsrender

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/switchyard/pkg/dispatch"
)

func echo(conn *websocket.Conn) error {
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		if err := conn.WriteMessage(mt, append([]byte("echo: "), msg...)); err != nil {
			return err
		}
	}
}

func newServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := dispatch.New(
		dispatch.WithLogger(quiet),
		dispatch.WithRenderer(New(append([]Option{WithLogger(quiet)}, opts...)...)),
	)
	d.Get("/ws", func(c *dispatch.Context) (any, error) {
		return Upgrade{Handler: echo}, nil
	})
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)
	return srv
}

func TestUpgrade_Echo(t *testing.T) {
	srv := newServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d, want 101", resp.StatusCode)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatal(err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "echo: hi" {
		t.Errorf("message = %q, want %q", msg, "echo: hi")
	}
}

func TestUpgrade_CrossOriginRejected(t *testing.T) {
	srv := newServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	header := http.Header{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected cross-origin handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestUpgrade_CustomOriginCheck(t *testing.T) {
	srv := newServer(t, WithCheckOrigin(func(*http.Request) bool { return true }))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://other.example"}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Close()
}

func TestUpgrade_PlainHTTPRequest(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 from the failed handshake", resp.StatusCode)
	}
}

func TestRenderer_ClaimsOnlyUpgrades(t *testing.T) {
	r := New()
	if _, ok := r.ContentType(Upgrade{}); !ok {
		t.Error("Upgrade not claimed")
	}
	if _, ok := r.ContentType(&Upgrade{}); !ok {
		t.Error("*Upgrade not claimed")
	}
	if _, ok := r.ContentType("text"); ok {
		t.Error("string claimed")
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		origin, host string
		want         bool
	}{
		{"", "example.com", true},
		{"https://example.com", "example.com", true},
		{"https://evil.com", "example.com", false},
		{"://bad", "example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := SameOriginCheck(r); got != tt.want {
			t.Errorf("SameOriginCheck(origin=%q, host=%q) = %v, want %v", tt.origin, tt.host, got, tt.want)
		}
	}
}
