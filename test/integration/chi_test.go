package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/switchyard"
	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/render"
	"github.com/vango-dev/switchyard/pkg/route"
	"github.com/vango-dev/switchyard/pkg/wsrender"
)

// TestUser represents a user for testing.
type TestUser struct {
	ID    string
	Email string
	Role  string
}

// userContextKey is the key for storing user in context.
type userContextKey struct{}

// mockAuthMiddleware simulates authentication middleware.
func mockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer valid-token" {
			user := &TestUser{ID: "user-123", Email: "test@example.com", Role: "admin"}
			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newApp() *switchyard.App {
	app := switchyard.New(switchyard.Config{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		WebSockets: true,
	})

	app.Before(func(c *dispatch.Context) (any, error) {
		if _, ok := c.StdContext().Value(userContextKey{}).(*TestUser); !ok {
			return nil, dispatch.Halt(http.StatusUnauthorized, "login required")
		}
		return nil, nil
	}, route.Pattern("/admin/*"))

	app.Get("/admin/whoami", func(c *dispatch.Context) (any, error) {
		u := c.StdContext().Value(userContextKey{}).(*TestUser)
		return u.Email + " (" + u.Role + ")", nil
	})
	app.Get("/items/:id", func(c *dispatch.Context) (any, error) {
		return render.Ok("item " + c.Param("id")).WithHeader("X-Request-Id", c.RequestID()), nil
	})
	app.Get("/ws", func(c *dispatch.Context) (any, error) {
		return wsrender.Upgrade{Handler: func(conn *websocket.Conn) error {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return nil
			}
			return conn.WriteMessage(websocket.TextMessage, []byte(strings.ToUpper(string(msg))))
		}}, nil
	})
	return app
}

// TestChiRouterIntegration mounts an App on a chi router with middleware.
func TestChiRouterIntegration(t *testing.T) {
	app := newApp()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mockAuthMiddleware)
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	app.Mount(r, "/app")

	serve := func(target, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("chi route", func(t *testing.T) {
		rec := serve("/api/health", "")
		if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
			t.Errorf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("mounted route", func(t *testing.T) {
		rec := serve("/app/items/42", "")
		if rec.Code != http.StatusOK || rec.Body.String() != "item 42" {
			t.Errorf("got %d %q", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Error("request id header missing")
		}
	})

	t.Run("auth context reaches filters and actions", func(t *testing.T) {
		rec := serve("/app/admin/whoami", "")
		if rec.Code != http.StatusUnauthorized || rec.Body.String() != "login required" {
			t.Errorf("anonymous: got %d %q", rec.Code, rec.Body.String())
		}

		rec = serve("/app/admin/whoami", "Bearer valid-token")
		if rec.Code != http.StatusOK || rec.Body.String() != "test@example.com (admin)" {
			t.Errorf("authenticated: got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("chi middleware runs before dispatch", func(t *testing.T) {
		executed := false
		tracking := chi.NewRouter()
		tracking.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				executed = true
				next.ServeHTTP(w, r)
			})
		})
		app.Mount(tracking, "/")

		rec := httptest.NewRecorder()
		tracking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/1", nil))
		if !executed || rec.Body.String() != "item 1" {
			t.Errorf("executed=%v body=%q", executed, rec.Body.String())
		}
	})
}

// TestWebSocketThroughChi upgrades a connection routed by chi to an action.
func TestWebSocketThroughChi(t *testing.T) {
	r := chi.NewRouter()
	newApp().Mount(r, "/app")
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/app/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatal(err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "PING" {
		t.Errorf("message = %q, want PING", msg)
	}
}

// TestStdlibMuxIntegration tests with stdlib ServeMux.
func TestStdlibMuxIntegration(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})
	mux.Handle("/", newApp())

	tests := []struct {
		target string
		body   string
	}{
		{"/api/test", "api"},
		{"/items/7", "item 7"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
		if rec.Body.String() != tt.body {
			t.Errorf("GET %s = %q, want %q", tt.target, rec.Body.String(), tt.body)
		}
	}
}
