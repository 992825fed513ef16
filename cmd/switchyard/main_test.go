package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/switchyard/internal/config"
	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/repository"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version --short = %q, want %q", out, version)
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Go version:") {
		t.Errorf("version output = %q", out)
	}
}

func TestRoutesCmd(t *testing.T) {
	dir := writeConfig(t, `{"storage": {"bucket": "assets", "region": "eu-west-1"}, "log": {"level": "error"}}`)

	out, err := run(t, "routes", "--config", dir)
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	for _, want := range []string{"/healthz", "/objects/*", "GET"} {
		if !strings.Contains(out, want) {
			t.Errorf("routes output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "/healthz") > strings.Index(out, "/objects/*") {
		t.Errorf("routes not in registration order:\n%s", out)
	}
}

func TestRoutesCmd_InvalidConfig(t *testing.T) {
	dir := writeConfig(t, `{"addr": "nowhere"}`)
	if _, err := run(t, "routes", "--config", dir); err == nil || !strings.Contains(err.Error(), "SW003") {
		t.Errorf("err = %v, want SW003", err)
	}

	if _, err := run(t, "routes", "--config", t.TempDir()); err == nil || !strings.Contains(err.Error(), "SW001") {
		t.Errorf("err = %v, want SW001", err)
	}
}

type fakeDB struct{ err error }

func (f fakeDB) PingContext(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		db   pinger
		code int
		body string
	}{
		{"no database", nil, http.StatusOK, "ok"},
		{"database up", fakeDB{}, http.StatusOK, "ok"},
		{"database down", fakeDB{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "database unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := config.New()
			fc.Log.Level = "error"
			app, err := buildApp(fc, services{db: tt.db})
			if err != nil {
				t.Fatal(err)
			}
			rec := httptest.NewRecorder()
			router(app).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.code || rec.Body.String() != tt.body {
				t.Errorf("GET /healthz = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.code, tt.body)
			}
		})
	}
}

func TestPropagateRequestID(t *testing.T) {
	fc := config.New()
	fc.Log.Level = "error"
	app, err := buildApp(fc, services{})
	if err != nil {
		t.Fatal(err)
	}
	var seen string
	app.Get("/id", func(c *dispatch.Context) (any, error) {
		seen = c.RequestID()
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	router(app).ServeHTTP(httptest.NewRecorder(), req)
	if seen == "" || !strings.Contains(seen, "/") {
		t.Errorf("request id = %q, want chi's host/random-counter form", seen)
	}
}

func TestRecords(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := repository.NewMemory(
		record{ID: 3, Name: "c", CreatedAt: created},
		record{ID: 1, Name: "a", CreatedAt: created},
		record{ID: 2, Name: "b", CreatedAt: created},
	)

	fc := config.New()
	fc.Log.Level = "error"
	fc.Database.DSN = "postgres://localhost/shop"
	fc.Database.Table = "records"
	app, err := buildApp(fc, services{records: repo})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		target  string
		ids     []int64
		total   int64
		pages   int
		hasNext bool
	}{
		{"/records", []int64{1, 2, 3}, 3, 1, false},
		{"/records?size=2", []int64{1, 2}, 3, 2, true},
		{"/records?size=2&page=2", []int64{3}, 3, 2, false},
		{"/records?name=b", []int64{2}, 1, 1, false},
		{"/records?name=zzz", []int64{}, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router(app).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}

			var page recordsPage
			if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
				t.Fatalf("decode %q: %v", rec.Body.String(), err)
			}
			ids := []int64{}
			for _, r := range page.Items {
				ids = append(ids, r.ID)
			}
			if !reflect.DeepEqual(ids, tt.ids) {
				t.Errorf("ids = %v, want %v", ids, tt.ids)
			}
			if page.Total != tt.total || page.Pages != tt.pages || page.HasNext != tt.hasNext {
				t.Errorf("page = %+v", page)
			}
		})
	}

	stats := httptest.NewRecorder()
	router(app).ServeHTTP(stats, httptest.NewRequest(http.MethodGet, "/records/stats", nil))
	var st recordsStats
	if err := json.Unmarshal(stats.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats %q: %v", stats.Body.String(), err)
	}
	if st != (recordsStats{Count: 3, FirstID: 1, LastID: 3}) {
		t.Errorf("stats = %+v", st)
	}

	rec := httptest.NewRecorder()
	router(app).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records?page=two", nil))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `param "page"`) {
		t.Errorf("bad page = %d %q, want 400", rec.Code, rec.Body.String())
	}
}

func TestRecords_Unavailable(t *testing.T) {
	fc := config.New()
	fc.Log.Level = "error"
	fc.Database.DSN = "postgres://localhost/shop"
	fc.Database.Table = "records"
	app, err := buildApp(fc, services{})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router(app).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	out, err := run(t, "routes", "--config", writeConfig(t,
		`{"database": {"dsn": "postgres://localhost/shop", "table": "records"}, "log": {"level": "error"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "/records") {
		t.Errorf("routes output missing /records:\n%s", out)
	}
}
