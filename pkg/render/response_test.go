package render

import (
	"net/http"
	"testing"
)

func TestResponse_StatusDeferredUntilCommit(t *testing.T) {
	w, rec := newTestResponse()
	if w.Status() != http.StatusOK {
		t.Fatalf("initial status = %d, want 200", w.Status())
	}
	w.SetStatus(http.StatusTeapot)
	if w.Committed() {
		t.Fatal("setting the status must not commit")
	}
	if _, err := w.WriteString("short and stout"); err != nil {
		t.Fatal(err)
	}
	w.SetStatus(http.StatusInternalServerError)

	if rec.Code != http.StatusTeapot {
		t.Errorf("recorded status = %d, want 418", rec.Code)
	}
	if w.Status() != http.StatusTeapot {
		t.Errorf("status changed after commit: %d", w.Status())
	}
	if w.Written() != int64(len("short and stout")) {
		t.Errorf("Written = %d", w.Written())
	}
}

func TestResponse_CharsetBeforeContentType(t *testing.T) {
	w, _ := newTestResponse()
	w.SetCharset("iso-8859-1")
	if w.Charset() != "iso-8859-1" {
		t.Errorf("pending charset = %q", w.Charset())
	}
	w.SetContentType("text/plain")
	if got := w.ContentType(); got != "text/plain; charset=iso-8859-1" {
		t.Errorf("content type = %q", got)
	}
}

func TestResponse_SetCharsetRewritesContentType(t *testing.T) {
	w, _ := newTestResponse()
	w.SetContentType("text/html; charset=windows-1252")
	w.SetCharset("utf-8")
	if got := w.ContentType(); got != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", got)
	}

	w.SetContentType("")
	if w.ContentType() != "" {
		t.Error("empty content type should clear the header")
	}
}

func TestResponse_MarkCommittedSkipsStatusLine(t *testing.T) {
	w, rec := newTestResponse()
	w.SetStatus(http.StatusCreated)
	w.MarkCommitted()
	w.Commit()
	if rec.Code == http.StatusCreated {
		t.Error("status line written after MarkCommitted")
	}
	if w.Unwrap() != http.ResponseWriter(rec) {
		t.Error("Unwrap should return the recorder")
	}
}
