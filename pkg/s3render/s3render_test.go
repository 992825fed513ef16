package s3render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/vango-dev/switchyard/pkg/dispatch"
)

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

type fakeGetter struct {
	objects map[string]string
	types   map[string]string
	err     error
	gotKey  string
	gotBkt  string
	body    *trackedBody
}

func (f *fakeGetter) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotBkt = aws.ToString(in.Bucket)
	f.gotKey = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[f.gotKey]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	f.body = &trackedBody{Reader: strings.NewReader(data)}
	out := &s3.GetObjectOutput{
		Body:          f.body,
		ContentLength: aws.Int64(int64(len(data))),
		ETag:          aws.String(`"abc"`),
		LastModified:  aws.Time(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	}
	if ct, ok := f.types[f.gotKey]; ok {
		out.ContentType = aws.String(ct)
	}
	return out, nil
}

func serve(t *testing.T, g Getter, result any, opts ...Option) *httptest.ResponseRecorder {
	t.Helper()
	d := dispatch.New(
		dispatch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		dispatch.WithRenderer(New(g, opts...)),
	)
	d.Get("/*", func(c *dispatch.Context) (any, error) { return result, nil })
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	return rec
}

func TestRender_StreamsObject(t *testing.T) {
	g := &fakeGetter{
		objects: map[string]string{"public/report.csv": "a,b\n1,2\n"},
		types:   map[string]string{"public/report.csv": "text/csv"},
	}
	rec := serve(t, g, Object{Key: "/report.csv", Download: true}, WithBucket("assets"), WithPrefix("public/"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if g.gotBkt != "assets" || g.gotKey != "public/report.csv" {
		t.Errorf("GetObject(%q, %q), want (assets, public/report.csv)", g.gotBkt, g.gotKey)
	}
	if rec.Body.String() != "a,b\n1,2\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if got := rec.Header().Get("Content-Length"); got != "8" {
		t.Errorf("Content-Length = %q, want 8", got)
	}
	if got := rec.Header().Get("ETag"); got != `"abc"` {
		t.Errorf("ETag = %q", got)
	}
	if got := rec.Header().Get("Last-Modified"); got != "Tue, 02 Jan 2024 03:04:05 GMT" {
		t.Errorf("Last-Modified = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="report.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !g.body.closed {
		t.Error("object body not closed")
	}
}

func TestRender_ObjectBucketOverridesDefault(t *testing.T) {
	g := &fakeGetter{objects: map[string]string{"k": "v"}}
	rec := serve(t, g, &Object{Bucket: "other", Key: "k"}, WithBucket("assets"))
	if g.gotBkt != "other" {
		t.Errorf("bucket = %q, want other", g.gotBkt)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", ct)
	}
}

func TestRender_MissingKeyIsNotFound(t *testing.T) {
	g := &fakeGetter{objects: map[string]string{}}
	rec := serve(t, g, Object{Key: "nope"}, WithBucket("assets"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRender_Failures(t *testing.T) {
	t.Run("no bucket", func(t *testing.T) {
		rec := serve(t, &fakeGetter{}, Object{Key: "k"})
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
	t.Run("client error", func(t *testing.T) {
		rec := serve(t, &fakeGetter{err: errors.New("connection reset")}, Object{Key: "k"}, WithBucket("b"))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"head not found", &types.NotFound{}, true},
		{"generic api error", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := EnvCredentials().Retrieve(context.Background()); err == nil {
		t.Error("expected error without credentials")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "tok")
	creds, err := EnvCredentials().Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SessionToken != "tok" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestNewClient(t *testing.T) {
	c := NewClient(ClientConfig{Region: "eu-west-1", Endpoint: "http://localhost:9000", PathStyle: true})
	o := c.Options()
	if o.Region != "eu-west-1" || !o.UsePathStyle || aws.ToString(o.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("options = region %q, path style %v, endpoint %q", o.Region, o.UsePathStyle, aws.ToString(o.BaseEndpoint))
	}
}
