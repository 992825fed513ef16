// Package s3render streams S3 objects as action results.
//
//	client := s3render.NewClient(s3render.ClientConfig{Region: "eu-west-1"})
//	d := dispatch.New(dispatch.WithRenderer(s3render.New(client, s3render.WithBucket("assets"))))
//	d.Get("/assets/*", func(c *dispatch.Context) (any, error) {
//	    return s3render.Object{Key: c.Param("splat")}, nil
//	})
//
// The object body is handed back to the render pipeline as a stream, so it is
// copied to the client and closed like any other io.ReadCloser result.
package s3render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/vango-dev/switchyard/pkg/render"
)

// ErrNoBucket is returned when neither the Object nor the Renderer names a bucket.
var ErrNoBucket = errors.New("s3render: no bucket")

// Getter is the subset of *s3.Client used by the renderer.
type Getter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Object is an action result naming an S3 object to send as the body.
type Object struct {
	// Bucket overrides the renderer's default bucket.
	Bucket string
	Key    string

	// Download sets Content-Disposition: attachment with the key's base name.
	Download bool
}

// Renderer is a render.Renderer for Object results.
type Renderer struct {
	client Getter
	bucket string
	prefix string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBucket sets the bucket used when an Object leaves it empty.
func WithBucket(bucket string) Option {
	return func(r *Renderer) { r.bucket = bucket }
}

// WithPrefix is prepended to every object key.
func WithPrefix(prefix string) Option {
	return func(r *Renderer) { r.prefix = prefix }
}

// New returns a Renderer reading objects through client.
func New(client Getter, opts ...Option) *Renderer {
	r := &Renderer{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func asObject(v any) (Object, bool) {
	switch o := v.(type) {
	case Object:
		return o, true
	case *Object:
		if o != nil {
			return *o, true
		}
	}
	return Object{}, false
}

// ContentType claims Object results. The type comes from the object metadata
// at render time, so it is left unset here.
func (r *Renderer) ContentType(v any) (string, bool) {
	_, ok := asObject(v)
	return "", ok
}

// Render fetches the object and returns its body to the pipeline. A missing
// key renders as not found.
func (r *Renderer) Render(w *render.Response, v any) (any, bool, error) {
	o, ok := asObject(v)
	if !ok {
		return nil, false, nil
	}
	bucket := o.Bucket
	if bucket == "" {
		bucket = r.bucket
	}
	if bucket == "" {
		return nil, true, ErrNoBucket
	}
	key := r.prefix + strings.TrimPrefix(o.Key, "/")

	out, err := r.client.GetObject(w.Request().Context(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if IsNotFound(err) {
			return http.StatusNotFound, true, nil
		}
		return nil, true, fmt.Errorf("s3render: get %s/%s: %w", bucket, key, err)
	}

	h := w.Header()
	if w.ContentType() == "" {
		ct := "application/octet-stream"
		if out.ContentType != nil && *out.ContentType != "" {
			ct = *out.ContentType
		}
		w.SetContentType(ct)
	}
	if out.ContentLength != nil && *out.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(*out.ContentLength, 10))
	}
	if out.ETag != nil {
		h.Set("ETag", *out.ETag)
	}
	if out.LastModified != nil {
		h.Set("Last-Modified", out.LastModified.UTC().Format(http.TimeFormat))
	}
	if o.Download {
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	}
	if out.Body == nil {
		return render.Unit, true, nil
	}
	return out.Body, true, nil
}

// IsNotFound reports whether err is S3's answer for a missing key.
func IsNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// ClientConfig describes how to reach the object store.
type ClientConfig struct {
	Region string

	// Endpoint overrides the AWS endpoint, e.g. for MinIO.
	Endpoint string

	// PathStyle addresses buckets as path segments instead of subdomains.
	PathStyle bool

	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
}

// NewClient builds an S3 client from cfg with credentials taken from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewClient(cfg ClientConfig) *s3.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.NewCredentialsCache(EnvCredentials()),
		UsePathStyle: cfg.PathStyle,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// EnvCredentials reads static credentials from the environment on every
// retrieval.
func EnvCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New("s3render: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	})
}
