package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/switchyard"
	"github.com/vango-dev/switchyard/internal/config"
	"github.com/vango-dev/switchyard/internal/errors"
	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/repository"
	"github.com/vango-dev/switchyard/pkg/route"
	"github.com/vango-dev/switchyard/pkg/s3render"
)

const healthTimeout = 2 * time.Second

// services are the external collaborators the built-in routes use. Nil
// members are disabled.
type services struct {
	db      pinger
	records repository.Repository[record]
	objects s3render.Getter
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// loadConfig reads switchyard.json from dir, or from the nearest parent of the
// working directory when dir is empty. Without any file the defaults apply.
func loadConfig(dir string) (*config.Config, error) {
	var (
		fc  *config.Config
		err error
	)
	if dir != "" {
		fc, err = config.Load(dir)
	} else {
		fc, err = config.LoadFromWorkingDir()
		var swErr *errors.Error
		if stderrors.As(err, &swErr) && swErr.Code == "SW001" {
			warn("No %s found, using defaults", config.ConfigFileName)
			fc, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := fc.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return fc, nil
}

// openServices connects to the database and object store named in fc. The
// returned close func releases them.
func openServices(ctx context.Context, fc *config.Config) (services, func(), error) {
	var svc services
	closeFn := func() {}

	if fc.HasDatabase() {
		db, err := repository.Connect(ctx, fc.Database.Driver, fc.Database.DSN, 0, 0)
		if err != nil {
			return svc, closeFn, errors.New("SW201").Wrap(err)
		}
		svc.db = db
		closeFn = func() { db.Close() }
		if fc.HasRecords() {
			svc.records = repository.NewSQL[record](db.Unsafe(), fc.Database.Table, recordColumns...)
		}
	}
	if fc.HasStorage() {
		svc.objects = s3render.NewClient(s3render.ClientConfig{
			Region:    fc.Storage.Region,
			Endpoint:  fc.Storage.Endpoint,
			PathStyle: fc.Storage.Endpoint != "",
		})
	}
	return svc, closeFn, nil
}

// buildApp registers the built-in routes:
//
//	GET /healthz         200 "ok", or 503 when the database does not answer
//	GET /records         one JSON page of the configured table (records only)
//	GET /records/stats   row count and id range of that table (records only)
//	GET /objects/*       the S3 object under the configured prefix (storage only)
func buildApp(fc *config.Config, svc services) (*switchyard.App, error) {
	cfg, err := switchyard.ConfigFromFile(fc)
	if err != nil {
		return nil, err
	}
	if svc.objects != nil {
		cfg.Renderers = append(cfg.Renderers, s3render.New(svc.objects,
			s3render.WithBucket(fc.Storage.Bucket),
			s3render.WithPrefix(fc.Storage.Prefix),
		))
	}

	app := switchyard.New(cfg)
	app.Get("/healthz", health(svc.db))
	if fc.HasRecords() {
		app.Get("/records", listRecords(svc.records))
		app.Get("/records/stats", recordStats(svc.records))
	}
	if fc.HasStorage() {
		app.Get("/objects/*", func(c *dispatch.Context) (any, error) {
			return s3render.Object{Key: c.Param(route.SplatKey)}, nil
		})
	}
	return app, nil
}

func health(db pinger) dispatch.Action {
	return func(c *dispatch.Context) (any, error) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.StdContext(), healthTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.Logger().Warn("health check failed", "error", err)
				return nil, dispatch.Halt(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return "ok", nil
	}
}

// router fronts the app with chi's request id, real IP and panic recovery.
func router(app *switchyard.App) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, propagateRequestID, chimw.RealIP, chimw.Recoverer)
	app.Mount(r, "/")
	return r
}

// propagateRequestID exposes chi's request id as X-Request-Id so the
// dispatch context and its logs carry the same id.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(chimw.RequestIDHeader) == "" {
			if id := chimw.GetReqID(r.Context()); id != "" {
				r.Header.Set(chimw.RequestIDHeader, id)
			}
		}
		next.ServeHTTP(w, r)
	})
}
