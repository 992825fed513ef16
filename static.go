package switchyard

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/route"
)

// CacheControl selects the Cache-Control policy for static files.
type CacheControl int

const (
	// CacheControlNone disables caching, for development.
	CacheControlNone CacheControl = iota

	// CacheControlProduction caches fingerprinted files for a year and other
	// files for an hour.
	CacheControlProduction
)

// Static serves files under dir at prefix for GET and HEAD. Missing files fall
// through to the next route, so later routes under the same prefix still run.
//
//	app.Static("/assets", "public", switchyard.CacheControlProduction)
func (a *App) Static(prefix, dir string, cache CacheControl) *dispatch.Route {
	pattern := strings.TrimSuffix(prefix, "/") + "/*"
	return a.Get(pattern, func(c *dispatch.Context) (any, error) {
		rel, ok := staticRelPath(c.Param(route.SplatKey))
		if !ok {
			return nil, dispatch.Pass()
		}

		f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, dispatch.Pass()
			}
			return nil, err
		}
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			f.Close()
			return nil, dispatch.Pass()
		}

		applyCacheHeaders(c.Header(), rel, cache)
		c.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
		return f, nil
	})
}

// staticRelPath sanitizes a decoded path relative to the static directory.
// Traversal and absolute-path tricks are rejected.
func staticRelPath(rel string) (string, bool) {
	if rel == "" || strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	// "/static//etc/passwd" leaves "/etc/passwd" after the prefix.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

func applyCacheHeaders(h http.Header, rel string, cache CacheControl) {
	switch cache {
	case CacheControlNone:
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case CacheControlProduction:
		if isFingerprinted(rel) {
			h.Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			h.Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
}

// isFingerprinted reports whether the name carries a content hash, as in
// "app.a1b2c3d4.css".
func isFingerprinted(rel string) bool {
	parts := strings.Split(path.Base(rel), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
