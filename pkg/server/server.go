// Package server is the local preview server.
//
// It serves the same pages as the static export, rendered on demand and
// memoized in an LRU cache, and additionally honors the /shop/ query
// parameters (page, category, q) and /quote/?product=.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/config"
	"github.com/gandtscales/scalesite/pkg/site"
	"github.com/gandtscales/scalesite/pkg/util"
)

const defaultShutdownTimeout = 5 * time.Second

// Options tunes a Server.
type Options struct {
	// Logger for request and lifecycle messages. If nil, uses slog.Default().
	Logger *slog.Logger

	// Site is passed to site.New when Reload builds a new renderer.
	Site site.Options
}

// Stats reports cache behaviour.
type Stats struct {
	CachedPages int
	PageHits    int64
	PageMisses  int64
	Reloads     int64
	Assets      util.AssetCacheStats
}

type cachedPage struct {
	page     *site.Page
	renderer *site.Renderer
}

// Server serves one site.Renderer over HTTP. The renderer can be swapped
// at any time with Reload or Swap.
type Server struct {
	cfg      *config.Config
	siteOpts site.Options
	logger   *slog.Logger
	engine   *gin.Engine

	renderer atomic.Pointer[site.Renderer]
	pages    *lru.Cache[string, cachedPage]

	// assetMu guards mapped asset memory: requests hold it for reading
	// while writing a mapped slice, invalidation takes it for writing.
	assetMu sync.RWMutex
	assets  *util.AssetCache
	static  fs.FS

	pageHits   atomic.Int64
	pageMisses atomic.Int64
	reloads    atomic.Int64
}

// New returns a Server for renderer, configured from renderer.Config().
func New(renderer *site.Renderer, opts Options) (*Server, error) {
	if renderer == nil {
		return nil, errors.New("server: renderer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := renderer.Config()

	pages, err := lru.NewWithEvict(cfg.Server.CacheSize, func(key string, _ cachedPage) {
		logger.Debug("Evicting cached page", "key", key)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		siteOpts: opts.Site,
		logger:   logger,
		pages:    pages,
		assets:   util.NewAssetCache(util.AssetCacheConfig{MaxFiles: util.DefaultAssetCacheConfig().MaxFiles, Logger: logger}),
		static:   site.StaticFS(),
	}
	s.renderer.Store(renderer)
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.Use(requestLogger(s.logger), recovery(s.logger))

	base := s.cfg.Site.BasePath
	if base == "" {
		base = "/"
	}
	group := engine.Group(base)
	{
		group.GET("/*path", s.handle)
		group.HEAD("/*path", s.handle)
	}
	engine.NoRoute(func(c *gin.Context) {
		if base != "/" && c.Request.URL.Path == base {
			c.Redirect(http.StatusMovedPermanently, withQuery(base+"/", c.Request.URL.RawQuery))
			return
		}
		s.notFound(c)
	})
	return engine
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Renderer returns the renderer currently being served.
func (s *Server) Renderer() *site.Renderer {
	return s.renderer.Load()
}

// Reload renders qs with a fresh renderer (re-reading content overrides)
// and swaps it in. On error the current renderer keeps serving.
func (s *Server) Reload(qs *catalog.QueryService) error {
	r, err := site.New(s.cfg, qs, s.siteOpts)
	if err != nil {
		return fmt.Errorf("failed to reload site: %w", err)
	}
	s.Swap(r)
	return nil
}

// Swap serves r from now on and drops every cached page. Cached assets
// do not depend on the renderer and are kept; see InvalidateAssets.
func (s *Server) Swap(r *site.Renderer) {
	s.renderer.Store(r)
	s.pages.Purge()
	n := s.reloads.Add(1)
	s.logger.Info("Site reloaded", "reloads", n, "products", len(r.Catalog().ListProducts()))
}

// InvalidateAssets unmaps the cached copies of paths so the next request
// reads them again. Paths outside the asset directory are ignored. With
// no paths every cached asset is released.
func (s *Server) InvalidateAssets(paths ...string) {
	s.assetMu.Lock()
	defer s.assetMu.Unlock()

	if len(paths) == 0 {
		if err := s.assets.Close(); err != nil {
			s.logger.Warn("Failed to release assets", "error", err)
		}
		return
	}

	dir := s.cfg.Paths.Assets
	if dir == "" {
		return
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absDir, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		s.assets.Invalidate(filepath.Join(dir, rel))
	}
}

// Stats returns a snapshot of cache metrics.
func (s *Server) Stats() Stats {
	return Stats{
		CachedPages: s.pages.Len(),
		PageHits:    s.pageHits.Load(),
		PageMisses:  s.pageMisses.Load(),
		Reloads:     s.reloads.Load(),
		Assets:      s.assets.Stats(),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured timeout. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("Preview server listening", "url", "http://"+ln.Addr().String()+s.cfg.Site.BasePath+"/")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down preview server")
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	if cerr := s.closeAssets(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to shut down gracefully: %w", err)
	}
	s.logger.Info("Preview server stopped")
	return nil
}

func (s *Server) closeAssets() error {
	s.assetMu.Lock()
	defer s.assetMu.Unlock()
	return s.assets.Close()
}

func (s *Server) handle(c *gin.Context) {
	reqPath := c.Param("path")
	if reqPath == "" {
		reqPath = "/"
	}
	r := s.renderer.Load()

	page, err := s.page(r, reqPath, c.Request.URL.RawQuery)
	switch {
	case err == nil:
		if page.Path != reqPath {
			c.Redirect(http.StatusMovedPermanently, withQuery(s.url(page.Path), c.Request.URL.RawQuery))
			return
		}
		c.Data(http.StatusOK, page.ContentType, page.Body)
		return
	case !errors.Is(err, site.ErrNotFound):
		s.logger.Error("Failed to render page", "path", reqPath, "error", err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	if s.serveAsset(c, reqPath) {
		return
	}
	s.notFound(c)
}

// page returns the rendered page for p, from the cache when the entry was
// produced by the current renderer.
func (s *Server) page(r *site.Renderer, p, rawQuery string) (*site.Page, error) {
	key := p
	if rawQuery != "" {
		key += "?" + rawQuery
	}

	if entry, ok := s.pages.Get(key); ok && entry.renderer == r {
		s.pageHits.Add(1)
		return entry.page, nil
	}
	s.pageMisses.Add(1)

	// Malformed pairs are dropped; the rest still applies.
	query, _ := url.ParseQuery(rawQuery)
	page, err := r.Render(p, query)
	if err != nil {
		return nil, err
	}
	s.pages.Add(key, cachedPage{page: page, renderer: r})
	return page, nil
}

// serveAsset writes the file at p from the asset directory, falling back to
// the built-in static files. It reports whether anything was written.
func (s *Server) serveAsset(c *gin.Context, p string) bool {
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" {
		return false
	}
	contentType := mime.TypeByExtension(path.Ext(clean))

	if dir := s.cfg.Paths.Assets; dir != "" && assetSelected(s.cfg, clean) {
		s.assetMu.RLock()
		data, err := s.assets.Get(filepath.Join(dir, filepath.FromSlash(clean)))
		if err == nil {
			writeAsset(c, contentType, data)
			s.assetMu.RUnlock()
			return true
		}
		s.assetMu.RUnlock()

		if errors.Is(err, util.ErrAssetCacheFull) {
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(clean)))
			if err == nil {
				writeAsset(c, contentType, data)
				return true
			}
		}
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("Asset not served from disk", "path", clean, "error", err)
		}
	}

	data, err := fs.ReadFile(s.static, clean)
	if err != nil {
		return false
	}
	writeAsset(c, contentType, data)
	return true
}

func (s *Server) notFound(c *gin.Context) {
	page, err := s.renderer.Load().NotFound()
	if err != nil {
		s.logger.Error("Failed to render not-found page", "error", err)
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	c.Data(http.StatusNotFound, page.ContentType, page.Body)
}

func (s *Server) url(p string) string {
	return site.WithBasePath(s.cfg.Site.BasePath, p)
}

func writeAsset(c *gin.Context, contentType string, data []byte) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, contentType, data)
}

func withQuery(p, rawQuery string) string {
	if rawQuery == "" {
		return p
	}
	return p + "?" + rawQuery
}
