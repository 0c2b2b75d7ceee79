package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandtscales/scalesite/catalogs"
	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/config"
	"github.com/gandtscales/scalesite/pkg/site"
)

// --- helpers ---

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	qs, err := catalog.LoadAndQueryBytes(catalogs.ProductsJSON)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Paths.Assets = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	siteOpts := site.Options{Logger: quietLogger(), Now: fixedNow}
	r, err := site.New(cfg, qs, siteOpts)
	require.NoError(t, err)

	s, err := New(r, Options{Logger: quietLogger(), Site: siteOpts})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.closeAssets() })
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// --- pages ---

func TestServer_Home(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, site.ContentTypeHTML, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "G&amp;T Scale Services")
}

func TestServer_ShopQuery(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/shop/?category=weighbridges")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Showing 1&ndash;3 of 3 products")

	rec = get(t, s, "/shop/?page=99")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Showing 25&ndash;25 of 25 products")
}

func TestServer_Product(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/product/gold-scale/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gold Buying Scale")

	rec = get(t, s, "/product/no-such-scale/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page Not Found")
}

func TestServer_RedirectsToTrailingSlash(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/about")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/about/", rec.Header().Get("Location"))

	rec = get(t, s, "/quote?product=gold-scale")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/quote/?product=gold-scale", rec.Header().Get("Location"))
}

func TestServer_GeneratedFiles(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/sitemap.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, site.ContentTypeXML, rec.Header().Get("Content-Type"))

	rec = get(t, s, "/robots.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap:")

	rec = get(t, s, "/search-index.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, site.ContentTypeJSON, rec.Header().Get("Content-Type"))
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{"/no/such/page/", "/missing.png", "/../../etc/passwd"} {
		rec := get(t, s, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Page Not Found", target)
	}

	req := httptest.NewRequest(http.MethodPost, "/contact/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- assets ---

func TestServer_BuiltInStatic(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s, "/css/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.NotEmpty(t, rec.Body.String())

	rec = get(t, s, "/images/product-placeholder.svg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "image/svg+xml")
}

func TestServer_UserAssets(t *testing.T) {
	s := newTestServer(t, nil)
	writeFile(t, s.cfg.Paths.Assets, "images/products/gold-scale.jpg", "jpeg-bytes")
	writeFile(t, s.cfg.Paths.Assets, "css/site.css", "body{}")
	writeFile(t, s.cfg.Paths.Assets, "images/.DS_Store", "junk")

	rec := get(t, s, "/images/products/gold-scale.jpg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	rec = get(t, s, "/css/site.css")
	assert.Equal(t, "body{}", rec.Body.String(), "user assets override built-in ones")

	rec = get(t, s, "/images/.DS_Store")
	assert.Equal(t, http.StatusNotFound, rec.Code, "excluded assets are not served")

	get(t, s, "/images/products/gold-scale.jpg")
	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Assets.Hits)
	assert.Equal(t, 2, stats.Assets.Cached)
}

func TestServer_InvalidateAssets(t *testing.T) {
	s := newTestServer(t, nil)
	writeFile(t, s.cfg.Paths.Assets, "notes.txt", "v1")

	assert.Equal(t, "v1", get(t, s, "/notes.txt").Body.String())

	writeFile(t, s.cfg.Paths.Assets, "notes.txt", "version two")
	s.InvalidateAssets()
	assert.Equal(t, "version two", get(t, s, "/notes.txt").Body.String())
}

func TestServer_InvalidateAssetPaths(t *testing.T) {
	s := newTestServer(t, nil)
	writeFile(t, s.cfg.Paths.Assets, "notes.txt", "v1")
	writeFile(t, s.cfg.Paths.Assets, "other.txt", "other")

	get(t, s, "/notes.txt")
	get(t, s, "/other.txt")
	require.Equal(t, 2, s.Stats().Assets.Cached)

	writeFile(t, s.cfg.Paths.Assets, "notes.txt", "version two")
	s.InvalidateAssets(
		filepath.Join(s.cfg.Paths.Assets, "notes.txt"),
		filepath.Join(t.TempDir(), "notes.txt"),
	)
	assert.Equal(t, 1, s.Stats().Assets.Cached, "only the changed asset is dropped")
	assert.Equal(t, "version two", get(t, s, "/notes.txt").Body.String())
}

func TestServer_ReloadKeepsAssets(t *testing.T) {
	s := newTestServer(t, nil)
	writeFile(t, s.cfg.Paths.Assets, "notes.txt", "v1")
	get(t, s, "/notes.txt")

	require.NoError(t, s.Reload(s.Renderer().Catalog()))
	assert.Equal(t, 1, s.Stats().Assets.Cached)
}

// --- cache and reload ---

func TestServer_PageCache(t *testing.T) {
	s := newTestServer(t, nil)

	get(t, s, "/shop/")
	get(t, s, "/shop/")
	get(t, s, "/shop/?page=2")

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.PageHits)
	assert.Equal(t, int64(2), stats.PageMisses)
	assert.Equal(t, 2, stats.CachedPages)
}

func TestServer_PageCacheEviction(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.CacheSize = 2 })

	get(t, s, "/")
	get(t, s, "/about/")
	get(t, s, "/services/")
	assert.Equal(t, 2, s.Stats().CachedPages)
}

func TestServer_Reload(t *testing.T) {
	s := newTestServer(t, nil)
	get(t, s, "/shop/")
	require.Equal(t, 1, s.Stats().CachedPages)

	qs, err := catalog.LoadAndQueryBytes([]byte(`{
		"categories": [{"id": "c1", "name": "Weighbridges", "slug": "weighbridges", "description": "Truck scales"}],
		"products": [{"id": "p1", "name": "Mobile Axle Weigher", "slug": "mobile-axle-weigher", "category": "weighbridges", "image": "/images/axle.jpg"}]
	}`))
	require.NoError(t, err)
	require.NoError(t, s.Reload(qs))

	stats := s.Stats()
	assert.Equal(t, 0, stats.CachedPages)
	assert.Equal(t, int64(1), stats.Reloads)

	rec := get(t, s, "/shop/")
	assert.Contains(t, rec.Body.String(), "Mobile Axle Weigher")
	assert.Contains(t, rec.Body.String(), "Showing 1&ndash;1 of 1 products")

	assert.Equal(t, http.StatusNotFound, get(t, s, "/product/gold-scale/").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/product/mobile-axle-weigher/").Code)
}

// --- base path ---

func TestServer_BasePath(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Site.BasePath = "/gandscales-site" })

	rec := get(t, s, "/gandscales-site/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/gandscales-site/shop/"`)

	rec = get(t, s, "/gandscales-site")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/gandscales-site/", rec.Header().Get("Location"))

	rec = get(t, s, "/gandscales-site/about")
	assert.Equal(t, "/gandscales-site/about/", rec.Header().Get("Location"))

	rec = get(t, s, "/gandscales-site/css/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/about/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- lifecycle ---

func TestServer_ServeAndShutdown(t *testing.T) {
	s := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/faq/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "FAQ")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_RequiresRenderer(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}
