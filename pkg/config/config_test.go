package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.normalize())

	assert.Equal(t, "G&T Scale Services", cfg.Site.Name)
	assert.Equal(t, 12, cfg.Site.PageSize)
	assert.Equal(t, "+263772914705", cfg.Company.WhatsApp)
	assert.Equal(t, 2004, cfg.Company.Founded)
	require.Len(t, cfg.Company.Offices, 4)
	assert.True(t, cfg.Company.Offices[0].Head)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Paths.Catalog)
}

func TestParse_OverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
site:
  base_path: /gandscales-site/
  page_size: 6
paths:
  catalog: data/products.json
server:
  shutdown_timeout: 2s
`))
	require.NoError(t, err)

	assert.Equal(t, "/gandscales-site", cfg.Site.BasePath)
	assert.Equal(t, 6, cfg.Site.PageSize)
	assert.Equal(t, "data/products.json", cfg.Paths.Catalog)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)

	// Untouched sections keep their defaults.
	assert.Equal(t, "G&T Scale Services", cfg.Site.Name)
	assert.Equal(t, "out", cfg.Paths.Output)
	assert.Equal(t, "sales@gandtscales.com", cfg.Company.Email)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`
site:
  url: not a url
  page_size: 0
  title_template: "no placeholder"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site.url")
	assert.Contains(t, err.Error(), "site.page_size")
	assert.Contains(t, err.Error(), "site.title_template")
}

func TestParse_BadYAML(t *testing.T) {
	_, err := Parse([]byte("site: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestNormalizeBasePath(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"/":                 "",
		"site":              "/site",
		"/site/":            "/site",
		" /a/b/ ":           "/a/b",
		"//gandscales-site": "/gandscales-site",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeBasePath(in), "input %q", in)
	}
}

func TestResolve_FlagWins(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "site:\n  page_size: 24\n")

	cfg, source, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, 24, cfg.Site.PageSize)
}

func TestResolve_FlagMissing(t *testing.T) {
	_, _, err := Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve_ProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".scalesite"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPath), []byte("paths:\n  output: dist\n"), 0644))
	chdir(t, dir)

	cfg, source, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPath, source)
	assert.Equal(t, "dist", cfg.Paths.Output)
}

func TestResolve_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, source, err := Resolve("")
	require.NoError(t, err)
	assert.Empty(t, source)
	assert.Equal(t, Default(), cfg)
}
