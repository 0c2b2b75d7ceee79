package watch

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gandtscales/scalesite/catalogs"
	"github.com/gandtscales/scalesite/pkg/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- helpers ---

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWatcher(t *testing.T, opts Options) (*Watcher, <-chan Change) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	opts.Logger = quietLogger()

	w, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	changes := make(chan Change, 16)
	w.OnChange(func(ch Change) { changes <- ch })
	return w, changes
}

func waitChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case ch := <-changes:
		return ch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func assertNoChange(t *testing.T, changes <-chan Change, within time.Duration) {
	t.Helper()
	select {
	case ch := <-changes:
		t.Fatalf("unexpected change: %v", ch.Paths)
	case <-time.After(within):
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// resolved returns the absolute form of path with symlinks expanded, to
// match the names fsnotify reports on systems where TempDir is a symlink.
func resolved(t *testing.T, path string) string {
	t.Helper()
	p, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return p
}

// --- tests ---

func TestWatcher_FileChange(t *testing.T) {
	dir := resolved(t, t.TempDir())
	catalogPath := filepath.Join(dir, "products.json")
	write(t, catalogPath, "{}")

	w, changes := newTestWatcher(t, Options{})
	require.NoError(t, w.AddFile(catalogPath))
	require.NoError(t, w.Start())

	write(t, filepath.Join(dir, "unrelated.txt"), "x")
	write(t, catalogPath, `{"categories": []}`)

	ch := waitChange(t, changes)
	assert.Equal(t, []string{catalogPath}, ch.Paths)
	assert.False(t, ch.At.IsZero())
}

func TestWatcher_Debounce(t *testing.T) {
	dir := resolved(t, t.TempDir())
	w, changes := newTestWatcher(t, Options{Debounce: 300 * time.Millisecond})
	require.NoError(t, w.AddDir(dir))
	require.NoError(t, w.Start())

	for i := 0; i < 5; i++ {
		write(t, filepath.Join(dir, "about.md"), "v"+string(rune('0'+i)))
	}

	ch := waitChange(t, changes)
	assert.Equal(t, []string{filepath.Join(dir, "about.md")}, ch.Paths)
	assertNoChange(t, changes, 600*time.Millisecond)

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Changes)
	assert.GreaterOrEqual(t, stats.Events, int64(1))
	assert.True(t, stats.IsRunning)
}

func TestWatcher_IgnorePatterns(t *testing.T) {
	dir := resolved(t, t.TempDir())
	w, changes := newTestWatcher(t, Options{Ignore: []string{"**/*.swp", "**/*~"}})
	require.NoError(t, w.AddDir(dir))
	require.NoError(t, w.Start())

	write(t, filepath.Join(dir, ".about.md.swp"), "tmp")
	write(t, filepath.Join(dir, "about.md~"), "backup")
	write(t, filepath.Join(dir, "about.md"), "real")

	ch := waitChange(t, changes)
	assert.Equal(t, []string{filepath.Join(dir, "about.md")}, ch.Paths)
}

func TestWatcher_IgnoreDirs(t *testing.T) {
	dir := resolved(t, t.TempDir())
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	w, changes := newTestWatcher(t, Options{IgnoreDirs: []string{out}})
	require.NoError(t, w.AddDir(dir))
	require.NoError(t, w.Start())

	write(t, filepath.Join(out, "index.html"), "generated")
	write(t, filepath.Join(dir, "logo.svg"), "<svg/>")

	ch := waitChange(t, changes)
	assert.Equal(t, []string{filepath.Join(dir, "logo.svg")}, ch.Paths)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := resolved(t, t.TempDir())
	w, changes := newTestWatcher(t, Options{})
	require.NoError(t, w.AddDir(dir))
	require.NoError(t, w.Start())

	sub := filepath.Join(dir, "images")
	require.NoError(t, os.Mkdir(sub, 0o755))
	ch := waitChange(t, changes)
	assert.Contains(t, ch.Paths, sub)

	write(t, filepath.Join(sub, "scale.jpg"), "jpg")
	ch = waitChange(t, changes)
	assert.Contains(t, ch.Paths, filepath.Join(sub, "scale.jpg"))
}

func TestWatcher_Lifecycle(t *testing.T) {
	w, _ := newTestWatcher(t, Options{})

	require.NoError(t, w.Start())
	assert.Error(t, w.Start(), "second start")

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "stop is idempotent")
	assert.Error(t, w.Start(), "start after stop")
	assert.False(t, w.Stats().IsRunning)
}

func TestWatcher_AddErrors(t *testing.T) {
	w, _ := newTestWatcher(t, Options{})
	dir := t.TempDir()

	assert.Error(t, w.AddDir(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "file.txt")
	write(t, file, "x")
	assert.Error(t, w.AddDir(file))
}

func TestNew_InvalidIgnorePattern(t *testing.T) {
	_, err := New(Options{Ignore: []string{"[a-"}, Logger: quietLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ignore pattern")
}

func TestReloadOnChange(t *testing.T) {
	w, _ := newTestWatcher(t, Options{})

	var loads int
	load := func() (*catalog.QueryService, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("unexpected end of JSON input")
		}
		return catalog.LoadAndQueryBytes(catalogs.ProductsJSON)
	}

	var order []string
	var got *catalog.QueryService
	w.ReloadOnChange(load,
		func(qs *catalog.QueryService) error {
			order = append(order, "server")
			got = qs
			return nil
		},
		func(qs *catalog.QueryService) error {
			order = append(order, "build")
			return nil
		},
	)

	// A catalog that fails to load never reaches the sinks.
	w.dispatch(Change{Paths: []string{"products.json"}})
	assert.Empty(t, order)

	w.dispatch(Change{Paths: []string{"products.json"}})
	assert.Equal(t, []string{"server", "build"}, order)
	require.NotNil(t, got)
	assert.Len(t, got.ListProducts(), 25)
}

func TestReloadOnChange_StopsAtFailingSink(t *testing.T) {
	w, _ := newTestWatcher(t, Options{})

	calls := 0
	w.ReloadOnChange(
		func() (*catalog.QueryService, error) { return catalog.LoadAndQueryBytes(catalogs.ProductsJSON) },
		func(*catalog.QueryService) error { calls++; return errors.New("render failed") },
		func(*catalog.QueryService) error { calls++; return nil },
	)

	w.dispatch(Change{})
	assert.Equal(t, 1, calls)
}
