// Package builder exports the rendered site as a tree of static files.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gandtscales/scalesite/pkg/config"
	"github.com/gandtscales/scalesite/pkg/site"
	"github.com/gandtscales/scalesite/pkg/util"
)

// Result summarizes one export.
type Result struct {
	OutputDir string
	Pages     int
	Assets    int
	Skipped   int // user assets shadowed by a generated page
	Failed    int // pages that failed to render or write
	Bytes     int64
	Workers   int
	Duration  time.Duration
}

// Options tunes a Builder.
type Options struct {
	// Logger for progress messages. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Builder writes every route of a Renderer plus the static assets to
// the configured output directory.
type Builder struct {
	cfg      *config.Config
	renderer *site.Renderer
	logger   *slog.Logger
}

// New returns a Builder for renderer. The config is taken from the renderer.
func New(renderer *site.Renderer, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:      renderer.Config(),
		renderer: renderer,
		logger:   logger,
	}
}

// Build exports the site. The first failing page or asset aborts the
// build; cancelling ctx stops it between files.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	start := time.Now()
	out := b.cfg.Paths.Output
	res := Result{OutputDir: out}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := ValidatePatterns(b.cfg.Assets.Include, b.cfg.Assets.Exclude); err != nil {
		return res, err
	}

	if b.cfg.Build.Clean {
		if err := b.cleanOutput(out); err != nil {
			return res, err
		}
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return res, fmt.Errorf("failed to create output directory: %w", err)
	}

	routes := b.renderer.Routes()

	n, written, err := copyFS(ctx, site.StaticFS(), out)
	res.Assets += n
	res.Bytes += written
	if err != nil {
		return res, err
	}

	n, skipped, written, err := b.copyUserAssets(ctx, out, routes)
	res.Assets += n
	res.Skipped = skipped
	res.Bytes += written
	if err != nil {
		return res, err
	}

	stats, err := b.renderPages(ctx, out, routes, util.GetOptimalPoolSizeWithOverride(b.cfg.Build.Workers))
	res.Workers = stats.NumWorkers
	res.Pages = int(stats.JobsProcessed)
	res.Failed = int(stats.JobsFailed)
	res.Bytes += stats.BytesWritten
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	b.logger.Info("Build complete",
		"output", out,
		"pages", res.Pages,
		"assets", res.Assets,
		"bytes", res.Bytes,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// renderPages writes every route through a render pool and returns the
// pool counters once all workers have exited.
func (b *Builder) renderPages(ctx context.Context, out string, routes []site.Route, workers int) (renderPoolStats, error) {
	pool := newRenderPool(ctx, workers, b.renderer, out, b.logger)
	pool.Start()

	// Submit from a separate goroutine so a full queue never blocks the
	// collector below.
	go func() {
		for i, r := range routes {
			if err := pool.Submit(renderJob{Route: r, JobID: i}); err != nil {
				return
			}
		}
		pool.FinishSubmitting()
	}()

	err := collectPages(ctx, pool, len(routes), b.logger)
	pool.Stop()
	return pool.Stats(), err
}

// collectPages drains n outcomes from pool, stopping at the first error.
func collectPages(ctx context.Context, pool *renderPool, n int, logger *slog.Logger) error {
	for done := 0; done < n; done++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-pool.Results():
			logger.Debug("Wrote page", "path", r.Path, "file", r.File, "bytes", r.Bytes)
		case e := <-pool.Errors():
			return fmt.Errorf("failed to build %s: %w", e.Path, e.Err)
		}
	}
	return nil
}

func (b *Builder) copyUserAssets(ctx context.Context, out string, routes []site.Route) (int, int, int64, error) {
	root := b.cfg.Paths.Assets
	if root == "" {
		return 0, 0, 0, nil
	}
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		b.logger.Debug("Asset directory not found, skipping", "path", root)
		return 0, 0, 0, nil
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to stat asset directory: %w", err)
	}
	if !info.IsDir() {
		return 0, 0, 0, fmt.Errorf("asset path %s is not a directory", root)
	}

	files, err := b.discoverAssets(root, b.cfg.Assets.Include, b.cfg.Assets.Exclude)
	if err != nil {
		return 0, 0, 0, err
	}

	generated := make(map[string]bool, len(routes))
	for _, r := range routes {
		generated[r.File()] = true
	}

	var copied, skipped int
	var written int64
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return copied, skipped, written, err
		}
		if generated[rel] {
			b.logger.Warn("Asset shadowed by generated page", "asset", rel)
			skipped++
			continue
		}

		n, err := copyFile(filepath.Join(root, filepath.FromSlash(rel)), filepath.Join(out, filepath.FromSlash(rel)))
		if err != nil {
			return copied, skipped, written, fmt.Errorf("failed to copy asset %s: %w", rel, err)
		}
		copied++
		written += n
	}
	return copied, skipped, written, nil
}

// cleanOutput removes the previous export. It refuses paths that would
// take the project or its assets with it.
func (b *Builder) cleanOutput(out string) error {
	abs, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if abs == filepath.Dir(abs) || abs == wd || isWithin(wd, abs) {
		return fmt.Errorf("refusing to clean output directory %s", out)
	}
	if b.cfg.Paths.Assets != "" {
		assets, err := filepath.Abs(b.cfg.Paths.Assets)
		if err == nil && (assets == abs || isWithin(assets, abs)) {
			return fmt.Errorf("refusing to clean output directory %s: it contains the asset directory", out)
		}
	}

	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("failed to clean output directory: %w", err)
	}
	b.logger.Debug("Cleaned output directory", "path", abs)
	return nil
}

// isWithin reports whether path lies strictly below dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
