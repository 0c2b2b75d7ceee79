// AssetCache serves static site assets (images, stylesheets, fonts) from
// memory-mapped files.
//
// **Why mmap:**
//   - Preview server hits the same handful of images on every page load
//   - Only accessed pages are loaded into RAM (on-demand paging)
//   - Graceful fallback to os.ReadFile when mmap fails (or the file is empty)
//
// **Lifecycle:**
//   - Lazy loading: files are mapped on first request
//   - Invalidate(path) drops a single file after it changes on disk
//   - Close() unmaps everything; call it on server shutdown
package util

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// ErrAssetCacheFull is returned when MaxFiles assets are already mapped.
var ErrAssetCacheFull = errors.New("asset cache is full")

// AssetCacheConfig controls AssetCache behavior.
type AssetCacheConfig struct {
	// MaxFiles is the maximum number of assets kept mapped. 0 means unlimited.
	MaxFiles int

	// Logger for warnings. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultAssetCacheConfig returns limits suited to a marketing site.
func DefaultAssetCacheConfig() AssetCacheConfig {
	return AssetCacheConfig{MaxFiles: 2048}
}

// AssetCacheStats tracks cache performance metrics.
type AssetCacheStats struct {
	Cached       int
	Hits         int64
	Misses       int64
	MmapFailures int64
}

type mappedAsset struct {
	data mmap.MMap // nil when the fallback copy is used
	file *os.File
	copy []byte
}

func (a *mappedAsset) bytes() []byte {
	if a.data != nil {
		return a.data
	}
	return a.copy
}

func (a *mappedAsset) close() error {
	if a.data == nil {
		return nil
	}
	err := a.data.Unmap()
	if cerr := a.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// AssetCache is safe for concurrent use.
type AssetCache struct {
	config AssetCacheConfig
	logger *slog.Logger

	mu     sync.RWMutex
	assets map[string]*mappedAsset

	hits         atomic.Int64
	misses       atomic.Int64
	mmapFailures atomic.Int64
}

// NewAssetCache creates an empty AssetCache.
func NewAssetCache(config AssetCacheConfig) *AssetCache {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetCache{
		config: config,
		logger: logger,
		assets: make(map[string]*mappedAsset),
	}
}

// Get returns the contents of the file at path, mapping it on first access.
//
// The returned slice is read-only and valid until Invalidate(path) or Close().
func (c *AssetCache) Get(path string) ([]byte, error) {
	c.mu.RLock()
	if a, ok := c.assets[path]; ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		return a.bytes(), nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check: another goroutine may have loaded it while we waited.
	if a, ok := c.assets[path]; ok {
		c.hits.Add(1)
		return a.bytes(), nil
	}
	c.misses.Add(1)

	if c.config.MaxFiles > 0 && len(c.assets) >= c.config.MaxFiles {
		return nil, fmt.Errorf("%w: %d files mapped", ErrAssetCacheFull, len(c.assets))
	}

	a, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.assets[path] = a
	return a.bytes(), nil
}

func (c *AssetCache) load(path string) (*mappedAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset %q: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat asset %q: %w", path, err)
	}
	if stat.IsDir() {
		f.Close()
		return nil, fmt.Errorf("asset %q is a directory", path)
	}

	// Zero-length files cannot be mapped.
	if stat.Size() > 0 {
		data, err := mmap.Map(f, mmap.RDONLY, 0)
		if err == nil {
			return &mappedAsset{data: data, file: f}, nil
		}
		c.mmapFailures.Add(1)
		c.logger.Warn("mmap failed, falling back to read", "path", path, "error", err)
	}
	f.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %q: %w", path, err)
	}
	return &mappedAsset{copy: content}, nil
}

// Invalidate unmaps a single asset so the next Get reloads it from disk.
func (c *AssetCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.assets[path]
	if !ok {
		return
	}
	delete(c.assets, path)
	if err := a.close(); err != nil {
		c.logger.Warn("Failed to unmap asset", "path", path, "error", err)
	}
}

// Stats returns current cache metrics.
func (c *AssetCache) Stats() AssetCacheStats {
	c.mu.RLock()
	cached := len(c.assets)
	c.mu.RUnlock()

	return AssetCacheStats{
		Cached:       cached,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		MmapFailures: c.mmapFailures.Load(),
	}
}

// Close unmaps all assets. Errors are joined; the cache is empty afterwards.
func (c *AssetCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for path, a := range c.assets {
		if err := a.close(); err != nil {
			errs = append(errs, fmt.Errorf("unmap %q: %w", path, err))
		}
	}
	c.assets = make(map[string]*mappedAsset)
	return errors.Join(errs...)
}
