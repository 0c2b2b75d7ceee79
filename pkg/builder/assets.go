package builder

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidatePatterns checks include and exclude globs for syntax errors.
func ValidatePatterns(include, exclude []string) error {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}
	return nil
}

// MatchAsset reports whether a slash-separated path relative to the asset
// root is selected. Exclusions win over inclusions; an empty include list
// selects everything.
func MatchAsset(relPath string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if m, _ := doublestar.Match(pattern, relPath); m {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if m, _ := doublestar.Match(pattern, relPath); m {
			return true
		}
	}
	return false
}

// discoverAssets walks root and returns the slash-separated relative paths
// of the selected files, in lexical order.
func (b *Builder) discoverAssets(root string, include, exclude []string) ([]string, error) {
	if err := ValidatePatterns(include, exclude); err != nil {
		return nil, err
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("Walk error", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}

		for _, pattern := range exclude {
			if m, _ := doublestar.Match(pattern, relPath); m {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if MatchAsset(relPath, include, nil) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// copyFS copies every file of src below dst and returns the file and byte
// counts.
func copyFS(ctx context.Context, src fs.FS, dst string) (int, int64, error) {
	var files int
	var written int64

	err := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		in, err := src.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		n, err := writeFile(filepath.Join(dst, filepath.FromSlash(path)), in)
		if err != nil {
			return err
		}
		files++
		written += n
		return nil
	})
	if err != nil {
		return files, written, fmt.Errorf("failed to copy assets: %w", err)
	}
	return files, written, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return writeFile(dst, in)
}

func writeFile(dst string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return n, nil
}
