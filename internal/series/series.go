// Package series expands the patch list of a configuration into the ordered
// set of patch files to apply.
package series

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoMatch reports a pattern that selected no files.
var ErrNoMatch = errors.New("pattern matched no patch files")

// Expand resolves patterns relative to dir. Entries are expanded in the order
// given; the matches of one glob are sorted lexically so numbered series such
// as 0001-*.patch apply in sequence. A file selected twice is kept at its
// first position.
func Expand(dir string, patterns []string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	fsys := os.DirFS(dir)

	var out []string
	seen := map[string]struct{}{}
	for _, pattern := range patterns {
		var (
			matches []string
			err     error
		)
		rel := path.Clean(filepath.ToSlash(pattern))
		if !filepath.IsAbs(pattern) && fs.ValidPath(rel) {
			matches, err = expandOne(fsys, rel)
			for i := range matches {
				matches[i] = filepath.Join(dir, filepath.FromSlash(matches[i]))
			}
		} else {
			target := pattern
			if !filepath.IsAbs(target) {
				target = filepath.Join(dir, pattern)
			}
			matches, err = expandAbsolute(target)
		}
		if err != nil {
			return nil, err
		}
		out = appendUnique(out, seen, matches)
	}
	return out, nil
}

// ExpandFS is Expand over an arbitrary file system. Patterns must be valid
// fs paths.
func ExpandFS(fsys fs.FS, patterns []string) ([]string, error) {
	var out []string
	seen := map[string]struct{}{}
	for _, pattern := range patterns {
		matches, err := expandOne(fsys, path.Clean(pattern))
		if err != nil {
			return nil, err
		}
		out = appendUnique(out, seen, matches)
	}
	return out, nil
}

func expandOne(fsys fs.FS, pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		info, err := fs.Stat(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", pattern, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("patch %s is a directory", pattern)
		}
		return []string{pattern}, nil
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("patch pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	slices.Sort(matches)
	return matches, nil
}

func expandAbsolute(pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", pattern, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("patch %s is a directory", pattern)
		}
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("patch pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	slices.Sort(matches)
	return matches, nil
}

func appendUnique(out []string, seen map[string]struct{}, matches []string) []string {
	for _, match := range matches {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		out = append(out, match)
	}
	return out
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
