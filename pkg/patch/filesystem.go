package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemOptions augments Options with the root directory that stripped
// patch paths are resolved against.
type FilesystemOptions struct {
	Options
	// Root defaults to the current working directory.
	Root string
}

// ApplyFile reads the patch at patchPath and applies it below opts.Root.
// File diffs are applied in patch order; on failure the ones already applied
// stay applied and their results are returned alongside the error.
func ApplyFile(ctx context.Context, patchPath string, opts FilesystemOptions) ([]Result, error) {
	ws, err := newFilesystemWorkspace(opts)
	if err != nil {
		return nil, err
	}
	if opts.Strip < 0 {
		return nil, ioError("", fmt.Errorf("invalid strip count %d: must not be negative", opts.Strip))
	}
	content, err := os.ReadFile(patchPath)
	if err != nil {
		return nil, ioError(patchPath, err)
	}
	diffs, err := Parse(string(content))
	if err != nil {
		return nil, err
	}
	return apply(ctx, diffs, ws, opts.Options)
}

// ApplyFilesystemPatch parses a raw patch payload and applies it to the filesystem.
func ApplyFilesystemPatch(ctx context.Context, patchBody string, opts FilesystemOptions) ([]Result, error) {
	diffs, err := Parse(patchBody)
	if err != nil {
		return nil, err
	}
	return ApplyFilesystem(ctx, diffs, opts)
}

// ApplyFilesystem applies parsed file diffs to the OS filesystem.
func ApplyFilesystem(ctx context.Context, diffs []FileDiff, opts FilesystemOptions) ([]Result, error) {
	ws, err := newFilesystemWorkspace(opts)
	if err != nil {
		return nil, err
	}
	return apply(ctx, diffs, ws, opts.Options)
}

type filesystemWorkspace struct {
	root string
}

func newFilesystemWorkspace(opts FilesystemOptions) (*filesystemWorkspace, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, ioError("", fmt.Errorf("failed to determine working directory: %w", err))
		}
		root = wd
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, ioError(root, err)
	}
	if !info.IsDir() {
		return nil, ioError(root, fmt.Errorf("root %s is not a directory", root))
	}
	return &filesystemWorkspace{root: root}, nil
}

func (ws *filesystemWorkspace) resolve(rel string) string {
	return filepath.Join(ws.root, filepath.FromSlash(rel))
}

func (ws *filesystemWorkspace) Exists(path string) (bool, error) {
	_, err := os.Lstat(ws.resolve(path))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (ws *filesystemWorkspace) Read(path string) (*document, error) {
	abs := ws.resolve(path)
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot patch directory %s", path)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	doc := newDocument(string(content))
	doc.mode = info.Mode()
	return doc, nil
}

func (ws *filesystemWorkspace) Write(path string, doc *document) error {
	abs := ws.resolve(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	perm := doc.mode & fs.ModePerm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(abs, []byte(doc.String()), perm); err != nil {
		return err
	}

	// WriteFile only applies perm when it creates the file.
	if doc.mode != 0 {
		desired := doc.mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if info.Mode()&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky) != desired {
			if err := os.Chmod(abs, desired); err != nil {
				return fmt.Errorf("failed to restore permissions for %s: %w", path, err)
			}
		}
	}
	return nil
}

func (ws *filesystemWorkspace) Remove(path string) error {
	return os.Remove(ws.resolve(path))
}
