package patch

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
)

// ApplyToMemory applies file diffs to an in-memory document store keyed by
// root-relative slash paths. The provided map is copied before mutation and
// the updated snapshot is returned.
func ApplyToMemory(ctx context.Context, diffs []FileDiff, files map[string]string, opts Options) (map[string]string, []Result, error) {
	snapshot := maps.Clone(files)
	if snapshot == nil {
		snapshot = map[string]string{}
	}
	ws := newMemoryWorkspace(snapshot)
	results, err := apply(ctx, diffs, ws, opts)
	if err != nil {
		return nil, results, err
	}
	return ws.files, results, nil
}

// ApplyMemoryPatch parses a raw patch payload and applies it to an in-memory map of files.
func ApplyMemoryPatch(ctx context.Context, patchBody string, files map[string]string, opts Options) (map[string]string, []Result, error) {
	diffs, err := Parse(patchBody)
	if err != nil {
		return nil, nil, err
	}
	return ApplyToMemory(ctx, diffs, files, opts)
}

type memoryWorkspace struct {
	files map[string]string
}

func newMemoryWorkspace(files map[string]string) *memoryWorkspace {
	return &memoryWorkspace{files: files}
}

func (ws *memoryWorkspace) Exists(path string) (bool, error) {
	_, ok := ws.files[path]
	return ok, nil
}

func (ws *memoryWorkspace) Read(path string) (*document, error) {
	content, ok := ws.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return newDocument(content), nil
}

func (ws *memoryWorkspace) Write(path string, doc *document) error {
	if path == "" {
		return fmt.Errorf("invalid patch path")
	}
	ws.files[path] = doc.String()
	return nil
}

func (ws *memoryWorkspace) Remove(path string) error {
	if _, ok := ws.files[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(ws.files, path)
	return nil
}
