package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
)

// Options configure how patches are applied for both filesystem and in-memory
// operations.
type Options struct {
	// Strip is the number of leading path segments removed from the paths
	// recorded in the patch, as with patch -p.
	Strip int
	// MaxOffset bounds the distance searched around a hunk's recorded
	// position. Zero means the search is bounded only by the file length.
	MaxOffset int
}

// HunkStatus records where a hunk was applied.
type HunkStatus struct {
	Number int `json:"number"`
	// Line is the 1-based patch line of the hunk header.
	Line int `json:"line"`
	// Offset is the drift between the recorded and the actual position.
	Offset int `json:"offset"`
}

// Result describes the outcome for a single file when applying a patch.
type Result struct {
	Status string       `json:"status"`
	Path   string       `json:"path"`
	Hunks  []HunkStatus `json:"hunks,omitempty"`
}

type workspace interface {
	Exists(path string) (bool, error)
	Read(path string) (*document, error)
	Write(path string, doc *document) error
	Remove(path string) error
}

func apply(ctx context.Context, diffs []FileDiff, ws workspace, opts Options) ([]Result, error) {
	if ws == nil {
		return nil, errors.New("nil workspace")
	}
	if opts.Strip < 0 {
		return nil, ioError("", fmt.Errorf("invalid strip count %d: must not be negative", opts.Strip))
	}
	results := make([]Result, 0, len(diffs))
	for _, fd := range diffs {
		if err := ctx.Err(); err != nil {
			return results, ioError("", err)
		}
		result, err := applyFileDiff(fd, ws, opts)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func applyFileDiff(fd FileDiff, ws workspace, opts Options) (Result, error) {
	path, err := fd.TargetPath(opts.Strip)
	if err != nil {
		return Result{}, err
	}

	switch fd.Action {
	case ActionAdd:
		exists, err := ws.Exists(path)
		if err != nil {
			return Result{}, ioError(path, err)
		}
		if exists {
			return Result{}, ioError(path, fmt.Errorf("cannot add %s: %w", path, fs.ErrExist))
		}
		doc := &document{endsWithNewline: true}
		statuses, err := applyHunks(doc, fd.Hunks, opts)
		if err != nil {
			return Result{}, withPath(err, path)
		}
		if err := ws.Write(path, doc); err != nil {
			return Result{}, ioError(path, err)
		}
		return Result{Status: "A", Path: path, Hunks: statuses}, nil

	case ActionDelete:
		doc, err := ws.Read(path)
		if err != nil {
			return Result{}, ioError(path, err)
		}
		statuses, err := applyHunks(doc, fd.Hunks, opts)
		if err != nil {
			return Result{}, withPath(err, path)
		}
		if len(fd.Hunks) > 0 && len(doc.lines) > 0 {
			last := fd.Hunks[len(fd.Hunks)-1]
			pe := mismatch(last)
			pe.Hunk = len(fd.Hunks)
			pe.Path = path
			return Result{}, pe
		}
		if err := ws.Remove(path); err != nil {
			return Result{}, ioError(path, err)
		}
		return Result{Status: "D", Path: path, Hunks: statuses}, nil

	case ActionModify:
		doc, err := ws.Read(path)
		if err != nil {
			return Result{}, ioError(path, err)
		}
		statuses, err := applyHunks(doc, fd.Hunks, opts)
		if err != nil {
			return Result{}, withPath(err, path)
		}
		if len(fd.Hunks) > 0 {
			if err := ws.Write(path, doc); err != nil {
				return Result{}, ioError(path, err)
			}
		}
		return Result{Status: "M", Path: path, Hunks: statuses}, nil
	}
	return Result{}, malformedf(fd.Line, "unsupported patch action for %s: %s", path, fd.Action)
}

func withPath(err error, path string) error {
	var pe *Error
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	return err
}

// ApplyHunk applies a single hunk to lines. offset is the drift discovered by
// the previous hunk of the same file (0 for the first); the returned offset is
// the drift this hunk was found at and should be passed to the next one.
func ApplyHunk(lines []string, h Hunk, offset int, opts Options) ([]string, int, error) {
	index, next, err := locateHunk(lines, h, offset, 0, opts)
	if err != nil {
		return lines, offset, err
	}
	return splice(lines, index, h.oldLen(), h.NewText()), next, nil
}

// ApplyHunks applies the hunks of one file diff in order. Every hunk is located
// against the original lines, so offsets are reported relative to the
// positions recorded in the patch.
func ApplyHunks(lines []string, hunks []Hunk, opts Options) ([]string, []HunkStatus, error) {
	doc := &document{lines: lines, endsWithNewline: true}
	statuses, err := applyHunks(doc, hunks, opts)
	if err != nil {
		return lines, statuses, err
	}
	return doc.lines, statuses, nil
}

func applyHunks(doc *document, hunks []Hunk, opts Options) ([]HunkStatus, error) {
	if len(hunks) == 0 {
		return nil, nil
	}
	type placement struct {
		index int
		hunk  Hunk
	}
	placements := make([]placement, 0, len(hunks))
	statuses := make([]HunkStatus, 0, len(hunks))
	offset := 0
	end := 0
	for i, h := range hunks {
		// Positions before end belong to the previous hunk and are skipped.
		index, next, err := locateHunk(doc.lines, h, offset, end, opts)
		if err != nil {
			var pe *Error
			if errors.As(err, &pe) {
				pe.Hunk = i + 1
			}
			return statuses, err
		}
		offset = next
		end = index + h.oldLen()
		placements = append(placements, placement{index: index, hunk: h})
		statuses = append(statuses, HunkStatus{Number: i + 1, Line: h.Line, Offset: next})
	}

	original := doc.lines
	out := make([]string, 0, len(original))
	cursor := 0
	for _, p := range placements {
		out = append(out, original[cursor:p.index]...)
		old := p.index
		for _, line := range p.hunk.Lines {
			switch line.Kind {
			case LineContext:
				out = append(out, original[old])
				old++
			case LineDelete:
				old++
			case LineAdd:
				out = append(out, line.Text+doc.eol())
			}
		}
		cursor = old
		if cursor == len(original) {
			switch {
			case p.hunk.NewNoNewline:
				doc.endsWithNewline = false
				if n := len(out); n > 0 {
					out[n-1] = strings.TrimSuffix(out[n-1], "\r")
				}
			case p.hunk.OldNoNewline:
				doc.endsWithNewline = true
				if n := len(out); n > 0 && doc.crlf && !strings.HasSuffix(out[n-1], "\r") {
					out[n-1] += "\r"
				}
			}
		}
	}
	out = append(out, original[cursor:]...)
	doc.lines = out
	return statuses, nil
}

func (h Hunk) oldLen() int {
	n := 0
	for _, line := range h.Lines {
		if line.Kind != LineAdd {
			n++
		}
	}
	return n
}

// origin is the 0-based index the header places the hunk at. A hunk without
// old lines inserts after line OldStart.
func (h Hunk) origin() int {
	if h.oldLen() == 0 {
		return h.OldStart
	}
	return h.OldStart - 1
}

func locateHunk(lines []string, h Hunk, offset, lowest int, opts Options) (int, int, error) {
	origin := h.origin()
	index := findWithOffset(lines, h.OldText(), addClamped(origin, offset), lowest, opts.MaxOffset)
	if index < 0 {
		return -1, offset, mismatch(h)
	}
	return index, index - origin, nil
}

// findWithOffset searches for needle starting at candidate and moving outward
// (0, -1, +1, -2, +2, ...). Only windows that start at or after lowest and fit
// inside haystack are considered, so the work done is bounded by the length
// of haystack however far candidate lies outside it. maxOffset > 0 caps the
// distance searched.
func findWithOffset(haystack, needle []string, candidate, lowest, maxOffset int) int {
	lowest = max(lowest, 0)
	last := len(haystack) - len(needle)
	if last < lowest {
		return -1
	}
	if len(needle) == 0 {
		return min(max(candidate, lowest), last)
	}
	within := func(distance int) bool {
		return maxOffset <= 0 || distance <= maxOffset
	}

	// Outside the window range only one direction can match.
	switch {
	case candidate > last:
		for i := last; i >= lowest && within(absDiff(candidate, i)); i-- {
			if matchesAt(haystack, needle, i) {
				return i
			}
		}
		return -1
	case candidate < lowest:
		for i := lowest; i <= last && within(absDiff(candidate, i)); i++ {
			if matchesAt(haystack, needle, i) {
				return i
			}
		}
		return -1
	}

	for distance := 0; within(distance); distance++ {
		below := candidate - distance
		above := candidate + distance
		if below < lowest && above > last {
			return -1
		}
		if below >= lowest && matchesAt(haystack, needle, below) {
			return below
		}
		if distance > 0 && above <= last && matchesAt(haystack, needle, above) {
			return above
		}
	}
	return -1
}

// matchesAt compares needle with the window at index, ignoring the "\r" a
// CRLF line keeps in the buffer.
func matchesAt(haystack, needle []string, index int) bool {
	for j := range needle {
		if strings.TrimSuffix(haystack[index+j], "\r") != needle[j] {
			return false
		}
	}
	return true
}

func addClamped(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

func absDiff(a, b int) int {
	if a < b {
		a, b = b, a
	}
	d := uint(a) - uint(b)
	if d > math.MaxInt {
		return math.MaxInt
	}
	return int(d)
}

func splice(target []string, index, deleteCount int, replacement []string) []string {
	result := make([]string, 0, len(target)-deleteCount+len(replacement))
	result = append(result, target[:index]...)
	result = append(result, replacement...)
	result = append(result, target[index+deleteCount:]...)
	return result
}
