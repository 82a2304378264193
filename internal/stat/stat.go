// Package stat summarises the changes a patch carries, in the style of
// `git apply --stat`.
package stat

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/asynkron/gopatch/pkg/patch"
)

// FileStat counts the changed lines of one file diff.
type FileStat struct {
	Path       string
	Action     patch.Action
	Insertions int
	Deletions  int
}

// Summary is the diffstat of a whole patch.
type Summary struct {
	Files      []FileStat
	Insertions int
	Deletions  int
}

// Compute parses patchBody and counts insertions and deletions per file.
// Paths are reported after removing strip leading segments.
func Compute(patchBody string, strip int) (Summary, error) {
	lines := patch.SplitLines(patchBody)
	diffs, err := patch.ParseLines(lines)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, fd := range diffs {
		target, err := fd.TargetPath(strip)
		if err != nil {
			return Summary{}, err
		}
		fs := FileStat{Path: target, Action: fd.Action}
		if len(fd.Hunks) > 0 {
			added, deleted, err := countLines(diffSpan(lines, fd))
			if err != nil {
				return Summary{}, fmt.Errorf("stat %s: %w", target, err)
			}
			fs.Insertions, fs.Deletions = added, deleted
		}
		summary.Files = append(summary.Files, fs)
		summary.Insertions += fs.Insertions
		summary.Deletions += fs.Deletions
	}
	return summary, nil
}

// diffSpan collects the header and hunk bodies of fd, leaving out the lines
// the parser skipped between them, such as the "diff -ruN" command lines of
// recursive plain diffs.
func diffSpan(lines []string, fd patch.FileDiff) []string {
	span := append([]string(nil), lines[fd.Line-1:fd.Hunks[0].Line-1]...)
	for _, h := range fd.Hunks {
		span = append(span, lines[h.Line-1:h.EndLine]...)
	}
	return span
}

func countLines(span []string) (int, int, error) {
	fileDiff, err := diff.ParseFileDiff([]byte(strings.Join(span, "\n") + "\n"))
	if err != nil {
		return 0, 0, err
	}
	st := fileDiff.Stat()
	return int(st.Added + st.Changed), int(st.Deleted + st.Changed), nil
}

// Total renders the closing summary line.
func (s Summary) Total() string {
	return fmt.Sprintf(" %d %s changed, %d %s(+), %d %s(-)",
		len(s.Files), plural(len(s.Files), "file", "files"),
		s.Insertions, plural(s.Insertions, "insertion", "insertions"),
		s.Deletions, plural(s.Deletions, "deletion", "deletions"))
}

// Bar renders the +/- histogram for one file, scaled so the widest file uses
// at most width characters.
func (s Summary) Bar(fs FileStat, width int) (string, string) {
	maxChanges := 0
	for _, f := range s.Files {
		maxChanges = max(maxChanges, f.Insertions+f.Deletions)
	}
	plus, minus := fs.Insertions, fs.Deletions
	if width > 0 && maxChanges > width {
		plus = scale(plus, maxChanges, width)
		minus = scale(minus, maxChanges, width)
	}
	return strings.Repeat("+", plus), strings.Repeat("-", minus)
}

func scale(n, total, width int) int {
	if n == 0 {
		return 0
	}
	return max(1, n*width/total)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
