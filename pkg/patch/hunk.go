package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LineKind tags a hunk body line.
type LineKind int

const (
	// LineContext is an unchanged line present on both sides.
	LineContext LineKind = iota
	// LineAdd exists only on the new side.
	LineAdd
	// LineDelete exists only on the old side.
	LineDelete
)

func (k LineKind) String() string {
	switch k {
	case LineContext:
		return "context"
	case LineAdd:
		return "add"
	case LineDelete:
		return "delete"
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

func (k LineKind) prefix() string {
	switch k {
	case LineAdd:
		return "+"
	case LineDelete:
		return "-"
	}
	return " "
}

// HunkLine is one body line of a hunk without its prefix character.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk captures a unified-diff hunk belonging to a FileDiff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []HunkLine
	// Section is whatever followed the closing "@@" of the header.
	Section string
	// Line is the 1-based patch line of the "@@" header and EndLine the last
	// line of its body, including a trailing "\ No newline" marker.
	Line    int
	EndLine int
	// OldNoNewline and NewNoNewline record "\ No newline at end of file"
	// markers on the respective side.
	OldNoNewline bool
	NewNoNewline bool
}

// OldText returns the context and deleted lines in body order.
func (h Hunk) OldText() []string {
	out := make([]string, 0, h.OldLines)
	for _, line := range h.Lines {
		if line.Kind != LineAdd {
			out = append(out, line.Text)
		}
	}
	return out
}

// NewText returns the context and added lines in body order.
func (h Hunk) NewText() []string {
	out := make([]string, 0, h.NewLines)
	for _, line := range h.Lines {
		if line.Kind != LineDelete {
			out = append(out, line.Text)
		}
	}
	return out
}

// Header renders the "@@" line of the hunk.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@%s", formatRange(h.OldStart, h.OldLines), formatRange(h.NewStart, h.NewLines), h.Section)
}

// Raw renders the hunk back into patch text, one element per line.
func (h Hunk) Raw() []string {
	raw := make([]string, 0, len(h.Lines)+1)
	raw = append(raw, h.Header())
	for _, line := range h.Lines {
		raw = append(raw, line.Kind.prefix()+line.Text)
	}
	return raw
}

func formatRange(start, count int) string {
	if count == 1 {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

var hunkHeaderRE = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)

// parseHunkHeader parses "@@ -a[,b] +c[,d] @@"; lineNo is the 1-based patch line.
func parseHunkHeader(line string, lineNo int) (Hunk, error) {
	m := hunkHeaderRE.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, malformedf(lineNo, "invalid hunk header at line %d: %s", lineNo, line)
	}
	numbers := make([]int, 4)
	for i, raw := range m[1:5] {
		if raw == "" {
			numbers[i] = 1
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Hunk{}, malformedf(lineNo, "invalid hunk header at line %d: %s", lineNo, line)
		}
		numbers[i] = n
	}
	return Hunk{
		OldStart: numbers[0],
		OldLines: numbers[1],
		NewStart: numbers[2],
		NewLines: numbers[3],
		Section:  m[5],
		Line:     lineNo,
	}, nil
}

// parseHunkBody consumes body lines starting at index start until the counts
// declared in the header are satisfied. It returns the index of the first
// unconsumed line.
func parseHunkBody(lines []string, start int, h *Hunk) (int, error) {
	var oldSeen, newSeen int
	i := start
	for oldSeen < h.OldLines || newSeen < h.NewLines {
		if i >= len(lines) {
			return i, truncatedChunk(i + 1)
		}
		raw := lines[i]
		var line HunkLine
		switch {
		case raw == "":
			line = HunkLine{Kind: LineContext}
		case raw[0] == ' ':
			line = HunkLine{Kind: LineContext, Text: raw[1:]}
		case raw[0] == '+':
			line = HunkLine{Kind: LineAdd, Text: raw[1:]}
		case raw[0] == '-':
			line = HunkLine{Kind: LineDelete, Text: raw[1:]}
		case raw[0] == '\\':
			markNoNewline(h)
			i++
			continue
		default:
			return i, truncatedChunk(i + 1)
		}

		switch line.Kind {
		case LineContext:
			oldSeen++
			newSeen++
		case LineAdd:
			newSeen++
		case LineDelete:
			oldSeen++
		}
		if oldSeen > h.OldLines || newSeen > h.NewLines {
			return i, overrunChunk(i+1, raw)
		}
		h.Lines = append(h.Lines, line)
		i++
	}
	if i < len(lines) && strings.HasPrefix(lines[i], `\`) {
		markNoNewline(h)
		i++
	}
	h.EndLine = i
	return i, nil
}

// markNoNewline attributes a "\ No newline at end of file" marker to the side(s)
// of the line preceding it.
func markNoNewline(h *Hunk) {
	if len(h.Lines) == 0 {
		return
	}
	switch h.Lines[len(h.Lines)-1].Kind {
	case LineContext:
		h.OldNoNewline = true
		h.NewNoNewline = true
	case LineAdd:
		h.NewNoNewline = true
	case LineDelete:
		h.OldNoNewline = true
	}
}
