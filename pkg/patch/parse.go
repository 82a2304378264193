package patch

import (
	"regexp"
	"strconv"
	"strings"
)

// DevNull is the path git records for the missing side of an added or deleted file.
const DevNull = "/dev/null"

// Action identifies what a FileDiff does to its target.
type Action string

const (
	// ActionAdd creates a new file.
	ActionAdd Action = "add"
	// ActionDelete removes an existing file after verifying its content.
	ActionDelete Action = "delete"
	// ActionModify rewrites an existing file in place.
	ActionModify Action = "modify"
)

// FileDiff is the portion of a patch describing changes to one file.
type FileDiff struct {
	OldPath string
	NewPath string
	Action  Action
	// Mode is the octal mode from a "new file mode" or "deleted file mode" line.
	Mode  string
	Hunks []Hunk
	// Line and EndLine delimit the file diff in the patch (1-based, inclusive).
	Line    int
	EndLine int
}

var signatureVersionRE = regexp.MustCompile(`^\d+\.\d+`)

// Parse converts the textual representation of a patch into the ordered list
// of file diffs it contains.
func Parse(input string) ([]FileDiff, error) {
	return ParseLines(SplitLines(input))
}

// ParseLines is Parse for a patch that has already been split into lines.
func ParseLines(lines []string) ([]FileDiff, error) {
	s := &scanner{lines: lines}
	var diffs []FileDiff
	for s.pos < len(s.lines) && !s.done {
		line := s.lines[s.pos]
		switch {
		case strings.HasPrefix(line, "diff --git "), s.atPlainHeader():
			fd, err := s.scanFileDiff()
			if err != nil {
				return nil, err
			}
			diffs = append(diffs, fd)
		case s.atSignature():
			s.done = true
		default:
			// Mail header, commit message and diffstat summary.
			s.pos++
		}
	}
	return diffs, nil
}

type scanner struct {
	lines []string
	pos   int
	done  bool
}

// atPlainHeader reports whether a "diff -u" style "---"/"+++" pair starts at pos.
func (s *scanner) atPlainHeader() bool {
	if s.pos+1 >= len(s.lines) {
		return false
	}
	return strings.HasPrefix(s.lines[s.pos], "--- ") && strings.HasPrefix(s.lines[s.pos+1], "+++ ")
}

// atSignature reports whether pos holds the "-- " line of a mail signature.
func (s *scanner) atSignature() bool {
	if s.pos+1 >= len(s.lines) || s.lines[s.pos] != "-- " {
		return false
	}
	return signatureVersionRE.MatchString(s.lines[s.pos+1])
}

func (s *scanner) scanFileDiff() (FileDiff, error) {
	fd := FileDiff{Line: s.pos + 1}

	var gitOld, gitNew string
	if rest, ok := strings.CutPrefix(s.lines[s.pos], "diff --git "); ok {
		gitOld, gitNew = splitGitHeader(rest)
		s.pos++
	}

	var sawOld, sawNew, isNew, isDeleted bool
header:
	for s.pos < len(s.lines) {
		line := s.lines[s.pos]
		lineNo := s.pos + 1
		switch {
		case strings.HasPrefix(line, "@@"), strings.HasPrefix(line, "diff --git "):
			break header
		case sawNew && s.atPlainHeader():
			break header
		case s.atSignature():
			s.done = true
			break header
		case strings.HasPrefix(line, "--- "):
			if sawOld {
				return FileDiff{}, malformedf(lineNo, "duplicate \"---\" header at line %d", lineNo)
			}
			path, err := parseHeaderPath(strings.TrimPrefix(line, "--- "), lineNo)
			if err != nil {
				return FileDiff{}, err
			}
			fd.OldPath = path
			sawOld = true
		case strings.HasPrefix(line, "+++ "):
			if !sawOld {
				return FileDiff{}, malformedf(lineNo, "\"+++\" header without preceding \"---\" at line %d", lineNo)
			}
			if sawNew {
				return FileDiff{}, malformedf(lineNo, "duplicate \"+++\" header at line %d", lineNo)
			}
			path, err := parseHeaderPath(strings.TrimPrefix(line, "+++ "), lineNo)
			if err != nil {
				return FileDiff{}, err
			}
			fd.NewPath = path
			sawNew = true
		case strings.HasPrefix(line, "new file mode "):
			isNew = true
			fd.Mode = strings.TrimSpace(strings.TrimPrefix(line, "new file mode "))
		case strings.HasPrefix(line, "deleted file mode "):
			isDeleted = true
			fd.Mode = strings.TrimSpace(strings.TrimPrefix(line, "deleted file mode "))
		case strings.HasPrefix(line, "rename from "), strings.HasPrefix(line, "rename to "),
			strings.HasPrefix(line, "copy from "), strings.HasPrefix(line, "copy to "):
			return FileDiff{}, malformedf(lineNo, "rename and copy patches are not supported (line %d)", lineNo)
		case line == "GIT binary patch", strings.HasPrefix(line, "Binary files "):
			return FileDiff{}, malformedf(lineNo, "binary patches are not supported (line %d)", lineNo)
		}
		// index, old mode, new mode and similarity lines carry nothing we apply.
		s.pos++
	}

	if s.pos < len(s.lines) && !s.done && strings.HasPrefix(s.lines[s.pos], "@@") && !sawNew {
		lineNo := s.pos + 1
		if !sawOld {
			return FileDiff{}, malformedf(lineNo, "missing \"---\" header before hunk at line %d", lineNo)
		}
		return FileDiff{}, malformedf(lineNo, "missing \"+++\" header before hunk at line %d", lineNo)
	}
	if sawOld && !sawNew {
		return FileDiff{}, malformedf(s.pos, "missing \"+++\" header after line %d", s.pos)
	}

	if err := s.scanHunks(&fd); err != nil {
		return FileDiff{}, err
	}
	fd.EndLine = s.pos

	if !sawOld {
		// Header-only git diff: empty file added or removed, or a mode change.
		fd.OldPath, fd.NewPath = gitOld, gitNew
		switch {
		case isNew:
			fd.OldPath = DevNull
		case isDeleted:
			fd.NewPath = DevNull
		}
	}

	switch {
	case fd.OldPath == DevNull && fd.NewPath == DevNull:
		return FileDiff{}, malformedf(fd.Line, "file diff at line %d has no path on either side", fd.Line)
	case fd.OldPath == DevNull:
		fd.Action = ActionAdd
	case fd.NewPath == DevNull:
		fd.Action = ActionDelete
	case isNew:
		fd.Action = ActionAdd
	case isDeleted:
		fd.Action = ActionDelete
	default:
		fd.Action = ActionModify
	}
	return fd, nil
}

func (s *scanner) scanHunks(fd *FileDiff) error {
	for s.pos < len(s.lines) && !s.done {
		line := s.lines[s.pos]
		lineNo := s.pos + 1
		switch {
		case strings.HasPrefix(line, "@@"):
			hunk, err := parseHunkHeader(line, lineNo)
			if err != nil {
				return err
			}
			if n := len(fd.Hunks); n > 0 && hunk.OldStart < fd.Hunks[n-1].OldStart {
				return malformedf(lineNo, "hunk at line %d is out of order", lineNo)
			}
			next, err := parseHunkBody(s.lines, s.pos+1, &hunk)
			if err != nil {
				return err
			}
			fd.Hunks = append(fd.Hunks, hunk)
			s.pos = next
		case strings.HasPrefix(line, "diff --git "), s.atPlainHeader():
			return nil
		case s.atSignature():
			s.done = true
			return nil
		case line == "", line[0] == '\\':
			s.pos++
		case line[0] == ' ', line[0] == '+', line[0] == '-':
			if len(fd.Hunks) == 0 {
				return malformedf(lineNo, "diff content before the first hunk header at line %d", lineNo)
			}
			return overrunChunk(lineNo, line)
		default:
			s.pos++
		}
	}
	return nil
}

// parseHeaderPath extracts the path from the remainder of a "---" or "+++"
// line, dropping a TAB-separated timestamp and unquoting C-style quoting.
func parseHeaderPath(raw string, lineNo int) (string, error) {
	if idx := strings.IndexByte(raw, '\t'); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return "", malformedf(lineNo, "invalid quoted path at line %d: %s", lineNo, raw)
		}
		raw = unquoted
	}
	if raw == "" {
		return "", malformedf(lineNo, "missing path at line %d", lineNo)
	}
	return raw, nil
}

// splitGitHeader splits the "a/<path> b/<path>" tail of a "diff --git" line.
func splitGitHeader(rest string) (string, string) {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, `"`) {
		if first, err := strconv.QuotedPrefix(rest); err == nil {
			old, _ := strconv.Unquote(first)
			second := strings.TrimSpace(rest[len(first):])
			if unquoted, err := strconv.Unquote(second); err == nil {
				second = unquoted
			}
			return old, second
		}
	}
	if idx := strings.LastIndex(rest, " b/"); idx >= 0 {
		return rest[:idx], rest[idx+1:]
	}
	fields := strings.Fields(rest)
	if len(fields) == 2 {
		return fields[0], fields[1]
	}
	return rest, rest
}
