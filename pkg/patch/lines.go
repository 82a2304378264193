package patch

import (
	"io/fs"
	"os"
	"strings"
)

// ReadLines loads a text file as an ordered sequence of lines. A trailing
// newline does not produce an empty final line and CRLF endings are
// normalised.
func ReadLines(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(content)), nil
}

// SplitLines splits text into lines the way Parse and ReadLines do.
func SplitLines(input string) []string {
	if input == "" {
		return nil
	}
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.TrimSuffix(normalized, "\n")
	return strings.Split(normalized, "\n")
}

// document is the in-memory buffer of one target file. Lines keep their own
// "\r" so mixed line endings survive; crlf records the ending of the first
// line, which inserted lines adopt.
type document struct {
	lines           []string
	endsWithNewline bool
	crlf            bool
	mode            fs.FileMode
}

func newDocument(content string) *document {
	doc := &document{endsWithNewline: content == "" || strings.HasSuffix(content, "\n")}
	if content == "" {
		return doc
	}
	doc.lines = strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	terminated := len(doc.lines) > 1 || doc.endsWithNewline
	doc.crlf = terminated && strings.HasSuffix(doc.lines[0], "\r")
	return doc
}

// eol is the suffix given to lines the patch inserts.
func (d *document) eol() string {
	if d.crlf {
		return "\r"
	}
	return ""
}

func (d *document) String() string {
	if len(d.lines) == 0 {
		return ""
	}
	content := strings.Join(d.lines, "\n")
	if d.endsWithNewline {
		content += "\n"
	}
	return content
}
