package patch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  []string
	}{
		{input: "", want: nil},
		{input: "\n", want: []string{""}},
		{input: "a", want: []string{"a"}},
		{input: "a\nb\n", want: []string{"a", "b"}},
		{input: "a\n\n", want: []string{"a", ""}},
		{input: "a\r\nb\r\n", want: []string{"a", "b"}},
	}

	for _, tc := range cases {
		got := SplitLines(tc.input)
		if len(got) != len(tc.want) {
			t.Fatalf("SplitLines(%q) = %#v, want %#v", tc.input, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("SplitLines(%q) = %#v, want %#v", tc.input, got, tc.want)
			}
		}
	}
}

func TestDocumentRoundTripsLayout(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "a\n", "a", "a\nb", "a\r\nb\r\n", "a\r\nb", "\n", "a\nb\r\nc\n", "a\r\nb\n"} {
		if got := newDocument(content).String(); got != content {
			t.Fatalf("newDocument(%q).String() = %q", content, got)
		}
	}
}

func TestReadLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	lines, err := ReadLines(path)
	if err != nil {
		t.Fatalf("ReadLines returned error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if _, err := ReadLines(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
