package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const fooSource = "#include <stdio.h>\n\nvoid main(){\n  printf(\"Hello foo\");\n}\n"

const offsetPatch = `diff --git a/foo.cc b/foo.cc
index f3008f9..ec4aaa0 100644
--- a/foo.cc
+++ b/foo.cc
@@ -6,4 +6,5 @@
 
 void main(){
   printf("Hello foo");
+  printf("Hello from patch");
 }
`

const followUpPatch = `--- a/foo.cc
+++ b/foo.cc
@@ -4,3 +4,3 @@
   printf("Hello foo");
-  printf("Hello from patch");
+  printf("Hello again");
 }
`

const mismatchPatch = `--- a/foo.cc
+++ b/foo.cc
@@ -2,4 +2,5 @@
 
 void main(){
   printf("Hello bar");
+  printf("Hello from patch");
 }
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), append([]string{"--no-color"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestApplyCommandReportsOffsets(t *testing.T) {
	root := t.TempDir()
	foo := writeFile(t, filepath.Join(root, "foo.cc"), fooSource)
	patchPath := writeFile(t, filepath.Join(t.TempDir(), "fix.patch"), offsetPatch)

	code, stdout, stderr := run("apply", "-p1", "-d", root, patchPath)
	require.Equal(t, ExitOK, code, stderr)
	require.Contains(t, stdout, patchPath)
	require.Contains(t, stdout, "  M foo.cc\n")
	require.Contains(t, stdout, "    hunk #1 applied at offset -4 (patch line 5)\n")
	require.Contains(t, stdout, "1 patch applied")
	require.Empty(t, stderr)
	require.Contains(t, readFile(t, foo), "  printf(\"Hello from patch\");\n}\n")
}

func TestApplyCommandFailsOnMismatch(t *testing.T) {
	root := t.TempDir()
	foo := writeFile(t, filepath.Join(root, "foo.cc"), fooSource)
	patchPath := writeFile(t, filepath.Join(t.TempDir(), "bad.patch"), mismatchPatch)

	code, _, stderr := run("apply", "--directory", root, patchPath)
	require.Equal(t, ExitFailure, code)
	require.Contains(t, stderr, "error: "+patchPath)
	require.Contains(t, stderr, "Incorrect Chunk: the chunk content doesn't match the target")
	require.Contains(t, stderr, "File: ./foo.cc")
	require.Contains(t, stderr, "Hunk: #1 (patch line 3)")
	require.Contains(t, stderr, "Offending hunk:")
	require.Contains(t, stderr, `    printf("Hello bar");`)
	require.Equal(t, fooSource, readFile(t, foo))
}

func TestApplyCommandStopsAtFirstFailingPatch(t *testing.T) {
	root := t.TempDir()
	foo := writeFile(t, filepath.Join(root, "foo.cc"), fooSource)
	patches := t.TempDir()
	first := writeFile(t, filepath.Join(patches, "0001-offset.patch"), offsetPatch)
	second := writeFile(t, filepath.Join(patches, "0002-bad.patch"), mismatchPatch)
	third := writeFile(t, filepath.Join(patches, "0003-follow-up.patch"), followUpPatch)

	code, stdout, stderr := run("apply", "-d", root, first, second, third)
	require.Equal(t, ExitFailure, code)
	require.Contains(t, stderr, "error: "+second)
	require.NotContains(t, stdout, third)
	require.Contains(t, readFile(t, foo), "Hello from patch")
	require.NotContains(t, readFile(t, foo), "Hello again")
}

func TestCheckCommandLeavesTreeUntouched(t *testing.T) {
	root := t.TempDir()
	foo := writeFile(t, filepath.Join(root, "foo.cc"), fooSource)
	patches := t.TempDir()
	writeFile(t, filepath.Join(patches, "0001-offset.patch"), offsetPatch)
	writeFile(t, filepath.Join(patches, "0002-follow-up.patch"), followUpPatch)

	code, stdout, stderr := run("check", "-d", root, filepath.Join(patches, "*.patch"))
	require.Equal(t, ExitOK, code, stderr)
	require.Contains(t, stdout, "2 patches would apply cleanly")
	require.Equal(t, fooSource, readFile(t, foo))
}

func TestCheckCommandDetectsAlreadyAppliedPatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "foo.cc"), fooSource)
	patchPath := writeFile(t, filepath.Join(t.TempDir(), "fix.patch"), offsetPatch)

	code, _, stderr := run("apply", "-d", root, patchPath)
	require.Equal(t, ExitOK, code, stderr)

	code, _, stderr = run("check", "-d", root, patchPath)
	require.Equal(t, ExitFailure, code)
	require.Contains(t, stderr, "Incorrect Chunk")
}

func TestStatCommand(t *testing.T) {
	patchPath := writeFile(t, filepath.Join(t.TempDir(), "series.patch"), strings.Join([]string{
		"diff --git a/bar.cc b/bar.cc",
		"--- a/bar.cc",
		"+++ b/bar.cc",
		"@@ -1,3 +1,3 @@",
		" void lib(){",
		`-  printf("Hello bar");`,
		`+  printf("Hello patch");`,
		" }",
		"diff --git a/lib/foo.cc b/lib/foo.cc",
		"--- a/lib/foo.cc",
		"+++ b/lib/foo.cc",
		"@@ -1 +1,2 @@",
		" x",
		"+y",
	}, "\n")+"\n")

	code, stdout, stderr := run("stat", patchPath)
	require.Equal(t, ExitOK, code, stderr)
	require.Contains(t, stdout, " bar.cc     | 2 +-\n")
	require.Contains(t, stdout, " lib/foo.cc | 1 +\n")
	require.Contains(t, stdout, " 2 files changed, 2 insertions(+), 1 deletion(-)\n")
}

func TestApplyCommandUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	foo := writeFile(t, filepath.Join(dir, "tree", "foo.cc"), fooSource)
	writeFile(t, filepath.Join(dir, "patches", "0001-offset.patch"), offsetPatch)
	configPath := writeFile(t, filepath.Join(dir, "gopatch.toml"), `
root = "tree"
strip = 1
patches = ["patches/*.patch"]
`)

	code, stdout, stderr := run("--config", configPath, "apply")
	require.Equal(t, ExitOK, code, stderr)
	require.Contains(t, stdout, "1 patch applied")
	require.Contains(t, readFile(t, foo), "Hello from patch")
}

func TestVerboseLoggingIncludesHunkOffsets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "foo.cc"), fooSource)
	patchPath := writeFile(t, filepath.Join(t.TempDir(), "fix.patch"), offsetPatch)

	code, _, stderr := run("--verbose", "apply", "-d", root, patchPath)
	require.Equal(t, ExitOK, code, stderr)
	require.Contains(t, stderr, "[DEBUG] hunk applied")
	require.Contains(t, stderr, "offset=-4")
	require.Contains(t, stderr, "patch="+patchPath)
	require.Contains(t, stderr, "run_id=")
}

func TestUsageErrors(t *testing.T) {
	patchPath := writeFile(t, filepath.Join(t.TempDir(), "fix.patch"), offsetPatch)

	cases := map[string][]string{
		"no patches":           {"apply"},
		"negative max offset":  {"apply", "--max-offset", "-1", patchPath},
		"missing config":       {"--config", filepath.Join(t.TempDir(), "nope.toml"), "apply", patchPath},
		"missing patch":        {"apply", filepath.Join(t.TempDir(), "missing.patch")},
		"unknown flag":         {"apply", "--fuzz", patchPath},
		"invalid log level":    {"--log-level", "chatty", "apply", patchPath},
		"glob without matches": {"stat", filepath.Join(t.TempDir(), "*.patch")},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, stderr := run(args...)
			require.Equal(t, ExitUsage, code, stderr)
			require.NotEmpty(t, stderr)
		})
	}
}

func TestApplyCommandReportsMissingRoot(t *testing.T) {
	patchPath := writeFile(t, filepath.Join(t.TempDir(), "fix.patch"), offsetPatch)

	code, _, stderr := run("apply", "-d", filepath.Join(t.TempDir(), "absent"), patchPath)
	require.Equal(t, ExitFailure, code)
	require.Contains(t, stderr, "no such file or directory")
}

func TestVersionFlag(t *testing.T) {
	code, stdout, _ := run("--version")
	require.Equal(t, ExitOK, code)
	require.Equal(t, "gopatch version "+Version+"\n", stdout)
}

func TestNormalizeArgs(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		[]string{"apply", "-p=0", "-p", "2", "--p1", "x-p1"},
		normalizeArgs([]string{"apply", "-p0", "-p", "2", "--p1", "x-p1"}))
}
