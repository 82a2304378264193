// Package patch parses git-style unified diffs and applies them to a working tree.
//
// The parser understands the subset of the unified-diff format emitted by `git diff` and
// `git format-patch`, including a leading mail header and a trailing `-- <version>`
// signature. Hunks are located with a bounded outward search around the line numbers
// recorded in their headers, so a patch still applies after small unrelated edits to the
// target files. Failures are reported as *Error values carrying the patch line number
// and the offending hunk, which makes them suitable for build logs.
package patch
