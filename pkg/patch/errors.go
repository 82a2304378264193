package patch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure raised while parsing or applying a patch.
type ErrorKind string

const (
	// KindMalformedPatch reports structural problems such as missing file headers.
	KindMalformedPatch ErrorKind = "MALFORMED_PATCH"
	// KindChunkFormat reports a hunk body that disagrees with its header counts.
	KindChunkFormat ErrorKind = "CHUNK_FORMAT"
	// KindApplyMismatch reports a hunk whose old side cannot be found in the target.
	KindApplyMismatch ErrorKind = "APPLY_MISMATCH"
	// KindIO reports filesystem failures and invalid invocation parameters.
	KindIO ErrorKind = "IO_ERROR"
)

// Sentinels matched by errors.Is for each ErrorKind.
var (
	ErrMalformedPatch = errors.New("malformed patch")
	ErrChunkFormat    = errors.New("wrong chunk format")
	ErrApplyMismatch  = errors.New("chunk does not match target")
	ErrIO             = errors.New("patch i/o failure")
)

const mismatchMessage = "Incorrect Chunk: the chunk content doesn't match the target"

// Error represents a structured failure while parsing or applying a patch. It
// satisfies the error interface so it can be returned directly from Apply*
// helpers.
type Error struct {
	Kind    ErrorKind
	Message string
	// Path is the target path relative to the root, when known.
	Path string
	// Line is the 1-based patch line the failure refers to, or 0.
	Line int
	// Hunk is the 1-based hunk number within its file diff, or 0.
	Hunk int
	// HunkLines holds the raw text of the offending hunk, header included.
	HunkLines []string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "patch error"
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMalformedPatch:
		return ErrMalformedPatch
	case KindChunkFormat:
		return ErrChunkFormat
	case KindApplyMismatch:
		return ErrApplyMismatch
	case KindIO:
		return ErrIO
	}
	return nil
}

func malformedf(line int, format string, args ...any) *Error {
	return &Error{Kind: KindMalformedPatch, Message: fmt.Sprintf(format, args...), Line: line}
}

func truncatedChunk(line int) *Error {
	return &Error{
		Kind:    KindChunkFormat,
		Message: fmt.Sprintf("Expecting more chunk line at line %d", line),
		Line:    line,
	}
}

func overrunChunk(line int, text string) *Error {
	return &Error{
		Kind:    KindChunkFormat,
		Message: fmt.Sprintf("Wrong chunk detected near line %d: %s", line, text),
		Line:    line,
	}
}

func mismatch(h Hunk) *Error {
	return &Error{
		Kind:      KindApplyMismatch,
		Message:   mismatchMessage,
		Line:      h.Line,
		HunkLines: h.Raw(),
	}
}

// ioError keeps the cause's message unchanged so callers see the original
// filesystem diagnostic.
func ioError(path string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: KindIO, Message: err.Error(), Path: path, Err: err}
}

// FormatError renders Error values into a human readable message suitable for
// build logs.
func FormatError(err *Error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	message := err.Error()
	if err.Kind == KindIO {
		return message
	}

	parts := []string{message}
	if err.Path != "" {
		displayPath := err.Path
		if !strings.HasPrefix(displayPath, "./") && !strings.HasPrefix(displayPath, "/") {
			displayPath = "./" + displayPath
		}
		parts = append(parts, fmt.Sprintf("File: %s", displayPath))
	}
	switch {
	case err.Hunk > 0 && err.Line > 0:
		parts = append(parts, fmt.Sprintf("Hunk: #%d (patch line %d)", err.Hunk, err.Line))
	case err.Hunk > 0:
		parts = append(parts, fmt.Sprintf("Hunk: #%d", err.Hunk))
	}
	if len(err.HunkLines) > 0 {
		parts = append(parts, "", "Offending hunk:")
		parts = append(parts, strings.Join(err.HunkLines, "\n"))
	}
	return strings.Join(parts, "\n")
}
