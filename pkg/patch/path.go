package patch

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// StripPath removes strip leading "/"-separated segments from a path recorded
// in a patch. The result is cleaned and must stay below the target root.
func StripPath(p string, strip int) (string, error) {
	if strip < 0 {
		return "", ioError("", fmt.Errorf("invalid strip count %d: must not be negative", strip))
	}
	segments := strings.Split(p, "/")
	if len(segments) <= strip {
		return "", malformedf(0, "cannot strip %d leading components from %q", strip, p)
	}
	rel := strings.Join(segments[strip:], "/")
	cleaned := path.Clean(rel)
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", malformedf(0, "path %q escapes the target root", rel)
	}
	return cleaned, nil
}

// TargetPath resolves the path the file diff operates on: the new path for
// additions and the old path otherwise.
func (fd FileDiff) TargetPath(strip int) (string, error) {
	recorded := fd.OldPath
	if fd.Action == ActionAdd || recorded == DevNull {
		recorded = fd.NewPath
	}
	resolved, err := StripPath(recorded, strip)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) && pe.Line == 0 {
			pe.Line = fd.Line
		}
		return "", err
	}
	return resolved, nil
}
