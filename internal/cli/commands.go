package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/asynkron/gopatch/internal/logging"
	"github.com/asynkron/gopatch/internal/stat"
	"github.com/asynkron/gopatch/pkg/patch"
)

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:        "apply",
		Usage:       "apply patches to the working tree",
		UsageText:   "gopatch apply [-p N] [-d DIR] [--max-offset N] [patch ...]",
		Description: "Applies each patch in order and stops at the first failure. Files changed by earlier patches stay changed.",
		Flags:       targetFlags(),
		Action:      runApply,
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:        "check",
		Usage:       "verify that patches apply without touching the working tree",
		UsageText:   "gopatch check [-p N] [-d DIR] [--max-offset N] [patch ...]",
		Description: "Applies the series to an in-memory copy of the affected files.",
		Flags:       targetFlags(),
		Action:      runCheck,
	}
}

func statCommand() *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "print a diffstat for each patch",
		UsageText: "gopatch stat [-p N] [patch ...]",
		Flags:     targetFlags()[:1],
		Action:    runStat,
	}
}

func runApply(cCtx *cli.Context) error {
	s, err := newSession(cCtx)
	if err != nil {
		return err
	}
	opts := patch.FilesystemOptions{Options: s.options(), Root: s.root()}

	for _, patchPath := range s.patches {
		ctx := logging.WithPatch(s.ctx, patchPath)
		s.logger.Info(ctx, "applying patch", logging.F("root", opts.Root), logging.F("strip", opts.Strip))

		results, err := patch.ApplyFile(ctx, patchPath, opts)
		s.out.results(patchPath, results)
		s.logResults(ctx, results)
		if err != nil {
			return s.fail(ctx, patchPath, err)
		}
	}
	s.out.done("applied", len(s.patches))
	return nil
}

func runCheck(cCtx *cli.Context) error {
	s, err := newSession(cCtx)
	if err != nil {
		return err
	}
	root := s.root()
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		if err == nil {
			err = &fs.PathError{Op: "stat", Path: root, Err: errors.New("not a directory")}
		}
		return s.fail(s.ctx, "", err)
	}

	// The series is applied cumulatively to a snapshot of the files it touches.
	files := map[string]string{}
	loaded := map[string]bool{}
	for _, patchPath := range s.patches {
		ctx := logging.WithPatch(s.ctx, patchPath)
		s.logger.Info(ctx, "checking patch", logging.F("root", root))

		content, err := os.ReadFile(patchPath)
		if err != nil {
			return s.fail(ctx, patchPath, err)
		}
		diffs, err := patch.Parse(string(content))
		if err != nil {
			return s.fail(ctx, patchPath, err)
		}
		if err := loadTargets(root, diffs, s.cfg.Strip, files, loaded); err != nil {
			return s.fail(ctx, patchPath, err)
		}

		next, results, err := patch.ApplyToMemory(ctx, diffs, files, s.options())
		s.out.results(patchPath, results)
		s.logResults(ctx, results)
		if err != nil {
			return s.fail(ctx, patchPath, err)
		}
		files = next
	}
	s.out.done("would apply cleanly", len(s.patches))
	return nil
}

// loadTargets reads every target of diffs that has not been seen yet into files.
func loadTargets(root string, diffs []patch.FileDiff, strip int, files map[string]string, loaded map[string]bool) error {
	for _, fd := range diffs {
		target, err := fd.TargetPath(strip)
		if err != nil {
			return err
		}
		if loaded[target] {
			continue
		}
		loaded[target] = true
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(target)))
		switch {
		case err == nil:
			files[target] = string(content)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return err
		}
	}
	return nil
}

func runStat(cCtx *cli.Context) error {
	s, err := newSession(cCtx)
	if err != nil {
		return err
	}
	for _, patchPath := range s.patches {
		ctx := logging.WithPatch(s.ctx, patchPath)
		content, err := os.ReadFile(patchPath)
		if err != nil {
			return s.fail(ctx, patchPath, err)
		}
		summary, err := stat.Compute(string(content), s.cfg.Strip)
		if err != nil {
			return s.fail(ctx, patchPath, err)
		}
		s.out.stat(patchPath, summary)
	}
	return nil
}

func (s *session) logResults(ctx context.Context, results []patch.Result) {
	for _, result := range results {
		s.logger.Info(ctx, "file patched", logging.F("status", result.Status), logging.F("file", result.Path))
		for _, hunk := range result.Hunks {
			s.logger.Debug(ctx, "hunk applied",
				logging.F("file", result.Path),
				logging.F("hunk", hunk.Number),
				logging.F("line", hunk.Line),
				logging.F("offset", hunk.Offset))
		}
	}
}
