// Package cli implements the gopatch command line: apply, check and stat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/urfave/cli/v2"
)

// Version is reported by --version. Release builds override it with -ldflags.
var Version = "dev"

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Run executes gopatch with the provided arguments (without the program name).
// It returns a POSIX-style exit code indicating whether execution succeeded.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if ctx == nil {
		ctx = context.Background()
	}

	app := newApp(stdout, stderr)
	err := app.RunContext(ctx, append([]string{app.Name}, normalizeArgs(args)...))
	return exitCode(err, stderr)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "gopatch",
		Usage:     "apply unified and git-style patches with fuzzy hunk offsets",
		UsageText: "gopatch [global options] command [command options] [patch ...]",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read settings from `FILE` (default: ./gopatch.toml when present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log verbosity on stderr: debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "shorthand for --log-level debug",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable coloured output",
			},
		},
		Commands: []*cli.Command{
			applyCommand(),
			checkCommand(),
			statCommand(),
		},
		// Exit codes are computed by Run, never by os.Exit inside the library.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitOK
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(stderr, "Error: %s\n", err)
	return ExitUsage
}

var attachedStripRE = regexp.MustCompile(`^-p(\d+)$`)

// normalizeArgs rewrites patch(1)-style "-p1" into "-p=1".
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if m := attachedStripRE.FindStringSubmatch(arg); m != nil {
			arg = "-p=" + m[1]
		}
		out[i] = arg
	}
	return out
}
