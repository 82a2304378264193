package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/asynkron/gopatch/internal/config"
	"github.com/asynkron/gopatch/internal/logging"
	"github.com/asynkron/gopatch/internal/series"
	"github.com/asynkron/gopatch/pkg/patch"
)

// session bundles what every command needs once flags, config file and
// environment have been merged.
type session struct {
	cfg     config.Config
	logger  logging.Logger
	out     *printer
	ctx     context.Context
	patches []string
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "strip",
			Aliases: []string{"p"},
			Usage:   "remove `N` leading path segments from patch paths",
		},
		&cli.StringFlag{
			Name:    "directory",
			Aliases: []string{"d"},
			Usage:   "apply patches below `DIR`",
		},
		&cli.IntFlag{
			Name:  "max-offset",
			Usage: "search at most `N` lines around a hunk's recorded position (0: whole file)",
		},
	}
}

func newSession(cCtx *cli.Context) (*session, error) {
	cfg, err := config.Load(cCtx.String("config"), cCtx.IsSet("config"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), ExitUsage)
	}
	dotenv, err := config.ReadDotEnv("")
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), ExitUsage)
	}
	if err := cfg.ApplyEnv(config.EnvLookup(dotenv)); err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), ExitUsage)
	}

	if cCtx.IsSet("strip") {
		cfg.Strip = cCtx.Int("strip")
	}
	if cCtx.IsSet("directory") {
		cfg.Root = cCtx.String("directory")
		cfg.Dir = "."
	}
	if cCtx.IsSet("max-offset") {
		cfg.MaxOffset = cCtx.Int("max-offset")
	}
	if cCtx.IsSet("log-level") {
		cfg.LogLevel = cCtx.String("log-level")
	}
	if cCtx.Bool("verbose") {
		cfg.LogLevel = string(logging.LevelDebug)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), ExitUsage)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), ExitUsage)
	}

	var patches []string
	if cCtx.NArg() > 0 {
		patches, err = series.Expand(".", cCtx.Args().Slice())
	} else {
		patches, err = series.Expand(cfg.Dir, cfg.Patches)
	}
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), ExitUsage)
	}
	if len(patches) == 0 {
		return nil, cli.Exit("error: no patch files given and none configured", ExitUsage)
	}

	ctx := cCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{
		cfg:     cfg,
		logger:  logging.NewStdLogger(level, cCtx.App.ErrWriter),
		out:     newPrinter(cCtx.App.Writer, cCtx.App.ErrWriter, cCtx.Bool("no-color")),
		ctx:     logging.WithRunID(ctx, ""),
		patches: patches,
	}, nil
}

func (s *session) options() patch.Options {
	return patch.Options{Strip: s.cfg.Strip, MaxOffset: s.cfg.MaxOffset}
}

func (s *session) root() string {
	return s.cfg.ResolveRoot()
}

// fail reports err for patchPath and converts it into the command's exit error.
func (s *session) fail(ctx context.Context, patchPath string, err error) error {
	s.logger.Error(ctx, "patch failed", err)
	s.out.failure(patchPath, err)
	return cli.Exit("", ExitFailure)
}
