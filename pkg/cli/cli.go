package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/secmon-lab/coachmem/pkg/cli/config"
	"github.com/secmon-lab/coachmem/pkg/utils/errutil"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	// .env is optional; values already in the environment take precedence
	_ = godotenv.Load()

	app := newApp(version)
	if err := app.Run(ctx, args); err != nil {
		_ = errutil.Handle(ctx, err, "failed to run app")
		return err
	}

	return nil
}

func newApp(version string) *cli.Command {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	return &cli.Command{
		Name:    "coachmem",
		Usage:   "Conversational memory and task extraction for a personal coaching assistant",
		Version: version,
		Flags:   append(loggerCfg.Flags(), sentryCfg.Flags()...),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Debug("Starting coachmem", "logger", loggerCfg, "sentry", sentryCfg)
			return logging.With(ctx, logging.Default()), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdChat(),
			cmdMemory(),
			cmdProfile(),
			cmdExtract(),
			cmdPrompt(),
			cmdAnalytics(),
			cmdServe(),
			cmdMigrate(),
		},
	}
}
