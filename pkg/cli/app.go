package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/cli/config"
	"github.com/secmon-lab/coachmem/pkg/usecase"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
	"github.com/secmon-lab/coachmem/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// appConfig gathers the flags shared by every command that runs the
// memory pipeline
type appConfig struct {
	repo       config.Repository
	model      config.Model
	archive    config.Archive
	configPath string
}

func (a *appConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML pipeline configuration",
			Sources:     cli.EnvVars("COACHMEM_CONFIG"),
			Destination: &a.configPath,
		},
	}
	flags = append(flags, a.repo.Flags()...)
	flags = append(flags, a.model.Flags()...)
	flags = append(flags, a.archive.Flags()...)
	return flags
}

// build wires repository, models and use cases. The returned function
// releases everything that was opened.
func (a *appConfig) build(ctx context.Context) (*usecase.UseCases, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pipeline, err := config.LoadPipeline(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	analyzer, err := pipeline.Analyzer()
	if err != nil {
		return nil, nil, err
	}

	repo, err := a.repo.Configure(ctx)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { safe.Close(ctx, repo) })

	models, err := a.model.Configure(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, models.Close)

	opts := []usecase.Option{
		usecase.WithConfig(pipeline.ToUseCaseConfig()),
		usecase.WithAnalyzer(analyzer),
		usecase.WithEmbedder(models.Embedder),
		// the process may exit right after a command, so hooks run inline
		usecase.WithSyncHooks(),
	}
	if models.Completer != nil {
		opts = append(opts, usecase.WithCompleter(models.Completer))
	}

	gcs, err := a.archive.Configure(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if gcs != nil {
		opts = append(opts, usecase.WithArchiver(gcs))
		closers = append(closers, func() { safe.Close(ctx, gcs) })
	}

	uc := usecase.New(repo, opts...)
	if err := uc.Prompt.Load(ctx); err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to load stored prompts")
	}

	logging.From(ctx).Debug("Pipeline ready",
		"repository", a.repo,
		"model", a.model,
		"archive", a.archive,
		"config", a.configPath,
	)

	return uc, cleanup, nil
}
