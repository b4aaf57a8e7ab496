package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/service/archive"
	"github.com/urfave/cli/v3"
)

// Archive holds CLI flags for the Cloud Storage archive of expired memories
type Archive struct {
	bucket string
	prefix string
}

func (a *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket receiving memories before retention cleanup",
			Category:    "Archive",
			Sources:     cli.EnvVars("COACHMEM_ARCHIVE_BUCKET"),
			Destination: &a.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix inside the archive bucket",
			Value:       "memories",
			Category:    "Archive",
			Sources:     cli.EnvVars("COACHMEM_ARCHIVE_PREFIX"),
			Destination: &a.prefix,
		},
	}
}

func (a Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", a.bucket),
		slog.String("prefix", a.prefix),
	)
}

// Configure returns nil when no bucket is set
func (a *Archive) Configure(ctx context.Context) (*archive.GCS, error) {
	if a.bucket == "" {
		return nil, nil
	}

	gcs, err := archive.New(ctx, a.bucket, archive.WithPrefix(a.prefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure archive", goerr.V("bucket", a.bucket))
	}
	return gcs, nil
}
