package cli

import (
	"context"

	gcfirestore "cloud.google.com/go/firestore"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/cli/config"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/repository/firestore"
	"github.com/secmon-lab/coachmem/pkg/repository/postgres"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := append(repoCfg.Flags(), &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Preview changes without applying",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes or the PostgreSQL schema",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)
			logger.Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), repoCfg.CollectionPrefix(), dryRun)

			case config.BackendPostgres:
				if dryRun {
					p := newPrinter(ctx, c, false)
					p.Line("%s", postgres.Schema())
					return nil
				}
				repo, err := repoCfg.Configure(ctx)
				if err != nil {
					return err
				}
				defer func() {
					if err := repo.Close(); err != nil {
						logger.Error("failed to close repository", "error", err.Error())
					}
				}()

				pg, ok := repo.(*postgres.Postgres)
				if !ok {
					return goerr.New("unexpected repository type for postgres backend")
				}
				if err := pg.Migrate(ctx); err != nil {
					return goerr.Wrap(err, "failed to apply schema")
				}
				logger.Info("Schema applied successfully")
				return nil

			default:
				return goerr.Wrap(config.ErrUnknownBackend, "migrate needs the firestore or postgres backend",
					goerr.V(config.ValueKey, repoCfg.Backend()))
			}
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID, prefix string, dryRun bool) error {
	logger := logging.From(ctx)
	if projectID == "" {
		return goerr.Wrap(config.ErrMissingCredentials, "firestore-project-id is required")
	}
	if databaseID == "" {
		databaseID = gcfirestore.DefaultDatabaseID
	}

	indexConfig := getIndexConfig(prefix)

	client, err := fireconf.New(ctx, projectID, databaseID, indexConfig,
		fireconf.WithLogger(logger),
		fireconf.WithDryRun(dryRun),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		current, err := client.Import(ctx, collectionNames(indexConfig)...)
		if err != nil {
			return goerr.Wrap(err, "failed to import current indexes")
		}
		diff, err := client.DiffConfigs(current)
		if err != nil {
			return goerr.Wrap(err, "failed to diff index configuration")
		}

		if len(diff.Collections) == 0 {
			logger.Info("No changes required")
			return nil
		}
		for _, c := range diff.Collections {
			logger.Info("Migration step",
				"collection", c.Name,
				"action", c.Action,
				"indexes_to_add", len(c.IndexesToAdd),
				"indexes_to_delete", len(c.IndexesToDelete))
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

func collectionNames(cfg *fireconf.Config) []string {
	names := make([]string, 0, len(cfg.Collections))
	for _, c := range cfg.Collections {
		names = append(names, c.Name)
	}
	return names
}

func asc(path string) fireconf.IndexField {
	return fireconf.IndexField{Path: path, Order: fireconf.OrderAscending}
}

func desc(path string) fireconf.IndexField {
	return fireconf.IndexField{Path: path, Order: fireconf.OrderDescending}
}

// getIndexConfig returns the composite indexes needed by the repository
// queries, with collection names under prefix
func getIndexConfig(prefix string) *fireconf.Config {
	name := func(base string) string {
		return firestore.CollectionName(prefix, base)
	}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: name(firestore.CollectionMemories),
				Indexes: []fireconf.Index{
					// ListRecentByUser
					{Fields: []fireconf.IndexField{asc("UserID"), desc("Timestamp")}},
					// ListByConversation
					{Fields: []fireconf.IndexField{asc("UserID"), asc("ConversationID"), asc("Timestamp")}},
					// Stats of one user
					{Fields: []fireconf.IndexField{asc("UserID"), asc("Timestamp")}},
					// Nearest neighbour search over provider embeddings
					{
						Fields: []fireconf.IndexField{
							{
								Path: "Embedding",
								Vector: &fireconf.VectorConfig{
									Dimension: model.EmbeddingDimension,
								},
							},
						},
					},
				},
			},
			{
				Name: name(firestore.CollectionGoals),
				Indexes: []fireconf.Index{
					{Fields: []fireconf.IndexField{asc("UserID"), asc("Status"), asc("CreatedAt")}},
				},
			},
			{
				Name: name(firestore.CollectionConversations),
				Indexes: []fireconf.Index{
					{Fields: []fireconf.IndexField{asc("UserID"), asc("IsActive"), desc("UpdatedAt")}},
				},
			},
			{
				Name: name(firestore.CollectionChatMessages),
				Indexes: []fireconf.Index{
					{Fields: []fireconf.IndexField{asc("ConversationID"), asc("Timestamp")}},
				},
			},
			{
				Name: name(firestore.CollectionExtractionLogs),
				Indexes: []fireconf.Index{
					{Fields: []fireconf.IndexField{asc("UserID"), asc("Timestamp")}},
				},
			},
			{
				Name: name(firestore.CollectionPromptBackups),
				Indexes: []fireconf.Index{
					{Fields: []fireconf.IndexField{asc("Type"), asc("UpdatedAt")}},
				},
			},
		},
	}
}
