package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

func cmdAnalytics() *cli.Command {
	var app appConfig
	var userID string
	var jsonOut bool
	var days int

	flags := func(withUser bool) []cli.Flag {
		flags := []cli.Flag{
			jsonFlag(&jsonOut),
			&cli.IntFlag{
				Name:        "days",
				Usage:       "Time window in days, 0 takes the configured default",
				Destination: &days,
			},
		}
		if withUser {
			flags = append(flags, &cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "Restrict to one user",
				Destination: &userID,
			})
		}
		return append(flags, app.Flags()...)
	}

	return &cli.Command{
		Name:  "analytics",
		Usage: "Aggregate statistics over a time window",
		Commands: []*cli.Command{
			{
				Name:  "memory",
				Usage: "Memory records",
				Flags: flags(true),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					stats := uc.Memory.Analytics(ctx, userID, days)

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(stats)
					}
					p.Outcome(stats.Outcome)
					p.Field("memories", stats.TotalMemories)
					p.Field("avg importance", stats.AvgImportance)
					p.Field("users", stats.UniqueUsersCount)
					p.Field("conversations", stats.UniqueConversationsCount)
					return nil
				},
			},
			{
				Name:  "extraction",
				Usage: "Task extraction logs",
				Flags: flags(true),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					stats := uc.Task.ExtractionAnalytics(ctx, userID, days)

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(stats)
					}
					p.Outcome(stats.Outcome)
					p.Field("extractions", stats.TotalExtractions)
					p.Field("tasks found", stats.TotalTasksFound)
					p.Field("avg confidence", stats.AvgConfidence)
					p.Field("users", stats.UniqueUsersCount)
					return nil
				},
			},
			{
				Name:  "prompt",
				Usage: "Prompt usage",
				Flags: flags(false),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					stats := uc.Prompt.Analytics(ctx, days)

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(stats)
					}
					p.Outcome(stats.Outcome)
					p.Field("period days", stats.PeriodDays)
					p.Field("total usage", stats.TotalUsage)
					for _, u := range stats.Prompts {
						p.Line("  %s %d uses, %d users", labelColor.Sprint(u.Type), u.UsageCount, u.UniqueUsersCount)
					}
					return nil
				},
			},
		},
	}
}
