package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdMemory() *cli.Command {
	var app appConfig
	var userID string
	var jsonOut bool

	var conversationID string
	var response string
	var messageType string
	var limit int
	var minSimilarity float64
	var days int

	common := func(extra ...cli.Flag) []cli.Flag {
		flags := append([]cli.Flag{userFlag(&userID), jsonFlag(&jsonOut)}, extra...)
		return append(flags, app.Flags()...)
	}

	return &cli.Command{
		Name:    "memory",
		Aliases: []string{"mem"},
		Usage:   "Store, search and maintain conversation memories",
		Commands: []*cli.Command{
			{
				Name:      "store",
				Usage:     "Store one exchange",
				ArgsUsage: "<message>",
				Flags: common(
					&cli.StringFlag{Name: "conversation", Usage: "Conversation ID", Destination: &conversationID},
					&cli.StringFlag{Name: "response", Usage: "Coach response of the exchange", Destination: &response},
					&cli.StringFlag{Name: "type", Usage: "Message type", Value: "chat", Destination: &messageType},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() == 0 {
						return goerr.New("message is required")
					}
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					result := uc.Memory.Store(ctx, usecase.StoreInput{
						UserID:         userID,
						ConversationID: conversationID,
						Message:        strings.Join(c.Args().Slice(), " "),
						Response:       response,
						MessageType:    messageType,
					})

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(result)
					}
					p.Outcome(result.Outcome)
					if result.Stored {
						p.Success("stored %s", result.Record.ID)
						p.Field("importance", result.Record.ImportanceScore)
						p.Field("topics", result.Record.Topics)
						p.Field("emotions", result.Record.Emotions)
					}
					return nil
				},
			},
			{
				Name:      "search",
				Usage:     "Retrieve memories relevant to a query",
				ArgsUsage: "<query>",
				Flags: common(
					&cli.IntFlag{Name: "limit", Usage: "Maximum results", Destination: &limit},
					&cli.FloatFlag{Name: "min-similarity", Usage: "Minimum cosine similarity, 0 disables the floor", Destination: &minSimilarity},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					input := usecase.RetrieveInput{
						UserID: userID,
						Query:  strings.Join(c.Args().Slice(), " "),
						Limit:  limit,
					}
					if c.IsSet("min-similarity") {
						input.MinSimilarity = &minSimilarity
					}
					result := uc.Memory.RetrieveRelevant(ctx, input)

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(result)
					}
					p.Outcome(result.Outcome)
					for _, m := range result.Memories {
						p.Line("%s %s", labelColor.Sprintf("[%.2f]", m.Score), m.Record.UserMessage)
						if m.Record.AIResponse != "" {
							p.Line("       %s", dimColor.Sprint(m.Record.AIResponse))
						}
					}
					return nil
				},
			},
			{
				Name:      "summarize",
				Usage:     "Summarize a conversation",
				ArgsUsage: "<conversation-id>",
				Flags: common(
					&cli.IntFlag{Name: "max-messages", Usage: "Number of records to read", Destination: &limit},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return goerr.New("conversation ID is required")
					}
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					summary := uc.Memory.Summarize(ctx, userID, c.Args().First(), limit)

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(summary)
					}
					p.Outcome(summary.Outcome)
					p.Field("summary", summary.Summary)
					p.Field("messages", summary.MessageCount)
					if summary.TimeSpan != "" {
						p.Field("time span", summary.TimeSpan)
					}
					p.List("key points", summary.KeyPoints)
					p.List("objectives", summary.UserObjectives)
					p.List("commitments", summary.Commitments)
					p.List("next actions", summary.NextActions)
					return nil
				},
			},
			{
				Name:  "cleanup",
				Usage: "Delete old low-importance memories, archiving them first when a bucket is set",
				Flags: append([]cli.Flag{jsonFlag(&jsonOut), &cli.IntFlag{
					Name:        "days",
					Usage:       "Keep memories newer than this many days, 0 takes the configured default",
					Destination: &days,
				}}, app.Flags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					result := uc.Memory.Cleanup(ctx, days)

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(result)
					}
					p.Outcome(result.Outcome)
					p.Field("archived", result.Archived)
					p.Field("deleted", result.Deleted)
					return nil
				},
			},
		},
	}
}

func cmdProfile() *cli.Command {
	var app appConfig
	var userID string
	var jsonOut bool

	return &cli.Command{
		Name:  "profile",
		Usage: "Behavior profile of a user",
		Commands: []*cli.Command{
			{
				Name:  "synthesize",
				Usage: "Recompute the behavior profile from recent memories",
				Flags: append([]cli.Flag{userFlag(&userID), jsonFlag(&jsonOut)}, app.Flags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					result := uc.Profile.Synthesize(ctx, userID)

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(result)
					}
					p.Outcome(result.Outcome)
					p.Field("analyzed", result.MemoriesAnalyzed)
					if !result.Updated || result.Delta == nil {
						return nil
					}
					var topics []string
					for _, f := range result.Delta.FrequentTopics {
						topics = append(topics, string(f.Item))
					}
					p.Field("topics", strings.Join(topics, ", "))
					p.Field("active hours", result.Delta.ActivityPatterns.MostActiveHours)
					p.Field("detailed answers", result.Delta.CommunicationPatterns.PrefersDetailedResponses)
					p.List("goal evolution", result.Delta.GoalEvolution)
					return nil
				},
			},
		},
	}
}
