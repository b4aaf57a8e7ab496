package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdExtract() *cli.Command {
	var app appConfig
	var userID string
	var conversationID string
	var contextTurns []string
	var jsonOut bool

	return &cli.Command{
		Name:      "extract",
		Aliases:   []string{"x"},
		Usage:     "Extract tasks from a message",
		ArgsUsage: "<message>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "User ID, used to link tasks to goals",
				Sources:     cli.EnvVars("COACHMEM_USER_ID"),
				Destination: &userID,
			},
			jsonFlag(&jsonOut),
			&cli.StringFlag{Name: "conversation", Usage: "Conversation ID", Destination: &conversationID},
			&cli.StringSliceFlag{Name: "context", Usage: "Previous user messages, oldest first", Destination: &contextTurns},
		}, app.Flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return goerr.New("message is required")
			}
			uc, cleanup, err := app.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			turns := make([]model.ContextTurn, 0, len(contextTurns))
			for _, t := range contextTurns {
				turns = append(turns, model.ContextTurn{Content: t, IsUser: true})
			}

			result := uc.Task.Extract(ctx, usecase.ExtractInput{
				Message:        strings.Join(c.Args().Slice(), " "),
				UserID:         userID,
				ConversationID: conversationID,
				Context:        turns,
			})

			p := newPrinter(ctx, c, jsonOut)
			if jsonOut {
				return p.JSON(result)
			}
			p.Outcome(result.Outcome)
			p.Field("method", result.Method)
			p.Field("confidence", result.Confidence)
			if len(result.Tasks) == 0 {
				p.Line("no tasks found")
				return nil
			}
			p.Tasks(result.Tasks)
			return nil
		},
	}
}
