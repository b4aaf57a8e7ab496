package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/usecase"
	"github.com/secmon-lab/coachmem/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func userFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "user",
		Aliases:     []string{"u"},
		Usage:       "User ID owning the memories",
		Required:    true,
		Sources:     cli.EnvVars("COACHMEM_USER_ID"),
		Destination: dst,
	}
}

func cmdChat() *cli.Command {
	var app appConfig
	var userID string
	var conversationID string
	var jsonOut bool
	var limit int

	common := func() []cli.Flag {
		return append([]cli.Flag{userFlag(&userID), jsonFlag(&jsonOut)}, app.Flags()...)
	}

	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the coach and browse conversations",
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "Send a message, or start an interactive session when no message is given",
				ArgsUsage: "[message]",
				Flags: append(common(), &cli.StringFlag{
					Name:        "conversation",
					Usage:       "Continue an existing conversation",
					Destination: &conversationID,
				}),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					p := newPrinter(ctx, c, jsonOut)
					convID := model.ConversationID(conversationID)

					if c.Args().Len() > 0 {
						_, err := sendOne(ctx, uc, p, userID, convID, strings.Join(c.Args().Slice(), " "))
						return err
					}
					return chatLoop(ctx, uc, p, readerOf(c), userID, convID)
				},
			},
			{
				Name:  "list",
				Usage: "List recent conversations",
				Flags: append(common(), &cli.IntFlag{
					Name:        "limit",
					Value:       20,
					Destination: &limit,
				}),
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					convs, err := uc.Chat.Conversations(ctx, userID, limit)
					if err != nil {
						return err
					}

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(convs)
					}
					if len(convs) == 0 {
						p.Line("no conversations")
						return nil
					}
					for _, conv := range convs {
						p.Line("%s  %s %s", labelColor.Sprint(conv.ID), conv.Title,
							dimColor.Sprintf("(%d messages, updated %s)", conv.MessageCount, conv.UpdatedAt.Format("2006-01-02 15:04")))
					}
					return nil
				},
			},
			{
				Name:      "history",
				Usage:     "Show the messages of a conversation",
				ArgsUsage: "<conversation-id>",
				Flags: append(common(), &cli.IntFlag{
					Name:        "limit",
					Value:       50,
					Destination: &limit,
				}),
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return goerr.New("conversation ID is required")
					}

					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					msgs, err := uc.Chat.Messages(ctx, userID, model.ConversationID(c.Args().First()), limit)
					if err != nil {
						return err
					}

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(msgs)
					}
					for _, msg := range msgs {
						p.Line("%s %s", labelColor.Sprint("you>"), msg.Message)
						p.Coach(msg.Response)
					}
					return nil
				},
			},
		},
	}
}

func readerOf(c *cli.Command) io.Reader {
	if r := c.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

func sendOne(ctx context.Context, uc *usecase.UseCases, p *printer, userID string, convID model.ConversationID, message string) (*model.ChatReply, error) {
	reply, err := uc.Chat.Send(ctx, usecase.SendInput{
		UserID:         userID,
		ConversationID: convID,
		Message:        message,
	})
	if err != nil {
		return nil, err
	}

	if p.jsonOut {
		return reply, p.JSON(reply)
	}

	p.Coach(reply.Response)
	if len(reply.TasksCreated) > 0 {
		p.Field("tasks", len(reply.TasksCreated))
		p.Todos(reply.TasksCreated)
	}
	if !reply.MemoryStored {
		p.Line("%s", warnColor.Sprint("memory was not stored"))
	}
	return reply, nil
}

// chatLoop reads one message per line until EOF or "/quit"
func chatLoop(ctx context.Context, uc *usecase.UseCases, p *printer, r io.Reader, userID string, convID model.ConversationID) error {
	scanner := bufio.NewScanner(r)
	for {
		if !p.jsonOut {
			safe.Fprintf(ctx, p.w, "%s ", labelColor.Sprint("you>"))
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		reply, err := sendOne(ctx, uc, p, userID, convID, line)
		if err != nil {
			return err
		}
		convID = reply.ConversationID
	}

	if err := scanner.Err(); err != nil {
		return goerr.Wrap(err, "failed to read input")
	}
	if convID != "" && !p.jsonOut {
		p.Line("%s", dimColor.Sprintf("conversation %s", convID))
	}
	return nil
}
