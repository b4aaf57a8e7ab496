package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func promptTypeArg(c *cli.Command) (types.PromptType, error) {
	if c.Args().Len() != 1 {
		return "", goerr.New("prompt type is required")
	}
	pt := types.PromptType(c.Args().First())
	if !pt.IsValid() {
		return "", goerr.New("unknown prompt type", goerr.V("prompt_type", pt), goerr.V("valid", types.AllPromptTypes()))
	}
	return pt, nil
}

func cmdPrompt() *cli.Command {
	var app appConfig
	var jsonOut bool
	var file string
	var updatedBy string

	return &cli.Command{
		Name:  "prompt",
		Usage: "Inspect and update the base prompts",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the live version of a prompt",
				ArgsUsage: "<prompt-type>",
				Flags:     append([]cli.Flag{jsonFlag(&jsonOut)}, app.Flags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					pt, err := promptTypeArg(c)
					if err != nil {
						return err
					}
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					tmpl, err := uc.Prompt.Get(pt)
					if err != nil {
						return err
					}

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(tmpl)
					}
					p.Field("type", tmpl.Type)
					p.Field("version", tmpl.Version)
					if tmpl.UpdatedBy != "" {
						p.Field("updated by", tmpl.UpdatedBy)
					}
					p.Line("%s", tmpl.Content)
					return nil
				},
			},
			{
				Name:      "update",
				Usage:     "Replace a prompt, keeping the previous version as a backup",
				ArgsUsage: "<prompt-type>",
				Flags: append([]cli.Flag{
					jsonFlag(&jsonOut),
					&cli.StringFlag{
						Name:        "file",
						Aliases:     []string{"f"},
						Usage:       "File holding the new template, - reads stdin",
						Required:    true,
						Destination: &file,
					},
					&cli.StringFlag{
						Name:        "updated-by",
						Usage:       "Name recorded with the new version",
						Value:       "cli",
						Sources:     cli.EnvVars("USER"),
						Destination: &updatedBy,
					},
				}, app.Flags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					pt, err := promptTypeArg(c)
					if err != nil {
						return err
					}

					var content []byte
					if file == "-" {
						content, err = io.ReadAll(readerOf(c))
					} else {
						// #nosec G304 - path is provided by the operator
						content, err = os.ReadFile(file)
					}
					if err != nil {
						return goerr.Wrap(err, "failed to read prompt template", goerr.V("file", file))
					}

					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					tmpl, err := uc.Prompt.Update(ctx, pt, string(content), updatedBy)
					if err != nil {
						return err
					}

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(tmpl)
					}
					p.Success("%s updated to version %d", tmpl.Type, tmpl.Version)
					return nil
				},
			},
			{
				Name:      "backups",
				Usage:     "List previous versions of a prompt",
				ArgsUsage: "<prompt-type>",
				Flags:     append([]cli.Flag{jsonFlag(&jsonOut)}, app.Flags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					pt, err := promptTypeArg(c)
					if err != nil {
						return err
					}
					uc, cleanup, err := app.build(ctx)
					if err != nil {
						return err
					}
					defer cleanup()

					backups, err := uc.Prompt.Backups(ctx, pt)
					if err != nil {
						return err
					}

					p := newPrinter(ctx, c, jsonOut)
					if jsonOut {
						return p.JSON(backups)
					}
					if len(backups) == 0 {
						p.Line("no backups")
					}
					for _, b := range backups {
						p.Line("%s version %d by %s", labelColor.Sprint(b.UpdatedAt.Format("2006-01-02 15:04")), b.OldVersion, b.UpdatedBy)
					}
					return nil
				},
			},
		},
	}
}
