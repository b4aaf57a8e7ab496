package cli

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

var (
	labelColor   = color.New(color.FgCyan, color.Bold)
	coachColor   = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
	successColor = color.New(color.FgGreen, color.Bold)
)

// printer writes command results either as colored text or as JSON
type printer struct {
	ctx     context.Context
	w       io.Writer
	jsonOut bool
}

func jsonFlag(dst *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "Print results as JSON",
		Destination: dst,
	}
}

func newPrinter(ctx context.Context, c *cli.Command, jsonOut bool) *printer {
	return &printer{ctx: ctx, w: c.Root().Writer, jsonOut: jsonOut}
}

func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to encode output")
	}
	return nil
}

func (p *printer) Field(label string, value any) {
	safe.Fprintf(p.ctx, p.w, "%s %v\n", labelColor.Sprintf("%s:", label), value)
}

func (p *printer) Line(format string, args ...any) {
	safe.Fprintf(p.ctx, p.w, format+"\n", args...)
}

func (p *printer) Coach(text string) {
	safe.Fprintf(p.ctx, p.w, "%s %s\n", labelColor.Sprint("coach>"), coachColor.Sprint(text))
}

func (p *printer) Success(format string, args ...any) {
	safe.Fprintf(p.ctx, p.w, "%s\n", successColor.Sprintf(format, args...))
}

// Outcome prints a non-OK outcome as a warning line
func (p *printer) Outcome(o model.Outcome) {
	switch {
	case o.IsDegraded():
		msg := "degraded: " + string(o.Reason)
		if o.Error != "" {
			msg += " (" + o.Error + ")"
		}
		safe.Fprintf(p.ctx, p.w, "%s\n", warnColor.Sprint(msg))
	case o.IsSkipped():
		safe.Fprintf(p.ctx, p.w, "%s\n", dimColor.Sprint("skipped: "+string(o.Reason)))
	}
}

func (p *printer) List(label string, items []string) {
	if len(items) == 0 {
		return
	}
	p.Field(label, "")
	for _, item := range items {
		safe.Fprintf(p.ctx, p.w, "  - %s\n", item)
	}
}

func (p *printer) Todos(todos []*model.Todo) {
	for _, todo := range todos {
		due := ""
		if todo.Deadline != nil {
			due = " due " + todo.Deadline.String()
		}
		safe.Fprintf(p.ctx, p.w, "  %s %s [%s]%s\n", successColor.Sprint("+"), todo.Title, todo.Priority, dimColor.Sprint(due))
	}
}

func (p *printer) Tasks(tasks []*model.ExtractedTask) {
	for _, task := range tasks {
		var extra []string
		extra = append(extra, string(task.Priority), string(task.ExtractionMethod))
		if task.EstimatedDate != nil {
			extra = append(extra, "due "+task.EstimatedDate.String())
		}
		if task.RelatedGoalTitle != "" {
			extra = append(extra, "goal "+task.RelatedGoalTitle)
		}
		safe.Fprintf(p.ctx, p.w, "  - %s %s\n", task.Title, dimColor.Sprintf("(%s, %.2f)", strings.Join(extra, ", "), task.Confidence))
	}
}
