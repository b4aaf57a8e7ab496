package cli

import (
	"io"

	"github.com/urfave/cli/v3"
)

var (
	GetIndexConfig  = getIndexConfig
	CollectionNames = collectionNames
)

// NewAppForTest builds the root command with the given input and output
func NewAppForTest(r io.Reader, w io.Writer) *cli.Command {
	app := newApp("test")
	app.Reader = r
	app.Writer = w
	app.ErrWriter = w
	return app
}
