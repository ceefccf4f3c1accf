package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/cognicore/annotate/pkg/annotate/render"
)

func showCommand(ui UI) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "list stored documents, or print one by ID",
		ArgsUsage: "[ID]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "documents to list"},
			&cli.BoolFlag{Name: "json", Usage: "write JSON"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c, ui)
			if err != nil {
				return err
			}
			defer e.Close()
			if e.store == nil {
				return fmt.Errorf("show needs a store (--store or config store)")
			}

			if c.NArg() == 0 {
				docs, err := e.store.ListDocs(c.Context, c.Int("limit"))
				if err != nil {
					return err
				}
				for _, d := range docs {
					fmt.Fprintf(ui.Out, "%s\t%s\t%d sentences\t%d tokens\t%s\n",
						d.ID, d.Source, d.Sentences, d.Tokens, humanize.Time(d.CreatedAt))
				}
				return nil
			}

			d, err := e.store.GetDoc(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			var r render.Renderer = render.NewTextRenderer(ui.Out)
			if c.Bool("json") {
				r = render.NewJSONRenderer(ui.Out)
			}
			return r.Render(d.Text, d.Annotated())
		},
	}
}
