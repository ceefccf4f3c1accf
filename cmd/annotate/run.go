package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cognicore/annotate/internal/input"
	"github.com/cognicore/annotate/pkg/annotate"
	"github.com/cognicore/annotate/pkg/annotate/render"
	"github.com/cognicore/annotate/pkg/annotate/store"
)

type item struct {
	source string
	text   string
}

func runCommand(ui UI) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "annotate files (or stdin when none are given)",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "input format: text, html, jsonl (default: by extension)"},
			&cli.BoolFlag{Name: "json", Usage: "write newline-delimited JSON"},
			&cli.BoolFlag{Name: "save", Usage: "persist results to the store"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c, ui)
			if err != nil {
				return err
			}
			defer e.Close()

			save := c.Bool("save")
			if save && e.store == nil {
				return fmt.Errorf("--save needs a store (--store or config store)")
			}

			items, err := readItems(c, e.log)
			if err != nil {
				return err
			}

			p, err := e.pipeline(c.Context, ui)
			if err != nil {
				return err
			}

			var r render.Renderer = render.NewTextRenderer(ui.Out)
			if c.Bool("json") {
				r = render.NewJSONRenderer(ui.Out)
			}
			return annotateAll(c.Context, e, p, items, r, save)
		},
	}
}

func readItems(c *cli.Context, log *zap.Logger) ([]item, error) {
	format := input.Format(c.String("format"))

	var loaded []input.Item
	if c.NArg() == 0 {
		got, err := input.LoadReader("stdin", os.Stdin, format, log)
		if err != nil {
			return nil, err
		}
		loaded = got
	}
	for _, path := range c.Args().Slice() {
		got, err := input.LoadFile(path, format, log)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, got...)
	}

	items := make([]item, len(loaded))
	for i, it := range loaded {
		items[i] = item{source: it.Source, text: it.Text}
	}
	return items, nil
}

// annotateAll annotates every item. A failing item is reported and skipped;
// the run fails at the end if any item failed.
func annotateAll(ctx context.Context, e *env, p *annotate.Pipeline, items []item, r render.Renderer, save bool) error {
	failed := 0
	for _, it := range items {
		at, err := p.Annotate(ctx, it.text)
		if err != nil {
			failed++
			e.log.Error("annotation failed", zap.String("source", it.source), zap.Error(err))
			continue
		}
		if err := r.Render(it.text, at); err != nil {
			return err
		}
		if save {
			id, err := e.store.SaveDoc(ctx, store.Doc{
				Source:    it.source,
				Text:      it.text,
				Models:    p.Refs(),
				Sentences: at.Sentences,
			})
			if err != nil {
				return fmt.Errorf("save %s: %w", it.source, err)
			}
			e.log.Info("saved", zap.String("source", it.source), zap.String("id", id))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(items))
	}
	return nil
}
