package main

import (
	"github.com/urfave/cli/v2"

	"github.com/cognicore/annotate/pkg/annotate/render"
)

var demoTexts = []string{
	"Hi. How are you today? I hope you are doing well. This is a test sentence.",
	"OpenNLP is an Apache project for natural language processing. It provides many tools.",
}

func demoCommand(ui UI) *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "annotate the built-in sample texts",
		Action: func(c *cli.Context) error {
			e, err := setup(c, ui)
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.pipeline(c.Context, ui)
			if err != nil {
				return err
			}

			items := make([]item, len(demoTexts))
			for i, text := range demoTexts {
				items[i] = item{source: "demo", text: text}
			}
			return annotateAll(c.Context, e, p, items, render.NewTextRenderer(ui.Out), false)
		},
	}
}
