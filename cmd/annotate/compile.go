package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/cognicore/annotate/pkg/annotate/bundled"
	"github.com/cognicore/annotate/pkg/annotate/model"
)

func compileCommand(ui UI) *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "compile YAML model sources into binary blobs",
		ArgsUsage: "SOURCE.yaml...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory for .bin files"},
			&cli.BoolFlag{Name: "bundled", Usage: "compile the bundled English sources"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c, ui)
			if err != nil {
				return err
			}
			defer e.Close()

			out := c.String("out")
			if out == "" && e.store == nil {
				return fmt.Errorf("compile needs --out or a store")
			}
			if out != "" {
				if err := os.MkdirAll(out, 0o755); err != nil {
					return err
				}
			}

			var sources [][]byte
			if c.Bool("bundled") {
				for _, ref := range bundled.List() {
					data, err := bundled.Source(ref)
					if err != nil {
						return err
					}
					sources = append(sources, data)
				}
			}
			for _, path := range c.Args().Slice() {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				sources = append(sources, data)
			}
			if len(sources) == 0 {
				return fmt.Errorf("no model sources given")
			}

			for _, src := range sources {
				blob, ref, err := bundled.Compile(src)
				if err != nil {
					return err
				}
				hdr, err := model.Decode(blob)
				if err != nil {
					return err
				}
				if out != "" {
					path := filepath.Join(out, ref.FileName())
					if err := os.WriteFile(path, blob, 0o644); err != nil {
						return err
					}
					fmt.Fprintf(ui.Out, "%s\t%s\t%s\n", path, hdr.Kind, humanize.Bytes(uint64(len(blob))))
				}
				if e.store != nil {
					if err := e.store.PutModel(c.Context, ref, hdr.Kind, blob); err != nil {
						return err
					}
					fmt.Fprintf(ui.Out, "store:%s\t%s\t%s\n", ref, hdr.Kind, humanize.Bytes(uint64(len(blob))))
				}
			}
			return nil
		},
	}
}
