package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/cognicore/annotate/pkg/annotate/model"
)

func inspectCommand(ui UI) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print the header of model blobs, or the models held in the store",
		ArgsUsage: "[BLOB...]",
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				for _, path := range c.Args().Slice() {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					hdr, err := model.Decode(data)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					fmt.Fprintf(ui.Out, "%s\tkind=%s\tmodel=%s\tformat=%d\tsize=%s\n",
						path, hdr.Kind, hdr.Ref(), hdr.Format, humanize.Bytes(uint64(len(data))))
				}
				return nil
			}

			e, err := setup(c, ui)
			if err != nil {
				return err
			}
			defer e.Close()
			if e.store == nil {
				return fmt.Errorf("inspect needs blob paths or a store")
			}
			infos, err := e.store.ListModels(c.Context)
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(ui.Out, "%s\tkind=%s\tsize=%s\n", info.Ref, info.Kind, humanize.Bytes(uint64(info.Size)))
			}
			return nil
		},
	}
}
