package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/fps4"
)

func newExtractCmd(g *globalOptions) *cobra.Command {
	var (
		output    string
		overwrite bool
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "extract ARCHIVE",
		Short: "Extract every member below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			var files int
			var size uint64
			err = a.Extract(cmd.Context(), output,
				fps4.ExtractWithOverwrite(overwrite),
				fps4.ExtractWithWorkers(workers),
				fps4.ExtractWithProgress(func(ev fps4.ProgressEvent) {
					files, size = ev.FilesDone, ev.BytesDone
				}))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files (%s) to %s\n", files, humanize.IBytes(size), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", ".", "destination directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	cmd.Flags().IntVarP(&workers, "workers", "j", 1, "members written concurrently")
	return cmd
}
