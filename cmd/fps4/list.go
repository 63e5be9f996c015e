package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd(g *globalOptions) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:     "list ARCHIVE",
		Aliases: []string{"ls"},
		Short:   "List archive members in table order",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			if !long {
				for m := range a.Members() {
					fmt.Fprintln(cmd.OutOrStdout(), m.Path)
				}
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tOFFSET\tSIZE\tPATH")
			for m := range a.Members() {
				fmt.Fprintf(tw, "%d\t0x%X\t%s\t%s\n", m.Index, m.Offset, humanize.IBytes(m.Size), m.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show index, offset and size")
	return cmd
}
