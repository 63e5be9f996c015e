package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/fps4"
)

func newInfoCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info ARCHIVE",
		Short: "Show header fields and detected layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			printInfo(cmd, a.Archive)
			return nil
		},
	}
}

func printInfo(cmd *cobra.Command, a *fps4.Archive) {
	w := cmd.OutOrStdout()
	name, ok := a.Name()
	if !ok {
		name = "(none)"
	}
	var total uint64
	for m := range a.Members() {
		total += m.Size
	}

	fmt.Fprintf(w, "name:             %s\n", name)
	fmt.Fprintf(w, "byte order:       %s\n", a.ByteOrder())
	fmt.Fprintf(w, "schema:           %s (%s)\n", a.Schema(), schemaFields(a.Schema()))
	fmt.Fprintf(w, "records:          %d (including sentinel)\n", a.FileCount())
	fmt.Fprintf(w, "entry size:       %d\n", a.EntrySize())
	fmt.Fprintf(w, "first file start: 0x%X\n", a.FirstFileStart())
	fmt.Fprintf(w, "multiplier:       %d\n", a.Multiplier())
	fmt.Fprintf(w, "guessed sizes:    %t\n", a.GuessesSizes())
	fmt.Fprintf(w, "members:          %d (%s)\n", a.Len(), humanize.IBytes(total))
	for _, warning := range a.Warnings() {
		fmt.Fprintf(w, "warning:          %v\n", warning)
	}
}

func schemaFields(s fps4.ContentSchema) string {
	var fields []string
	for _, f := range []struct {
		has  bool
		name string
	}{
		{s.HasStartPointers(), "start"},
		{s.HasSectorSizes(), "sector"},
		{s.HasFileSizes(), "size"},
		{s.HasFileNames(), "name"},
		{s.HasFileTypes(), "type"},
		{s.HasMetadata(), "metadata"},
		{s.HasFieldA(), "field-a"},
		{s.HasFieldB(), "field-b"},
	} {
		if f.has {
			fields = append(fields, f.name)
		}
	}
	if s.HasUnknownBits() {
		fields = append(fields, "unknown "+s.UnknownBits().String())
	}
	if len(fields) == 0 {
		return "empty"
	}
	return strings.Join(fields, ", ")
}
