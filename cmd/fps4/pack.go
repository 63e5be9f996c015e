package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/fps4"
)

type packFlags struct {
	output      string
	manifest    string
	schema      string
	byteOrder   string
	alignment   uint32
	multiplier  uint32
	name        string
	metadata    []string
	deduplicate bool
	workers     int
	reference   string
}

func newPackCmd(g *globalOptions) *cobra.Command {
	f := &packFlags{}
	cmd := &cobra.Command{
		Use:   "pack [DIR]",
		Short: "Build an archive from a directory or a manifest",
		Long: `Build an archive from every regular file below DIR, in lexical path
order, or from a YAML manifest given with --manifest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (f.manifest != "") {
				return errors.New("give either DIR or --manifest")
			}
			opts, closeRef, err := f.options(cmd, g)
			if err != nil {
				return err
			}
			defer closeRef()

			var res *fps4.PackResult
			if f.manifest != "" {
				res, err = fps4.PackManifest(cmd.Context(), f.manifest, f.output, opts...)
			} else {
				var reqs []fps4.PackRequest
				reqs, err = fps4.CollectDir(args[0], fps4.CollectWithLogger(g.logger(cmd.ErrOrStderr())))
				if err != nil {
					return err
				}
				res, err = fps4.PackFile(cmd.Context(), f.output, reqs, opts...)
			}
			if err != nil {
				return err
			}
			shared := 0
			for _, d := range res.DuplicateOf {
				if d.Set {
					shared++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d files, %d shared, %s, %s\n",
				f.output, len(res.Offsets), shared, humanize.IBytes(res.Size), res.Digest)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "archive to write")
	flags.StringVarP(&f.manifest, "manifest", "m", "", "YAML pack manifest")
	flags.StringVar(&f.schema, "schema", "", "content bitmask, e.g. 0x004F")
	flags.StringVar(&f.byteOrder, "byte-order", "", "big or little")
	flags.Uint32Var(&f.alignment, "alignment", 0, "data alignment in bytes")
	flags.Uint32Var(&f.multiplier, "pack-multiplier", 0, "divide stored locations by this factor")
	flags.StringVar(&f.name, "name", "", "archive name")
	flags.StringSliceVar(&f.metadata, "metadata", nil, "metadata components: path, name")
	flags.BoolVar(&f.deduplicate, "dedup", false, "store identical files once")
	flags.IntVar(&f.workers, "dedup-workers", 0, "files digested concurrently")
	flags.StringVar(&f.reference, "reference", "", "archive whose layout to reproduce")
	_ = cmd.MarkFlagRequired("output") //nolint:errcheck // flag is defined above
	return cmd
}

// options converts explicitly set flags into pack options. They are
// applied after a manifest's own settings.
func (f *packFlags) options(cmd *cobra.Command, g *globalOptions) ([]fps4.PackOption, func(), error) {
	noop := func() {}
	opts := []fps4.PackOption{fps4.PackWithLogger(g.logger(cmd.ErrOrStderr()))}
	flags := cmd.Flags()

	if flags.Changed("schema") {
		v, err := strconv.ParseUint(f.schema, 0, 16)
		if err != nil {
			return nil, noop, fmt.Errorf("--schema: %w", err)
		}
		opts = append(opts, fps4.PackWithSchema(fps4.ContentSchema(v)))
	}
	if flags.Changed("byte-order") {
		switch strings.ToLower(f.byteOrder) {
		case "big", "be":
			opts = append(opts, fps4.PackWithByteOrder(binary.BigEndian))
		case "little", "le":
			opts = append(opts, fps4.PackWithByteOrder(binary.LittleEndian))
		default:
			return nil, noop, fmt.Errorf("--byte-order: unknown value %q", f.byteOrder)
		}
	}
	if flags.Changed("alignment") {
		opts = append(opts, fps4.PackWithAlignment(f.alignment))
	}
	if flags.Changed("pack-multiplier") {
		opts = append(opts, fps4.PackWithMultiplier(f.multiplier))
	}
	if flags.Changed("name") {
		opts = append(opts, fps4.PackWithArchiveName(f.name))
	}
	if flags.Changed("metadata") {
		var components []fps4.MetadataComponent
		for _, c := range f.metadata {
			switch strings.ToLower(c) {
			case "path":
				components = append(components, fps4.MetadataPath)
			case "name":
				components = append(components, fps4.MetadataName)
			default:
				return nil, noop, fmt.Errorf("--metadata: unknown component %q", c)
			}
		}
		opts = append(opts, fps4.PackWithMetadata(components...))
	}
	if flags.Changed("dedup") {
		opts = append(opts, fps4.PackWithDeduplicate(f.deduplicate, f.workers))
	}
	if g.encoding != "" {
		enc, err := fps4.LookupTextEncoding(g.encoding)
		if err != nil {
			return nil, noop, err
		}
		opts = append(opts, fps4.PackWithTextEncoding(enc))
	}
	if f.reference == "" {
		return opts, noop, nil
	}
	ref, err := os.Open(f.reference)
	if err != nil {
		return nil, noop, fmt.Errorf("--reference: %w", err)
	}
	info, err := ref.Stat()
	if err != nil {
		ref.Close()
		return nil, noop, fmt.Errorf("--reference: %w", err)
	}
	src := io.NewSectionReader(ref, 0, info.Size())
	return append(opts, fps4.PackWithReference(src)), func() { ref.Close() }, nil
}
