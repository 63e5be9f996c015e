// Command fps4 inspects, extracts and builds FPS4 archives.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/fps4"
	"github.com/meigma/fps4/core/cache"
	fpshttp "github.com/meigma/fps4/core/http"
)

type globalOptions struct {
	verbose    bool
	content    string
	multiplier uint32
	encoding   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fps4:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "fps4",
		Short:         "Inspect, extract and build FPS4 archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log debug details to stderr")
	flags.StringVar(&g.content, "content", "", "separate file holding the archive data")
	flags.Uint32Var(&g.multiplier, "multiplier", 0, "location multiplier (0 infers it)")
	flags.StringVar(&g.encoding, "encoding", "", "text encoding: shift-jis, utf-8 or latin-1")

	root.AddCommand(
		newInfoCmd(g),
		newListCmd(g),
		newExtractCmd(g),
		newPackCmd(g),
	)
	return root
}

func (g *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openOptions translates the global flags into archive options.
func (g *globalOptions) openOptions(cmd *cobra.Command) ([]fps4.Option, error) {
	opts := []fps4.Option{fps4.WithLogger(g.logger(cmd.ErrOrStderr()))}
	if g.multiplier != 0 {
		opts = append(opts, fps4.WithLocationMultiplier(g.multiplier))
	}
	if g.encoding != "" {
		enc, err := fps4.LookupTextEncoding(g.encoding)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fps4.WithTextEncoding(enc))
	}
	return opts, nil
}

// archiveHandle is an opened archive plus whatever must be released.
type archiveHandle struct {
	*fps4.Archive
	close func() error
}

func (h *archiveHandle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// openArchive opens a local archive, or a remote one for http(s) URLs.
func (g *globalOptions) openArchive(cmd *cobra.Command, location string) (*archiveHandle, error) {
	opts, err := g.openOptions(cmd)
	if err != nil {
		return nil, err
	}
	if isURL(location) {
		return g.openRemote(cmd, location, opts)
	}
	var af *fps4.ArchiveFile
	if g.content != "" {
		af, err = fps4.OpenSplitFile(location, g.content, opts...)
	} else {
		af, err = fps4.OpenFile(location, opts...)
	}
	if err != nil {
		return nil, err
	}
	return &archiveHandle{Archive: af.Archive, close: af.Close}, nil
}

func (g *globalOptions) openRemote(cmd *cobra.Command, url string, opts []fps4.Option) (*archiveHandle, error) {
	logger := g.logger(cmd.ErrOrStderr())
	remote := func(u string) (fps4.ByteSource, error) {
		src, err := fpshttp.NewSource(cmd.Context(), u,
			fpshttp.WithConditionalRequests(),
			fpshttp.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return cache.Wrap(src)
	}
	header, err := remote(url)
	if err != nil {
		return nil, err
	}
	var content fps4.ByteSource
	if g.content != "" {
		if !isURL(g.content) {
			return nil, errors.New("--content must be a URL when the archive is remote")
		}
		if content, err = remote(g.content); err != nil {
			return nil, err
		}
	}
	a, err := fps4.Open(header, content, opts...)
	if err != nil {
		return nil, err
	}
	return &archiveHandle{Archive: a}, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
