package fps4

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	fpscore "github.com/meigma/fps4/core"
)

// Manifest describes a pack job in YAML:
//
//	schema: 0x004F
//	byte_order: little
//	alignment: 0x800
//	name: chara
//	metadata: [path]
//	deduplicate: true
//	reference: original/chara.dat
//	files:
//	  - path: build/title.tm2
//	    as: chara/title.tm2
//	  - path: build/title_copy.tm2
//	    duplicate_of: 0
//	collect: build/extra
//
// Paths are relative to the manifest's directory. Files are packed in the
// order listed, followed by everything below collect in lexical order.
type Manifest struct {
	Schema       *uint16        `yaml:"schema"`
	ByteOrder    string         `yaml:"byte_order"`
	Alignment    uint32         `yaml:"alignment"`
	Multiplier   uint32         `yaml:"multiplier"`
	Name         *string        `yaml:"name"`
	Metadata     []string       `yaml:"metadata"`
	TextEncoding string         `yaml:"text_encoding"`
	Deduplicate  bool           `yaml:"deduplicate"`
	Workers      int            `yaml:"workers"`
	Reference    string         `yaml:"reference"`
	Files        []ManifestFile `yaml:"files"`
	Collect      string         `yaml:"collect"`
}

// ManifestFile is one explicitly listed input.
type ManifestFile struct {
	// Path locates the input relative to the manifest.
	Path string `yaml:"path"`

	// As overrides the archive path. Its directory becomes the metadata
	// path and its base the file name.
	As string `yaml:"as"`

	// DuplicateOf marks the file as sharing an earlier file's storage.
	DuplicateOf *int `yaml:"duplicate_of"`
}

// ParseManifest decodes a manifest, rejecting unknown keys.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// PackOptions converts every setting except Reference into pack options.
// Unset values keep Pack's defaults.
func (m *Manifest) PackOptions() ([]PackOption, error) {
	var opts []PackOption
	if m.Schema != nil {
		opts = append(opts, PackWithSchema(ContentSchema(*m.Schema)))
	}
	switch strings.ToLower(m.ByteOrder) {
	case "":
	case "big", "be", "big-endian":
		opts = append(opts, PackWithByteOrder(binary.BigEndian))
	case "little", "le", "little-endian":
		opts = append(opts, PackWithByteOrder(binary.LittleEndian))
	default:
		return nil, fmt.Errorf("%w: unknown byte order %q", ErrConfiguration, m.ByteOrder)
	}
	if m.Alignment != 0 {
		opts = append(opts, PackWithAlignment(m.Alignment))
	}
	if m.Multiplier != 0 {
		opts = append(opts, PackWithMultiplier(m.Multiplier))
	}
	if m.Name != nil {
		opts = append(opts, PackWithArchiveName(*m.Name))
	}
	if len(m.Metadata) > 0 {
		components := make([]MetadataComponent, 0, len(m.Metadata))
		for _, c := range m.Metadata {
			switch strings.ToLower(c) {
			case "path":
				components = append(components, MetadataPath)
			case "name":
				components = append(components, MetadataName)
			default:
				return nil, fmt.Errorf("%w: unknown metadata component %q", ErrConfiguration, c)
			}
		}
		opts = append(opts, PackWithMetadata(components...))
	}
	if m.TextEncoding != "" {
		enc, err := LookupTextEncoding(m.TextEncoding)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		opts = append(opts, PackWithTextEncoding(enc))
	}
	if m.Deduplicate {
		opts = append(opts, PackWithDeduplicate(true, m.Workers))
	}
	return opts, nil
}

// Requests builds the pack requests, resolving paths against baseDir.
func (m *Manifest) Requests(baseDir string) ([]PackRequest, error) {
	reqs := make([]PackRequest, 0, len(m.Files))
	for i, f := range m.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("%w: file %d has no path", ErrConfiguration, i)
		}
		full := filepath.Join(baseDir, filepath.FromSlash(f.Path))
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", i, err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: file %d (%s) is not a regular file", ErrConfiguration, i, f.Path)
		}

		archivePath := f.As
		if archivePath == "" {
			archivePath = f.Path
		}
		archivePath = fpscore.NormalizePath(archivePath)
		dir := path.Dir(archivePath)
		if dir == "." {
			dir = ""
		}
		req := PackRequest{
			Name:         path.Base(archivePath),
			Length:       uint64(info.Size()), //nolint:gosec // regular file sizes are non-negative
			RelativePath: dir,
			Source:       FileSource(full),
		}
		if f.DuplicateOf != nil {
			req.DuplicateOf = fpscore.Some(*f.DuplicateOf)
		}
		reqs = append(reqs, req)
	}

	if m.Collect != "" {
		more, err := CollectDir(filepath.Join(baseDir, filepath.FromSlash(m.Collect)))
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, more...)
	}
	return reqs, nil
}

// PackManifest packs the job described by the manifest at manifestPath
// into dest. Extra options are applied after the manifest's own.
func PackManifest(ctx context.Context, manifestPath, dest string, extra ...PackOption) (res *PackResult, err error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(manifestPath)

	opts, err := m.PackOptions()
	if err != nil {
		return nil, err
	}
	reqs, err := m.Requests(baseDir)
	if err != nil {
		return nil, err
	}
	if m.Reference != "" {
		ref, err := openFileSource(filepath.Join(baseDir, filepath.FromSlash(m.Reference)))
		if err != nil {
			return nil, fmt.Errorf("open reference: %w", err)
		}
		defer func() {
			err = errors.Join(err, ref.file.Close())
		}()
		opts = append(opts, PackWithReference(ref))
	}
	return PackFile(ctx, dest, reqs, append(opts, extra...)...)
}
