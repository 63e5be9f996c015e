// Package textenc converts between the archive's 8-bit text encodings and Go
// strings.
package textenc

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Codec translates archive text (names, file types, metadata) to and from
// host strings.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// Built-in codecs. ShiftJIS is the native encoding of most FPS4 archives.
var (
	ShiftJIS = Codec{name: "shift-jis", enc: japanese.ShiftJIS}
	UTF8     = Codec{name: "utf-8", enc: unicode.UTF8}
	Latin1   = Codec{name: "latin-1", enc: charmap.ISO8859_1}
)

// Default is the codec used when none is configured.
var Default = ShiftJIS

// Lookup returns the codec registered under name. Matching ignores case and
// accepts common aliases.
func Lookup(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "shift-jis", "shift_jis", "shiftjis", "sjis", "cp932":
		return ShiftJIS, nil
	case "utf-8", "utf8":
		return UTF8, nil
	case "latin-1", "latin1", "iso-8859-1", "ascii":
		return Latin1, nil
	default:
		return Codec{}, fmt.Errorf("unknown text encoding %q", name)
	}
}

// Name returns the canonical codec name.
func (c Codec) Name() string {
	if c.enc == nil {
		return Default.name
	}
	return c.name
}

func (c Codec) encoding() encoding.Encoding {
	if c.enc == nil {
		return Default.enc
	}
	return c.enc
}

// Decode converts archive bytes to a string. Undecodable bytes become U+FFFD.
func (c Codec) Decode(b []byte) string {
	out, err := c.encoding().NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Encode converts s to archive bytes. Characters the encoding cannot
// represent are an error.
func (c Codec) Encode(s string) ([]byte, error) {
	out, err := c.encoding().NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %q as %s: %w", s, c.Name(), err)
	}
	return out, nil
}
