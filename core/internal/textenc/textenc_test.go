package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftJISRoundTrip(t *testing.T) {
	t.Parallel()

	encoded, err := ShiftJIS.Encode("テスト.dat")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x83, 0x65, 0x83, 0x58, 0x83, 0x67, '.', 'd', 'a', 't'}, encoded)
	assert.Equal(t, "テスト.dat", ShiftJIS.Decode(encoded))
}

func TestASCIIIsIdentity(t *testing.T) {
	t.Parallel()

	for _, c := range []Codec{ShiftJIS, UTF8, Latin1} {
		encoded, err := c.Encode("chara/file01.bin")
		require.NoError(t, err, c.Name())
		assert.Equal(t, []byte("chara/file01.bin"), encoded, c.Name())
		assert.Equal(t, "chara/file01.bin", c.Decode(encoded), c.Name())
	}
}

func TestEncodeUnsupported(t *testing.T) {
	t.Parallel()

	_, err := Latin1.Encode("テスト")
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"", "shift-jis"},
		{"SJIS", "shift-jis"},
		{"utf8", "utf-8"},
		{"ASCII", "latin-1"},
	}
	for _, tt := range tests {
		c, err := Lookup(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, c.Name(), tt.input)
	}

	_, err := Lookup("ebcdic")
	require.Error(t, err)
}

func TestZeroCodecUsesDefault(t *testing.T) {
	t.Parallel()

	var c Codec
	assert.Equal(t, Default.Name(), c.Name())
	assert.Equal(t, "abc", c.Decode([]byte("abc")))
}
