package cachecodec

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("chunk-data "), 512)
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	for _, c := range []Codec{None, LZ4, ZSTD} {
		for name, data := range map[string][]byte{
			"compressible": compressible,
			"random":       random,
			"tiny":         []byte("x"),
		} {
			t.Run(c.String()+"/"+name, func(t *testing.T) {
				frame, err := Encode(c, data)
				require.NoError(t, err)
				got, err := Decode(c, frame, len(data))
				require.NoError(t, err)
				assert.Equal(t, data, got)
			})
		}
	}
}

func TestEncode_Compresses(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 64*1024)
	for _, c := range []Codec{LZ4, ZSTD} {
		frame, err := Encode(c, data)
		require.NoError(t, err)
		assert.Less(t, len(frame), len(data)/10, c.String())
	}
}

func TestDecode_Corrupt(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), 256)
	frame, err := Encode(ZSTD, data)
	require.NoError(t, err)

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(ZSTD, frame[:5], len(data))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("WrongCodec", func(t *testing.T) {
		_, err := Decode(LZ4, frame, len(data))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Checksum", func(t *testing.T) {
		raw, err := Encode(LZ4, []byte("incompressible?"))
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff
		_, err = Decode(LZ4, raw, 64)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestDecode_SizeLimit(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), 256)

	for _, c := range []Codec{LZ4, ZSTD} {
		t.Run(c.String()+"/HugeRawSize", func(t *testing.T) {
			frame, err := Encode(c, data)
			require.NoError(t, err)
			require.NotZero(t, binary.LittleEndian.Uint32(frame[9:]), "payload must be compressed")

			binary.LittleEndian.PutUint32(frame[1:], 0xFFFFFFFF)
			_, err = Decode(c, frame, len(data))
			assert.ErrorIs(t, err, ErrCorrupt)
		})

		t.Run(c.String()+"/LargerThanChunk", func(t *testing.T) {
			frame, err := Encode(c, data)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(frame), MaxFrameSize(c, len(data)))
			_, err = Decode(c, frame, len(data)-1)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	t.Run("none", func(t *testing.T) {
		got, err := Decode(None, data, len(data))
		require.NoError(t, err)
		assert.Equal(t, data, got)

		_, err = Decode(None, data, len(data)-1)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestParse(t *testing.T) {
	for name, want := range map[string]Codec{"": None, "none": None, "LZ4": LZ4, "zstd": ZSTD} {
		got, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := Parse("snappy")
	assert.Error(t, err)
	assert.True(t, None.Ranged())
	assert.False(t, ZSTD.Ranged())
}
