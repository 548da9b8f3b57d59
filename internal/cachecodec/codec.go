package cachecodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/chunkstore/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how cache artifacts are stored.
type Codec uint8

const (
	// None stores raw chunk bytes.
	None Codec = 0
	// LZ4 stores LZ4 block-compressed frames (fast, good for hot data).
	LZ4 Codec = 1
	// ZSTD stores ZSTD-compressed frames (better ratio).
	ZSTD Codec = 2
)

// ErrCorrupt is returned when a frame fails to decode or verify.
var ErrCorrupt = errors.New("corrupt cache artifact")

const headerSize = 13

// minSavings is the fraction of bytes compression must save to be kept.
const minSavings = 0.1

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Ranged reports whether artifacts written with c can be read by byte range.
func (c Codec) Ranged() bool {
	return c == None
}

// Parse maps a codec name ("none", "lz4", "zstd") to a Codec.
func Parse(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none", "raw":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("unknown cache codec %q", name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode returns the artifact bytes for data. For None the input slice is
// returned as is.
func Encode(c Codec, data []byte) ([]byte, error) {
	var compressed []byte
	switch c {
	case None:
		return data, nil
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown cache codec %d", c)
	}

	stored := uint32(len(compressed))
	payload := compressed
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*(1-minSavings) {
		stored = 0
		payload = data
	}

	out := make([]byte, headerSize+len(payload))
	out[0] = byte(c)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[5:], hash.CRC32C(data))
	binary.LittleEndian.PutUint32(out[9:], stored)
	copy(out[headerSize:], payload)
	return out, nil
}

// MaxFrameSize returns the largest artifact Encode produces for rawSize bytes.
func MaxFrameSize(c Codec, rawSize int) int {
	if c == None {
		return rawSize
	}
	return headerSize + rawSize
}

// Decode returns the chunk bytes held by an artifact written with c. Frames
// claiming more than maxSize raw bytes are rejected before anything is
// allocated.
func Decode(c Codec, frame []byte, maxSize int) ([]byte, error) {
	if c == None {
		if len(frame) > maxSize {
			return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrCorrupt, len(frame), maxSize)
		}
		return frame, nil
	}
	if len(frame) < headerSize {
		return nil, fmt.Errorf("%w: frame too small (%d bytes)", ErrCorrupt, len(frame))
	}
	if Codec(frame[0]) != c {
		return nil, fmt.Errorf("%w: codec %s, expected %s", ErrCorrupt, Codec(frame[0]), c)
	}

	rawSize := binary.LittleEndian.Uint32(frame[1:])
	sum := binary.LittleEndian.Uint32(frame[5:])
	stored := binary.LittleEndian.Uint32(frame[9:])
	body := frame[headerSize:]
	if maxSize < 0 || uint64(rawSize) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: raw size %d exceeds limit %d", ErrCorrupt, rawSize, maxSize)
	}

	var data []byte
	if stored == 0 {
		if uint32(len(body)) != rawSize {
			return nil, fmt.Errorf("%w: size %d, expected %d", ErrCorrupt, len(body), rawSize)
		}
		data = body
	} else {
		if uint32(len(body)) != stored {
			return nil, fmt.Errorf("%w: payload %d bytes, expected %d", ErrCorrupt, len(body), stored)
		}
		var err error
		data, err = decompress(c, body, rawSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	if err := hash.Verify(data, sum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return data, nil
}

func decompress(c Codec, body []byte, rawSize uint32) ([]byte, error) {
	result := make([]byte, rawSize)
	switch c {
	case LZ4:
		n, err := lz4.UncompressBlock(body, result)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return result, nil
	case ZSTD:
		var h zstd.Header
		if err := h.Decode(body); err != nil {
			return nil, err
		}
		if h.HasFCS && h.FrameContentSize != uint64(rawSize) {
			return nil, fmt.Errorf("frame content size %d, expected %d", h.FrameContentSize, rawSize)
		}
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(body, result[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %d", c)
	}
}
