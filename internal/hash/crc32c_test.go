package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Known answer from RFC 3720 B.4: 32 bytes of zeros.
	assert.Equal(t, uint32(0x8a9136aa), CRC32C(make([]byte, 32)))

	data := []byte("0123456789")
	sum := CRC32C(data)
	assert.NoError(t, Verify(data, sum))

	data[3] ^= 0xff
	assert.ErrorIs(t, Verify(data, sum), ErrChecksumMismatch)
}
