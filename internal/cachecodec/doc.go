// Package cachecodec encodes per-chunk cache artifacts.
//
// [None] stores the chunk bytes verbatim so partial reads can be served with a
// single ranged backend read. [LZ4] and [ZSTD] store a framed, compressed
// copy with a CRC32C of the uncompressed bytes; partial reads must decode the
// whole frame first.
//
// Frame layout (little endian):
//
//	[Codec uint8][RawSize uint32][CRC32C uint32][StoredSize uint32][payload...]
//
// StoredSize == 0 means the payload is stored uncompressed because
// compression did not save enough to be worth the decode.
package cachecodec
