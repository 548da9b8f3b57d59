// Package hash provides the CRC32-Castagnoli checksum used to detect
// corrupted cache artifacts.
//
// CRC32C is hardware accelerated on x86 (SSE4.2) and ARM (CRC extension), so
// checksumming a chunk costs far less than reading it back from the backend.
//
//	sum := hash.CRC32C(chunk)
//	if err := hash.Verify(chunk, sum); err != nil {
//	    // artifact is corrupt
//	}
package hash
