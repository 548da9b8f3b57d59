// Package rangemap maps fixed-size chunk indices onto byte ranges of a list of
// logical files laid out contiguously in one address space.
//
// A file occupying [start, end) overlaps chunks start/L through (end-1)/L,
// where L is the chunk length. For each overlapping chunk c the mapper records
// which bytes of the chunk belong to the file and where they land inside it:
//
//	chunkStart = c*L
//	from       = max(0, start-chunkStart)
//	to         = min(L, end-chunkStart)
//	fileOffset = max(0, chunkStart-start)
//
// Entries are computed per lookup from the files ordered by offset. The
// resulting [Map] is built once and never mutated, so it is safe for
// concurrent readers without locking.
package rangemap
