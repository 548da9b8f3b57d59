// Package testutil provides testing utilities for chunkstore.
//
// This package is intended for use in tests and benchmarks only.
//
//	rng := testutil.NewRNG(seed)
//	chunk := rng.Bytes(16 << 10)
//
//	buf := testutil.Filled(10, 7) // ten bytes of 0x07
//	seq := testutil.Digits(10)    // "0123456789"
package testutil
