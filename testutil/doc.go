// Package testutil provides testing utilities for toyfat.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Content
//
//	rng := testutil.NewRNG(seed)
//	data := rng.Bytes(200)    // never contains the '#' sentinel
//	name := rng.Name(4)       // valid record name
//
// # Devices
//
//	path := testutil.TempDisk(t)          // fresh zero-filled store
//	ffs := testutil.NewFaultyFS()         // host fs with fault injection
package testutil
