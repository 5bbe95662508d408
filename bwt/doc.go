// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bwt builds, stores and searches Burrows-Wheeler transforms of DNA
// reference sequences.
//
// A reference of n bases over {A,C,G,T} is extended with a virtual sentinel
// '$' that sorts before every base.  The suffix array (SuffixArray) lists the
// n+1 suffix offsets in lexicographic order; entry 0 is always n, the suffix
// consisting of the sentinel alone.  The BWT is the sequence of bases that
// precede each sorted suffix.  The row whose suffix starts at offset 0 (rank
// InverseSA0) has no preceding base, so the stored BWT holds only n bases and
// every logical rank at or after InverseSA0 maps to the physical position
// before it.
//
// The on-disk formats are the ones used by BWA-style indexers: <prefix>.bwt
// and <prefix>.sa hold little-endian uint32 values, <prefix>.ann and
// <prefix>.amb describe the contigs that were concatenated into the
// reference.
package bwt
