// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
)

// IndexOpts controls index construction.
type IndexOpts struct {
	// SAInterval is the suffix-array sample interval.  1 keeps every entry.
	SAInterval int
}

// DefaultIndexOpts are the default index construction options.
var DefaultIndexOpts = IndexOpts{SAInterval: 32}

// Index pairs a BWT with its (possibly sampled) suffix array and answers
// exact-match queries by backward search.  It is safe for concurrent use.
type Index struct {
	BWT *BWT
	SA  *SuffixArray
}

// NewIndex checks that b and sa describe the same reference.
func NewIndex(b *BWT, sa *SuffixArray) (*Index, error) {
	if b.Counts() != sa.Counts() || b.InverseSA0() != sa.InverseSA0() {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.NewIndex: BWT (inverseSA0 %d, %v) doesn't match suffix array (inverseSA0 %d, %v)",
			b.InverseSA0(), b.Counts(), sa.InverseSA0(), sa.Counts()))
	}
	return &Index{BWT: b, SA: sa}, nil
}

// occBefore returns the occurrences of base at logical ranks [0, i).
func (x *Index) occBefore(base Base, i int64) int64 {
	if i == 0 {
		return 0
	}
	return x.BWT.Occurrences(base, i-1)
}

// Count returns the half-open range [lo, hi) of suffix-array ranks whose
// suffixes start with pattern.  The range is empty (lo == hi) when pattern
// does not occur.
func (x *Index) Count(pattern []byte) (lo, hi int64, err error) {
	if len(pattern) == 0 {
		return 0, 0, errors.E(errors.Invalid, "bwt.Index.Count: empty pattern")
	}
	bases, err := EncodeBases(pattern)
	if err != nil {
		return 0, 0, err
	}
	counts := x.BWT.Counts()
	lo, hi = 0, x.SA.Len()
	for i := len(bases) - 1; i >= 0 && lo < hi; i-- {
		c := bases[i]
		// Rank 0 is the sentinel suffix, which precedes every suffix
		// starting with a base.
		lo = 1 + counts.CumulativeBefore(c) + x.occBefore(c, lo)
		hi = 1 + counts.CumulativeBefore(c) + x.occBefore(c, hi)
	}
	if lo > hi {
		hi = lo
	}
	return lo, hi, nil
}

// Locate returns the reference offsets at which pattern occurs, in
// increasing order.
func (x *Index) Locate(pattern []byte) ([]int64, error) {
	lo, hi, err := x.Count(pattern)
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, 0, hi-lo)
	for i := lo; i < hi; i++ {
		offsets = append(offsets, x.SA.Get(i))
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets, nil
}
