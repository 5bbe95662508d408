// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// SuffixArray maps suffix ranks to reference offsets.  A sampled array keeps
// only the entries at ranks that are multiples of Interval and recovers the
// others by walking the BWT.  It is immutable and safe for concurrent use.
type SuffixArray struct {
	inverseSA0 int64
	counts     Counts
	interval   int
	// entries[k] is the offset at rank k*interval.
	entries []int64
	bwt     *BWT
}

// NewSuffixArray creates a suffix array.  entries holds the offsets at ranks
// 0, interval, 2*interval, ...; bwt is required when interval > 1.
func NewSuffixArray(inverseSA0 int64, counts Counts, interval int, entries []int64, bwt *BWT) (*SuffixArray, error) {
	length := counts.Total() + 1
	if interval < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewSuffixArray: sample interval must be >= 1, got %d", interval))
	}
	if inverseSA0 < 0 || inverseSA0 >= length {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewSuffixArray: inverseSA0 %d out of range [0, %d)", inverseSA0, length))
	}
	if want := sampledLen(length, interval); int64(len(entries)) != want {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewSuffixArray: %d entries, expected %d", len(entries), want))
	}
	if entries[0] != length-1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewSuffixArray: entry 0 is %d, expected %d", entries[0], length-1))
	}
	if bwt == nil && interval > 1 {
		return nil, errors.E(errors.Invalid, "bwt.NewSuffixArray: a sampled suffix array needs a BWT")
	}
	if bwt != nil && (bwt.counts != counts || bwt.inverseSA0 != inverseSA0) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewSuffixArray: BWT (inverseSA0 %d, %v) doesn't match suffix array (inverseSA0 %d, %v)",
			bwt.inverseSA0, bwt.counts, inverseSA0, counts))
	}
	return &SuffixArray{
		inverseSA0: inverseSA0,
		counts:     counts,
		interval:   interval,
		entries:    entries,
		bwt:        bwt,
	}, nil
}

func sampledLen(length int64, interval int) int64 {
	return (length + int64(interval) - 1) / int64(interval)
}

// Len returns the number of suffixes, i.e. the reference length plus one.
func (sa *SuffixArray) Len() int64 {
	return sa.counts.Total() + 1
}

// InverseSA0 returns the rank of the suffix starting at offset 0.
func (sa *SuffixArray) InverseSA0() int64 {
	return sa.inverseSA0
}

// Counts returns the per-base counts of the reference.
func (sa *SuffixArray) Counts() Counts {
	return sa.counts
}

// Interval returns the sample interval; 1 means every entry is stored.
func (sa *SuffixArray) Interval() int {
	return sa.interval
}

// BWT returns the transform used to reconstruct unsampled entries.  It may
// be nil for a dense suffix array.
func (sa *SuffixArray) BWT() *BWT {
	return sa.bwt
}

// Entries returns the stored entries.  The caller must not modify them.
func (sa *SuffixArray) Entries() []int64 {
	return sa.entries
}

// Get returns the reference offset of the suffix at rank i.
func (sa *SuffixArray) Get(i int64) int64 {
	length := sa.Len()
	if i < 0 || i >= length {
		log.Panicf("bwt.SuffixArray.Get: rank %d out of range [0, %d)", i, length)
	}
	interval := int64(sa.interval)
	var iterations int64
	for i%interval != 0 {
		if i == sa.inverseSA0 {
			// The suffix at offset 0 is preceded (cyclically) by the sentinel
			// suffix, which has rank 0.
			i = 0
		} else {
			base, _ := sa.bwt.Base(i)
			i = sa.bwt.lf(i, base)
		}
		iterations++
	}
	return (sa.entries[i/interval] + iterations) % length
}

// Sample returns a copy of sa that stores only every interval'th entry.  sa
// must be dense and carry the BWT it was built with.
func (sa *SuffixArray) Sample(interval int) (*SuffixArray, error) {
	if sa.interval != 1 {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("bwt.SuffixArray.Sample: suffix array is already sampled at interval %d", sa.interval))
	}
	if interval < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.SuffixArray.Sample: sample interval must be >= 1, got %d", interval))
	}
	entries := make([]int64, sampledLen(sa.Len(), interval))
	for k := range entries {
		entries[k] = sa.entries[k*interval]
	}
	return NewSuffixArray(sa.inverseSA0, sa.counts, interval, entries, sa.bwt)
}
