// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Counts is a per-base frequency table.  It keeps both the raw counts and,
// for each base, the number of bases that sort before it, so that either can
// be read in O(1).
type Counts struct {
	perBase          [NumBases]int64
	cumulativeBefore [NumBases]int64
}

// Increment counts one more occurrence of b.
func (c *Counts) Increment(b Base) {
	c.perBase[b]++
	for later := b + 1; later < NumBases; later++ {
		c.cumulativeBefore[later]++
	}
}

// Get returns the number of occurrences of b.
func (c Counts) Get(b Base) int64 {
	return c.perBase[b]
}

// CumulativeBefore returns the number of occurrences of bases that sort
// before b.
func (c Counts) CumulativeBefore(b Base) int64 {
	return c.cumulativeBefore[b]
}

// Total returns the number of bases counted.
func (c Counts) Total() int64 {
	return c.cumulativeBefore[NumBases-1] + c.perBase[NumBases-1]
}

// PerBase returns the raw counts, indexed by Base.
func (c Counts) PerBase() [NumBases]int64 {
	return c.perBase
}

// Cumulative returns the inclusive running sums of the counts: element i is
// the number of occurrences of bases <= i.  The last element is the total.
// This is the encoding used on disk.
func (c Counts) Cumulative() [NumBases]int64 {
	var cum [NumBases]int64
	for b := range cum {
		cum[b] = c.cumulativeBefore[b] + c.perBase[b]
	}
	return cum
}

// NewCounts creates a Counts from raw per-base counts.
func NewCounts(perBase [NumBases]int64) (Counts, error) {
	var c Counts
	var sum int64
	for b, n := range perBase {
		if n < 0 {
			return Counts{}, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewCounts: negative count %d for %v", n, Base(b)))
		}
		c.perBase[b] = n
		c.cumulativeBefore[b] = sum
		sum += n
	}
	return c, nil
}

// CountsFromCumulative is the inverse of Counts.Cumulative.
func CountsFromCumulative(cum [NumBases]int64) (Counts, error) {
	var perBase [NumBases]int64
	var prev int64
	for b, n := range cum {
		if n < prev {
			return Counts{}, errors.E(errors.Integrity, fmt.Sprintf("bwt.CountsFromCumulative: cumulative counts %v are not monotone", cum))
		}
		perBase[b] = n - prev
		prev = n
	}
	return NewCounts(perBase)
}

func (c Counts) String() string {
	return fmt.Sprintf("A:%d C:%d G:%d T:%d", c.perBase[BaseA], c.perBase[BaseC], c.perBase[BaseG], c.perBase[BaseT])
}
