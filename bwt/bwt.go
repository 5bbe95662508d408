// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// BlockSize is the number of bases per SequenceBlock.  An occurrence query
// scans at most this many bases.
const BlockSize = 128

// SequenceBlock is a run of up to BlockSize consecutive (physical) BWT bases,
// together with the per-base counts of all bases before it.
type SequenceBlock struct {
	// Start is the physical offset of Bases[0].
	Start int64
	// OccurrencesBefore counts the bases in [0, Start).
	OccurrencesBefore Counts
	Bases             []Base
}

// BWT is a block-encoded Burrows-Wheeler transform.  It is immutable and safe
// for concurrent use.
type BWT struct {
	inverseSA0 int64
	counts     Counts
	blocks     []SequenceBlock
}

// NewBWT creates a BWT from the n physical bases (the sentinel row omitted)
// and the rank of the sentinel row.
func NewBWT(inverseSA0 int64, bases []Base) (*BWT, error) {
	n := int64(len(bases))
	if inverseSA0 < 0 || inverseSA0 > n {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewBWT: inverseSA0 %d out of range [0, %d]", inverseSA0, n))
	}
	var running Counts
	blocks := make([]SequenceBlock, 0, (n+BlockSize-1)/BlockSize)
	for start := int64(0); start < n; start += BlockSize {
		end := start + BlockSize
		if end > n {
			end = n
		}
		block := SequenceBlock{
			Start:             start,
			OccurrencesBefore: running,
			Bases:             make([]Base, end-start),
		}
		for i, b := range bases[start:end] {
			if b >= NumBases {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.NewBWT: invalid base code %d at offset %d", b, start+int64(i)))
			}
			block.Bases[i] = b
			running.Increment(b)
		}
		blocks = append(blocks, block)
	}
	return &BWT{inverseSA0: inverseSA0, counts: running, blocks: blocks}, nil
}

// NewBWTFromBlocks creates a BWT from decoded blocks.  It checks that the
// blocks partition [0, counts.Total()) in order, that every block but the
// last is full, and that each block's OccurrencesBefore matches the bases of
// the blocks before it.
func NewBWTFromBlocks(inverseSA0 int64, counts Counts, blocks []SequenceBlock) (*BWT, error) {
	n := counts.Total()
	if inverseSA0 < 0 || inverseSA0 > n {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.NewBWTFromBlocks: inverseSA0 %d out of range [0, %d]", inverseSA0, n))
	}
	var running Counts
	var next int64
	for i, block := range blocks {
		if block.Start != next {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.NewBWTFromBlocks: block %d starts at %d, expected %d", i, block.Start, next))
		}
		if len(block.Bases) == 0 || len(block.Bases) > BlockSize || (i < len(blocks)-1 && len(block.Bases) != BlockSize) {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.NewBWTFromBlocks: block %d has %d bases", i, len(block.Bases)))
		}
		if block.OccurrencesBefore != running {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.NewBWTFromBlocks: block %d records occurrences %v, expected %v", i, block.OccurrencesBefore, running))
		}
		for _, b := range block.Bases {
			if b >= NumBases {
				return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.NewBWTFromBlocks: invalid base code %d in block %d", b, i))
			}
			running.Increment(b)
		}
		next += int64(len(block.Bases))
	}
	if running != counts {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.NewBWTFromBlocks: blocks hold %v, expected %v", running, counts))
	}
	return &BWT{inverseSA0: inverseSA0, counts: counts, blocks: blocks}, nil
}

// physicalIndex maps a logical rank in [0, n] to an offset into the stored
// bases.  The sentinel row has no stored base, so ranks at or after it shift
// down by one.  The result is -1 for logical rank 0 when inverseSA0 is 0.
func physicalIndex(logical, inverseSA0 int64) int64 {
	if logical >= inverseSA0 {
		return logical - 1
	}
	return logical
}

// Len returns the number of stored bases, i.e. the length of the reference.
func (b *BWT) Len() int64 {
	return b.counts.Total()
}

// InverseSA0 returns the rank of the sentinel row.
func (b *BWT) InverseSA0() int64 {
	return b.inverseSA0
}

// Counts returns the per-base counts of the whole transform.
func (b *BWT) Counts() Counts {
	return b.counts
}

// Blocks returns the blocks.  The caller must not modify them.
func (b *BWT) Blocks() []SequenceBlock {
	return b.blocks
}

func (b *BWT) checkRank(i int64) {
	if i < 0 || i > b.Len() {
		log.Panicf("bwt: rank %d out of range [0, %d]", i, b.Len())
	}
}

// Base returns the base at logical rank i in [0, Len()].  The second return
// value is false at the sentinel row.
func (b *BWT) Base(i int64) (Base, bool) {
	b.checkRank(i)
	if i == b.inverseSA0 {
		return 0, false
	}
	p := physicalIndex(i, b.inverseSA0)
	return b.blocks[p/BlockSize].Bases[p%BlockSize], true
}

// Occurrences returns the number of times base occurs at logical ranks
// [0, i].  The sentinel row counts for nothing.
func (b *BWT) Occurrences(base Base, i int64) int64 {
	b.checkRank(i)
	p := physicalIndex(i, b.inverseSA0)
	if p < 0 {
		return 0
	}
	block := &b.blocks[p/BlockSize]
	n := block.OccurrencesBefore.Get(base)
	for _, c := range block.Bases[:p%BlockSize+1] {
		if c == base {
			n++
		}
	}
	return n
}

// lf maps the row at logical rank i (which must not be the sentinel row) to
// the row of the suffix one position to the left.
func (b *BWT) lf(i int64, base Base) int64 {
	return b.counts.CumulativeBefore(base) + b.Occurrences(base, i)
}

// Sequence returns the stored bases as upper-case letters.
func (b *BWT) Sequence() string {
	var s strings.Builder
	s.Grow(int(b.Len()))
	for _, block := range b.blocks {
		for _, c := range block.Bases {
			s.WriteByte(c.Char())
		}
	}
	return s.String()
}
