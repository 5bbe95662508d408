// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/grailbio/base/errors"
)

// basesPerWord is the number of 2-bit bases packed into one uint32.
const basesPerWord = 16

// uint32Writer writes little-endian uint32s and remembers the first error.
type uint32Writer struct {
	w   io.Writer
	buf [4]byte
	err error
}

func (w *uint32Writer) put(v int64) {
	if w.err != nil {
		return
	}
	if v < 0 || v > math.MaxUint32 {
		w.err = errors.E(errors.Invalid, fmt.Sprintf("bwt: value %d does not fit in a uint32", v))
		return
	}
	binary.LittleEndian.PutUint32(w.buf[:], uint32(v))
	_, w.err = w.w.Write(w.buf[:])
}

func (w *uint32Writer) putCounts(v [NumBases]int64) {
	for _, c := range v {
		w.put(c)
	}
}

// uint32Reader reads little-endian uint32s and remembers the first error.  A
// short read is reported as an Integrity error.
type uint32Reader struct {
	r   io.Reader
	buf [4]byte
	err error
}

func (r *uint32Reader) get() int64 {
	if r.err != nil {
		return 0
	}
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			r.err = errors.E(errors.Integrity, "bwt: truncated input", err)
		} else {
			r.err = err
		}
		return 0
	}
	return int64(binary.LittleEndian.Uint32(r.buf[:]))
}

func (r *uint32Reader) getCounts() (v [NumBases]int64) {
	for i := range v {
		v[i] = r.get()
	}
	return v
}

// WriteBWT writes b in the packed binary format: the sentinel rank and the
// cumulative base counts, then for every block its four occurrence counts
// followed by its bases at two bits each (sixteen per word, first base in
// the high bits), then the four per-base totals.
func WriteBWT(w io.Writer, b *BWT) error {
	out := uint32Writer{w: w}
	out.put(b.InverseSA0())
	out.putCounts(b.Counts().Cumulative())
	for _, block := range b.Blocks() {
		out.putCounts(block.OccurrencesBefore.PerBase())
		for i := 0; i < len(block.Bases); i += basesPerWord {
			var word int64
			for j := 0; j < basesPerWord && i+j < len(block.Bases); j++ {
				word |= int64(block.Bases[i+j]) << uint(30-2*j)
			}
			out.put(word)
		}
	}
	out.putCounts(b.Counts().PerBase())
	return out.err
}

// ReadBWT reads a BWT written by WriteBWT.  The block counts and the footer
// are checked against the header.
func ReadBWT(r io.Reader) (*BWT, error) {
	in := uint32Reader{r: r}
	inverseSA0 := in.get()
	cum := in.getCounts()
	if in.err != nil {
		return nil, in.err
	}
	counts, err := CountsFromCumulative(cum)
	if err != nil {
		return nil, err
	}
	n := counts.Total()
	var blocks []SequenceBlock
	for start := int64(0); start < n && in.err == nil; start += BlockSize {
		size := n - start
		if size > BlockSize {
			size = BlockSize
		}
		occ, err := NewCounts(in.getCounts())
		if err != nil {
			return nil, err
		}
		block := SequenceBlock{Start: start, OccurrencesBefore: occ, Bases: make([]Base, size)}
		for i := int64(0); i < size; i += basesPerWord {
			word := in.get()
			for j := int64(0); j < basesPerWord && i+j < size; j++ {
				block.Bases[i+j] = Base((word >> uint(30-2*j)) & 3)
			}
		}
		blocks = append(blocks, block)
	}
	footer := in.getCounts()
	if in.err != nil {
		return nil, in.err
	}
	if footer != counts.PerBase() {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadBWT: footer counts %v disagree with header %v", footer, counts))
	}
	return NewBWTFromBlocks(inverseSA0, counts, blocks)
}

// WriteSuffixArray writes sa: the sentinel rank, the cumulative base counts,
// the sample interval, the number of stored entries, and the stored entries
// except the first, which is always the sentinel offset.
func WriteSuffixArray(w io.Writer, sa *SuffixArray) error {
	out := uint32Writer{w: w}
	out.put(sa.InverseSA0())
	out.putCounts(sa.Counts().Cumulative())
	out.put(int64(sa.Interval()))
	entries := sa.Entries()
	out.put(int64(len(entries)))
	for _, e := range entries[1:] {
		out.put(e)
	}
	return out.err
}

const maxPreallocEntries = 1 << 20

// ReadSuffixArray reads a suffix array written by WriteSuffixArray.  b is
// used to reconstruct unsampled entries; it may be nil if the array is dense.
func ReadSuffixArray(r io.Reader, b *BWT) (*SuffixArray, error) {
	in := uint32Reader{r: r}
	inverseSA0 := in.get()
	cum := in.getCounts()
	interval := in.get()
	nEntries := in.get()
	if in.err != nil {
		return nil, in.err
	}
	counts, err := CountsFromCumulative(cum)
	if err != nil {
		return nil, err
	}
	if interval < 1 {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadSuffixArray: sample interval %d", interval))
	}
	if b != nil && (counts != b.Counts() || inverseSA0 != b.InverseSA0()) {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadSuffixArray: header (sentinel %d, %v) disagrees with the BWT (sentinel %d, %v)",
			inverseSA0, counts, b.InverseSA0(), b.Counts()))
	}
	length := counts.Total() + 1
	if want := sampledLen(length, int(interval)); nEntries != want {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadSuffixArray: %d stored entries, expected %d for %d suffixes at interval %d",
			nEntries, want, length, interval))
	}
	// Grow entries as they are read; nEntries is not yet known to be honest.
	capacity := nEntries
	if capacity > maxPreallocEntries {
		capacity = maxPreallocEntries
	}
	entries := make([]int64, 1, capacity)
	entries[0] = length - 1
	for i := int64(1); i < nEntries; i++ {
		e := in.get()
		if in.err != nil {
			break
		}
		if e >= length {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadSuffixArray: entry %d is %d, beyond %d suffixes", i, e, length))
		}
		entries = append(entries, e)
	}
	if in.err != nil {
		return nil, in.err
	}
	sa, err := NewSuffixArray(inverseSA0, counts, int(interval), entries, b)
	if err != nil {
		return nil, errors.E(errors.Integrity, "bwt.ReadSuffixArray", err)
	}
	return sa, nil
}
