// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bioengine/encoding/fasta"
)

// CreateFromReferenceSequence builds the dense suffix array and the BWT of
// seq, which must consist of A, C, G, and T only (either case).  The
// returned suffix array carries the BWT so that it can be sampled.
//
// Suffixes are ordered by direct comparison, so construction takes
// O(n^2 log n) time in the worst case.  This is fine for the reference sizes
// the index is used with (chromosome-sized inputs at most).
func CreateFromReferenceSequence(seq []byte) (*SuffixArray, *BWT, error) {
	bases, err := EncodeBases(seq)
	if err != nil {
		return nil, nil, err
	}
	text := bytes.ToUpper(seq)
	n := len(text)
	entries := make([]int64, n+1)
	for i := range entries {
		entries[i] = int64(i)
	}
	// The empty suffix (offset n) is a prefix of every other suffix, so it
	// sorts first and plays the role of the sentinel.
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(text[entries[i]:], text[entries[j]:]) < 0
	})

	inverseSA0 := int64(-1)
	transformed := make([]Base, 0, n)
	for rank, off := range entries {
		if off == 0 {
			inverseSA0 = int64(rank)
			continue
		}
		transformed = append(transformed, bases[off-1])
	}
	if inverseSA0 < 0 {
		log.Panicf("bwt.CreateFromReferenceSequence: offset 0 missing from %d suffixes", len(entries))
	}
	b, err := NewBWT(inverseSA0, transformed)
	if err != nil {
		return nil, nil, err
	}
	sa, err := NewSuffixArray(inverseSA0, b.Counts(), 1, entries, b)
	if err != nil {
		return nil, nil, err
	}
	log.Debug.Printf("bwt: built index over %d bases, inverseSA0=%d, %v", n, inverseSA0, b.Counts())
	return sa, b, nil
}

// BuildFromFasta concatenates the sequences of fa (in SeqNames order) and
// indexes the result.  The returned annotation maps concatenated offsets back
// to sequence coordinates.
func BuildFromFasta(fa fasta.Fasta, opts IndexOpts) (*Index, *Annotation, error) {
	var (
		seq     []byte
		contigs []Contig
	)
	for _, name := range fa.SeqNames() {
		length, err := fa.Len(name)
		if err != nil {
			return nil, nil, err
		}
		if length == 0 {
			return nil, nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.BuildFromFasta: sequence %s is empty", name))
		}
		s, err := fa.Get(name, 0, length)
		if err != nil {
			return nil, nil, err
		}
		contigs = append(contigs, Contig{Name: name, Offset: int64(len(seq)), Len: int64(length)})
		seq = append(seq, s...)
	}
	if len(contigs) == 0 {
		return nil, nil, errors.E(errors.Invalid, "bwt.BuildFromFasta: no sequences")
	}
	sa, b, err := CreateFromReferenceSequence(seq)
	if err != nil {
		return nil, nil, err
	}
	if opts.SAInterval > 1 {
		if sa, err = sa.Sample(opts.SAInterval); err != nil {
			return nil, nil, err
		}
	}
	idx, err := NewIndex(b, sa)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("bwt: indexed %d sequences, %d bases, sample interval %d", len(contigs), len(seq), sa.Interval())
	return idx, &Annotation{Contigs: contigs}, nil
}
