// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bioengine/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newTestIndex(t *testing.T, seq []byte, interval int) *Index {
	sa, b, err := CreateFromReferenceSequence(seq)
	assert.NoError(t, err)
	if interval > 1 {
		sa, err = sa.Sample(interval)
		assert.NoError(t, err)
	}
	idx, err := NewIndex(b, sa)
	assert.NoError(t, err)
	return idx
}

func naiveLocate(seq, pattern []byte) []int64 {
	offsets := []int64{}
	for i := range seq {
		if bytes.HasPrefix(seq[i:], pattern) {
			offsets = append(offsets, int64(i))
		}
	}
	return offsets
}

func TestCountGATTACA(t *testing.T) {
	idx := newTestIndex(t, []byte("GATTACA"), 1)
	for _, test := range []struct {
		pattern string
		lo, hi  int64
	}{
		{"A", 1, 4},
		{"TA", 6, 7},
		{"GATTACA", 5, 6},
		{"ACA", 2, 3},
		{"GG", 6, 6},
		{"aca", 2, 3},
	} {
		lo, hi, err := idx.Count([]byte(test.pattern))
		assert.NoError(t, err)
		if test.lo == test.hi {
			expect.EQ(t, lo, hi, test.pattern)
			continue
		}
		expect.EQ(t, [2]int64{lo, hi}, [2]int64{test.lo, test.hi}, test.pattern)
	}
	offsets, err := idx.Locate([]byte("A"))
	assert.NoError(t, err)
	expect.EQ(t, offsets, []int64{1, 4, 6})

	_, _, err = idx.Count(nil)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = idx.Locate([]byte("GAN"))
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestLocateMatchesScan(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	seq := randomSeq(r, 400, "ACGT")
	for _, interval := range []int{1, 5, 32} {
		idx := newTestIndex(t, seq, interval)
		for i := 0; i < 200; i++ {
			var pattern []byte
			if i%4 == 0 {
				pattern = randomSeq(r, 8, "ACGT")
			} else {
				start := r.Intn(len(seq))
				end := start + 1 + r.Intn(12)
				if end > len(seq) {
					end = len(seq)
				}
				pattern = seq[start:end]
			}
			want := naiveLocate(seq, pattern)
			lo, hi, err := idx.Count(pattern)
			assert.NoError(t, err)
			expect.EQ(t, hi-lo, int64(len(want)), string(pattern))
			got, err := idx.Locate(pattern)
			assert.NoError(t, err)
			expect.EQ(t, got, want, "interval %d pattern %s", interval, pattern)
		}
	}
}

func TestNewIndexMismatch(t *testing.T) {
	_, b, err := CreateFromReferenceSequence([]byte("GATTACA"))
	assert.NoError(t, err)
	sa, _, err := CreateFromReferenceSequence([]byte("GATTACC"))
	assert.NoError(t, err)
	_, err = NewIndex(b, sa)
	expect.True(t, errors.Is(errors.Integrity, err))
}

const testFasta = ">chr1 first\nGATT\nACA\n>chr2\nACGTAC\n"

func TestBuildFromFasta(t *testing.T) {
	fa, err := fasta.New(strings.NewReader(testFasta))
	assert.NoError(t, err)
	idx, ann, err := BuildFromFasta(fa, IndexOpts{SAInterval: 4})
	assert.NoError(t, err)
	expect.EQ(t, ann.Contigs, []Contig{{"chr1", 0, 7}, {"chr2", 7, 6}})
	expect.EQ(t, idx.SA.Interval(), 4)

	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	prefix := filepath.Join(dir, "ref")
	ctx := vcontext.Background()
	assert.NoError(t, WriteIndexFiles(ctx, prefix, idx, ann))
	idx2, ann2, err := ReadIndexFiles(ctx, prefix)
	assert.NoError(t, err)
	expect.EQ(t, ann2, ann)

	offsets, err := idx2.Locate([]byte("AC"))
	assert.NoError(t, err)
	expect.EQ(t, offsets, []int64{4, 7, 11})
	type hit struct {
		name string
		pos  int64
	}
	var hits []hit
	for _, off := range offsets {
		c, pos, ok := ann2.Resolve(off, 2)
		assert.True(t, ok)
		hits = append(hits, hit{c.Name, pos})
	}
	expect.EQ(t, hits, []hit{{"chr1", 4}, {"chr2", 0}, {"chr2", 4}})
	// "CAA" only occurs across the chr1/chr2 boundary.
	offsets, err = idx2.Locate([]byte("CAA"))
	assert.NoError(t, err)
	expect.EQ(t, offsets, []int64{5})
	_, _, ok := ann2.Resolve(5, 3)
	expect.False(t, ok)

	_, _, err = ReadIndexFiles(ctx, filepath.Join(dir, "missing"))
	expect.NotNil(t, err)

	fa, err = fasta.New(strings.NewReader(">chr1\nACGNT\n"))
	assert.NoError(t, err)
	_, _, err = BuildFromFasta(fa, DefaultIndexOpts)
	expect.True(t, errors.Is(errors.Invalid, err))
}
