// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestGATTACA(t *testing.T) {
	sa, b, err := CreateFromReferenceSequence([]byte("GATTACA"))
	assert.NoError(t, err)
	expect.EQ(t, sa.Entries(), []int64{7, 6, 4, 1, 5, 0, 3, 2})
	expect.EQ(t, sa.Len(), int64(8))
	expect.EQ(t, sa.InverseSA0(), int64(5))
	expect.EQ(t, b.InverseSA0(), int64(5))
	expect.EQ(t, b.Sequence(), "ACTGATA")
	expect.EQ(t, b.Len(), int64(7))
	expect.EQ(t, b.Counts().PerBase(), [NumBases]int64{3, 1, 1, 2})
	expect.EQ(t, b.Counts().Cumulative(), [NumBases]int64{3, 4, 5, 7})
	expect.EQ(t, b.Counts().CumulativeBefore(BaseT), int64(5))

	_, ok := b.Base(5)
	expect.False(t, ok)
	c, ok := b.Base(6)
	expect.True(t, ok)
	expect.EQ(t, c, BaseT)

	// Logical L column: A C T G A $ T A.
	for _, test := range []struct {
		base Base
		want []int64
	}{
		{BaseA, []int64{1, 1, 1, 1, 2, 2, 2, 3}},
		{BaseC, []int64{0, 1, 1, 1, 1, 1, 1, 1}},
		{BaseG, []int64{0, 0, 0, 1, 1, 1, 1, 1}},
		{BaseT, []int64{0, 0, 1, 1, 1, 1, 2, 2}},
	} {
		for i, want := range test.want {
			expect.EQ(t, b.Occurrences(test.base, int64(i)), want, "base %v rank %d", test.base, i)
		}
	}
	expect.EQ(t, b.lf(1, BaseC), int64(4))
}

func TestSentinelAtRankZero(t *testing.T) {
	b, err := NewBWT(0, []Base{BaseA, BaseC})
	assert.NoError(t, err)
	expect.EQ(t, b.Occurrences(BaseA, 0), int64(0))
	expect.EQ(t, b.Occurrences(BaseA, 1), int64(1))
	expect.EQ(t, b.Occurrences(BaseC, 2), int64(1))

	_, err = NewBWT(3, []Base{BaseA, BaseC})
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = NewBWT(0, []Base{BaseA, 7})
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestEncodeBases(t *testing.T) {
	bases, err := EncodeBases([]byte("acGT"))
	assert.NoError(t, err)
	expect.EQ(t, bases, []Base{BaseA, BaseC, BaseG, BaseT})
	for _, seq := range []string{"ACNT", "AC-T", "ACU"} {
		_, err := EncodeBases([]byte(seq))
		expect.True(t, errors.Is(errors.Invalid, err), seq)
		_, _, err = CreateFromReferenceSequence([]byte(seq))
		expect.True(t, errors.Is(errors.Invalid, err), seq)
	}
}

func TestCounts(t *testing.T) {
	var c Counts
	for _, b := range []Base{BaseT, BaseA, BaseT, BaseG} {
		c.Increment(b)
	}
	expect.EQ(t, c.Total(), int64(4))
	expect.EQ(t, c.Get(BaseT), int64(2))
	expect.EQ(t, c.CumulativeBefore(BaseG), int64(1))
	expect.EQ(t, c.String(), "A:1 C:0 G:1 T:2")

	d, err := CountsFromCumulative(c.Cumulative())
	assert.NoError(t, err)
	expect.EQ(t, d, c)
	_, err = CountsFromCumulative([NumBases]int64{3, 2, 5, 5})
	expect.True(t, errors.Is(errors.Integrity, err))
	_, err = NewCounts([NumBases]int64{1, -1, 0, 0})
	expect.True(t, errors.Is(errors.Invalid, err))
}

func randomSeq(r *rand.Rand, n int, alphabet string) []byte {
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = alphabet[r.Intn(len(alphabet))]
	}
	return seq
}

func TestSuffixOrder(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for _, n := range []int{0, 1, 2, 15, 127, 128, 129, 300} {
		// A two-letter alphabet produces long repeats.
		for _, alphabet := range []string{"ACGT", "AT"} {
			seq := randomSeq(r, n, alphabet)
			sa, b, err := CreateFromReferenceSequence(seq)
			assert.NoError(t, err)
			entries := sa.Entries()
			assert.EQ(t, len(entries), n+1)
			expect.EQ(t, entries[0], int64(n))
			seen := make([]bool, n+1)
			for i, off := range entries {
				seen[off] = true
				if i > 0 {
					expect.True(t, bytes.Compare(seq[entries[i-1]:], seq[off:]) < 0, "n=%d rank %d", n, i)
				}
				if off == 0 {
					expect.EQ(t, int64(i), sa.InverseSA0())
					continue
				}
				c, ok := b.Base(int64(i))
				expect.True(t, ok)
				expect.EQ(t, c.Char(), seq[off-1])
			}
			for off, ok := range seen {
				expect.True(t, ok, "offset %d missing", off)
			}
		}
	}
}

func TestOccurrencesMatchScan(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	seq := randomSeq(r, 2*BlockSize+37, "ACGT")
	_, b, err := CreateFromReferenceSequence(seq)
	assert.NoError(t, err)
	expect.EQ(t, len(b.Blocks()), 3)
	var want [NumBases]int64
	for i := int64(0); i <= b.Len(); i++ {
		if c, ok := b.Base(i); ok {
			want[c]++
		}
		for c := Base(0); c < NumBases; c++ {
			expect.EQ(t, b.Occurrences(c, i), want[c], "base %v rank %d", c, i)
		}
	}
}

func TestSampledGet(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	seq := randomSeq(r, 500, "ACGT")
	dense, _, err := CreateFromReferenceSequence(seq)
	assert.NoError(t, err)
	for _, interval := range []int{1, 2, 3, 7, 32, 600} {
		sa, err := dense.Sample(interval)
		assert.NoError(t, err)
		expect.EQ(t, sa.Interval(), interval)
		expect.EQ(t, int64(len(sa.Entries())), (sa.Len()+int64(interval)-1)/int64(interval))
		for i := int64(0); i < sa.Len(); i++ {
			expect.EQ(t, sa.Get(i), dense.Get(i), "interval %d rank %d", interval, i)
		}
		_, err = sa.Sample(2)
		if interval > 1 {
			expect.True(t, errors.Is(errors.Precondition, err))
		}
	}
	_, err = dense.Sample(0)
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestSampledGetGATTACA(t *testing.T) {
	dense, _, err := CreateFromReferenceSequence([]byte("GATTACA"))
	assert.NoError(t, err)
	sa, err := dense.Sample(2)
	assert.NoError(t, err)
	expect.EQ(t, sa.Entries(), []int64{7, 4, 5, 3})
	expect.EQ(t, sa.Get(1), int64(6))
	expect.EQ(t, sa.Get(5), int64(0))
	expect.EQ(t, sa.Get(7), int64(2))
}

func TestNewSuffixArrayErrors(t *testing.T) {
	_, b, err := CreateFromReferenceSequence([]byte("GATTACA"))
	assert.NoError(t, err)
	counts := b.Counts()
	_, err = NewSuffixArray(5, counts, 0, []int64{7}, b)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = NewSuffixArray(8, counts, 1, []int64{7, 6, 4, 1, 5, 0, 3, 2}, nil)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = NewSuffixArray(5, counts, 2, []int64{7, 4, 5}, b)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = NewSuffixArray(5, counts, 2, []int64{6, 4, 5, 3}, b)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = NewSuffixArray(5, counts, 2, []int64{7, 4, 5, 3}, nil)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = NewSuffixArray(4, counts, 2, []int64{7, 4, 5, 3}, b)
	expect.True(t, errors.Is(errors.Invalid, err))
}
