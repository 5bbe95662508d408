// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func words(t *testing.T, data []byte) []uint32 {
	assert.EQ(t, len(data)%4, 0)
	w := make([]uint32, len(data)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return w
}

func fromWords(w []uint32) []byte {
	data := make([]byte, 4*len(w))
	for i, v := range w {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	return data
}

func TestWriteGATTACA(t *testing.T) {
	sa, b, err := CreateFromReferenceSequence([]byte("GATTACA"))
	assert.NoError(t, err)
	var buf bytes.Buffer
	assert.NoError(t, WriteBWT(&buf, b))
	expect.EQ(t, words(t, buf.Bytes()), []uint32{
		5,
		3, 4, 5, 7,
		0, 0, 0, 0,
		0x1e300000, // A C T G A T A
		3, 1, 1, 2,
	})

	buf.Reset()
	assert.NoError(t, WriteSuffixArray(&buf, sa))
	expect.EQ(t, words(t, buf.Bytes()), []uint32{
		5,
		3, 4, 5, 7,
		1, 8,
		6, 4, 1, 5, 0, 3, 2,
	})
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, n := range []int{0, 1, 16, 17, 128, 1000} {
		dense, b, err := CreateFromReferenceSequence(randomSeq(r, n, "ACGT"))
		assert.NoError(t, err)
		var buf bytes.Buffer
		assert.NoError(t, WriteBWT(&buf, b))
		b2, err := ReadBWT(&buf)
		assert.NoError(t, err)
		expect.EQ(t, b2.InverseSA0(), b.InverseSA0())
		expect.EQ(t, b2.Counts(), b.Counts())
		expect.EQ(t, b2.Sequence(), b.Sequence())
		expect.EQ(t, len(b2.Blocks()), len(b.Blocks()))

		for _, interval := range []int{1, 32} {
			sa := dense
			if interval > 1 {
				sa, err = dense.Sample(interval)
				assert.NoError(t, err)
			}
			buf.Reset()
			assert.NoError(t, WriteSuffixArray(&buf, sa))
			sa2, err := ReadSuffixArray(&buf, b2)
			assert.NoError(t, err)
			expect.EQ(t, sa2.Interval(), interval)
			expect.EQ(t, sa2.Entries(), sa.Entries())
			for i := int64(0); i < sa2.Len(); i++ {
				expect.EQ(t, sa2.Get(i), dense.Get(i), "n=%d interval=%d rank=%d", n, interval, i)
			}
		}
	}
}

func TestReadCorrupt(t *testing.T) {
	sa, b, err := CreateFromReferenceSequence([]byte("GATTACA"))
	assert.NoError(t, err)
	var buf bytes.Buffer
	assert.NoError(t, WriteBWT(&buf, b))
	good := words(t, buf.Bytes())

	for _, test := range []struct {
		name   string
		mutate func(w []uint32) []uint32
	}{
		{"footer", func(w []uint32) []uint32 { w[len(w)-1] = 3; return w }},
		{"block counts", func(w []uint32) []uint32 { w[5] = 1; return w }},
		{"cumulative", func(w []uint32) []uint32 { w[2] = 2; return w }},
		{"truncated", func(w []uint32) []uint32 { return w[:len(w)-1] }},
		{"inverseSA0", func(w []uint32) []uint32 { w[0] = 9; return w }},
	} {
		w := test.mutate(append([]uint32(nil), good...))
		_, err := ReadBWT(bytes.NewReader(fromWords(w)))
		expect.True(t, errors.Is(errors.Integrity, err), "%s: %v", test.name, err)
	}
	_, err = ReadBWT(bytes.NewReader(buf.Bytes()[:len(buf.Bytes())-2]))
	expect.True(t, errors.Is(errors.Integrity, err))

	buf.Reset()
	assert.NoError(t, WriteSuffixArray(&buf, sa))
	good = words(t, buf.Bytes())
	for _, test := range []struct {
		name   string
		mutate func(w []uint32) []uint32
	}{
		{"sampled length", func(w []uint32) []uint32 { w[6] = 7; return w }},
		{"interval", func(w []uint32) []uint32 { w[5] = 0; return w }},
		{"entry", func(w []uint32) []uint32 { w[7] = 8; return w }},
		{"truncated", func(w []uint32) []uint32 { return w[:len(w)-1] }},
		{"inverseSA0", func(w []uint32) []uint32 { w[0] = 4; return w }},
	} {
		w := test.mutate(append([]uint32(nil), good...))
		_, err := ReadSuffixArray(bytes.NewReader(fromWords(w)), b)
		expect.True(t, errors.Is(errors.Integrity, err), "%s: %v", test.name, err)
	}

	// A header claiming ~4G suffixes is rejected against the BWT, and without
	// one it fails on the missing entries rather than allocating them first.
	huge := []uint32{0, 1 << 30, 2 << 30, 3 << 30, 0xfffffffe, 1, 0xffffffff, 5}
	_, err = ReadSuffixArray(bytes.NewReader(fromWords(huge)), b)
	expect.True(t, errors.Is(errors.Integrity, err))
	_, err = ReadSuffixArray(bytes.NewReader(fromWords(huge)), nil)
	expect.True(t, errors.Is(errors.Integrity, err))
}

func TestWriteOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	for _, v := range []int64{-1, 1 << 32} {
		w := uint32Writer{w: &buf}
		w.put(v)
		expect.True(t, errors.Is(errors.Invalid, w.err))
	}
	expect.EQ(t, buf.Len(), 0)
}
