// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package circular

import "github.com/grailbio/base/log"

// Deque is a growable double-ended queue of float64 values backed by a
// power-of-two circular buffer.  Front removal is O(1), which is what a
// sliding window over genomic positions needs: values are appended at the
// high end and consumed from the low end.
//
// The zero value is an empty Deque ready to use.
type Deque struct {
	buf   []float64
	first int // index of the logical element 0 in buf
	n     int
}

// Len returns the number of elements.
func (d *Deque) Len() int {
	return d.n
}

func (d *Deque) grow() {
	newCap := NextExp2(len(d.buf))
	if newCap < 16 {
		newCap = 16
	}
	newBuf := make([]float64, newCap)
	mask := len(d.buf) - 1
	for i := 0; i < d.n; i++ {
		newBuf[i] = d.buf[(d.first+i)&mask]
	}
	d.buf = newBuf
	d.first = 0
}

// PushBack appends v.
func (d *Deque) PushBack(v float64) {
	if d.n == len(d.buf) {
		d.grow()
	}
	d.buf[(d.first+d.n)&(len(d.buf)-1)] = v
	d.n++
}

func (d *Deque) checkIndex(i int) {
	if i < 0 || i >= d.n {
		log.Panicf("circular.Deque: index %d out of range [0, %d)", i, d.n)
	}
}

// At returns the i-th element (0 is the front).
func (d *Deque) At(i int) float64 {
	d.checkIndex(i)
	return d.buf[(d.first+i)&(len(d.buf)-1)]
}

// Add adds v to the i-th element.
func (d *Deque) Add(i int, v float64) {
	d.checkIndex(i)
	d.buf[(d.first+i)&(len(d.buf)-1)] += v
}

// PopFront removes the first n elements, appending them to dst, and returns
// the extended dst.
func (d *Deque) PopFront(dst []float64, n int) []float64 {
	if n < 0 || n > d.n {
		log.Panicf("circular.Deque: cannot pop %d of %d elements", n, d.n)
	}
	mask := len(d.buf) - 1
	for i := 0; i < n; i++ {
		dst = append(dst, d.buf[(d.first+i)&mask])
	}
	if n == d.n {
		d.first = 0
	} else {
		d.first = (d.first + n) & mask
	}
	d.n -= n
	return dst
}

// Truncate drops all elements at index >= n.  It is a no-op if the deque
// already has at most n elements.
func (d *Deque) Truncate(n int) {
	if n < 0 {
		log.Panicf("circular.Deque: cannot truncate to %d elements", n)
	}
	if n < d.n {
		d.n = n
	}
}

// Slice appends all elements, front first, to dst.
func (d *Deque) Slice(dst []float64) []float64 {
	mask := len(d.buf) - 1
	for i := 0; i < d.n; i++ {
		dst = append(dst, d.buf[(d.first+i)&mask])
	}
	return dst
}
