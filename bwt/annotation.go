// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// annSeed is the seed field written in the .ann header line.
const annSeed = 11

// Contig is one sequence of a concatenated reference.
type Contig struct {
	Name string
	// Offset is the position of the contig's first base in the concatenated
	// reference.
	Offset int64
	Len    int64
}

// Annotation lists the contigs of a concatenated reference, in order.
type Annotation struct {
	Contigs []Contig
}

// Len returns the length of the concatenated reference.
func (a *Annotation) Len() int64 {
	if len(a.Contigs) == 0 {
		return 0
	}
	last := a.Contigs[len(a.Contigs)-1]
	return last.Offset + last.Len
}

// Resolve maps the range [offset, offset+length) of the concatenated
// reference to a contig and a 0-based position within it.  It returns false
// if the range is out of bounds or crosses a contig boundary.
func (a *Annotation) Resolve(offset, length int64) (Contig, int64, bool) {
	i := sort.Search(len(a.Contigs), func(i int) bool {
		c := a.Contigs[i]
		return c.Offset+c.Len > offset
	})
	if i == len(a.Contigs) || offset < a.Contigs[i].Offset {
		return Contig{}, 0, false
	}
	c := a.Contigs[i]
	if offset+length > c.Offset+c.Len {
		return Contig{}, 0, false
	}
	return c, offset - c.Offset, true
}

// WriteANN writes the .ann companion file.  Sequences carry no identifiers,
// descriptions, or ambiguous bases.
func WriteANN(w io.Writer, a *Annotation) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", a.Len(), len(a.Contigs), annSeed)
	for _, c := range a.Contigs {
		fmt.Fprintf(bw, "0 %s (null)\n", c.Name)
		fmt.Fprintf(bw, "%d %d 0\n", c.Offset, c.Len)
	}
	return bw.Flush()
}

// WriteAMB writes the .amb companion file.  The reference has no ambiguous
// bases, so only the header line is written.
func WriteAMB(w io.Writer, a *Annotation) error {
	_, err := fmt.Fprintf(w, "%d %d 0\n", a.Len(), len(a.Contigs))
	return err
}

func parseInts(line string, n int) ([]int64, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadANN: expected %d fields in %q", n, line))
	}
	v := make([]int64, n)
	for i, f := range fields {
		var err error
		if v[i], err = strconv.ParseInt(f, 10, 64); err != nil {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadANN: line %q", line), err)
		}
	}
	return v, nil
}

// ReadANN reads a .ann file.  Contigs must be contiguous and must cover the
// length in the header.
func ReadANN(r io.Reader) (*Annotation, error) {
	scanner := bufio.NewScanner(r)
	next := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", errors.E(errors.Integrity, "bwt.ReadANN: truncated input")
		}
		return scanner.Text(), nil
	}
	line, err := next()
	if err != nil {
		return nil, err
	}
	header, err := parseInts(line, 3)
	if err != nil {
		return nil, err
	}
	total, nSeqs := header[0], header[1]
	if nSeqs < 0 {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadANN: %d sequences", nSeqs))
	}
	a := &Annotation{}
	for i := int64(0); i < nSeqs; i++ {
		if line, err = next(); err != nil {
			return nil, err
		}
		// "<gi> <name> <description>"; the description may contain spaces.
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 || fields[1] == "" {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadANN: malformed name line %q", line))
		}
		name := fields[1]
		if line, err = next(); err != nil {
			return nil, err
		}
		pos, err := parseInts(line, 3)
		if err != nil {
			return nil, err
		}
		if pos[0] != a.Len() || pos[1] <= 0 {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadANN: sequence %s at [%d, +%d), expected offset %d", name, pos[0], pos[1], a.Len()))
		}
		a.Contigs = append(a.Contigs, Contig{Name: name, Offset: pos[0], Len: pos[1]})
	}
	if a.Len() != total {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("bwt.ReadANN: sequences cover %d bases, header says %d", a.Len(), total))
	}
	return a, nil
}
