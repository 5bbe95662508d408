// Package fasta reads reference sequences from (optionally indexed) FASTA
// files.  See http://www.htslib.org/doc/faidx.html.  A FASTA file is a list
// of named sequences, each of which may span several lines:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// A sequence name is the text after '>' up to the first space, so
// '>chr1 A viral sequence' names "chr1".
package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const maxLineSize = 1024 * 1024 * 300 // 300 MB

// Fasta is a set of named sequences.
type Fasta interface {
	// Get returns the bases of seqName at the 0-based half-open interval
	// [start, end).  It is safe for concurrent use.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of seqName.
	Len(seqName string) (uint64, error)

	// SeqNames returns the sequence names in file order.
	SeqNames() []string
}

// seqName extracts the name from a '>' header line.
func seqName(header []byte) string {
	name := header[1:]
	if i := bytes.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

type memFasta struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all of r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineSize)
	var (
		name    string
		inSeq   bool
		builder bytes.Buffer
	)
	endSeq := func() {
		f.seqs[name] = builder.String()
		f.seqNames = append(f.seqNames, name)
		builder.Reset()
	}
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] != '>' {
			if !inSeq {
				return nil, errors.Errorf("malformed FASTA: sequence data before the first header")
			}
			builder.Write(line)
			continue
		}
		if inSeq {
			endSeq()
		}
		name = seqName(line)
		if name == "" {
			return nil, errors.Errorf("malformed FASTA: empty sequence name")
		}
		if _, ok := f.seqs[name]; ok {
			return nil, errors.Errorf("malformed FASTA: duplicate sequence %s", name)
		}
		inSeq = true
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	if inSeq {
		endSeq()
	}
	return f, nil
}

func checkRange(seqName string, start, end, length uint64) error {
	if end <= start {
		return errors.Errorf("start must be less than end: [%d, %d)", start, end)
	}
	if end > length {
		return errors.Errorf("end is past end of sequence %s: %d > %d", seqName, end, length)
	}
	return nil
}

// Get implements Fasta.Get().
func (f *memFasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if err := checkRange(seqName, start, end, uint64(len(s))); err != nil {
		return "", err
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *memFasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *memFasta) SeqNames() []string {
	return f.seqNames
}
