package fasta

import (
	"io"
	"sync"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// faiRow is one line of a .fai file.
type faiRow struct {
	Name string
	// Length is the number of bases.
	Length int64
	// Offset is the byte offset of the first base.
	Offset int64
	// LineBases is the number of bases on each full line.
	LineBases int64
	// LineWidth is the number of bytes on each full line, including the
	// line terminator.
	LineWidth int64
}

// readIndex parses a .fai file.
func readIndex(index io.Reader) ([]faiRow, error) {
	r := tsv.NewReader(index)
	var rows []faiRow
	seen := map[string]bool{}
	for {
		var row faiRow
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				return rows, nil
			}
			return nil, errors.Wrapf(err, "invalid index line %d", len(rows)+1)
		}
		if row.Length < 0 || row.Offset < 0 || (row.Length > 0 && row.LineBases <= 0) || row.LineWidth < row.LineBases {
			return nil, errors.Errorf("invalid index line %d for %s: %+v", len(rows)+1, row.Name, row)
		}
		if seen[row.Name] {
			return nil, errors.Errorf("duplicate sequence in index: %s", row.Name)
		}
		seen[row.Name] = true
		rows = append(rows, row)
	}
}

type indexedFasta struct {
	seqs     map[string]faiRow
	seqNames []string
	mu       sync.Mutex
	r        io.ReadSeeker
	// buf caches file contents starting at bufOff.
	bufOff int64
	buf    []byte
}

// NewIndexed creates a Fasta that reads bases from r on demand, using the
// .fai data in index to locate them.
func NewIndexed(r io.ReadSeeker, index io.Reader) (Fasta, error) {
	rows, err := readIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{seqs: make(map[string]faiRow, len(rows)), r: r}
	for _, row := range rows {
		f.seqs[row.Name] = row
		f.seqNames = append(f.seqNames, row.Name)
	}
	return f, nil
}

// Len implements Fasta.Len().
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	row, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return uint64(row.Length), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}

// read returns the file bytes [off, off+n).  REQUIRES: f.mu is held.
func (f *indexedFasta) read(off int64, n int) ([]byte, error) {
	if off >= f.bufOff && off+int64(n) <= f.bufOff+int64(len(f.buf)) {
		return f.buf[off-f.bufOff : off-f.bufOff+int64(n)], nil
	}
	if _, err := f.r.Seek(off, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seek to %d", off)
	}
	size := 8192
	if size < n {
		size = n
	}
	if cap(f.buf) < size {
		f.buf = make([]byte, size)
	}
	f.buf = f.buf[:size]
	got, err := io.ReadAtLeast(f.r, f.buf, n)
	if err != nil {
		f.buf = f.buf[:0]
		return nil, errors.Wrapf(err, "read %d bytes at %d (bad index?)", n, off)
	}
	f.bufOff = off
	f.buf = f.buf[:got]
	return f.buf[:n], nil
}

// Get implements Fasta.Get().
func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	row, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found in index: %s", seqName)
	}
	if err := checkRange(seqName, start, end, uint64(row.Length)); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, e := int64(start), int64(end)
	lineBases, lineWidth := row.LineBases, row.LineWidth
	// Byte offsets of the first base and one past the last base.
	first := row.Offset + (s/lineBases)*lineWidth + s%lineBases
	last := row.Offset + ((e-1)/lineBases)*lineWidth + (e-1)%lineBases + 1
	data, err := f.read(first, int(last-first))
	if err != nil {
		return "", err
	}
	result := make([]byte, 0, e-s)
	col := s % lineBases
	for i := 0; i < len(data); {
		if col == lineBases {
			// Skip the line terminator.
			i += int(lineWidth - lineBases)
			col = 0
			continue
		}
		result = append(result, data[i])
		i++
		col++
	}
	return string(result), nil
}
