package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// GenerateIndex reads FASTA from in and writes its .fai index to out, in the
// format defined by "samtools faidx".  Every line of a sequence but the last
// must have the same length.
func GenerateIndex(out io.Writer, in io.Reader) error {
	w := tsv.NewWriter(out)
	r := bufio.NewReader(in)
	var (
		row     faiRow
		// short is set once a sequence line shorter than the first one is
		// seen; only the last line may be short.
		short   bool
		inSeq   bool
		off     int64
		lineNum int
	)
	endSeq := func() error {
		if !inSeq {
			return nil
		}
		w.WriteString(row.Name)
		w.WriteInt64(row.Length)
		w.WriteInt64(row.Offset)
		w.WriteInt64(row.LineBases)
		w.WriteInt64(row.LineWidth)
		return w.EndLine()
	}
	for {
		fullLine, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return errors.E(err, "fasta.GenerateIndex: read")
		}
		eof := err == io.EOF
		if eof && len(fullLine) == 0 {
			break
		}
		lineNum++
		off += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if err := endSeq(); err != nil {
				return err
			}
			row = faiRow{Name: seqName(line), Offset: off}
			if row.Name == "" {
				return errors.E(errors.Invalid, fmt.Sprintf("fasta.GenerateIndex: line %d: empty sequence name", lineNum))
			}
			inSeq, short = true, false
		default:
			if !inSeq {
				return errors.E(errors.Invalid, fmt.Sprintf("fasta.GenerateIndex: line %d: sequence data before the first header", lineNum))
			}
			if short {
				return errors.E(errors.Invalid, fmt.Sprintf("fasta.GenerateIndex: line %d: sequence %s has lines of different lengths", lineNum, row.Name))
			}
			if row.LineWidth == 0 {
				row.LineWidth = int64(len(fullLine))
				row.LineBases = int64(len(line))
			} else if int64(len(line)) > row.LineBases {
				return errors.E(errors.Invalid, fmt.Sprintf("fasta.GenerateIndex: line %d: sequence %s has lines of different lengths", lineNum, row.Name))
			} else if int64(len(line)) < row.LineBases || int64(len(fullLine)) != row.LineWidth {
				short = true
			}
			row.Length += int64(len(line))
		}
		if eof {
			break
		}
	}
	if off == 0 {
		return errors.E(errors.Invalid, "fasta.GenerateIndex: empty FASTA file")
	}
	if err := endSeq(); err != nil {
		return err
	}
	return w.Flush()
}
