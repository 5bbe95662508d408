// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package activeregion

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/bioengine/interval"
)

// stateRow is one line of a states TSV file.  POS is 1-based.  A positive
// SOFTCLIPS value marks a KindHighQualitySoftClips state.
type stateRow struct {
	Chrom     string  `tsv:"CHROM"`
	Pos       int64   `tsv:"POS"`
	Prob      float64 `tsv:"PROB"`
	SoftClips float64 `tsv:"SOFTCLIPS"`
}

// StateReader reads States from a TSV file with a
// "CHROM\tPOS\tPROB\tSOFTCLIPS" header row.  Lines starting with '#' are
// ignored.
type StateReader struct {
	r     *tsv.Reader
	nLine int
}

// NewStateReader creates a StateReader reading from r.
func NewStateReader(r io.Reader) *StateReader {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'
	return &StateReader{r: tr}
}

// Read returns the next state.  It returns io.EOF after the last one.
func (sr *StateReader) Read() (State, error) {
	var row stateRow
	if err := sr.r.Read(&row); err != nil {
		if err == io.EOF {
			return State{}, err
		}
		return State{}, errors.E(errors.Invalid, err, fmt.Sprintf("activeregion.StateReader: row %d", sr.nLine+1))
	}
	sr.nLine++
	if row.Pos < 1 || row.Pos > int64(interval.PosTypeMax) {
		return State{}, errors.E(errors.Invalid, fmt.Sprintf("activeregion.StateReader: row %d: bad position %d", sr.nLine, row.Pos))
	}
	s := State{RefName: row.Chrom, Pos: interval.PosType(row.Pos - 1), Prob: row.Prob}
	if row.SoftClips > 0 {
		s.Kind = KindHighQualitySoftClips
		s.SoftClips = row.SoftClips
	}
	if err := s.validate(); err != nil {
		return State{}, errors.E(err, fmt.Sprintf("activeregion.StateReader: row %d", sr.nLine))
	}
	return s, nil
}

// ReadStatesFromPath reads every state in the given file, which may be
// gzipped, and calls cb for each.  Reading stops at the first error returned
// by cb.
func ReadStatesFromPath(ctx context.Context, path string, cb func(State) error) (err error) {
	r, closer, err := openInput(ctx, path, "states")
	if err != nil {
		return err
	}
	defer func() {
		if e := closer(); e != nil && err == nil {
			err = errors.E(e, "close", path)
		}
	}()
	sr := NewStateReader(r)
	for {
		var s State
		if s, err = sr.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.E(err, path)
		}
		if err = cb(s); err != nil {
			return err
		}
	}
}

// RegionWriter writes one TSV line per region.  Coordinates are 1-based and
// inclusive.
type RegionWriter struct {
	w       *tsv.Writer
	withRef bool
}

// NewRegionWriter creates a RegionWriter and writes the header.  If withRef is
// set, a REF column holding the reference bases of the extended span is
// added; the caller then passes them to Write.
func NewRegionWriter(w io.Writer, withRef bool) (*RegionWriter, error) {
	rw := &RegionWriter{w: tsv.NewWriter(w), withRef: withRef}
	rw.w.WriteString("CHROM\tSTART\tEND\tEXT_START\tEXT_END\tREAD_SPAN_START\tREAD_SPAN_END\tACTIVE\tNREADS")
	if withRef {
		rw.w.WriteString("REF")
	}
	if err := rw.w.EndLine(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RegionWriter) writeSpan(s interval.Span) {
	rw.w.WriteUint32(uint32(s.Start + 1))
	rw.w.WriteUint32(uint32(s.End))
}

// Write writes r.  ref is ignored unless the writer was created withRef.
func (rw *RegionWriter) Write(r *Region, ref string) error {
	rw.w.WriteString(r.Span().RefName)
	rw.writeSpan(r.Span())
	rw.writeSpan(r.ExtendedSpan())
	rw.writeSpan(r.ReadSpan())
	if r.IsActive() {
		rw.w.WriteByte('1')
	} else {
		rw.w.WriteByte('0')
	}
	rw.w.WriteUint32(uint32(r.Len()))
	if rw.withRef {
		if ref == "" {
			ref = "."
		}
		rw.w.WriteString(ref)
	}
	return rw.w.EndLine()
}

// Flush flushes buffered lines to the underlying writer.
func (rw *RegionWriter) Flush() error {
	return rw.w.Flush()
}

// IGVWriter writes an IGV ".igv" track: a line graph with one row per
// feature.
type IGVWriter struct {
	w *tsv.Writer
}

// NewIGVWriter creates an IGVWriter and writes the track header.  column
// names the value column.
func NewIGVWriter(w io.Writer, column string) (*IGVWriter, error) {
	iw := &IGVWriter{w: tsv.NewWriter(w)}
	iw.w.WriteString("#track graphType=line")
	if err := iw.w.EndLine(); err != nil {
		return nil, err
	}
	iw.w.WriteString("Chromosome\tStart\tEnd\tFeature")
	iw.w.WriteString(column)
	if err := iw.w.EndLine(); err != nil {
		return nil, err
	}
	return iw, nil
}

func (iw *IGVWriter) writeRow(span interval.Span, feature string, v float64) error {
	iw.w.WriteString(span.RefName)
	iw.w.WriteUint32(uint32(span.Start))
	iw.w.WriteUint32(uint32(span.End))
	iw.w.WriteString(feature)
	iw.w.WriteString(strconv.FormatFloat(v, 'f', 5, 64))
	return iw.w.EndLine()
}

// WriteStates writes one row per state, with the probability capped at 1.
func (iw *IGVWriter) WriteStates(states []State) error {
	for _, s := range states {
		p := s.Prob
		if p > 1 {
			p = 1
		}
		if err := iw.writeRow(s.Span(), "state", p); err != nil {
			return err
		}
	}
	return nil
}

// WriteRegion writes an end marker at the first base of r, followed by a row
// spanning r valued 1 if r is active and -1 otherwise.
func (iw *IGVWriter) WriteRegion(r *Region) error {
	span := r.Span()
	first := interval.Span{RefName: span.RefName, Start: span.Start, End: span.Start + 1}
	if err := iw.writeRow(first, "end-marker", 0); err != nil {
		return err
	}
	v := -1.0
	if r.IsActive() {
		v = 1
	}
	return iw.writeRow(span, fmt.Sprintf("size=%d", span.Size()), v)
}

// Flush flushes buffered rows to the underlying writer.
func (iw *IGVWriter) Flush() error {
	return iw.w.Flush()
}
