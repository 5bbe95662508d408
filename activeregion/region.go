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
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bioengine/encoding/fasta"
	"github.com/grailbio/bioengine/interval"
	"github.com/grailbio/hts/sam"
)

// Region is a contiguous stretch of a contig classified as active or
// inactive, padded by an extension on both sides, together with the reads
// overlapping the padded span.
//
// Reads are kept sorted by alignment start.  ReadSpan is the union of the
// extended span and the spans of all reads.
type Region struct {
	span      interval.Span
	extended  interval.Span
	readSpan  interval.Span
	contigLen interval.PosType
	extension int
	active    bool
	states    []State
	reads     []*sam.Record
	finalized bool
}

// NewRegion creates a read-free region.  states is either empty or holds one
// state per base of span, in order.  The extended span is span padded by
// extension on both sides and clamped to [0, contigLen).
func NewRegion(span interval.Span, contigLen interval.PosType, states []State, active bool, extension int) (*Region, error) {
	if span.Empty() {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.NewRegion: region %v has zero size", span))
	}
	if span.Start < 0 || span.End > contigLen {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.NewRegion: region %v is outside its contig (length %d)", span, contigLen))
	}
	if extension < 0 {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.NewRegion: extension must be >= 0, got %d", extension))
	}
	if len(states) > 0 {
		if len(states) != span.Size() {
			return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.NewRegion: %d supporting states for %d bases of %v", len(states), span.Size(), span))
		}
		for i, s := range states {
			if s.RefName != span.RefName || s.Pos != span.Start+interval.PosType(i) {
				return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.NewRegion: supporting state %v out of sequence at index %d of %v", s, i, span))
			}
		}
		states = append([]State(nil), states...)
	}
	ext := interval.ClampToLen(interval.Span{
		RefName: span.RefName,
		Start:   span.Start - interval.PosType(extension),
		End:     span.End + interval.PosType(extension),
	}, contigLen)
	return &Region{
		span:      span,
		extended:  ext,
		readSpan:  ext,
		contigLen: contigLen,
		extension: extension,
		active:    active,
		states:    states,
	}, nil
}

func (r *Region) String() string {
	return fmt.Sprintf("Region %v active?=%v nReads=%d", r.span, r.active, len(r.reads))
}

// Span returns the core span of the region.
func (r *Region) Span() interval.Span { return r.span }

// ExtendedSpan returns the core span padded by the extension.
func (r *Region) ExtendedSpan() interval.Span { return r.extended }

// ReadSpan returns the union of the extended span and all read spans.
func (r *Region) ReadSpan() interval.Span { return r.readSpan }

// Extension returns the padding on each side of the core span.
func (r *Region) Extension() int { return r.extension }

// IsActive returns whether the region is active.
func (r *Region) IsActive() bool { return r.active }

// States returns the supporting states, one per base of the core span, or nil
// if the region was not produced by a Profile.  The caller must not modify
// them.
func (r *Region) States() []State { return r.states }

// Reads returns the reads, sorted by alignment start.  The caller must not
// modify the slice.
func (r *Region) Reads() []*sam.Record { return r.reads }

// Len returns the number of reads.
func (r *Region) Len() int { return len(r.reads) }

// SetFinalized marks whether downstream processing of the region has been
// completed.
func (r *Region) SetFinalized(v bool) { r.finalized = v }

// Finalized returns the value last passed to SetFinalized.
func (r *Region) Finalized() bool { return r.finalized }

// readSpan returns the reference span of the aligned part of rec.
func readSpan(rec *sam.Record) interval.Span {
	var refName string
	if rec.Ref != nil {
		refName = rec.Ref.Name()
	}
	return interval.Span{RefName: refName, Start: interval.PosType(rec.Pos), End: interval.PosType(rec.End())}
}

// ReadOverlaps returns whether rec overlaps the extended span.
func (r *Region) ReadOverlaps(rec *sam.Record) bool {
	return readSpan(rec).Overlaps(r.extended)
}

// checkAppend verifies that rec may follow prev (nil if rec would be first).
func (r *Region) checkAppend(prev, rec *sam.Record) error {
	if rec == nil {
		return errors.E(errors.Precondition, "activeregion.Region.Add: nil read")
	}
	if !r.ReadOverlaps(rec) {
		return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Region.Add: read %s at %v doesn't overlap extended span %v", rec.Name, readSpan(rec), r.extended))
	}
	if prev != nil {
		if prev.Ref.Name() != rec.Ref.Name() {
			return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Region.Add: read %s on %s, previous read %s on %s", rec.Name, rec.Ref.Name(), prev.Name, prev.Ref.Name()))
		}
		if rec.Pos < prev.Pos {
			return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Region.Add: read %s at %d added after read %s at %d", rec.Name, rec.Pos, prev.Name, prev.Pos))
		}
	}
	return nil
}

func (r *Region) lastRead() *sam.Record {
	if len(r.reads) == 0 {
		return nil
	}
	return r.reads[len(r.reads)-1]
}

// Add appends rec.  rec must overlap the extended span, be on the same contig
// as the other reads, and not start before the last read.
func (r *Region) Add(rec *sam.Record) error {
	if err := r.checkAppend(r.lastRead(), rec); err != nil {
		return err
	}
	r.readSpan = r.readSpan.Union(readSpan(rec))
	r.reads = append(r.reads, rec)
	return nil
}

// AddAll appends recs in order.  Either all of them are added or, if any
// would violate the conditions of Add, none are.
func (r *Region) AddAll(recs []*sam.Record) error {
	prev := r.lastRead()
	for _, rec := range recs {
		if err := r.checkAppend(prev, rec); err != nil {
			return err
		}
		prev = rec
	}
	for _, rec := range recs {
		r.readSpan = r.readSpan.Union(readSpan(rec))
		r.reads = append(r.reads, rec)
	}
	return nil
}

// ClearReads removes all reads.
func (r *Region) ClearReads() {
	r.reads = nil
	r.readSpan = r.extended
}

// RemoveAll removes the given reads (compared by identity) and recomputes the
// read span.
func (r *Region) RemoveAll(recs []*sam.Record) {
	drop := make(map[*sam.Record]struct{}, len(recs))
	for _, rec := range recs {
		drop[rec] = struct{}{}
	}
	r.readSpan = r.extended
	kept := r.reads[:0]
	for _, rec := range r.reads {
		if _, ok := drop[rec]; ok {
			continue
		}
		kept = append(kept, rec)
		r.readSpan = r.readSpan.Union(readSpan(rec))
	}
	for i := len(kept); i < len(r.reads); i++ {
		r.reads[i] = nil
	}
	r.reads = kept
}

// Trim returns a new region covering the part of this region's core span
// inside span, with the extension that best approximates extendedSpan
// without exceeding this region's own extension.  The reads of this region
// are hard-clipped to the new extended span; those with aligned bases left
// are kept.  extendedSpan must contain span.
func (r *Region) Trim(span, extendedSpan interval.Span) (*Region, error) {
	if !extendedSpan.Contains(span) {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.Region.Trim: extended span %v must contain span %v", extendedSpan, span))
	}
	sub, ok := r.span.Intersect(span)
	if !ok {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.Region.Trim: %v doesn't overlap %v", span, r.span))
	}
	onRight := int(extendedSpan.End - sub.End)
	if onRight < 0 {
		onRight = 0
	}
	onLeft := int(sub.Start - extendedSpan.Start)
	if onLeft < 0 {
		onLeft = 0
	}
	ext := onLeft
	if onRight > ext {
		ext = onRight
	}
	if r.extension < ext {
		ext = r.extension
	}
	result, err := NewRegion(sub, r.contigLen, nil, r.active, ext)
	if err != nil {
		return nil, err
	}
	trimmed := make([]*sam.Record, 0, len(r.reads))
	for _, rec := range r.reads {
		clipped := HardClipToRegion(rec, result.extended.Start, result.extended.End)
		if len(clipped.Cigar) > 0 && result.ReadOverlaps(clipped) {
			trimmed = append(trimmed, clipped)
		}
	}
	sort.SliceStable(trimmed, func(i, j int) bool { return trimmed[i].Pos < trimmed[j].Pos })
	if err := result.AddAll(trimmed); err != nil {
		return nil, err
	}
	return result, nil
}

// TrimWithExtension is Trim with extendedSpan = span padded by extension and
// clamped to the contig.
func (r *Region) TrimWithExtension(span interval.Span, extension int) (*Region, error) {
	if extension < 0 {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.Region.Trim: extension must be >= 0, got %d", extension))
	}
	ext := interval.ClampToLen(interval.Span{
		RefName: span.RefName,
		Start:   span.Start - interval.PosType(extension),
		End:     span.End + interval.PosType(extension),
	}, r.contigLen)
	return r.Trim(span, ext)
}

// SplitAndTrimToIntervals returns one trimmed region (see TrimWithExtension,
// using this region's extension) per interval of set overlapping the core
// span.  Reads are not carried over.
func (r *Region) SplitAndTrimToIntervals(set IntervalSet) ([]*Region, error) {
	overlapping := set.Overlapping(r.span)
	result := make([]*Region, 0, len(overlapping))
	for _, o := range overlapping {
		t, err := r.TrimWithExtension(o, r.extension)
		if err != nil {
			return nil, err
		}
		t.ClearReads()
		result = append(result, t)
	}
	return result, nil
}

// Reference returns the reference bases of the extended span, padded by
// padding bases on each side and clamped to the contig.
func (r *Region) Reference(fa fasta.Fasta, padding int) (string, error) {
	return r.reference(fa, padding, r.extended)
}

// FullReference returns the reference bases of the read span, padded by
// padding bases on each side and clamped to the contig.
func (r *Region) FullReference(fa fasta.Fasta, padding int) (string, error) {
	return r.reference(fa, padding, r.readSpan)
}

func (r *Region) reference(fa fasta.Fasta, padding int, span interval.Span) (string, error) {
	if padding < 0 {
		return "", errors.E(errors.Precondition, fmt.Sprintf("activeregion.Region.Reference: padding must be >= 0, got %d", padding))
	}
	seqLen, err := fa.Len(span.RefName)
	if err != nil {
		return "", errors.E(errors.NotExist, err)
	}
	start := int64(span.Start) - int64(padding)
	if start < 0 {
		start = 0
	}
	end := uint64(span.End) + uint64(padding)
	if end > seqLen {
		end = seqLen
	}
	return fa.Get(span.RefName, uint64(start), end)
}
