package interval

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// Span is a contiguous range of positions on one contig, using 0-based
// half-open coordinates [Start, End).
type Span struct {
	RefName string
	Start   PosType
	End     PosType
}

// Size returns the number of bases covered by the span.
func (s Span) Size() int {
	if s.End <= s.Start {
		return 0
	}
	return int(s.End - s.Start)
}

// Empty returns true iff the span covers no bases.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Overlaps returns true iff s and o share at least one base.
func (s Span) Overlaps(o Span) bool {
	return s.RefName == o.RefName && s.Start < o.End && o.Start < s.End
}

// Contains returns true iff every base of o is inside s.
func (s Span) Contains(o Span) bool {
	return s.RefName == o.RefName && s.Start <= o.Start && o.End <= s.End
}

// ContainsPos returns true iff the (0-based) position is inside s.
func (s Span) ContainsPos(refName string, pos PosType) bool {
	return s.RefName == refName && s.Start <= pos && pos < s.End
}

// Intersect returns the bases shared by s and o.  The second return value is
// false if they do not overlap.
func (s Span) Intersect(o Span) (Span, bool) {
	if !s.Overlaps(o) {
		return Span{}, false
	}
	r := s
	if o.Start > r.Start {
		r.Start = o.Start
	}
	if o.End < r.End {
		r.End = o.End
	}
	return r, true
}

// Union returns the smallest span containing both s and o.  Both spans must
// be on the same contig.
func (s Span) Union(o Span) Span {
	if s.RefName != o.RefName {
		panic(fmt.Sprintf("interval.Span.Union: %v and %v are on different contigs", s, o))
	}
	r := s
	if o.Start < r.Start {
		r.Start = o.Start
	}
	if o.End > r.End {
		r.End = o.End
	}
	return r
}

// String prints the span the way samtools region strings look, i.e. 1-based
// and inclusive: "chr1:11-20".
func (s Span) String() string {
	return fmt.Sprintf("%s:%d-%d", s.RefName, s.Start+1, s.End)
}

// Dict is an ordered contig dictionary: it maps contig names to IDs
// (order of appearance) and lengths.
type Dict struct {
	names   []string
	lengths []PosType
	ids     map[string]int
}

// NewDict creates a Dict from parallel name and length slices.
func NewDict(names []string, lengths []PosType) (*Dict, error) {
	if len(names) != len(lengths) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.NewDict: %d names but %d lengths", len(names), len(lengths)))
	}
	d := &Dict{
		names:   make([]string, len(names)),
		lengths: make([]PosType, len(lengths)),
		ids:     make(map[string]int, len(names)),
	}
	copy(d.names, names)
	copy(d.lengths, lengths)
	for i, name := range names {
		if name == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.NewDict: empty contig name at index %d", i))
		}
		if lengths[i] <= 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.NewDict: contig %s has nonpositive length %d", name, lengths[i]))
		}
		if _, found := d.ids[name]; found {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.NewDict: duplicate contig %s", name))
		}
		d.ids[name] = i
	}
	return d, nil
}

// NewDictFromSAMHeader creates a Dict from the reference list of a SAM/BAM
// header.
func NewDictFromSAMHeader(header *sam.Header) (*Dict, error) {
	refs := header.Refs()
	names := make([]string, len(refs))
	lengths := make([]PosType, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name()
		lengths[i] = PosType(ref.Len())
	}
	return NewDict(names, lengths)
}

// NRef returns the number of contigs.
func (d *Dict) NRef() int {
	return len(d.names)
}

// Names returns the contig names in dictionary order.
func (d *Dict) Names() []string {
	return d.names
}

// ID returns the dictionary index of the named contig, or -1 if it isn't
// present.
func (d *Dict) ID(refName string) int {
	if id, ok := d.ids[refName]; ok {
		return id
	}
	return -1
}

// Len returns the length of the named contig.  The second return value is
// false if the contig isn't present.
func (d *Dict) Len(refName string) (PosType, bool) {
	id, ok := d.ids[refName]
	if !ok {
		return 0, false
	}
	return d.lengths[id], true
}

// NewSpan returns the span [start, end) on refName after checking that it is
// nonempty and lies within the contig.
func (d *Dict) NewSpan(refName string, start, end PosType) (Span, error) {
	length, ok := d.Len(refName)
	if !ok {
		return Span{}, errors.E(errors.Invalid, fmt.Sprintf("interval.Dict.NewSpan: unknown contig %s", refName))
	}
	if start < 0 || end > length || end <= start {
		return Span{}, errors.E(errors.Invalid, fmt.Sprintf("interval.Dict.NewSpan: [%d, %d) is not a valid span on %s (length %d)", start, end, refName, length))
	}
	return Span{RefName: refName, Start: start, End: end}, nil
}

// Clamp trims s to the bounds of its contig.  Unknown contigs are returned
// unchanged.
func (d *Dict) Clamp(s Span) Span {
	length, ok := d.Len(s.RefName)
	if !ok {
		return s
	}
	return ClampToLen(s, length)
}

// ClampToLen trims s to [0, length).
func ClampToLen(s Span, length PosType) Span {
	if s.Start < 0 {
		s.Start = 0
	}
	if s.End > length {
		s.End = length
	}
	return s
}
