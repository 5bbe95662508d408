package interval

import (
	"math"
	"sort"
)

// An interval-union is represented as an []PosType containing the sorted
// sequence of interval endpoints.  For example, given the intervals
//   [5, 15)
//   [7, 17)
//   [20, 25)
// the interval-union is
//   [5, 17) U [20, 25)
// and the sorted sequence of endpoints is
//   {5, 17, 20, 25}.
// Even indexes hold interval starts and odd indexes hold interval ends, so the
// parity of a search result tells whether a position is inside an interval.

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come, since that's what BAM is limited to.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// SearchPosTypes returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (this could be len(a)).  It's exactly the same
// as sort.SearchInts(), except for PosType.
func SearchPosTypes(a []PosType, x PosType) EndpointIndex {
	return EndpointIndex(sort.Search(len(a), func(i int) bool { return a[i] >= x }))
}

// EndpointIndex is intended to represent the result of
// SearchPosTypes(endpoints, pos+1).
// NOTE THE "+1"!  This is necessary to get SearchPosTypes to line up with our
// usual left-closed right-open intervals.
type EndpointIndex uint32

// NewEndpointIndex returns an EndpointIndex initialized to
// SearchPosTypes(endpoints, pos+1).
func NewEndpointIndex(pos PosType, endpoints []PosType) EndpointIndex {
	return SearchPosTypes(endpoints, pos+1)
}

// Contained returns whether we're inside an interval.
func (ei EndpointIndex) Contained() bool {
	return ei&1 != 0
}

// Finished returns whether we're past all the intervals.
func (ei EndpointIndex) Finished(endpoints []PosType) bool {
	return ei >= EndpointIndex(len(endpoints))
}

// Begin returns:
// - the index for the beginning of the current interval, if we're inside an
//   interval
// - otherwise, the index for the beginning of the next interval
func (ei EndpointIndex) Begin() EndpointIndex {
	return ei & (^EndpointIndex(1))
}

// overlappingEndpoints appends to dst the pieces of the interval-union
// represented by endpoints that intersect [start, end), clipped to
// [start, end).
func overlappingEndpoints(dst []Span, refName string, endpoints []PosType, start, end PosType) []Span {
	for idx := NewEndpointIndex(start, endpoints).Begin(); !idx.Finished(endpoints); idx += 2 {
		ivStart, ivEnd := endpoints[idx], endpoints[idx+1]
		if ivStart >= end {
			break
		}
		if ivStart < start {
			ivStart = start
		}
		if ivEnd > end {
			ivEnd = end
		}
		if ivStart < ivEnd {
			dst = append(dst, Span{RefName: refName, Start: ivStart, End: ivEnd})
		}
	}
	return dst
}
