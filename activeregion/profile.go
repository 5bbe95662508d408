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
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bioengine/circular"
	"github.com/grailbio/bioengine/interval"
)

// IntervalSet is a set of genomic intervals that regions can be restricted
// to.  *interval.BEDUnion implements it.
type IntervalSet interface {
	// Overlapping returns the set's intervals that overlap span, clipped to
	// span, in increasing order.
	Overlapping(span interval.Span) []interval.Span
}

// Profile accumulates per-position activity probabilities over a contiguous
// stretch of one contig and cuts them into Regions.
//
// States are added in increasing position order.  Each added state is run
// through the Profile's Expander, and the derived probabilities are summed
// into a buffer that starts at the first position not yet handed out in a
// Region.  The buffer may extend past the last added position, since an
// Expander can push probability mass forward.
type Profile struct {
	dict      *interval.Dict
	threshold float64
	expander  Expander
	restrict  IntervalSet

	probs circular.Deque
	// refName, contigLen, start and stop are meaningful only when
	// hasStart is set.  start is the position of probs[0]; stop is the last
	// position passed to Add.
	hasStart  bool
	refName   string
	contigLen interval.PosType
	start     interval.PosType
	stop      interval.PosType

	scratch []State
}

// NewProfile creates an empty profile.  States with probability >
// threshold are active.  If restrict is non-nil, popped regions are split at
// its interval boundaries and parts outside it are dropped.
func NewProfile(dict *interval.Dict, threshold float64, expander Expander, restrict IntervalSet) (*Profile, error) {
	if dict == nil {
		return nil, errors.E(errors.Precondition, "activeregion.NewProfile: nil contig dictionary")
	}
	if expander == nil {
		return nil, errors.E(errors.Precondition, "activeregion.NewProfile: nil expander")
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("activeregion.NewProfile: threshold must be in [0, 1], got %v", threshold))
	}
	return &Profile{
		dict:      dict,
		threshold: threshold,
		expander:  expander,
		restrict:  restrict,
	}, nil
}

// NewProfileFromOpts creates a profile whose expander is a SoftClipExpander,
// wrapped in a BandPassFilter when opts.BandPass is set.
func NewProfileFromOpts(dict *interval.Dict, opts Opts, restrict IntervalSet) (*Profile, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var expander Expander = SoftClipExpander{MaxDist: opts.MaxProbPropagationDistance}
	if opts.BandPass {
		bp, err := NewBandPassFilter(expander, opts.MaxFilterSize, opts.Sigma, opts.AdaptiveFilterSize)
		if err != nil {
			return nil, err
		}
		log.Debug.Printf("activeregion: band-pass filter size %d (sigma %v)", bp.FilterSize(), opts.Sigma)
		expander = bp
	}
	return NewProfile(dict, opts.ActiveProbThreshold, expander, restrict)
}

// Len returns the number of buffered positions.
func (p *Profile) Len() int {
	return p.probs.Len()
}

// IsEmpty returns true iff no positions are buffered.
func (p *Profile) IsEmpty() bool {
	return p.probs.Len() == 0
}

// Span returns the positions from the first buffered position through the
// last added one.  The second return value is false if the profile is empty.
func (p *Profile) Span() (interval.Span, bool) {
	if p.IsEmpty() {
		return interval.Span{}, false
	}
	return interval.Span{RefName: p.refName, Start: p.start, End: p.stop + 1}, true
}

// MaxPropagation returns the largest distance that the Profile's Expander can
// move probability mass.
func (p *Profile) MaxPropagation() int {
	return p.expander.MaxPropagation()
}

// Probabilities returns a copy of the buffered probabilities, starting at
// Span().Start.
func (p *Profile) Probabilities() []float64 {
	return p.probs.Slice(nil)
}

// Add adds the state of the position immediately after the last added one.
// The first state of an empty profile may be anywhere.  Add fails, leaving
// the profile unchanged, if the state is malformed, lies outside its contig,
// or is not adjacent to the previous state.
func (p *Profile) Add(s State) error {
	if err := s.validate(); err != nil {
		return err
	}
	contigLen, ok := p.dict.Len(s.RefName)
	if !ok {
		return errors.E(errors.Invalid, fmt.Sprintf("activeregion.Profile.Add: unknown contig in %v", s))
	}
	if s.Pos < 0 || s.Pos >= contigLen {
		return errors.E(errors.Invalid, fmt.Sprintf("activeregion.Profile.Add: %v is outside contig %s (length %d)", s, s.RefName, contigLen))
	}
	start := s.Pos
	if p.hasStart {
		if s.RefName != p.refName || s.Pos != p.stop+1 {
			return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Profile.Add: %v does not immediately follow %s:%d", s, p.refName, p.stop+1))
		}
		start = p.start
	}
	p.scratch = p.expander.Expand(p.scratch[:0], s, contigLen)

	// Check everything before touching the buffer.
	size := p.probs.Len()
	for _, d := range p.scratch {
		offset := int(d.Pos - start)
		if offset > size {
			return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Profile.Add: derived state %v is not contiguous with the profile (offset %d, size %d)", d, offset, size))
		}
		if offset == size {
			size++
		}
	}

	p.hasStart = true
	p.refName = s.RefName
	p.contigLen = contigLen
	p.start = start
	p.stop = s.Pos
	for _, d := range p.scratch {
		offset := int(d.Pos - start)
		switch {
		case offset < 0:
			// Mass pushed in front of the profile's start is dropped; those
			// positions have already been handed out in regions.
		case offset < p.probs.Len():
			p.probs.Add(offset, d.Prob)
		default:
			p.probs.PushBack(d.Prob)
		}
	}
	return nil
}

// PopReadyRegions removes and returns all regions at the front of the profile
// that can no longer change.  A region is ready when every position that
// could influence its boundary has been added; with force set, all buffered
// positions up to the last added one are converted, which is what callers
// do at the end of a contig or a processing interval.
//
// extension is the padding of the returned regions.  Active regions that
// reach maxRegionSize are cut at a local probability minimum at least
// minRegionSize bases from their start.
func (p *Profile) PopReadyRegions(extension, minRegionSize, maxRegionSize int, force bool) ([]*Region, error) {
	if err := checkRegionSizes(extension, minRegionSize, maxRegionSize); err != nil {
		return nil, err
	}
	var regions []*Region
	for {
		r, err := p.popNextReadyRegion(extension, minRegionSize, maxRegionSize, force)
		if err != nil {
			return regions, err
		}
		if r == nil {
			return regions, nil
		}
		if p.restrict == nil {
			regions = append(regions, r)
			continue
		}
		split, err := r.SplitAndTrimToIntervals(p.restrict)
		if err != nil {
			return regions, err
		}
		regions = append(regions, split...)
	}
}

func (p *Profile) popNextReadyRegion(extension, minRegionSize, maxRegionSize int, force bool) (*Region, error) {
	if p.probs.Len() == 0 {
		return nil, nil
	}
	if force {
		// Drop mass pushed past the last added position, so that no region
		// extends beyond what was actually traversed.
		p.probs.Truncate(int(p.stop-p.start) + 1)
	}
	active := p.probs.At(0) > p.threshold
	end := p.findEndOfRegion(active, minRegionSize, maxRegionSize, force)
	if end < 0 {
		return nil, nil
	}
	probs := p.probs.PopFront(make([]float64, 0, end+1), end+1)
	states := make([]State, len(probs))
	for i, prob := range probs {
		states[i] = State{RefName: p.refName, Pos: p.start + interval.PosType(i), Prob: prob}
	}
	span := interval.Span{RefName: p.refName, Start: p.start, End: p.start + interval.PosType(len(probs))}
	if p.probs.Len() == 0 {
		p.hasStart = false
	} else {
		p.start = span.End
	}
	log.Debug.Printf("activeregion: popped %v region %v", activeString(active), span)
	return NewRegion(span, p.contigLen, states, active, extension)
}

// findEndOfRegion returns the offset of the last position of the next region,
// or -1 if it can't be determined yet.
func (p *Profile) findEndOfRegion(active bool, minRegionSize, maxRegionSize int, force bool) int {
	if !force && p.probs.Len() < maxRegionSize+p.MaxPropagation() {
		// Positions near the end of the scan could still receive probability
		// mass from states not yet added.
		return -1
	}
	end := p.findFirstActivityBoundary(active, maxRegionSize)
	if active && end == maxRegionSize {
		end = p.findBestCutSite(end, minRegionSize)
	}
	return end - 1
}

// findFirstActivityBoundary returns the offset of the first position (at most
// maxRegionSize) whose classification differs from active.
func (p *Profile) findFirstActivityBoundary(active bool, maxRegionSize int) int {
	n := p.probs.Len()
	end := 0
	for end < n && end < maxRegionSize {
		if (p.probs.At(end) > p.threshold) != active {
			break
		}
		end++
	}
	return end
}

// findBestCutSite scans backward from end-1 to minRegionSize-1 for the local
// minimum with the smallest probability and returns the offset just past it.
// The comparison is strict, so among equal minima the one seen first (the
// rightmost) wins.  If there is no local minimum the region is cut at end.
func (p *Profile) findBestCutSite(end, minRegionSize int) int {
	minI := end - 1
	minP := math.MaxFloat64
	for i := minI; i >= minRegionSize-1; i-- {
		cur := p.probs.At(i)
		if cur < minP && p.isMinimum(i) {
			minP = cur
			minI = i
		}
	}
	return minI + 1
}

// isMinimum returns true if offset i is a local minimum: no larger than its
// right neighbor and strictly smaller than its left neighbor.  The first and
// last buffered positions are never minima.
func (p *Profile) isMinimum(i int) bool {
	if i == p.probs.Len()-1 || i < 1 {
		return false
	}
	cur := p.probs.At(i)
	return cur <= p.probs.At(i+1) && cur < p.probs.At(i-1)
}

func activeString(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
