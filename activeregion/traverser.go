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

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bioengine/interval"
	"github.com/grailbio/hts/sam"
)

// locus is a position on the contig with the given dictionary ID.
type locus struct {
	refID int
	pos   interval.PosType
}

func (l locus) before(o locus) bool {
	return l.refID < o.refID || (l.refID == o.refID && l.pos < o.pos)
}

// liveRead is a read that may still be assigned to a region.  The live set is
// ordered by (refID, end) so that reads no region can reach any more form a
// prefix of it; seq breaks ties in arrival order.
type liveRead struct {
	refID int
	end   interval.PosType
	seq   int64
	rec   *sam.Record
}

// Compare implements llrb.Comparable.
func (r *liveRead) Compare(c llrb.Comparable) int {
	r2 := c.(*liveRead)
	if r.refID != r2.refID {
		return r.refID - r2.refID
	}
	if r.end != r2.end {
		if r.end < r2.end {
			return -1
		}
		return 1
	}
	switch {
	case r.seq < r2.seq:
		return -1
	case r.seq > r2.seq:
		return 1
	}
	return 0
}

// Traverser drives a Profile over a stream of coordinate-sorted states and,
// optionally, a stream of coordinate-sorted reads.  Each region popped from
// the profile is held until no read that could overlap it remains unseen,
// receives the overlapping reads, and is then passed to the emit callback in
// order.
type Traverser struct {
	dict      *interval.Dict
	opts      Opts
	profile   *Profile
	withReads bool
	emit      func(*Region) error

	queue []*Region
	live  llrb.Tree
	seq   int64

	// horizon is a lower bound on the locus of any state still to come.
	hasHorizon   bool
	horizon      locus
	statesClosed bool

	hasLastRead bool
	lastReadID  int
	lastRead    interval.Span

	stateTrack  *IGVWriter
	regionTrack *IGVWriter

	nStates, nReads, nRegions int
}

// NewTraverser creates a Traverser.  If withReads is false, AddRead must not
// be called and regions are emitted as soon as they are popped.  restrict may
// be nil.
func NewTraverser(dict *interval.Dict, opts Opts, restrict IntervalSet, withReads bool, emit func(*Region) error) (*Traverser, error) {
	if emit == nil {
		return nil, errors.E(errors.Precondition, "activeregion.NewTraverser: nil emit callback")
	}
	profile, err := NewProfileFromOpts(dict, opts, restrict)
	if err != nil {
		return nil, err
	}
	return &Traverser{
		dict:      dict,
		opts:      opts,
		profile:   profile,
		withReads: withReads,
		emit:      emit,
	}, nil
}

// SetIGVWriters sets the (optional) tracks that receive the supporting states
// and the bounds of every emitted region.
func (t *Traverser) SetIGVWriters(states, regions *IGVWriter) {
	t.stateTrack = states
	t.regionTrack = regions
}

// AddState adds the next state.  States must be sorted by contig (in
// dictionary order) and then by position.  A state that is on another contig
// than the previous one, or not adjacent to it, first forces all buffered
// positions into regions.
func (t *Traverser) AddState(s State) error {
	if t.statesClosed {
		return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Traverser.AddState: state %v added after CloseStates", s))
	}
	l := locus{t.dict.ID(s.RefName), s.Pos}
	if l.refID >= 0 && t.hasHorizon && l.before(t.horizon) {
		return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Traverser.AddState: state %v is out of order; states must be coordinate-sorted", s))
	}
	if span, ok := t.profile.Span(); ok && (s.RefName != span.RefName || s.Pos != span.End) {
		if err := t.popRegions(true); err != nil {
			return err
		}
	}
	if err := t.profile.Add(s); err != nil {
		return err
	}
	t.nStates++
	t.hasHorizon = true
	t.horizon = locus{l.refID, s.Pos + 1}
	if err := t.popRegions(false); err != nil {
		return err
	}
	return t.update(false)
}

// Advance declares that no state still to come is before refName:pos.  It
// closes the buffered stretch of states if the next one can't extend it, and
// lets reads that no later region can reach be dropped early.
func (t *Traverser) Advance(refName string, pos interval.PosType) error {
	l := locus{t.dict.ID(refName), pos}
	if l.refID < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("activeregion.Traverser.Advance: unknown contig %s", refName))
	}
	if t.hasHorizon && l.before(t.horizon) {
		return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Traverser.Advance: %s:%d is before the last state", refName, pos+1))
	}
	if span, ok := t.profile.Span(); ok && (refName != span.RefName || pos != span.End) {
		if err := t.popRegions(true); err != nil {
			return err
		}
	}
	t.hasHorizon = true
	t.horizon = l
	return t.update(false)
}

// CloseStates declares that no more states will be added.  All buffered
// positions are converted into regions; reads may still be added.
func (t *Traverser) CloseStates() error {
	if t.statesClosed {
		return nil
	}
	t.statesClosed = true
	if err := t.popRegions(true); err != nil {
		return err
	}
	return t.update(false)
}

// AddRead adds the next read.  Reads must be sorted by contig (in dictionary
// order) and then by alignment start.  Unmapped reads are ignored.
func (t *Traverser) AddRead(rec *sam.Record) error {
	if !t.withReads {
		return errors.E(errors.Precondition, "activeregion.Traverser.AddRead: traverser was created without reads")
	}
	if rec.Ref == nil || rec.Pos < 0 || rec.Flags&sam.Unmapped != 0 {
		return nil
	}
	id := t.dict.ID(rec.Ref.Name())
	if id < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("activeregion.Traverser.AddRead: read %s is on unknown contig %s", rec.Name, rec.Ref.Name()))
	}
	span := readSpan(rec)
	if t.hasLastRead && (id < t.lastReadID || (id == t.lastReadID && span.Start < t.lastRead.Start)) {
		return errors.E(errors.Precondition, fmt.Sprintf("activeregion.Traverser.AddRead: read %s at %v follows %v; reads must be coordinate-sorted", rec.Name, span, t.lastRead))
	}
	t.hasLastRead = true
	t.lastReadID = id
	t.lastRead = span
	t.seq++
	t.live.Insert(&liveRead{refID: id, end: span.End, seq: t.seq, rec: rec})
	t.nReads++
	return t.update(false)
}

// LiveReads returns the number of reads held for regions not yet emitted.
func (t *Traverser) LiveReads() int {
	return t.live.Len()
}

// Flush forces all buffered positions into regions and emits every pending
// region with the reads seen so far.  It is called at the end of the input.
func (t *Traverser) Flush() error {
	if err := t.popRegions(true); err != nil {
		return err
	}
	if err := t.drain(true); err != nil {
		return err
	}
	t.live = llrb.Tree{}
	log.Printf("activeregion: %d states, %d reads, %d regions", t.nStates, t.nReads, t.nRegions)
	return nil
}

func (t *Traverser) popRegions(force bool) error {
	regions, err := t.profile.PopReadyRegions(t.opts.Extension, t.opts.MinRegionSize, t.opts.MaxRegionSize, force)
	t.queue = append(t.queue, regions...)
	return err
}

// isReady returns whether no read that could overlap r's extended span is
// still to come.
func (t *Traverser) isReady(r *Region) bool {
	if !t.withReads {
		return true
	}
	if !t.hasLastRead {
		return false
	}
	id := t.dict.ID(r.Span().RefName)
	if id != t.lastReadID {
		return t.lastReadID > id
	}
	return r.ExtendedSpan().End <= t.lastRead.Start
}

// update emits the regions that are ready and drops the reads that can no
// longer be assigned.
func (t *Traverser) update(flush bool) error {
	if err := t.drain(flush); err != nil {
		return err
	}
	t.prune()
	return nil
}

// nextRegionStart returns a lower bound on the start of any region not yet
// emitted.  It returns false if nothing bounds it yet.
func (t *Traverser) nextRegionStart() (locus, bool) {
	if len(t.queue) > 0 {
		span := t.queue[0].Span()
		return locus{t.dict.ID(span.RefName), span.Start}, true
	}
	if span, ok := t.profile.Span(); ok {
		return locus{t.dict.ID(span.RefName), span.Start}, true
	}
	if t.statesClosed {
		return locus{refID: t.dict.NRef()}, true
	}
	return t.horizon, t.hasHorizon
}

// prune drops the live reads that end before the extended span of any region
// still to come can start.
func (t *Traverser) prune() {
	next, ok := t.nextRegionStart()
	if !ok {
		return
	}
	for t.live.Len() > 0 {
		r := t.live.Min().(*liveRead)
		if r.refID > next.refID || (r.refID == next.refID && int64(r.end)+int64(t.opts.Extension) > int64(next.pos)) {
			return
		}
		t.live.DeleteMin()
	}
}

func (t *Traverser) drain(flush bool) error {
	for len(t.queue) > 0 {
		r := t.queue[0]
		if !flush && !t.isReady(r) {
			break
		}
		t.queue[0] = nil
		t.queue = t.queue[1:]
		if err := t.finalize(r); err != nil {
			return err
		}
	}
	return nil
}

// finalize assigns the live reads to r and emits it.  Reads overlapping the
// core span are retired unless opts.NonPrimaryReads is set.
func (t *Traverser) finalize(r *Region) error {
	span, ext := r.Span(), r.ExtendedSpan()
	id := t.dict.ID(span.RefName)
	var overlapping []*liveRead
	t.live.DoRange(func(c llrb.Comparable) bool {
		if lr := c.(*liveRead); lr.rec.Pos < int(ext.End) {
			overlapping = append(overlapping, lr)
		}
		return false
	}, &liveRead{refID: id, end: ext.Start + 1}, &liveRead{refID: id + 1})
	sort.Slice(overlapping, func(i, j int) bool { return overlapping[i].seq < overlapping[j].seq })
	for _, lr := range overlapping {
		switch {
		case readSpan(lr.rec).Overlaps(span):
			if err := r.Add(lr.rec); err != nil {
				return err
			}
			if !t.opts.NonPrimaryReads {
				t.live.Delete(lr)
			}
		case t.opts.ExtendedReads:
			if err := r.Add(lr.rec); err != nil {
				return err
			}
		}
	}
	r.SetFinalized(true)

	if t.stateTrack != nil {
		if err := t.stateTrack.WriteStates(r.States()); err != nil {
			return err
		}
	}
	if t.regionTrack != nil {
		if err := t.regionTrack.WriteRegion(r); err != nil {
			return err
		}
	}
	t.nRegions++
	return t.emit(r)
}
