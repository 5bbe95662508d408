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

import "github.com/grailbio/bioengine/interval"

// Expander turns one incoming State into the States that are folded into a
// Profile.  A Profile sums the probabilities of states landing on the same
// position, so derived states may overlap, but they must not leave holes:
// each derived state may land at most one position past the highest position
// covered so far, counting the incoming state's own position as covered.
type Expander interface {
	// Expand appends the states derived from s to dst and returns the result.
	// Derived positions are limited to [0, contigLen).
	Expand(dst []State, s State, contigLen interval.PosType) []State
	// MaxPropagation returns the largest distance between s.Pos and the
	// position of a state derived from it.
	MaxPropagation() int
}

// SoftClipExpander spreads the probability of a KindHighQualitySoftClips
// state to min(SoftClips, MaxDist) positions on each side.  Every derived
// state carries the full probability of the original; the evidence is
// replicated, not divided.  Other states pass through unchanged.
type SoftClipExpander struct {
	MaxDist int
}

// Expand implements Expander.
func (e SoftClipExpander) Expand(dst []State, s State, contigLen interval.PosType) []State {
	if s.Kind != KindHighQualitySoftClips {
		return append(dst, s)
	}
	n := int(s.SoftClips)
	if n > e.MaxDist {
		n = e.MaxDist
	}
	for i := -n; i <= n; i++ {
		pos := s.Pos + interval.PosType(i)
		if pos < 0 || pos >= contigLen {
			continue
		}
		dst = append(dst, State{RefName: s.RefName, Pos: pos, Prob: s.Prob})
	}
	return dst
}

// MaxPropagation implements Expander.
func (e SoftClipExpander) MaxPropagation() int {
	return e.MaxDist
}
