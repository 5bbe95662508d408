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
	"github.com/grailbio/bioengine/interval"
)

// Kind describes what kind of evidence a State carries in addition to its
// probability.
type Kind uint8

const (
	// KindNone is a plain probability.
	KindNone Kind = iota
	// KindHighQualitySoftClips marks a position where reads carry
	// high-quality soft-clipped bases.  Soft-clipped bases are not part of the
	// pileup, so the evidence is spread over State.SoftClips neighboring
	// positions on each side.
	KindHighQualitySoftClips
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindHighQualitySoftClips:
		return "hq-soft-clips"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// State is the activity probability at one reference position.
type State struct {
	RefName string
	// Pos is 0-based.
	Pos  interval.PosType
	Prob float64
	Kind Kind
	// SoftClips is the (average) number of high-quality soft-clipped bases;
	// only meaningful for KindHighQualitySoftClips.
	SoftClips float64
}

// Span returns the 1bp span covered by the state.
func (s State) Span() interval.Span {
	return interval.Span{RefName: s.RefName, Start: s.Pos, End: s.Pos + 1}
}

func (s State) String() string {
	if s.Kind == KindNone {
		return fmt.Sprintf("%s:%d=%.5f", s.RefName, s.Pos+1, s.Prob)
	}
	return fmt.Sprintf("%s:%d=%.5f(%v %.1f)", s.RefName, s.Pos+1, s.Prob, s.Kind, s.SoftClips)
}

func (s State) validate() error {
	if math.IsNaN(s.Prob) || s.Prob < 0 || s.Prob > 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("state %v: probability must be in [0, 1]", s))
	}
	switch s.Kind {
	case KindNone:
	case KindHighQualitySoftClips:
		if math.IsNaN(s.SoftClips) || s.SoftClips < 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("state %v: soft clip count must be >= 0", s))
		}
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("state %v: unknown kind", s))
	}
	return nil
}
