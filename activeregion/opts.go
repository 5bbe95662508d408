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
)

// Opts holds the knobs of the active-region engine.
type Opts struct {
	// ActiveProbThreshold is the probability above which a position is
	// considered active.
	ActiveProbThreshold float64
	// MaxProbPropagationDistance bounds how far (in bases) the evidence at one
	// position may be spread to its neighbors by soft-clip expansion.
	MaxProbPropagationDistance int
	// Extension is the padding added on both sides of every region.
	Extension int
	// MinRegionSize and MaxRegionSize bound the size of active regions cut at
	// a local probability minimum.
	MinRegionSize int
	MaxRegionSize int

	// BandPass enables Gaussian smoothing of the profile.
	BandPass bool
	// Sigma is the standard deviation of the band-pass kernel.
	Sigma float64
	// MaxFilterSize is the kernel radius, or its upper bound when
	// AdaptiveFilterSize is set.
	MaxFilterSize int
	// AdaptiveFilterSize trims the kernel to the taps carrying at least
	// MinProbToKeepInFilter weight.
	AdaptiveFilterSize bool

	// NonPrimaryReads lets a Traverser hand a read to every region whose core
	// span it overlaps, instead of only the first.
	NonPrimaryReads bool
	// ExtendedReads lets a Traverser add reads that overlap only the
	// extension of a region.
	ExtendedReads bool
}

// DefaultOpts are the settings used by bio-active-regions unless overridden.
var DefaultOpts = Opts{
	ActiveProbThreshold:        0.002,
	MaxProbPropagationDistance: 50,
	Extension:                  100,
	MinRegionSize:              50,
	MaxRegionSize:              300,
	BandPass:                   true,
	Sigma:                      DefaultSigma,
	MaxFilterSize:              MaxFilterSize,
	AdaptiveFilterSize:         true,
	NonPrimaryReads:            false,
	ExtendedReads:              true,
}

// Validate checks the numeric preconditions of the options.
func (o *Opts) Validate() error {
	if math.IsNaN(o.ActiveProbThreshold) || o.ActiveProbThreshold < 0 || o.ActiveProbThreshold > 1 {
		return errors.E(errors.Precondition, fmt.Sprintf("active probability threshold must be in [0, 1], got %v", o.ActiveProbThreshold))
	}
	if o.MaxProbPropagationDistance < 0 {
		return errors.E(errors.Precondition, fmt.Sprintf("max probability propagation distance must be >= 0, got %d", o.MaxProbPropagationDistance))
	}
	if err := checkRegionSizes(o.Extension, o.MinRegionSize, o.MaxRegionSize); err != nil {
		return err
	}
	if o.BandPass {
		if err := checkFilterParams(o.MaxFilterSize, o.Sigma); err != nil {
			return err
		}
	}
	return nil
}

func checkRegionSizes(extension, minRegionSize, maxRegionSize int) error {
	if extension < 0 {
		return errors.E(errors.Precondition, fmt.Sprintf("extension must be >= 0, got %d", extension))
	}
	if minRegionSize < 1 {
		return errors.E(errors.Precondition, fmt.Sprintf("min region size must be >= 1, got %d", minRegionSize))
	}
	if maxRegionSize < 1 {
		return errors.E(errors.Precondition, fmt.Sprintf("max region size must be >= 1, got %d", maxRegionSize))
	}
	if minRegionSize > maxRegionSize {
		return errors.E(errors.Precondition, fmt.Sprintf("min region size %d exceeds max region size %d", minRegionSize, maxRegionSize))
	}
	return nil
}
