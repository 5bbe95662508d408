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

const (
	// MaxFilterSize is the default band-pass kernel radius.
	MaxFilterSize = 50
	// DefaultSigma is the default standard deviation of the band-pass kernel.
	DefaultSigma = 17.0
	// MinProbToKeepInFilter is the smallest kernel weight kept when the
	// filter size is chosen adaptively.
	MinProbToKeepInFilter = 1e-5
)

func checkFilterParams(filterSize int, sigma float64) error {
	if filterSize < 0 {
		return errors.E(errors.Precondition, fmt.Sprintf("band-pass filter size must be >= 0, got %d", filterSize))
	}
	if math.IsNaN(sigma) || sigma <= 0 {
		return errors.E(errors.Precondition, fmt.Sprintf("band-pass sigma must be > 0, got %v", sigma))
	}
	return nil
}

// MakeKernel returns the 2*filterSize+1 taps of a Gaussian with the given
// sigma, centered on tap filterSize and normalized to sum to 1.
func MakeKernel(filterSize int, sigma float64) ([]float64, error) {
	if err := checkFilterParams(filterSize, sigma); err != nil {
		return nil, err
	}
	kernel := make([]float64, 2*filterSize+1)
	var sum float64
	for i := range kernel {
		d := float64(i-filterSize) / sigma
		kernel[i] = math.Exp(-0.5*d*d) / (sigma * math.Sqrt(2*math.Pi))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel, nil
}

// DetermineFilterSize returns the smallest radius r such that every tap of
// kernel within r of the center has weight >= minProb, i.e. the number of
// taps on each side of the center that are worth keeping.
func DetermineFilterSize(kernel []float64, minProb float64) int {
	middle := (len(kernel) - 1) / 2
	filterEnd := middle
	for filterEnd > 0 {
		if kernel[filterEnd-1] < minProb {
			break
		}
		filterEnd--
	}
	return middle - filterEnd
}

// BandPassFilter is an Expander that first runs an inner Expander and then
// convolves every derived state with a Gaussian kernel.  Each derived state of
// probability p > 0 at position x contributes p*kernel[k] to position
// x+k-filterSize.  Zero-probability states pass through unchanged, since
// convolving them adds nothing.
type BandPassFilter struct {
	inner      Expander
	kernel     []float64
	filterSize int
	scratch    []State
}

// NewBandPassFilter creates a BandPassFilter around inner.  If adaptive is
// set, the kernel radius is shrunk from maxFilterSize to
// DetermineFilterSize(kernel, MinProbToKeepInFilter).
func NewBandPassFilter(inner Expander, maxFilterSize int, sigma float64, adaptive bool) (*BandPassFilter, error) {
	kernel, err := MakeKernel(maxFilterSize, sigma)
	if err != nil {
		return nil, err
	}
	filterSize := maxFilterSize
	if adaptive {
		filterSize = DetermineFilterSize(kernel, MinProbToKeepInFilter)
		if kernel, err = MakeKernel(filterSize, sigma); err != nil {
			return nil, err
		}
	}
	return &BandPassFilter{
		inner:      inner,
		kernel:     kernel,
		filterSize: filterSize,
	}, nil
}

// FilterSize returns the kernel radius.
func (f *BandPassFilter) FilterSize() int {
	return f.filterSize
}

// Kernel returns the kernel taps.  The caller must not modify them.
func (f *BandPassFilter) Kernel() []float64 {
	return f.kernel
}

// Expand implements Expander.
func (f *BandPassFilter) Expand(dst []State, s State, contigLen interval.PosType) []State {
	f.scratch = f.inner.Expand(f.scratch[:0], s, contigLen)
	for _, sub := range f.scratch {
		if sub.Prob <= 0 {
			dst = append(dst, sub)
			continue
		}
		for k, w := range f.kernel {
			pos := sub.Pos + interval.PosType(k-f.filterSize)
			if pos < 0 || pos >= contigLen {
				continue
			}
			dst = append(dst, State{RefName: sub.RefName, Pos: pos, Prob: sub.Prob * w})
		}
	}
	return dst
}

// MaxPropagation implements Expander.
func (f *BandPassFilter) MaxPropagation() int {
	return f.inner.MaxPropagation() + f.filterSize
}
