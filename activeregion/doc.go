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

// Package activeregion partitions a per-base "is this locus interesting"
// probability signal into active and inactive genomic regions, and gathers
// the reads that fall into each region.
//
// The pieces fit together as follows:
//
//   - A caller computes one State per reference position, in increasing
//     position order, and feeds it to Profile.Add.
//   - Profile runs each State through an Expander.  SoftClipExpander spreads
//     the evidence of high-quality soft clips to neighboring positions, and
//     BandPassFilter smooths the signal with a Gaussian kernel so that
//     single-base noise does not fragment regions.
//   - Profile.PopReadyRegions cuts the buffered signal into Regions once no
//     future State can change the decision, optionally splitting them at the
//     boundaries of an interval set.
//   - Region holds the reads overlapping its extended span; Trim and
//     SplitAndTrimToIntervals derive smaller regions with hard-clipped reads.
//   - Traverser ties these together for a sorted stream of states and reads.
//
// None of the types in this package are safe for concurrent use.
package activeregion
