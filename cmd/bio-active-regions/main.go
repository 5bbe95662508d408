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
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bioengine/activeregion"
)

var (
	bamPath     = flag.String("bam", "", "Coordinate-sorted BAM whose reads are assigned to regions")
	refPath     = flag.String("ref", "", "Reference FASTA; its .fai is used when present")
	bedPath     = flag.String("bed", "", "Restrict regions to the intervals in this BED file; at most one of -bed and -region")
	region      = flag.String("region", "", "Restrict regions to <contig>:<1-based first pos>-<last pos>, <contig>:<pos>, or <contig>")
	bedOneBased = flag.Bool("bed-one-based", false, "Read -bed as one-based, inclusive intervals")
	exclude     = flag.Bool("exclude", false, "Keep regions outside the -bed intervals or -region instead of inside them")
	igvPrefix   = flag.String("igv-prefix", "", "If set, write IGV tracks of the states and the regions to <prefix>.states.igv and <prefix>.regions.igv")
	bgzip       = flag.Bool("bgzip", false, "bgzip the region output")
	emitRef     = flag.Bool("emit-ref", false, "Add a REF column with the reference bases of each padded region; requires -ref")
	refPadding  = flag.Int("ref-padding", 0, "Extra reference bases to emit on each side of a region")

	threshold      = flag.Float64("threshold", activeregion.DefaultOpts.ActiveProbThreshold, "Probability above which a position is active")
	maxPropagation = flag.Int("max-prob-propagation", activeregion.DefaultOpts.MaxProbPropagationDistance, "Upper bound on how far soft-clip evidence is spread")
	extension      = flag.Int("extension", activeregion.DefaultOpts.Extension, "Padding added on both sides of every region")
	minRegionSize  = flag.Int("min-region-size", activeregion.DefaultOpts.MinRegionSize, "Minimum size of an active region cut at a probability minimum")
	maxRegionSize  = flag.Int("max-region-size", activeregion.DefaultOpts.MaxRegionSize, "Maximum size of a region")
	bandPass       = flag.Bool("band-pass", activeregion.DefaultOpts.BandPass, "Smooth the probabilities with a Gaussian kernel")
	sigma          = flag.Float64("sigma", activeregion.DefaultOpts.Sigma, "Standard deviation of the band-pass kernel")
	maxFilterSize  = flag.Int("max-filter-size", activeregion.DefaultOpts.MaxFilterSize, "Radius (or its upper bound, with -adaptive-filter) of the band-pass kernel")
	adaptiveFilter = flag.Bool("adaptive-filter", activeregion.DefaultOpts.AdaptiveFilterSize, "Trim the band-pass kernel to its significant taps")
	nonPrimary     = flag.Bool("non-primary-reads", activeregion.DefaultOpts.NonPrimaryReads, "Assign a read to every region it overlaps, not just the first")
	extendedReads  = flag.Bool("extended-reads", activeregion.DefaultOpts.ExtendedReads, "Assign reads that only overlap a region's padding")
)

func usage() {
	fmt.Printf("Usage: %s [OPTIONS] statespath outpath\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})

	if flag.NArg() != 2 {
		log.Fatalf("Expected statespath and outpath, got: '%s'", strings.Join(flag.Args(), " "))
	}
	opts := activeregion.RunOpts{
		Opts: activeregion.Opts{
			ActiveProbThreshold:        *threshold,
			MaxProbPropagationDistance: *maxPropagation,
			Extension:                  *extension,
			MinRegionSize:              *minRegionSize,
			MaxRegionSize:              *maxRegionSize,
			BandPass:                   *bandPass,
			Sigma:                      *sigma,
			MaxFilterSize:              *maxFilterSize,
			AdaptiveFilterSize:         *adaptiveFilter,
			NonPrimaryReads:            *nonPrimary,
			ExtendedReads:              *extendedReads,
		},
		BAMPath:     *bamPath,
		RefPath:     *refPath,
		BEDPath:     *bedPath,
		Region:      *region,
		BEDOneBased: *bedOneBased,
		Exclude:     *exclude,
		IGVPrefix:   *igvPrefix,
		BGZip:       *bgzip,
		EmitRef:     *emitRef,
		RefPadding:  *refPadding,
	}
	ctx := vcontext.Background()
	if err := activeregion.Run(ctx, flag.Arg(0), flag.Arg(1), opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
