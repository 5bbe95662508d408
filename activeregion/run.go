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
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bioengine/encoding/fasta"
	"github.com/grailbio/bioengine/interval"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// RunOpts configures Run.
type RunOpts struct {
	Opts

	// BAMPath is an optional coordinate-sorted BAM whose reads are assigned
	// to the regions.  Its header also supplies the contig lengths.
	BAMPath string
	// RefPath is an optional FASTA file.  If RefPath+".fai" exists, the
	// FASTA is read through the index.  Without BAMPath, the contig lengths
	// come from here.
	RefPath string
	// BEDPath and Region restrict the output to a set of intervals.  At most
	// one may be set.
	BEDPath string
	Region  string
	// BEDOneBased reads BEDPath as one-based, inclusive intervals.
	BEDOneBased bool
	// Exclude inverts the restriction: regions are kept outside the BED
	// intervals (or the region) instead of inside them.  Contigs the BED file
	// doesn't mention are dropped entirely.
	Exclude bool
	// IGVPrefix, if set, makes Run write the supporting states to
	// IGVPrefix+".states.igv" and the region bounds to IGVPrefix+".regions.igv".
	IGVPrefix string
	// BGZip compresses the region output.
	BGZip bool
	// EmitRef adds each region's reference bases (padded by RefPadding) to
	// the output.  It requires RefPath.
	EmitRef    bool
	RefPadding int
}

// DefaultRunOpts are the defaults for RunOpts.
var DefaultRunOpts = RunOpts{Opts: DefaultOpts}

// openInput opens path for reading, gunzipping it if its name says so.
func openInput(ctx context.Context, path, what string) (io.Reader, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open "+what, path)
	}
	closer := func() error { return in.Close(ctx) }
	r := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			_ = in.Close(ctx)
			return nil, nil, errors.E(err, "gunzip "+what, path)
		}
		r = gz
		closer = func() error {
			err := gz.Close()
			if e := in.Close(ctx); e != nil && err == nil {
				err = e
			}
			return err
		}
	}
	return r, closer, nil
}

// openReference opens a FASTA file, through its .fai index when there is one.
// The returned function closes the underlying files.
func openReference(ctx context.Context, path string) (fasta.Fasta, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open reference", path)
	}
	idx, err := file.Open(ctx, path+".fai")
	if err != nil {
		if !errors.Is(errors.NotExist, err) {
			_ = in.Close(ctx)
			return nil, nil, errors.E(err, "open reference index", path+".fai")
		}
		log.Printf("activeregion: %s.fai not found, loading %s into memory", path, path)
		fa, err := fasta.New(in.Reader(ctx))
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
		if err != nil {
			return nil, nil, errors.E(err, "read reference", path)
		}
		return fa, func() error { return nil }, nil
	}
	fa, err := fasta.NewIndexed(in.Reader(ctx), idx.Reader(ctx))
	if e := idx.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		_ = in.Close(ctx)
		return nil, nil, errors.E(err, "read reference index", path+".fai")
	}
	return fa, func() error { return in.Close(ctx) }, nil
}

func dictFromFasta(fa fasta.Fasta) (*interval.Dict, error) {
	names := fa.SeqNames()
	lengths := make([]interval.PosType, len(names))
	for i, name := range names {
		n, err := fa.Len(name)
		if err != nil {
			return nil, err
		}
		if n > uint64(interval.PosTypeMax) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("sequence %s is too long: %d", name, n))
		}
		lengths[i] = interval.PosType(n)
	}
	return interval.NewDict(names, lengths)
}

func loadRestriction(ctx context.Context, dict *interval.Dict, opts RunOpts) (IntervalSet, error) {
	bedOpts := interval.NewBEDOpts{Invert: opts.Exclude, OneBasedInput: opts.BEDOneBased}
	var (
		bed interval.BEDUnion
		err error
	)
	switch {
	case opts.BEDPath != "" && opts.Region != "":
		return nil, errors.E(errors.Invalid, "only one of a BED path and a region may be given")
	case opts.BEDPath != "":
		if bed, err = interval.NewBEDUnionFromPath(ctx, opts.BEDPath, bedOpts); err != nil {
			return nil, err
		}
		for _, name := range bed.RefNames() {
			if _, ok := dict.Len(name); !ok {
				log.Error.Printf("activeregion: %s: contig %s is not in the reference, ignoring its intervals", opts.BEDPath, name)
			}
		}
	case opts.Region != "":
		span, err := interval.ParseRegionString(opts.Region)
		if err != nil {
			return nil, err
		}
		if _, ok := dict.Len(span.RefName); !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("region %s is on unknown contig %s", opts.Region, span.RefName))
		}
		if bed, err = interval.NewBEDUnionFromSpans([]interval.Span{dict.Clamp(span)}, bedOpts); err != nil {
			return nil, err
		}
	default:
		if opts.Exclude || opts.BEDOneBased {
			return nil, errors.E(errors.Invalid, "excluding or one-based intervals need a BED path or a region")
		}
		return nil, nil
	}
	return &bed, nil
}

// createOutput creates path for writing, optionally bgzip-compressed.  The
// returned function flushes and closes it.
func createOutput(ctx context.Context, path string, compress bool) (io.Writer, func() error, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "create", path)
	}
	if !compress {
		return out.Writer(ctx), func() error { return out.Close(ctx) }, nil
	}
	bw := bgzf.NewWriter(out.Writer(ctx), runtime.NumCPU())
	return bw, func() error {
		err := bw.Close()
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
		return err
	}, nil
}

// stateSource and readSource buffer the next item of each input so that Run
// can feed them to the Traverser in coordinate order.
type stateSource struct {
	r    *StateReader
	next State
	done bool
}

func (s *stateSource) advance() error {
	var err error
	if s.next, err = s.r.Read(); err == io.EOF {
		s.done = true
		return nil
	}
	return err
}

type readSource struct {
	r    *bam.Reader
	next *sam.Record
	done bool
}

func (s *readSource) advance() error {
	var err error
	if s.next, err = s.r.Read(); err == io.EOF {
		s.done = true
		return nil
	}
	return err
}

// readFirst returns whether rec sorts before (or at) state s.  Unmapped reads
// sort last.
func readFirst(dict *interval.Dict, rec *sam.Record, s State) bool {
	if rec.Ref == nil || rec.Pos < 0 {
		return false
	}
	readID, stateID := dict.ID(rec.Ref.Name()), dict.ID(s.RefName)
	if readID != stateID {
		return readID < stateID
	}
	return interval.PosType(rec.Pos) <= s.Pos
}

// Run reads the states in statesPath (and the reads in opts.BAMPath, if any),
// cuts them into regions, and writes one line per region to outPath.
func Run(ctx context.Context, statesPath, outPath string, opts RunOpts) (err error) {
	if err = opts.Validate(); err != nil {
		return err
	}
	if opts.EmitRef && opts.RefPath == "" {
		return errors.E(errors.Precondition, "emitting reference bases requires a reference")
	}
	if opts.RefPadding < 0 {
		return errors.E(errors.Precondition, fmt.Sprintf("reference padding must be >= 0, got %d", opts.RefPadding))
	}

	var (
		dict  *interval.Dict
		fa    fasta.Fasta
		reads *readSource
	)
	if opts.RefPath != "" {
		var closeRef func() error
		if fa, closeRef, err = openReference(ctx, opts.RefPath); err != nil {
			return err
		}
		defer func() {
			if e := closeRef(); e != nil && err == nil {
				err = e
			}
		}()
	}
	if opts.BAMPath != "" {
		in, e := file.Open(ctx, opts.BAMPath)
		if e != nil {
			return errors.E(e, "open BAM", opts.BAMPath)
		}
		defer file.CloseAndReport(ctx, in, &err)
		br, e := bam.NewReader(in.Reader(ctx), 1)
		if e != nil {
			return errors.E(e, "read BAM header", opts.BAMPath)
		}
		defer br.Close()
		reads = &readSource{r: br}
		if dict, err = interval.NewDictFromSAMHeader(br.Header()); err != nil {
			return err
		}
	} else if fa != nil {
		if dict, err = dictFromFasta(fa); err != nil {
			return err
		}
	} else {
		return errors.E(errors.Precondition, "contig lengths need either a BAM or a reference")
	}

	restrict, err := loadRestriction(ctx, dict, opts)
	if err != nil {
		return err
	}

	out, closeOut, err := createOutput(ctx, outPath, opts.BGZip)
	if err != nil {
		return err
	}
	defer func() {
		if e := closeOut(); e != nil && err == nil {
			err = errors.E(e, "close", outPath)
		}
	}()
	rw, err := NewRegionWriter(out, opts.EmitRef)
	if err != nil {
		return err
	}
	emit := func(r *Region) error {
		var ref string
		if opts.EmitRef {
			var e error
			if ref, e = r.Reference(fa, opts.RefPadding); e != nil {
				return e
			}
		}
		log.Debug.Printf("activeregion: %v", r)
		return rw.Write(r, ref)
	}
	tr, err := NewTraverser(dict, opts.Opts, restrict, reads != nil, emit)
	if err != nil {
		return err
	}

	if opts.IGVPrefix != "" {
		var igv [2]*IGVWriter
		for i, track := range []struct{ suffix, column string }{
			{".states.igv", "prob"},
			{".regions.igv", "region"},
		} {
			path := opts.IGVPrefix + track.suffix
			w, closeW, e := createOutput(ctx, path, false)
			if e != nil {
				return e
			}
			if igv[i], e = NewIGVWriter(w, track.column); e != nil {
				_ = closeW()
				return e
			}
			iw := igv[i]
			defer func() {
				e := iw.Flush()
				if e2 := closeW(); e2 != nil && e == nil {
					e = e2
				}
				if e != nil && err == nil {
					err = errors.E(e, "write", path)
				}
			}()
		}
		tr.SetIGVWriters(igv[0], igv[1])
	}

	sr, closeStates, err := openInput(ctx, statesPath, "states")
	if err != nil {
		return err
	}
	defer func() {
		if e := closeStates(); e != nil && err == nil {
			err = e
		}
	}()
	states := &stateSource{r: NewStateReader(sr)}
	if err = states.advance(); err != nil {
		return errors.E(err, statesPath)
	}
	if reads != nil {
		if err = reads.advance(); err != nil {
			return errors.E(err, opts.BAMPath)
		}
	}
	for !states.done || (reads != nil && !reads.done) {
		if reads != nil && !reads.done && (states.done || readFirst(dict, reads.next, states.next)) {
			// Let the traverser drop reads that no remaining state can reach.
			if states.done {
				err = tr.CloseStates()
			} else {
				err = tr.Advance(states.next.RefName, states.next.Pos)
			}
			if err != nil {
				return errors.E(err, statesPath)
			}
			if err = tr.AddRead(reads.next); err != nil {
				return errors.E(err, opts.BAMPath)
			}
			if err = reads.advance(); err != nil {
				return errors.E(err, opts.BAMPath)
			}
			continue
		}
		if err = tr.AddState(states.next); err != nil {
			return errors.E(err, statesPath)
		}
		if err = states.advance(); err != nil {
			return errors.E(err, statesPath)
		}
	}
	if err = tr.Flush(); err != nil {
		return err
	}
	return rw.Flush()
}
