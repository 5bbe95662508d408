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
	"context"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/bioengine/bwt"
	"github.com/grailbio/bioengine/encoding/fasta"
	"github.com/klauspost/compress/gzip"
)

// readFasta loads a (possibly gzipped) FASTA file into memory.
func readFasta(ctx context.Context, path string) (fa fasta.Fasta, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "open FASTA", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(r); err != nil {
			return nil, errors.E(err, "gunzip FASTA", path)
		}
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = errors.E(e, "gunzip FASTA", path)
			}
		}()
		r = gz
	}
	if fa, err = fasta.New(r); err != nil {
		return nil, errors.E(errors.Invalid, err, path)
	}
	return fa, nil
}

// writeFaiIndex writes faPath+".fai".
func writeFaiIndex(ctx context.Context, faPath string) (err error) {
	if fileio.DetermineType(faPath) == fileio.Gzip {
		return errors.E(errors.NotSupported, "can't write a .fai for a gzipped FASTA", faPath)
	}
	var in, out file.File
	if in, err = file.Open(ctx, faPath); err != nil {
		return errors.E(err, "open FASTA", faPath)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if out, err = file.Create(ctx, faPath+".fai"); err != nil {
		return errors.E(err, "create", faPath+".fai")
	}
	defer file.CloseAndReport(ctx, out, &err)
	return fasta.GenerateIndex(out.Writer(ctx), in.Reader(ctx))
}

func index(ctx context.Context, faPath, prefix string, opts bwt.IndexOpts, writeFai bool) error {
	fa, err := readFasta(ctx, faPath)
	if err != nil {
		return err
	}
	idx, ann, err := bwt.BuildFromFasta(fa, opts)
	if err != nil {
		return errors.E(err, faPath)
	}
	if err := bwt.WriteIndexFiles(ctx, prefix, idx, ann); err != nil {
		return err
	}
	if writeFai {
		return writeFaiIndex(ctx, faPath)
	}
	return nil
}

// hit is an occurrence of a pattern; pos is 0-based within contig.
type hit struct {
	contig bwt.Contig
	pos    int64
}

// findHits returns the occurrences of p that lie within a single contig, in
// reference order.
func findHits(idx *bwt.Index, ann *bwt.Annotation, p string) ([]hit, error) {
	offsets, err := idx.Locate([]byte(p))
	if err != nil {
		return nil, err
	}
	hits := make([]hit, 0, len(offsets))
	for _, off := range offsets {
		contig, pos, ok := ann.Resolve(off, int64(len(p)))
		if !ok {
			log.Debug.Printf("bio-bwt: %s at %d spans a contig boundary", p, off)
			continue
		}
		hits = append(hits, hit{contig, pos})
	}
	return hits, nil
}

func count(ctx context.Context, prefix string, patterns []string, out io.Writer) error {
	idx, ann, err := bwt.ReadIndexFiles(ctx, prefix)
	if err != nil {
		return err
	}
	w := tsv.NewWriter(out)
	w.WriteString("PATTERN\tCOUNT")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, p := range patterns {
		hits, err := findHits(idx, ann, p)
		if err != nil {
			return err
		}
		w.WriteString(p)
		w.WriteString(strconv.Itoa(len(hits)))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

func locate(ctx context.Context, prefix string, patterns []string, out io.Writer) error {
	idx, ann, err := bwt.ReadIndexFiles(ctx, prefix)
	if err != nil {
		return err
	}
	w := tsv.NewWriter(out)
	w.WriteString("PATTERN\tCONTIG\tPOS")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, p := range patterns {
		hits, err := findHits(idx, ann, p)
		if err != nil {
			return err
		}
		for _, h := range hits {
			w.WriteString(p)
			w.WriteString(h.contig.Name)
			w.WriteString(strconv.FormatInt(h.pos+1, 10))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
