// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Suffixes of the files that make up an index.
const (
	BWTSuffix = ".bwt"
	SASuffix  = ".sa"
	ANNSuffix = ".ann"
	AMBSuffix = ".amb"
)

func writeFile(ctx context.Context, path string, write func(io.Writer) error) (err error) {
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := bufio.NewWriter(out.Writer(ctx))
	if err = write(w); err != nil {
		return errors.E(err, "write", path)
	}
	if err = w.Flush(); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}

func readFile(ctx context.Context, path string, read func(io.Reader) error) (err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if err = read(bufio.NewReader(in.Reader(ctx))); err != nil {
		return errors.E(err, "read", path)
	}
	return nil
}

// WriteIndexFiles writes idx and ann to prefix+".bwt", ".sa", ".ann", and
// ".amb".  prefix may be a local path or an s3:// URL.
func WriteIndexFiles(ctx context.Context, prefix string, idx *Index, ann *Annotation) error {
	if ann.Len() != idx.BWT.Len() {
		return errors.E(errors.Precondition, "bwt.WriteIndexFiles: annotation and index lengths differ", prefix)
	}
	if err := writeFile(ctx, prefix+BWTSuffix, func(w io.Writer) error { return WriteBWT(w, idx.BWT) }); err != nil {
		return err
	}
	if err := writeFile(ctx, prefix+SASuffix, func(w io.Writer) error { return WriteSuffixArray(w, idx.SA) }); err != nil {
		return err
	}
	if err := writeFile(ctx, prefix+ANNSuffix, func(w io.Writer) error { return WriteANN(w, ann) }); err != nil {
		return err
	}
	if err := writeFile(ctx, prefix+AMBSuffix, func(w io.Writer) error { return WriteAMB(w, ann) }); err != nil {
		return err
	}
	log.Debug.Printf("bwt: wrote index %s", prefix)
	return nil
}

// ReadIndexFiles reads the index and annotation written by WriteIndexFiles.
func ReadIndexFiles(ctx context.Context, prefix string) (*Index, *Annotation, error) {
	var (
		b   *BWT
		sa  *SuffixArray
		ann *Annotation
	)
	err := readFile(ctx, prefix+BWTSuffix, func(r io.Reader) (err error) {
		b, err = ReadBWT(r)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	err = readFile(ctx, prefix+SASuffix, func(r io.Reader) (err error) {
		sa, err = ReadSuffixArray(r, b)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	err = readFile(ctx, prefix+ANNSuffix, func(r io.Reader) (err error) {
		ann, err = ReadANN(r)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	idx, err := NewIndex(b, sa)
	if err != nil {
		return nil, nil, errors.E(err, prefix)
	}
	if ann.Len() != b.Len() {
		return nil, nil, errors.E(errors.Integrity, "bwt.ReadIndexFiles: annotation and index lengths differ", prefix)
	}
	return idx, ann, nil
}
