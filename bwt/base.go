// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Base is a 2-bit nucleotide code.  The numeric order matches the
// lexicographic order of the ASCII letters.
type Base uint8

const (
	BaseA Base = iota
	BaseC
	BaseG
	BaseT
	// NumBases is the size of the alphabet.
	NumBases = 4
)

const invalidBase = 0xff

var (
	baseChars = [NumBases]byte{'A', 'C', 'G', 'T'}
	// charToBase maps A/C/G/T (either case) to their codes and everything
	// else to invalidBase.
	charToBase [256]byte
)

func init() {
	for i := range charToBase {
		charToBase[i] = invalidBase
	}
	for b, c := range baseChars {
		charToBase[c] = byte(b)
		charToBase[c+'a'-'A'] = byte(b)
	}
}

// Char returns the upper-case letter of b.
func (b Base) Char() byte {
	return baseChars[b]
}

func (b Base) String() string {
	if b >= NumBases {
		return fmt.Sprintf("Base(%d)", uint8(b))
	}
	return string(baseChars[b])
}

// BaseFromChar returns the code of the letter c.  The second return value is
// false if c is not one of ACGTacgt.
func BaseFromChar(c byte) (Base, bool) {
	b := charToBase[c]
	return Base(b), b != invalidBase
}

// EncodeBases converts an ACGT sequence (either case) into base codes.  Any
// other character, including N, is rejected.
func EncodeBases(seq []byte) ([]Base, error) {
	out := make([]Base, len(seq))
	for i, c := range seq {
		b, ok := BaseFromChar(c)
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("bwt.EncodeBases: invalid base %q at offset %d", c, i))
		}
		out[i] = b
	}
	return out, nil
}
