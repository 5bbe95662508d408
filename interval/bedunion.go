package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// Invert causes the complement of the interval-union to be returned.  The
	// complement extends down to position -1 at the beginning of each
	// chromosome, and 2^31 - 1 (exclusive) at the end.  Only the chromosomes
	// mentioned in the input are included.  (A single empty interval qualifies
	// as a "mention".)
	Invert bool
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// BEDUnion is a collection of length-2N endpoint sequences, one per
// chromosome, where N is the number of (merged) intervals on that chromosome.
// See endpoint_index.go for the representation.
//
// BEDUnion satisfies the interval-set interface used to restrict active
// regions: Overlapping returns the pieces of the union that fall inside a
// span.
type BEDUnion struct {
	// nameMap is a chromosome-keyed map with disjoint-interval-set values.
	// Always initialized.
	nameMap map[string]([]PosType)
}

// Overlapping returns the intervals of the union that overlap span, each
// clipped to span, in increasing order.
func (u *BEDUnion) Overlapping(span Span) []Span {
	endpoints := u.nameMap[span.RefName]
	if endpoints == nil || span.Empty() {
		return nil
	}
	return overlappingEndpoints(nil, span.RefName, endpoints, span.Start, span.End)
}

// RefNames returns the names of the chromosomes mentioned by the union, in
// sorted order.
func (u *BEDUnion) RefNames() []string {
	names := make([]string, 0, len(u.nameMap))
	for name := range u.nameMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spans returns the merged intervals on refName.  Inverted unions report the
// complement intervals, clipped below at 0.
func (u *BEDUnion) Spans(refName string) []Span {
	endpoints := u.nameMap[refName]
	if endpoints == nil {
		return nil
	}
	return overlappingEndpoints(nil, refName, endpoints, 0, PosTypeMax)
}

func initBEDUnion() (bedUnion BEDUnion) {
	bedUnion.nameMap = make(map[string]([]PosType))
	return
}

// bedBuilder accumulates sorted intervals, merging touching/overlapping ones
// and dropping empty ones, and stores the endpoint sequence of each chromosome
// in the union when the chromosome changes.
type bedBuilder struct {
	u        BEDUnion
	invert   bool
	prevRef  string
	prevFrom PosType
	prevTo   PosType
	cur      []PosType
	nBases   int
}

func (b *bedBuilder) finishRef() {
	if b.prevRef == "" {
		return
	}
	if b.prevTo != -1 {
		b.cur = append(b.cur, b.prevFrom, b.prevTo)
	}
	if b.invert {
		b.cur = append(b.cur, PosTypeMax)
	}
	b.u.nameMap[b.prevRef] = b.cur
}

// add appends [start, end) on refName.  refName is copied when it starts a new
// chromosome, so the caller may pass a string backed by a reused buffer.
func (b *bedBuilder) add(refName string, start, end PosType) error {
	if start < 0 {
		return fmt.Errorf("negative start coordinate %d", start)
	}
	if end < start || end >= PosTypeMax {
		return fmt.Errorf("invalid coordinate pair [%d, %d)", start, end)
	}
	if refName != b.prevRef {
		b.finishRef()
		// Make a heap copy since this persists as a map key.
		b.prevRef = string([]byte(refName))
		if _, found := b.u.nameMap[b.prevRef]; found {
			return fmt.Errorf("unsorted input (split chromosome %v)", refName)
		}
		b.cur = []PosType{}
		if b.invert {
			b.cur = append(b.cur, -1)
		}
		if end == start {
			// Distinguish between 'mentioned' chromosomes without any covered
			// bases and unmentioned chromosomes.
			b.prevFrom, b.prevTo = -1, -1
		} else {
			b.prevFrom, b.prevTo = start, end
			b.nBases += int(end - start)
		}
		return nil
	}
	if end == start {
		return nil
	}
	if b.prevTo == -1 {
		b.prevFrom, b.prevTo = start, end
		b.nBases += int(end - start)
		return nil
	}
	if start > b.prevTo {
		b.cur = append(b.cur, b.prevFrom, b.prevTo)
		b.prevFrom, b.prevTo = start, end
		b.nBases += int(end - start)
		return nil
	}
	if start < b.prevFrom {
		return fmt.Errorf("unsorted input")
	}
	if end > b.prevTo {
		b.nBases += int(end - b.prevTo)
		b.prevTo = end
	}
	return nil
}

func (b *bedBuilder) finish() BEDUnion {
	b.finishRef()
	return b.u
}

func scanBEDUnion(scanner *bufio.Scanner, opts NewBEDOpts) (BEDUnion, error) {
	b := bedBuilder{u: initBEDUnion(), invert: opts.Invert}
	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		// scanner.Bytes() doesn't allocate; the gunsafe.BytesToString views
		// below must not outlive this iteration.
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || curLine[0] == '#' {
			continue
		}
		if nToken != 3 {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d has fewer tokens than expected", lineIdx)
		}
		if refTok := gunsafe.BytesToString(tokens[0]); refTok == "track" || refTok == "browser" {
			continue
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
		}
		start -= startSubtract
		if end >= PosTypeMax {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d: end coordinate %d out of range", lineIdx, end)
		}
		if err := b.add(gunsafe.BytesToString(tokens[0]), PosType(start), PosType(end)); err != nil {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return BEDUnion{}, err
	}
	log.Printf("BED loaded, %d base(s) covered.", b.nBases)
	return b.finish(), nil
}

// NewBEDUnion loads just the intervals from a sorted (by first coordinate)
// interval-BED, merging touching/overlapping intervals and eliminating empty
// ones in the process.  Blank lines, '#' comments, and track/browser lines are
// skipped.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (BEDUnion, error) {
	return scanBEDUnion(bufio.NewScanner(reader), opts)
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzipped files are decompressed transparently.
func NewBEDUnionFromPath(ctx context.Context, path string, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		err = errors.E(err, "open BED", path)
		return
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			err = errors.E(err, "gunzip BED", path)
			return
		}
	}
	if bedUnion, err = NewBEDUnion(reader, opts); err != nil {
		err = errors.E(errors.Invalid, err, path)
	}
	return
}

// NewBEDUnionFromSpans initializes a BEDUnion from spans sorted by start
// within each chromosome, with each chromosome's spans consecutive.
// opts.OneBasedInput is ignored, since Span is defined to be zero-based.
func NewBEDUnionFromSpans(spans []Span, opts NewBEDOpts) (BEDUnion, error) {
	b := bedBuilder{u: initBEDUnion(), invert: opts.Invert}
	for _, s := range spans {
		if err := b.add(s.RefName, s.Start, s.End); err != nil {
			return BEDUnion{}, errors.E(errors.Invalid, fmt.Sprintf("interval.NewBEDUnionFromSpans: %v", err))
		}
	}
	return b.finish(), nil
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a 0-based half-open span.  The span [0, PosTypeMax - 1) is
// returned if there is no positional restriction; use Dict.Clamp to trim it
// to the contig.
func ParseRegionString(region string) (result Span, err error) {
	if len(region) == 0 {
		err = errors.E(errors.Invalid, "interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result = Span{RefName: region, Start: 0, End: PosTypeMax - 1}
		return
	}
	if colonPos == 0 {
		err = errors.E(errors.Invalid, "interval.ParseRegionString: empty contig ID")
		return
	}
	result.RefName = region[:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			err = errors.E(errors.Invalid, err, "interval.ParseRegionString:", region)
			return
		}
		if pos1 <= 0 {
			err = errors.E(errors.Invalid, fmt.Sprintf("interval.ParseRegionString: position %v in region string out of range", rangeStr))
			return
		}
		result.Start = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1, err := strconv.Atoi(rangeStr[:dashPos])
	if err != nil {
		err = errors.E(errors.Invalid, err, "interval.ParseRegionString:", region)
		return
	}
	if start1 <= 0 {
		err = errors.E(errors.Invalid, fmt.Sprintf("interval.ParseRegionString: position %v in region string out of range", rangeStr[:dashPos]))
		return
	}
	end, err := strconv.Atoi(rangeStr[dashPos+1:])
	if err != nil {
		err = errors.E(errors.Invalid, err, "interval.ParseRegionString:", region)
		return
	}
	// end == start1 - 1 would be an empty region; reject it along with
	// anything that can't be an endpoint.
	if end < start1 || end >= PosTypeMax {
		err = errors.E(errors.Invalid, fmt.Sprintf("interval.ParseRegionString: invalid range string %v", rangeStr))
		return
	}
	result.Start = PosType(start1 - 1)
	result.End = PosType(end)
	return
}
