package interval

import (
	"bytes"
	"io/ioutil"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const test1BED = `chr1	2488104	2488172
chr1	2489165	2489273
chr1	2489782	2489907
chr1	2490320	2490438
chr1	2491262	2491417
chr1	2492063	2492157
chr1	2493112	2493254
chr1	2494304	2494335
chr1	2494587	2494712
`

const test2BED = `# one-based, overlapping
chr1	2488104	2488172
chr1	2489165	2489273
chr1	2489782	2489907
chr2	2490320	2490438
chr2	2490400	2492157
chr2	2493112	2494254
chr2	2494587	2494712
`

func TestLoadSortedBEDIntervals(t *testing.T) {
	tests := []struct {
		data                  string
		invert, oneBasedInput bool
		want                  map[string][]PosType
	}{
		{test1BED,
			false,
			false,
			map[string]([]PosType){
				"chr1": []PosType{
					2488104, 2488172,
					2489165, 2489273,
					2489782, 2489907,
					2490320, 2490438,
					2491262, 2491417,
					2492063, 2492157,
					2493112, 2493254,
					2494304, 2494335,
					2494587, 2494712},
			},
		},
		{test2BED,
			true,
			true,
			map[string]([]PosType){
				"chr1": []PosType{
					-1,
					2488103, 2488172,
					2489164, 2489273,
					2489781, 2489907,
					math.MaxInt32},
				"chr2": []PosType{
					-1,
					2490319, 2492157,
					2493111, 2494254,
					2494586, 2494712,
					math.MaxInt32},
			},
		},
	}
	for _, tt := range tests {
		result, err := NewBEDUnion(strings.NewReader(tt.data), NewBEDOpts{
			Invert:        tt.invert,
			OneBasedInput: tt.oneBasedInput,
		})
		expect.NoError(t, err)
		if !reflect.DeepEqual(result.nameMap, tt.want) {
			t.Errorf("Wanted: %v  Got: %v", tt.want, result.nameMap)
		}
	}
}

func TestBEDUnionFromGzipPath(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	path := filepath.Join(dir, "test1.bed.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(test1BED))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))

	u, err := NewBEDUnionFromPath(vcontext.Background(), path, NewBEDOpts{})
	assert.NoError(t, err)
	expect.EQ(t, len(u.nameMap["chr1"]), 18)
	expect.EQ(t, u.Overlapping(Span{"chr1", 2488100, 2488180}), []Span{{"chr1", 2488104, 2488172}})

	_, err = NewBEDUnionFromPath(vcontext.Background(), filepath.Join(dir, "missing.bed"), NewBEDOpts{})
	expect.NotNil(t, err)
}

func TestBEDUnionErrors(t *testing.T) {
	for _, data := range []string{
		"chr1\t10\n",
		"chr1\t20\t10\n",
		"chr1\t10\t20\nchr2\t10\t20\nchr1\t30\t40\n",
		"chr1\t30\t40\nchr1\t10\t20\n",
		"chr1\tx\t20\n",
	} {
		_, err := NewBEDUnion(strings.NewReader(data), NewBEDOpts{})
		expect.NotNil(t, err, "data: %q", data)
	}
}

func TestOverlappingMergedSpans(t *testing.T) {
	u, err := NewBEDUnionFromSpans([]Span{
		{"chr1", 10, 20},
		{"chr1", 15, 30},
		{"chr1", 40, 50},
		{"chr2", 0, 5},
	}, NewBEDOpts{})
	assert.NoError(t, err)
	tests := []struct {
		span Span
		want []Span
	}{
		{Span{"chr1", 9, 10}, nil},
		{Span{"chr1", 10, 11}, []Span{{"chr1", 10, 11}}},
		{Span{"chr1", 29, 41}, []Span{{"chr1", 29, 30}, {"chr1", 40, 41}}},
		{Span{"chr1", 50, 51}, nil},
		{Span{"chr2", 0, 10}, []Span{{"chr2", 0, 5}}},
		{Span{"chr3", 0, 10}, nil},
	}
	for _, tt := range tests {
		expect.EQ(t, u.Overlapping(tt.span), tt.want, "span %v", tt.span)
	}
	expect.EQ(t, u.RefNames(), []string{"chr1", "chr2"})
}

func TestInvertedSpans(t *testing.T) {
	u, err := NewBEDUnion(strings.NewReader("chr1\t11\t20\nchr1\t31\t40\n"), NewBEDOpts{Invert: true, OneBasedInput: true})
	assert.NoError(t, err)
	expect.EQ(t, u.Spans("chr1"), []Span{{"chr1", 0, 10}, {"chr1", 20, 30}, {"chr1", 40, PosTypeMax}})
	expect.EQ(t, u.Overlapping(Span{"chr1", 5, 35}), []Span{{"chr1", 5, 10}, {"chr1", 20, 30}})
	expect.EQ(t, len(u.Spans("chr2")), 0)
}

func TestOverlapping(t *testing.T) {
	u, err := NewBEDUnionFromSpans([]Span{
		{"chr1", 10, 20},
		{"chr1", 30, 40},
		{"chr1", 50, 60},
	}, NewBEDOpts{})
	assert.NoError(t, err)
	tests := []struct {
		span Span
		want []Span
	}{
		{Span{"chr1", 0, 10}, nil},
		{Span{"chr1", 0, 11}, []Span{{"chr1", 10, 11}}},
		{Span{"chr1", 15, 55}, []Span{{"chr1", 15, 20}, {"chr1", 30, 40}, {"chr1", 50, 55}}},
		{Span{"chr1", 20, 30}, nil},
		{Span{"chr1", 35, 36}, []Span{{"chr1", 35, 36}}},
		{Span{"chr2", 0, 100}, nil},
	}
	for _, tt := range tests {
		expect.EQ(t, u.Overlapping(tt.span), tt.want, "span %v", tt.span)
	}
	expect.EQ(t, u.Spans("chr1"), []Span{{"chr1", 10, 20}, {"chr1", 30, 40}, {"chr1", 50, 60}})
	expect.EQ(t, u.RefNames(), []string{"chr1"})
}

func TestParseRegionString(t *testing.T) {
	tests := []struct {
		region  string
		refName string
		start   PosType
		end     PosType
	}{
		{
			"chr1:1-1000",
			"chr1",
			0,
			1000,
		},
		{
			"chr1:1,001-2,000",
			"chr1",
			1000,
			2000,
		},
		{
			"chr1:1000",
			"chr1",
			999,
			1000,
		},
		{
			"chr1",
			"chr1",
			0,
			math.MaxInt32 - 1,
		},
	}
	for _, tt := range tests {
		result, err := ParseRegionString(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, tt.refName, result.RefName)
		expect.EQ(t, tt.start, result.Start)
		expect.EQ(t, tt.end, result.End)
	}
	for _, bad := range []string{"", ":1-2", "chr1:0", "chr1:5-4", "chr1:a-4"} {
		_, err := ParseRegionString(bad)
		expect.True(t, errors.Is(errors.Invalid, err), "region %q: %v", bad, err)
	}
}
