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
	"testing"

	"github.com/grailbio/bioengine/interval"
	"github.com/grailbio/testutil/expect"
)

func TestHardClipToRegion(t *testing.T) {
	for _, test := range []struct {
		pos        int
		cigar      string
		start, end interval.PosType
		wantPos    int
		wantCigar  string
		// Bases kept, as offsets into the original query.
		wantFrom, wantTo int
	}{
		{100, "10M", 0, 1000, 100, "10M", 0, 10},
		{100, "10M", 102, 108, 102, "2H6M2H", 2, 8},
		{100, "2S8M", 103, 200, 103, "5H5M", 5, 10},
		{100, "2S8M", 100, 200, 100, "2S8M", 0, 10},
		{100, "3H10M", 105, 200, 105, "8H5M", 5, 10},
		{100, "10M4S", 0, 105, 100, "5M9H", 0, 5},
		{100, "5M2D5M", 106, 200, 107, "5H5M", 5, 10},
		{100, "5M2D5M", 0, 106, 100, "5M5H", 0, 5},
		{100, "5M2I5M", 105, 200, 105, "7H5M", 7, 12},
		{100, "4M10N6M", 102, 200, 102, "2H2M10N6M", 2, 12},
	} {
		rec := newRead(t, "r", "chr1", test.pos, test.cigar)
		got := HardClipToRegion(rec, test.start, test.end)
		expect.EQ(t, got.Pos, test.wantPos, "%s [%d,%d)", test.cigar, test.start, test.end)
		expect.EQ(t, got.Cigar.String(), test.wantCigar, "%s [%d,%d)", test.cigar, test.start, test.end)
		expect.EQ(t, string(got.Seq.Expand()), string(rec.Seq.Expand()[test.wantFrom:test.wantTo]))
		expect.EQ(t, got.Qual, rec.Qual[test.wantFrom:test.wantTo])
		expect.EQ(t, rec.Cigar.String(), test.cigar)
		expect.EQ(t, rec.Pos, test.pos)
	}
}

func TestHardClipToRegionOutside(t *testing.T) {
	rec := newRead(t, "r", "chr1", 100, "10M")
	for _, span := range [][2]interval.PosType{{0, 100}, {110, 200}, {200, 300}} {
		got := HardClipToRegion(rec, span[0], span[1])
		expect.EQ(t, len(got.Cigar), 0)
		expect.EQ(t, got.Seq.Length, 0)
	}
	// Clipping away everything but a deletion leaves nothing.
	rec = newRead(t, "r", "chr1", 100, "5M3D5M")
	got := HardClipToRegion(rec, 105, 108)
	expect.EQ(t, len(got.Cigar), 0)
}
