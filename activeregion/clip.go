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
	"github.com/grailbio/bioengine/interval"
	"github.com/grailbio/hts/sam"
)

// clipLeft removes refBases reference bases from the front of ops.  Soft
// clips and existing hard clips at the front are absorbed, as are insertions
// and deletions that would be left dangling at the new edge.  It returns the
// remaining ops, the length of the hard clips absorbed, the number of query
// bases removed, and the number of reference bases removed (which can exceed
// refBases when a deletion is absorbed).  ops is not modified.
func clipLeft(ops []sam.CigarOp, refBases int) (kept []sam.CigarOp, hard, query, ref int) {
	for i, op := range ops {
		t, n := op.Type(), op.Len()
		c := t.Consumes()
		switch {
		case t == sam.CigarHardClipped:
			hard += n
			continue
		case t == sam.CigarSoftClipped:
			query += n
			continue
		case ref < refBases:
			if c.Reference == 0 {
				query += n * c.Query
				continue
			}
			k := refBases - ref
			if n <= k {
				ref += n
				query += n * c.Query
				continue
			}
			ref += k
			query += k * c.Query
			n -= k
			op = sam.NewCigarOp(t, n)
		}
		if c.Query == 0 || c.Reference == 0 {
			ref += n * c.Reference
			query += n * c.Query
			continue
		}
		kept = make([]sam.CigarOp, 0, len(ops)-i)
		kept = append(kept, op)
		kept = append(kept, ops[i+1:]...)
		return kept, hard, query, ref
	}
	return nil, hard, query, ref
}

func reverseCigar(ops []sam.CigarOp) []sam.CigarOp {
	r := make([]sam.CigarOp, len(ops))
	for i, op := range ops {
		r[len(ops)-1-i] = op
	}
	return r
}

// HardClipToRegion returns a copy of rec with the bases aligned outside
// [start, end) hard-clipped.  Soft clips on a clipped side become part of the
// hard clip.  If no aligned base of rec lies in [start, end), the result has
// an empty cigar, sequence and quality.  rec is not modified.
func HardClipToRegion(rec *sam.Record, start, end interval.PosType) *sam.Record {
	out := *rec
	recStart, recEnd := interval.PosType(rec.Pos), interval.PosType(rec.End())
	if start <= recStart && recEnd <= end {
		return &out
	}
	if recEnd <= start || end <= recStart || len(rec.Cigar) == 0 {
		out.Cigar = nil
		out.Seq = sam.Seq{}
		out.Qual = nil
		return &out
	}
	ops := []sam.CigarOp(rec.Cigar)
	var leftHard, leftQuery, leftRef, rightHard, rightQuery int
	if start > recStart {
		ops, leftHard, leftQuery, leftRef = clipLeft(ops, int(start-recStart))
	}
	if len(ops) > 0 && end < recEnd {
		var rev []sam.CigarOp
		rev, rightHard, rightQuery, _ = clipLeft(reverseCigar(ops), int(recEnd-end))
		ops = reverseCigar(rev)
	}
	if len(ops) == 0 {
		out.Cigar = nil
		out.Seq = sam.Seq{}
		out.Qual = nil
		return &out
	}

	cigar := make(sam.Cigar, 0, len(ops)+2)
	if n := leftHard + leftQuery; n > 0 {
		cigar = append(cigar, sam.NewCigarOp(sam.CigarHardClipped, n))
	}
	cigar = append(cigar, ops...)
	if n := rightHard + rightQuery; n > 0 {
		cigar = append(cigar, sam.NewCigarOp(sam.CigarHardClipped, n))
	}
	out.Cigar = cigar
	out.Pos = rec.Pos + leftRef

	// Records without a stored sequence keep none.
	if n := rec.Seq.Length; n > 0 && leftQuery+rightQuery <= n {
		out.Seq = sam.NewSeq(rec.Seq.Expand()[leftQuery : n-rightQuery])
		if len(rec.Qual) == n {
			out.Qual = append([]byte(nil), rec.Qual[leftQuery:n-rightQuery]...)
		}
	}
	return &out
}
