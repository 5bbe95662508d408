// Package interval holds the coordinate types shared by the region and index
// code: half-open spans on named contigs, a contig dictionary that maps names
// to IDs and lengths, and BEDUnion, a merged set of intervals loaded from a
// BED file or a region string.
//
// Overlapping BED intervals are merged on load; BEDUnion never tracks them
// separately.  Positions are PosType (int32), the limit BAM files impose.
package interval
