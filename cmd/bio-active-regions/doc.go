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

/*
bio-active-regions cuts a stream of per-position activity probabilities into
active and inactive regions, the way a haplotype caller decides where to
assemble.  The input is a TSV with a CHROM/POS/PROB/SOFTCLIPS header row (POS
is 1-based; gzipped input is detected by the .gz suffix).  The output has one
line per region with its span, its padded span, the span of its reads, and
whether it is active.

Contig lengths come from the BAM header when -bam is given and from the
reference otherwise.  With -bam, every region also reports the number of reads
assigned to it.

Sample usage:
bio-active-regions \
    -bam sample.bam \
    -ref hg19.fa -emit-ref \
    -bed targets.bed \
    states.tsv.gz regions.tsv
*/
package main
