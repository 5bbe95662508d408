package fasta_test

import (
	"bytes"
	"flag"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bioengine/encoding/fasta"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const (
	fastaData  = ">seq1\nACGTA\nCGTAC\nGT\n>seq2 A viral sequence\nACGT\nACGT\n"
	fastaIndex = "seq1\t12\t6\t5\t6\nseq2\t8\t44\t4\t5\n"
)

func newFastas(t *testing.T) map[string]fasta.Fasta {
	mem, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	indexed, err := fasta.NewIndexed(strings.NewReader(fastaData), strings.NewReader(fastaIndex))
	assert.NoError(t, err)
	return map[string]fasta.Fasta{"mem": mem, "indexed": indexed}
}

func TestGet(t *testing.T) {
	tests := []struct {
		seq        string
		start, end uint64
		want       string
		wantErr    bool
	}{
		{"seq1", 1, 2, "C", false},
		{"seq1", 1, 6, "CGTAC", false},
		{"seq1", 0, 12, "ACGTACGTACGT", false},
		{"seq1", 4, 11, "ACGTACG", false},
		{"seq1", 10, 12, "GT", false},
		{"seq2", 0, 8, "ACGTACGT", false},
		{"seq2", 2, 5, "GTA", false},
		{"seq0", 0, 1, "", true},
		{"seq1", 10, 13, "", true},
		{"seq1", 4, 3, "", true},
		{"seq1", 4, 4, "", true},
	}
	for name, fa := range newFastas(t) {
		for _, tt := range tests {
			got, err := fa.Get(tt.seq, tt.start, tt.end)
			expect.EQ(t, err != nil, tt.wantErr, "%s: %+v: %v", name, tt, err)
			expect.EQ(t, got, tt.want, "%s: %+v", name, tt)
		}
	}
}

func TestLenAndSeqNames(t *testing.T) {
	for name, fa := range newFastas(t) {
		expect.EQ(t, fa.SeqNames(), []string{"seq1", "seq2"}, name)
		n, err := fa.Len("seq1")
		assert.NoError(t, err)
		expect.EQ(t, n, uint64(12))
		n, err = fa.Len("seq2")
		assert.NoError(t, err)
		expect.EQ(t, n, uint64(8))
		_, err = fa.Len("seq0")
		expect.NotNil(t, err, name)
	}
}

func TestNewErrors(t *testing.T) {
	for _, data := range []string{
		"ACGT\n>seq1\nACGT\n",
		">seq1\nACGT\n>seq1\nACGT\n",
		">\nACGT\n",
	} {
		_, err := fasta.New(strings.NewReader(data))
		expect.NotNil(t, err, data)
	}
	fa, err := fasta.New(strings.NewReader(">seq1\r\nAC\r\nGT\r\n>empty\n>seq2\nTT"))
	assert.NoError(t, err)
	expect.EQ(t, fa.SeqNames(), []string{"seq1", "empty", "seq2"})
	s, err := fa.Get("seq1", 0, 4)
	assert.NoError(t, err)
	expect.EQ(t, s, "ACGT")
	n, err := fa.Len("empty")
	assert.NoError(t, err)
	expect.EQ(t, n, uint64(0))
}

func TestNewIndexedErrors(t *testing.T) {
	for _, index := range []string{
		"seq1\tx\t6\t5\t6\n",
		"seq1\t12\t6\t0\t6\n",
		"seq1\t12\t6\t5\t4\n",
		"seq1\t12\t6\t5\t6\nseq1\t8\t44\t4\t5\n",
	} {
		_, err := fasta.NewIndexed(strings.NewReader(fastaData), strings.NewReader(index))
		expect.NotNil(t, err, index)
	}
	// An index pointing past the end of the data fails on Get.
	fa, err := fasta.NewIndexed(strings.NewReader(fastaData), strings.NewReader("seq1\t12\t60\t5\t6\n"))
	assert.NoError(t, err)
	_, err = fa.Get("seq1", 0, 12)
	expect.NotNil(t, err)
}

func generateIndex(t *testing.T, fa string) string {
	var idx bytes.Buffer
	assert.NoError(t, fasta.GenerateIndex(&idx, strings.NewReader(fa)))
	return idx.String()
}

func TestGenerateIndex(t *testing.T) {
	fa := `>E0
GGTGAAATC
CCTGAAATC
AAAATTGCT
>E1
GTCCCTCCCCAGACATGGCCCTGGGAGGC
>E2
CCGCGCCCGCGCCCCCGCCGCC
>E3
GTCAAGGTTGCACAG
>E4
ATGAATCATGTGGTAAAA
`
	fai := generateIndex(t, fa)
	expect.EQ(t, fai, `E0	27	4	9	10
E1	29	38	29	30
E2	22	72	22	23
E3	15	99	15	16
E4	18	119	18	19
`)
	indexed, err := fasta.NewIndexed(strings.NewReader(fa), strings.NewReader(fai))
	assert.NoError(t, err)
	for _, want := range []struct {
		name, seq string
	}{
		{"E0", "GGTGAAATCCCTGAAATCAAAATTGCT"},
		{"E3", "GTCAAGGTTGCACAG"},
	} {
		l, err := indexed.Len(want.name)
		assert.NoError(t, err)
		seq, err := indexed.Get(want.name, 0, l)
		assert.NoError(t, err)
		expect.EQ(t, seq, want.seq)
	}

	// MS-DOS line endings.
	expect.EQ(t, generateIndex(t, ">E0\r\nGGGG\r\n>E1\r\nAAAAA\r\n"), "E0\t4\t5\t4\t6\nE1\t5\t16\t5\t7\n")
	// No newline at the end.
	expect.EQ(t, generateIndex(t, ">E0\nGGGG\n>E1\nCCCCC\nAAAAA"), "E0\t4\t4\t4\t5\nE1\t10\t13\t5\t6\n")
	expect.EQ(t, generateIndex(t, ">E0\nGGGG\n>E1\nAAAAA"), "E0\t4\t4\t4\t5\nE1\t5\t13\t5\t5\n")
	// A short last line.
	expect.EQ(t, generateIndex(t, ">E0\nGGGG\nGG\n"), "E0\t6\t4\t4\t5\n")

	for _, data := range []string{
		"",
		"GGGG\n>E0\nGGGG\n",
		">E0\nGGGG\nGG\nGGGG\n",
		">E0\nGGGG\nGGGGG\n",
	} {
		var idx bytes.Buffer
		err := fasta.GenerateIndex(&idx, strings.NewReader(data))
		expect.True(t, errors.Is(errors.Invalid, err), "%q: %v", data, err)
	}
}

var (
	pathFlag    = flag.String("path", "", "FASTA file used by benchmarks")
	idxPathFlag = flag.String("index-path", "", "FASTA index file used by benchmarks")
)

func BenchmarkRead(b *testing.B) {
	if *pathFlag == "" {
		b.Skip("--path not set")
	}
	ctx := vcontext.Background()
	for i := 0; i < b.N; i++ {
		in, err := file.Open(ctx, *pathFlag)
		assert.NoError(b, err)
		var (
			fa    fasta.Fasta
			idxIn file.File
		)
		if *idxPathFlag != "" {
			idxIn, err = file.Open(ctx, *idxPathFlag)
			assert.NoError(b, err)
			fa, err = fasta.NewIndexed(in.Reader(ctx), idxIn.Reader(ctx))
		} else {
			fa, err = fasta.New(in.Reader(ctx))
		}
		assert.NoError(b, err)
		for _, seq := range fa.SeqNames() {
			n, err := fa.Len(seq)
			assert.NoError(b, err)
			if n > 0 {
				_, err = fa.Get(seq, 0, n)
				assert.NoError(b, err)
			}
		}
		if idxIn != nil {
			assert.NoError(b, idxIn.Close(ctx))
		}
		assert.NoError(b, in.Close(ctx))
	}
}
