package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/require"
)

func newRef(t *testing.T, name string, length int) *sam.Reference {
	t.Helper()
	ref, err := sam.NewReference(name, "", "", length, nil, nil)
	require.NoError(t, err)
	return ref
}

func newHeader(t *testing.T, refs ...*sam.Reference) *sam.Header {
	t.Helper()
	h, err := sam.NewHeader(nil, refs)
	require.NoError(t, err)
	return h
}

// qual40 returns n Phred 40 scores, rendered as 'I' in Phred+33
func qual40(n int) []byte {
	return bytes.Repeat([]byte{40}, n)
}

func mapped(t *testing.T, name string, ref *sam.Reference, pos int, seq string, flags sam.Flags) *sam.Record {
	t.Helper()
	cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(seq))}
	r, err := sam.NewRecord(name, ref, nil, pos, -1, 0, 60, cigar, []byte(seq), qual40(len(seq)), nil)
	require.NoError(t, err)
	r.Flags = flags
	return r
}

func unmapped(t *testing.T, name string, seq string) *sam.Record {
	t.Helper()
	r, err := sam.NewRecord(name, nil, nil, -1, -1, 0, 0, nil, []byte(seq), qual40(len(seq)), nil)
	require.NoError(t, err)
	r.Flags = sam.Unmapped
	return r
}

func writeSAM(t *testing.T, path string, h *sam.Header, recs []*sam.Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := sam.NewWriter(f, h, sam.FlagDecimal)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
}

func writeBAM(t *testing.T, path string, h *sam.Header, recs []*sam.Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := bam.NewWriter(f, h, 1)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
}

// indexBAM writes <path>.bai built from the records' virtual offsets
func indexBAM(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	br, err := bam.NewReader(f, 1)
	require.NoError(t, err)
	defer br.Close()

	var idx bam.Index
	for {
		r, err := br.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, idx.Add(r, br.LastChunk()))
	}

	out, err := os.Create(path + ".bai")
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, bam.WriteIndex(out, &idx))
}

// pairedRecords is a name-grouped layout: r1 is a mapped pair with a
// secondary, r2 single-end with a supplementary, r3 unmapped.
func pairedRecords(t *testing.T) (*sam.Header, []*sam.Record) {
	chr1 := newRef(t, "chr1", 1000)
	chr2 := newRef(t, "chr2", 500)
	h := newHeader(t, chr1, chr2)

	recs := []*sam.Record{
		mapped(t, "r1", chr1, 99, "ACGT", sam.Paired|sam.Read1),
		mapped(t, "r1", chr1, 199, "TTGG", sam.Paired|sam.Read2),
		mapped(t, "r1", chr1, 499, "ACGT", sam.Paired|sam.Read1|sam.Secondary),
		mapped(t, "r2", chr2, 9, "GGGG", 0),
		mapped(t, "r2", chr1, 299, "GG", sam.Supplementary),
		unmapped(t, "r3", "NNAC"),
	}
	return h, recs
}

// sortedRecords is a coordinate-sorted layout suitable for indexing
func sortedRecords(t *testing.T) (*sam.Header, []*sam.Record) {
	chr1 := newRef(t, "chr1", 1000)
	chr2 := newRef(t, "chr2", 500)
	h := newHeader(t, chr1, chr2)

	recs := []*sam.Record{
		mapped(t, "a1", chr1, 9, "AAAAAAAAAA", 0),
		mapped(t, "a2", chr1, 49, "CCCCCCCCCC", 0),
		mapped(t, "a3", chr1, 55, "GGGGGGGGGG", sam.Secondary),
		mapped(t, "a4", chr1, 199, "TTTTTTTTTT", 0),
		mapped(t, "a5", chr2, 0, "ACACACACAC", 0),
	}
	return h, recs
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

const interleavedFASTQ = `@s1/1
ACGT
+
IIII
@s1/2
TTTT
+
####
@s2 run=1
GGCC
+
!!!!
`
