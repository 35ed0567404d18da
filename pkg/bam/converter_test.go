package bam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
)

func writeInput(t *testing.T, path string) {
	t.Helper()
	chr1, err := sam.NewReference("chr1", "", "", 5000, nil, nil)
	require.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{chr1})
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w, err := bam.NewWriter(f, h, 1)
	require.NoError(t, err)

	add := func(name string, ref *sam.Reference, pos int, seq string, flags sam.Flags) {
		var cigar sam.Cigar
		if ref != nil {
			cigar = sam.Cigar{sam.NewCigarOp(sam.CigarMatch, len(seq))}
		}
		qual := make([]byte, len(seq))
		for i := range qual {
			qual[i] = 35
		}
		r, err := sam.NewRecord(name, ref, nil, pos, -1, 0, 60, cigar, []byte(seq), qual, nil)
		require.NoError(t, err)
		r.Flags = flags
		require.NoError(t, w.Write(r))
	}
	add("m1", chr1, 10, "ACGTAC", 0)
	add("m2", chr1, 1500, "GGTT", 0)
	add("m3", chr1, 1510, "CCAA", sam.Secondary)
	add("u1", nil, -1, "NNNN", sam.Unmapped)
	require.NoError(t, w.Close())
}

func TestConvertToBAMS3(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.bam")
	output := filepath.Join(dir, "out.bams3")
	writeInput(t, input)

	logger, hook := test.NewNullLogger()
	cfg := NewConvertConfig()
	cfg.ChunkSize = 1024
	cfg.Logger = logger

	meta, err := ConvertToBAMS3(context.Background(), input, output, cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, meta.Statistics.TotalReads)
	assert.Equal(t, 3, meta.Statistics.MappedReads)
	assert.Equal(t, 1, meta.Statistics.UnmappedReads)
	assert.Len(t, meta.Chunks, 3, "chr1:0-1024, chr1:1024-2048 and unmapped")
	assert.Equal(t, "BAM", meta.Source.Format)
	assert.Equal(t, "Conversion complete", hook.LastEntry().Message)

	ctx := context.Background()
	src, err := archive.OpenLocation(ctx, input, "")
	require.NoError(t, err)
	defer src.Close()
	dst, err := archive.OpenLocation(ctx, output, "")
	require.NoError(t, err)
	defer dst.Close()

	readAll := func(c archive.Collection) []archive.Read {
		it, err := c.Reads(ctx)
		require.NoError(t, err)
		defer it.Close()
		var reads []archive.Read
		for it.Next() {
			reads = append(reads, it.Read())
		}
		require.NoError(t, it.Err())
		return reads
	}
	assert.Equal(t, readAll(src), readAll(dst))

	refs, err := dst.References(ctx)
	require.NoError(t, err)
	assert.Equal(t, []archive.Reference{{Name: "chr1", Length: 5000}}, refs)

	it, err := dst.AlignmentSlice(ctx, "chr1", 1500, 20, archive.AllAlignments)
	require.NoError(t, err)
	defer it.Close()
	var names []string
	for it.Next() {
		names = append(names, it.Alignment().ReadName)
	}
	assert.Equal(t, []string{"m2", "m3"}, names)
}

func TestConvertRejectsUnknownInput(t *testing.T) {
	_, err := ConvertToBAMS3(context.Background(), filepath.Join(t.TempDir(), "reads.cram"), filepath.Join(t.TempDir(), "out.bams3"), nil)
	assert.Error(t, err)
}

func TestConvertRecordQualities(t *testing.T) {
	r, err := sam.NewRecord("x", nil, nil, -1, -1, 0, 0, nil, []byte("AC"), []byte{0xff, 0xff}, nil)
	require.NoError(t, err)
	read := convertRecord(r)
	assert.Equal(t, "", read.Quality)
	assert.Equal(t, -1, read.ReferenceID)
	assert.Equal(t, "AC", read.Sequence)
}
