package seqreads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
)

func fakeOptions(c *fakeCollection) (*Options, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts := NewOptions()
	opts.Opener = fakeOpener{c: c}
	opts.Logger = logger
	return opts, hook
}

func TestReadCount(t *testing.T) {
	c := newFake(10)
	opts, _ := fakeOptions(c)

	n, err := ReadCount(context.Background(), "SRR000001", opts)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
	assert.True(t, c.closed)
}

func TestReadCountErrors(t *testing.T) {
	opts, hook := fakeOptions(nil)
	opts.Opener = fakeOpener{err: errBroken}

	n, err := ReadCount(context.Background(), "SRR000001", opts)
	assert.EqualValues(t, -1, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, KindArchive, ErrorKind(err))
	assert.Contains(t, err.Error(), "failed to open collection")

	opts.ForwardErrors = false
	n, err = ReadCount(context.Background(), "SRR000001", opts)
	assert.NoError(t, err)
	assert.EqualValues(t, -1, n)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestReads(t *testing.T) {
	c := newFake(10)
	opts, _ := fakeOptions(c)
	ctx := context.Background()

	all, err := Reads(ctx, "SRR000001", 0, opts)
	require.NoError(t, err)
	require.Len(t, all.Reads, 10)
	assert.Nil(t, all.Qualities)
	assert.Equal(t, "A1", all.Reads[0])
	assert.Equal(t, "A10", all.Reads[9])

	for _, max := range []int64{-3, 10, 11, 1000} {
		got, err := Reads(ctx, "SRR000001", max, opts)
		require.NoError(t, err)
		assert.Equal(t, all.Reads, got.Reads, "maxReads=%d", max)
	}

	first, err := Reads(ctx, "SRR000001", 5, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5"}, first.Reads)
	assert.Zero(t, c.openIters)
	assert.True(t, c.closed)
}

func TestReadsCountsReadsNotFragments(t *testing.T) {
	c := newFake(4)
	c.readAt = func(i int) archive.Read {
		return archive.Read{
			Name: fmt.Sprintf("pair%d", i),
			Fragments: []archive.Fragment{
				{Bases: fmt.Sprintf("L%d", i), Qualities: "#"},
				{Bases: fmt.Sprintf("R%d", i), Qualities: "I"},
			},
		}
	}
	opts, _ := fakeOptions(c)

	res, err := ReadsWithQuality(context.Background(), "SRR000001", 2, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"L0", "R0", "L1", "R1"}, res.Reads)
	assert.Equal(t, []string{"#", "I", "#", "I"}, res.Qualities)
}

func TestReadsWithQuality(t *testing.T) {
	c := newFake(7)
	opts, _ := fakeOptions(c)

	res, err := ReadsWithQuality(context.Background(), "SRR000001", 0, opts)
	require.NoError(t, err)
	require.Len(t, res.Qualities, len(res.Reads))
	for i := range res.Reads {
		assert.Equal(t, fmt.Sprintf("A%d", i+1), res.Reads[i])
		assert.Equal(t, fmt.Sprintf("I%d", i+1), res.Qualities[i])
	}
}

func TestReadsFailureReturnsEmptyResult(t *testing.T) {
	c := newFake(3)
	c.readsErr = errBroken
	opts, _ := fakeOptions(c)

	res, err := ReadsWithQuality(context.Background(), "SRR000001", 0, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "failed to iterate reads")
	require.NotNil(t, res)
	assert.Empty(t, res.Reads)
	assert.Empty(t, res.Qualities)
	assert.True(t, c.closed)
}

func TestReadsWithQualityCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newFake(250000)
	c.onRead = func(i int) {
		if i == 150000 {
			cancel()
		}
	}
	opts, _ := fakeOptions(c)

	res, err := ReadsWithQuality(ctx, "SRR000001", 0, opts)
	require.Error(t, err)
	assert.Equal(t, KindCanceled, ErrorKind(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Reads)
	assert.True(t, c.closed)
	assert.Zero(t, c.openIters)
}

func TestCheckpointInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int
	c := newFake(100)
	c.onRead = func(i int) {
		seen = i + 1
		if i == 4 {
			cancel()
		}
	}
	opts, _ := fakeOptions(c)
	opts.CheckpointInterval = 10

	_, err := Reads(ctx, "SRR000001", 0, opts)
	assert.Equal(t, KindCanceled, ErrorKind(err))
	assert.Equal(t, 10, seen, "cancellation takes effect at the next checkpoint")
}

func TestOptionsDefaults(t *testing.T) {
	o := (*Options)(nil).withDefaults()
	assert.True(t, o.ForwardErrors)
	assert.Equal(t, DefaultCheckpointInterval, o.CheckpointInterval)
	assert.NotNil(t, o.Opener)
	assert.NotNil(t, o.Logger)
	assert.False(t, o.RegionQualities)

	for _, interval := range []int{0, -1, 100001} {
		o = (&Options{CheckpointInterval: interval}).withDefaults()
		assert.Equal(t, DefaultCheckpointInterval, o.CheckpointInterval)
	}
	o = (&Options{CheckpointInterval: 500}).withDefaults()
	assert.Equal(t, 500, o.CheckpointInterval)
}

func regionFake() *fakeCollection {
	c := newFake(0)
	c.alignCount = 3
	c.refs = []archive.Reference{{Name: "chr1", Length: 100}, {Name: "chr2", Length: 50}}
	c.alignments = []archive.Alignment{
		{ReadName: "a", Reference: "chr1", Position: 1, Primary: true, Fragment: archive.Fragment{Bases: "AC", Qualities: "II"}},
		{ReadName: "b", Reference: "chr1", Position: 60, Primary: true, Fragment: archive.Fragment{Bases: "GT", Qualities: "##"}},
		{ReadName: "c", Reference: "chr2", Position: 5, Primary: true, Fragment: archive.Fragment{Bases: "TT", Qualities: "!!"}},
	}
	return c
}

func TestReadsInRegion(t *testing.T) {
	c := regionFake()
	opts, _ := fakeOptions(c)

	res, err := ReadsInRegion(context.Background(), "SRR000001", "chr1", 1, 100, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC", "GT"}, res.Reads)
	assert.Nil(t, res.Qualities)
	assert.EqualValues(t, 1, c.sliceStart)
	assert.EqualValues(t, 100, c.sliceCount)
	assert.Equal(t, archive.PrimaryAlignment, c.sliceKind)

	res, err = ReadsInRegion(context.Background(), "SRR000001", "chr1", 50, 60, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"GT"}, res.Reads)
	assert.EqualValues(t, 11, c.sliceCount)
	assert.True(t, c.closed)
	assert.Zero(t, c.openIters)
}

func TestReadsInRegionQualities(t *testing.T) {
	c := regionFake()
	opts, _ := fakeOptions(c)
	opts.RegionQualities = true

	res, err := ReadsInRegion(context.Background(), "SRR000001", "chr1", 1, 100, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC", "GT"}, res.Reads)
	assert.Equal(t, []string{"II", "##"}, res.Qualities)
}

func TestReadsInRegionErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no alignments", func(t *testing.T) {
		c := regionFake()
		c.alignCount = 0
		opts, _ := fakeOptions(c)
		res, err := ReadsInRegion(ctx, "SRR000001", "chr1", 1, 10, opts)
		assert.ErrorIs(t, err, ErrNoAlignments)
		assert.Equal(t, KindDomain, ErrorKind(err))
		assert.Empty(t, res.Reads)
	})

	t.Run("unknown reference", func(t *testing.T) {
		opts, _ := fakeOptions(regionFake())
		_, err := ReadsInRegion(ctx, "SRR000001", "chrX", 1, 10, opts)
		assert.ErrorIs(t, err, ErrUnknownReference)
		assert.Equal(t, KindDomain, ErrorKind(err))
		assert.Contains(t, err.Error(),
			"The accession id SRR000001 does not have the reference chrX. The options are: chr1 chr2")
	})

	t.Run("unknown reference without references", func(t *testing.T) {
		c := regionFake()
		c.refs = nil
		opts, _ := fakeOptions(c)
		_, err := ReadsInRegion(ctx, "SRR000001", "chr1", 1, 10, opts)
		assert.ErrorIs(t, err, ErrUnknownReference)
		assert.True(t, strings.HasSuffix(err.Error(), "The options are:"), err.Error())
	})

	ranges := []struct {
		name        string
		start, stop int64
	}{
		{"start below one", 0, 10},
		{"stop before start", 20, 10},
		{"stop past end", 1, 101},
	}
	for _, tt := range ranges {
		t.Run(tt.name, func(t *testing.T) {
			c := regionFake()
			opts, _ := fakeOptions(c)
			_, err := ReadsInRegion(ctx, "SRR000001", "chr1", tt.start, tt.stop, opts)
			assert.ErrorIs(t, err, ErrRegionRange)
			assert.Equal(t, KindRange, ErrorKind(err))
			assert.Contains(t, err.Error(), "wrong reference range, reference length = 100")
			assert.True(t, c.closed)
		})
	}

	t.Run("slice failure", func(t *testing.T) {
		c := regionFake()
		c.sliceErr = errBroken
		opts, _ := fakeOptions(c)
		_, err := ReadsInRegion(ctx, "SRR000001", "chr1", 1, 10, opts)
		assert.ErrorIs(t, err, errBroken)
		assert.Equal(t, KindArchive, ErrorKind(err))
		assert.Contains(t, err.Error(), "failed to slice alignments")
		assert.Equal(t, 1, strings.Count(err.Error(), "failed to"))
	})
}

func TestPanicBecomesInternalError(t *testing.T) {
	c := newFake(3)
	c.panicMsg = "corrupt state"
	opts, hook := fakeOptions(c)

	n, err := ReadCount(context.Background(), "SRR000001", opts)
	assert.EqualValues(t, -1, n)
	assert.Equal(t, KindInternal, ErrorKind(err))
	assert.Contains(t, err.Error(), "internal error (unknown reason)")
	assert.True(t, c.closed)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	opts.ForwardErrors = false
	n, err = ReadCount(context.Background(), "SRR000001", opts)
	assert.EqualValues(t, -1, n)
	require.Error(t, err, "internal errors are reported even when not forwarding")
	assert.Equal(t, KindInternal, ErrorKind(err))

	res, err := Reads(context.Background(), "SRR000001", 0, opts)
	assert.Equal(t, KindInternal, ErrorKind(err))
	require.NotNil(t, res)
	assert.Empty(t, res.Reads)
}

func TestCanceledBeforeOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newFake(3)
	opts, _ := fakeOptions(c)
	_, err := Reads(ctx, "SRR000001", 0, opts)
	assert.Equal(t, KindCanceled, ErrorKind(err))
	assert.False(t, c.closed, "nothing was opened")
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, KindUnknown, ErrorKind(nil))
	assert.Equal(t, KindUnknown, ErrorKind(errors.New("plain")))
	wrapped := fmt.Errorf("outer: %w", &Error{Op: "Reads", Kind: KindRange, Err: ErrRegionRange})
	assert.Equal(t, KindRange, ErrorKind(wrapped))
	assert.Equal(t, "range", KindRange.String())
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(&Result{Reads: []string{"AC"}, Qualities: []string{"II"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"reads":["AC"],"qualities":["II"]}`, string(data))
	assert.Equal(t, `{"reads":["AC"],"qualities":["II"]}`, string(data))

	data, err = json.Marshal(newResult(false))
	require.NoError(t, err)
	assert.Equal(t, `{"reads":[]}`, string(data))

	data, err = json.Marshal(newResult(true))
	require.NoError(t, err)
	assert.Equal(t, `{"reads":[],"qualities":[]}`, string(data))
}

func writeSAMFixture(t *testing.T, path string) {
	t.Helper()
	chr1, err := sam.NewReference("chr1", "", "", 200, nil, nil)
	require.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{chr1})
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w, err := sam.NewWriter(f, h, sam.FlagDecimal)
	require.NoError(t, err)

	for i, pos := range []int{0, 20, 40, 60, 80} {
		seq := []byte("ACGTACGTAC")
		qual := make([]byte, len(seq))
		for j := range qual {
			qual[j] = byte(30 + i)
		}
		cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(seq))}
		r, err := sam.NewRecord(fmt.Sprintf("q%d", i+1), chr1, nil, pos, -1, 0, 60, cigar, seq, qual, nil)
		require.NoError(t, err)
		require.NoError(t, w.Write(r))
	}
}

func TestArchiveIntegration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SRR000042.sam")
	writeSAMFixture(t, path)
	fq := filepath.Join(dir, "SRR000043.fastq")
	require.NoError(t, os.WriteFile(fq, []byte("@x\nACGT\n+\nIIII\n"), 0o644))

	logger, _ := test.NewNullLogger()
	opts := &Options{
		ForwardErrors: true,
		Opener:        archive.NewResolver(archive.Repository{ID: "local", Type: "local", Path: dir}),
		Logger:        logger,
	}
	ctx := context.Background()

	n, err := ReadCount(ctx, "SRR000042", opts)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	res, err := ReadsWithQuality(ctx, path, 2, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACGTACGTAC", "ACGTACGTAC"}, res.Reads)
	assert.Equal(t, []string{"??????????", "@@@@@@@@@@"}, res.Qualities)

	res, err = ReadsInRegion(ctx, "SRR000042", "chr1", 25, 45, opts)
	require.NoError(t, err)
	assert.Len(t, res.Reads, 2, "q2 covers 21-30, q3 covers 41-50")

	res, err = ReadsInRegion(ctx, "SRR000042", "chr1", 1, 200, opts)
	require.NoError(t, err)
	assert.Len(t, res.Reads, 5)

	_, err = ReadsInRegion(ctx, "SRR000043", "chr1", 1, 10, opts)
	assert.ErrorIs(t, err, ErrNoAlignments)

	_, err = Reads(ctx, "SRR999999", 0, opts)
	assert.ErrorIs(t, err, archive.ErrUnrecognizedAccession)
	assert.Equal(t, KindArchive, ErrorKind(err))
}
