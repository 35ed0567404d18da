package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chunks"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks", "b.bin"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks", "a.bin"), []byte("aaa"), 0o644))

	s, err := NewStorage(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, s.GetBasePath())

	data, err := s.ReadFile("chunks/a.bin")
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(data))

	ok, err := s.Exists("chunks/b.bin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists("chunks/missing.bin")
	require.NoError(t, err)
	assert.False(t, ok)

	files, err := s.List("chunks")
	require.NoError(t, err)
	assert.Equal(t, []string{"chunks/a.bin", "chunks/b.bin"}, files)

	files, err = s.List("nothing-here")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, s.WriteFile("out/nested/c.bin", []byte("c")))
	data, err = os.ReadFile(filepath.Join(dir, "out", "nested", "c.bin"))
	require.NoError(t, err)
	assert.Equal(t, "c", string(data))

	f, err := s.Open("chunks/a.bin")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Seek(1, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "aa", string(rest))
}

func TestParseS3URI(t *testing.T) {
	uri, err := ParseS3URI("s3://bucket/runs/SRR000123.bam")
	require.NoError(t, err)
	assert.Equal(t, "bucket", uri.Bucket)
	assert.Equal(t, "runs/SRR000123.bam", uri.Prefix)

	uri, err = ParseS3URI("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "", uri.Prefix)

	_, err = ParseS3URI("s3:///nobucket")
	assert.Error(t, err)

	_, err = ParseS3URI("/local/path")
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in, base, name string
	}{
		{"/data/runs/x.bam", "/data/runs", "x.bam"},
		{"x.bam", ".", "x.bam"},
		{"s3://bucket/runs/x.bam", "s3://bucket/runs", "x.bam"},
		{"s3://bucket/x.bam", "s3://bucket", "x.bam"},
		{"s3://bucket", "s3://bucket", ""},
	}
	for _, tt := range tests {
		base, name := Split(tt.in)
		assert.Equal(t, tt.base, base, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "s3://bucket/runs/x.bam", Join("s3://bucket/runs/", "x.bam"))
	assert.Equal(t, filepath.Join("/data", "x.bam"), Join("/data", "x.bam"))
}

func TestRangeReader(t *testing.T) {
	object := []byte("0123456789abcdefghij")
	var fetches []int64
	fetch := func(off, n int64) ([]byte, error) {
		fetches = append(fetches, off)
		return append([]byte(nil), object[off:off+n]...), nil
	}

	r := newRangeReader(fetch, int64(len(object)), 8)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, string(object), string(all))
	assert.Equal(t, []int64{0, 8, 16}, fetches)

	fetches = nil
	_, err = r.Seek(-3, io.SeekEnd)
	require.NoError(t, err)
	tail, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hij", string(tail))
	assert.Empty(t, fetches, "block already cached")

	pos, err := r.Seek(5, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 5, pos)
	buf := make([]byte, 4)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "5678", string(buf))
	assert.Equal(t, []int64{5}, fetches)

	_, err = r.Seek(-1, io.SeekStart)
	assert.Error(t, err)

	short := newRangeReader(func(off, n int64) ([]byte, error) { return []byte("x"), nil }, 10, 4)
	_, err = io.ReadAll(short)
	assert.ErrorContains(t, err, "short range read")
}
