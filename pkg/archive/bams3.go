package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"

	"github.com/scttfrdmn/seqreads-go/pkg/bams3"
)

// bams3Collection serves a chunked BAMS3 dataset. Reads come chunk by
// chunk in reference order; slices load only chunks near the window.
type bams3Collection struct {
	name   string
	reader *bams3.Reader
	res    resources

	readCount int64
}

func newBAMS3Collection(name string, reader *bams3.Reader) *bams3Collection {
	return &bams3Collection{name: name, reader: reader, readCount: -1}
}

// chunkSource streams reads from a list of chunks, loading one at a time
type chunkSource struct {
	reader *bams3.Reader
	chunks []bams3.ChunkInfo
	reads  []bams3.Read
}

func (s *chunkSource) next() (record, error) {
	for len(s.reads) == 0 {
		if len(s.chunks) == 0 {
			return record{}, io.EOF
		}
		reads, err := s.reader.LoadChunk(s.chunks[0])
		if err != nil {
			return record{}, err
		}
		s.chunks, s.reads = s.chunks[1:], reads
	}
	read := s.reads[0]
	s.reads = s.reads[1:]
	return fromBAMS3Read(read), nil
}

func (s *chunkSource) close() error {
	s.chunks, s.reads = nil, nil
	return nil
}

func fromBAMS3Read(read bams3.Read) record {
	rec := record{
		name:  read.Name,
		flags: sam.Flags(read.Flag),
		ref:   read.Reference,
		pos:   read.Position,
		end:   read.End(),
		bases: read.Sequence,
		quals: read.Quality,
	}
	if rec.quals == "*" {
		rec.quals = ""
	}
	return rec
}

func (c *bams3Collection) Name() string {
	return c.name
}

func (c *bams3Collection) ReadCount(ctx context.Context) (int64, error) {
	if c.readCount >= 0 {
		return c.readCount, nil
	}
	it, err := c.Reads(ctx)
	if err != nil {
		return 0, err
	}
	n, err := countReads(ctx, it)
	if err != nil {
		return 0, fmt.Errorf("failed to count reads: %w", err)
	}
	c.readCount = n
	return n, nil
}

// AlignmentCount reads the mapped count from dataset statistics
func (c *bams3Collection) AlignmentCount(ctx context.Context) (int64, error) {
	return int64(c.reader.GetStatistics().MappedReads), nil
}

func (c *bams3Collection) Reads(ctx context.Context) (ReadIterator, error) {
	src := &chunkSource{reader: c.reader, chunks: c.reader.Chunks()}
	return newReadIterator(src, &c.res), nil
}

func (c *bams3Collection) References(ctx context.Context) ([]Reference, error) {
	refs := c.reader.References()
	out := make([]Reference, len(refs))
	for i, r := range refs {
		out[i] = Reference{Name: r.Name, Length: int64(r.Length)}
	}
	return out, nil
}

func (c *bams3Collection) Reference(ctx context.Context, name string) (Reference, error) {
	for _, r := range c.reader.References() {
		if r.Name == name {
			return Reference{Name: r.Name, Length: int64(r.Length)}, nil
		}
	}
	return Reference{}, fmt.Errorf("%w: %s", ErrUnknownReference, name)
}

func (c *bams3Collection) AlignmentSlice(ctx context.Context, ref string, start, count int64, kind AlignmentKind) (AlignmentIterator, error) {
	if _, err := c.Reference(ctx, ref); err != nil {
		return nil, err
	}
	if count <= 0 {
		return emptyAlignments{}, nil
	}
	beg, end := windowBounds(start, count)

	chunks := c.reader.FindChunks(bams3.Region{Reference: ref, Start: beg, End: end})
	src := &chunkSource{reader: c.reader, chunks: chunks}
	return newAlignmentIterator(src, &c.res, ref, beg, end, kind), nil
}

func (c *bams3Collection) Close() error {
	err := c.res.closeAll()
	if cerr := c.reader.Close(); err == nil {
		err = cerr
	}
	return err
}
