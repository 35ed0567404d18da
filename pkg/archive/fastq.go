package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/sam"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/scttfrdmn/seqreads-go/pkg/storage"
)

// fastqCollection serves unaligned reads from a FASTQ file, optionally
// gzip, zstd or snappy compressed. Interleaved mates named <id>/1 and
// <id>/2 form the fragments of one read.
type fastqCollection struct {
	name  string
	store storage.Storage
	file  string
	codec Codec
	res   resources

	readCount int64
}

func openFASTQ(name string, store storage.Storage, file string, codec Codec) (*fastqCollection, error) {
	c := &fastqCollection{
		name:      name,
		store:     store,
		file:      file,
		codec:     codec,
		readCount: -1,
	}

	src, err := c.open()
	if err != nil {
		return nil, err
	}
	if err := src.close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", file, err)
	}
	return c, nil
}

// fastqSource adapts a biogo FASTQ reader to recordSource
type fastqSource struct {
	file    io.Closer
	decoder io.Closer
	reader  *fastq.Reader
}

func (c *fastqCollection) open() (*fastqSource, error) {
	f, err := c.store.Open(c.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.file, err)
	}

	src := &fastqSource{file: f}
	var r io.Reader = f
	switch c.codec {
	case CodecGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		src.decoder, r = gz, gz
	case CodecZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		rc := zr.IOReadCloser()
		src.decoder, r = rc, rc
	case CodecSnappy:
		r = snappy.NewReader(f)
	}

	template := linear.NewQSeq("", nil, alphabet.DNAredundant, alphabet.Sanger)
	src.reader = fastq.NewReader(r, template)
	return src, nil
}

func (s *fastqSource) next() (record, error) {
	seq, err := s.reader.Read()
	if err != nil {
		return record{}, err
	}
	qs, ok := seq.(*linear.QSeq)
	if !ok {
		return record{}, fmt.Errorf("unexpected FASTQ sequence type %T", seq)
	}

	bases := make([]byte, len(qs.Seq))
	quals := make([]byte, len(qs.Seq))
	for i, ql := range qs.Seq {
		bases[i] = byte(ql.L)
		quals[i] = ql.Q.Encode(alphabet.Sanger)
	}

	name := qs.Name()
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	rec := record{
		name:  name,
		flags: sam.Unmapped,
		pos:   -1,
		end:   -1,
		bases: string(bases),
		quals: string(quals),
	}
	if mate := strings.TrimSuffix(strings.TrimSuffix(rec.name, "/1"), "/2"); mate != rec.name {
		rec.name = mate
		rec.flags |= sam.Paired
	}
	return rec, nil
}

func (s *fastqSource) close() error {
	var err error
	if s.decoder != nil {
		err = s.decoder.Close()
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *fastqCollection) Name() string {
	return c.name
}

func (c *fastqCollection) ReadCount(ctx context.Context) (int64, error) {
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

func (c *fastqCollection) AlignmentCount(ctx context.Context) (int64, error) {
	return 0, nil
}

func (c *fastqCollection) Reads(ctx context.Context) (ReadIterator, error) {
	src, err := c.open()
	if err != nil {
		return nil, err
	}
	return newReadIterator(src, &c.res), nil
}

func (c *fastqCollection) References(ctx context.Context) ([]Reference, error) {
	return nil, nil
}

func (c *fastqCollection) Reference(ctx context.Context, name string) (Reference, error) {
	return Reference{}, fmt.Errorf("%w: %s", ErrUnknownReference, name)
}

func (c *fastqCollection) AlignmentSlice(ctx context.Context, ref string, start, count int64, kind AlignmentKind) (AlignmentIterator, error) {
	return nil, fmt.Errorf("%w: %s is unaligned FASTQ", ErrNoAlignments, c.name)
}

func (c *fastqCollection) Close() error {
	return c.res.closeAll()
}
