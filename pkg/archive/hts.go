package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/scttfrdmn/seqreads-go/pkg/storage"
)

// htsCollection serves BAM and SAM files through biogo/hts. A BAM with a
// .bai index alongside gets indexed slices; everything else is scanned.
type htsCollection struct {
	name   string
	store  storage.Storage
	file   string
	format Format
	header *sam.Header
	index  *bam.Index
	res    resources

	readCount int64
}

func openHTS(name string, store storage.Storage, file string, format Format) (*htsCollection, error) {
	c := &htsCollection{
		name:      name,
		store:     store,
		file:      file,
		format:    format,
		readCount: -1,
	}

	// Opening once validates the file and captures the header
	src, err := c.open()
	if err != nil {
		return nil, err
	}
	c.header = src.header
	if err := src.close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", file, err)
	}

	if format == FormatBAM {
		if err := c.loadIndex(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// loadIndex reads <file>.bai or <stem>.bai when present
func (c *htsCollection) loadIndex() error {
	for _, candidate := range []string{c.file + ".bai", strings.TrimSuffix(c.file, ".bam") + ".bai"} {
		ok, err := c.store.Exists(candidate)
		if err != nil {
			return fmt.Errorf("failed to stat index %s: %w", candidate, err)
		}
		if !ok {
			continue
		}

		f, err := c.store.Open(candidate)
		if err != nil {
			return fmt.Errorf("failed to open index %s: %w", candidate, err)
		}
		idx, err := bam.ReadIndex(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to read index %s: %w", candidate, err)
		}
		c.index = idx
		return nil
	}
	return nil
}

// htsSource adapts a biogo BAM or SAM reader to recordSource
type htsSource struct {
	file   io.ReadSeekCloser
	bam    *bam.Reader
	sam    *sam.Reader
	iter   *bam.Iterator
	header *sam.Header
}

func (c *htsCollection) open() (*htsSource, error) {
	f, err := c.store.Open(c.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.file, err)
	}

	src := &htsSource{file: f}
	switch c.format {
	case FormatBAM:
		src.bam, err = bam.NewReader(f, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create BAM reader: %w", err)
		}
		src.header = src.bam.Header()
	case FormatSAM:
		src.sam, err = sam.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create SAM reader: %w", err)
		}
		src.header = src.sam.Header()
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported format %s for %s", c.format, c.file)
	}
	return src, nil
}

func (s *htsSource) next() (record, error) {
	var (
		r   *sam.Record
		err error
	)
	switch {
	case s.iter != nil:
		if !s.iter.Next() {
			if err := s.iter.Error(); err != nil {
				return record{}, err
			}
			return record{}, io.EOF
		}
		r = s.iter.Record()
	case s.bam != nil:
		r, err = s.bam.Read()
	default:
		r, err = s.sam.Read()
	}
	if err != nil {
		return record{}, err
	}
	return fromSAMRecord(r), nil
}

func (s *htsSource) close() error {
	var err error
	if s.iter != nil {
		err = s.iter.Close()
	}
	if s.bam != nil {
		if cerr := s.bam.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// fromSAMRecord converts a sam.Record to the format-neutral record
func fromSAMRecord(r *sam.Record) record {
	rec := record{
		name:  r.Name,
		flags: r.Flags,
		pos:   r.Pos,
		end:   r.End(),
		bases: string(r.Seq.Expand()),
		quals: phredString(r.Qual),
	}
	if r.Ref != nil {
		rec.ref = r.Ref.Name()
	}
	return rec
}

func (c *htsCollection) Name() string {
	return c.name
}

func (c *htsCollection) ReadCount(ctx context.Context) (int64, error) {
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

// AlignmentCount uses index statistics when the index carries them
func (c *htsCollection) AlignmentCount(ctx context.Context) (int64, error) {
	if c.index != nil {
		var (
			mapped uint64
			valid  bool
		)
		for id := range c.header.Refs() {
			if stats, ok := c.index.ReferenceStats(id); ok {
				mapped += stats.Mapped
				valid = true
			}
		}
		if valid {
			return int64(mapped), nil
		}
	}

	src, err := c.open()
	if err != nil {
		return 0, err
	}
	n, err := countMapped(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("failed to count alignments: %w", err)
	}
	return n, nil
}

func (c *htsCollection) Reads(ctx context.Context) (ReadIterator, error) {
	src, err := c.open()
	if err != nil {
		return nil, err
	}
	return newReadIterator(src, &c.res), nil
}

func (c *htsCollection) References(ctx context.Context) ([]Reference, error) {
	refs := make([]Reference, 0, len(c.header.Refs()))
	for _, r := range c.header.Refs() {
		refs = append(refs, Reference{Name: r.Name(), Length: int64(r.Len())})
	}
	return refs, nil
}

func (c *htsCollection) Reference(ctx context.Context, name string) (Reference, error) {
	if r := c.samReference(name); r != nil {
		return Reference{Name: r.Name(), Length: int64(r.Len())}, nil
	}
	return Reference{}, fmt.Errorf("%w: %s", ErrUnknownReference, name)
}

func (c *htsCollection) samReference(name string) *sam.Reference {
	for _, r := range c.header.Refs() {
		if r.Name() == name {
			return r
		}
	}
	return nil
}

func (c *htsCollection) AlignmentSlice(ctx context.Context, ref string, start, count int64, kind AlignmentKind) (AlignmentIterator, error) {
	samRef := c.samReference(ref)
	if samRef == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, ref)
	}
	if count <= 0 {
		return emptyAlignments{}, nil
	}
	beg, end := windowBounds(start, count)

	src, err := c.open()
	if err != nil {
		return nil, err
	}

	if c.index != nil {
		// Index errors (e.g. a reference with no placed reads) fall back to
		// scanning, which yields the same alignments
		if chunks, err := c.index.Chunks(samRef, beg, end); err == nil {
			if len(chunks) == 0 {
				src.close()
				return emptyAlignments{}, nil
			}
			src.iter, err = bam.NewIterator(src.bam, chunks)
			if err != nil {
				src.close()
				return nil, fmt.Errorf("failed to create BAM iterator: %w", err)
			}
		}
	}

	return newAlignmentIterator(src, &c.res, ref, beg, end, kind), nil
}

func (c *htsCollection) Close() error {
	return c.res.closeAll()
}
