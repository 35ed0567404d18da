package seqreads

import (
	"context"
	"errors"
	"fmt"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
)

// fakeCollection is an in-memory collection with generated reads
type fakeCollection struct {
	numReads   int
	readAt     func(i int) archive.Read
	onRead     func(i int)
	refs       []archive.Reference
	alignments []archive.Alignment
	alignCount int64

	readsErr error
	sliceErr error
	panicMsg string

	openIters int
	closed    bool

	sliceStart, sliceCount int64
	sliceKind              archive.AlignmentKind
}

type fakeOpener struct {
	c   *fakeCollection
	err error
}

func (o fakeOpener) Open(ctx context.Context, acc string) (archive.Collection, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.c, nil
}

func newFake(n int) *fakeCollection {
	return &fakeCollection{
		numReads: n,
		readAt: func(i int) archive.Read {
			return archive.Read{
				Name: fmt.Sprintf("read%d", i+1),
				Fragments: []archive.Fragment{
					{Bases: fmt.Sprintf("A%d", i+1), Qualities: fmt.Sprintf("I%d", i+1)},
				},
			}
		},
	}
}

func (c *fakeCollection) Name() string { return "fake" }

func (c *fakeCollection) ReadCount(ctx context.Context) (int64, error) {
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	return int64(c.numReads), nil
}

func (c *fakeCollection) AlignmentCount(ctx context.Context) (int64, error) {
	return c.alignCount, nil
}

func (c *fakeCollection) Reads(ctx context.Context) (archive.ReadIterator, error) {
	if c.readsErr != nil {
		return nil, c.readsErr
	}
	c.openIters++
	return &fakeReads{c: c, i: -1}, nil
}

func (c *fakeCollection) References(ctx context.Context) ([]archive.Reference, error) {
	return c.refs, nil
}

func (c *fakeCollection) Reference(ctx context.Context, name string) (archive.Reference, error) {
	for _, r := range c.refs {
		if r.Name == name {
			return r, nil
		}
	}
	return archive.Reference{}, archive.ErrUnknownReference
}

func (c *fakeCollection) AlignmentSlice(ctx context.Context, ref string, start, count int64, kind archive.AlignmentKind) (archive.AlignmentIterator, error) {
	c.sliceStart, c.sliceCount, c.sliceKind = start, count, kind
	if c.sliceErr != nil {
		return nil, c.sliceErr
	}
	var hits []archive.Alignment
	for _, a := range c.alignments {
		if a.Reference == ref && a.Position >= start && a.Position < start+count {
			hits = append(hits, a)
		}
	}
	c.openIters++
	return &fakeAlignments{c: c, hits: hits, i: -1}, nil
}

func (c *fakeCollection) Close() error {
	c.closed = true
	return nil
}

type fakeReads struct {
	c *fakeCollection
	i int
}

func (it *fakeReads) Next() bool {
	if it.i+1 >= it.c.numReads {
		return false
	}
	it.i++
	if it.c.onRead != nil {
		it.c.onRead(it.i)
	}
	return true
}

func (it *fakeReads) Read() archive.Read { return it.c.readAt(it.i) }
func (it *fakeReads) Err() error        { return nil }

func (it *fakeReads) Close() error {
	it.c.openIters--
	return nil
}

type fakeAlignments struct {
	c    *fakeCollection
	hits []archive.Alignment
	i    int
}

func (it *fakeAlignments) Next() bool {
	it.i++
	return it.i < len(it.hits)
}

func (it *fakeAlignments) Alignment() archive.Alignment { return it.hits[it.i] }
func (it *fakeAlignments) Err() error                   { return nil }

func (it *fakeAlignments) Close() error {
	it.c.openIters--
	return nil
}

var errBroken = errors.New("broken archive")
