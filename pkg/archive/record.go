package archive

import (
	"context"
	"errors"
	"io"

	"github.com/biogo/hts/sam"
)

// scanCheckInterval is how many records a full scan reads between context checks
const scanCheckInterval = 100000

// record is the format-neutral view of one archive record
type record struct {
	name  string
	flags sam.Flags
	ref   string
	pos   int // 0-based, -1 when unplaced
	end   int // 0-based exclusive
	bases string
	quals string
}

func (r record) fragment() Fragment {
	return Fragment{Bases: r.bases, Qualities: r.quals}
}

func (r record) mapped() bool {
	return r.flags&sam.Unmapped == 0 && r.ref != "" && r.ref != "*" && r.pos >= 0
}

func (r record) primary() bool {
	return r.flags&(sam.Secondary|sam.Supplementary) == 0
}

func (r record) matches(kind AlignmentKind) bool {
	if r.primary() {
		return kind&PrimaryAlignment != 0
	}
	return kind&SecondaryAlignment != 0
}

// overlaps reports whether the record covers any of [beg, end) on ref
func (r record) overlaps(ref string, beg, end int) bool {
	if !r.mapped() || r.ref != ref {
		return false
	}
	recEnd := r.end
	if recEnd <= r.pos {
		recEnd = r.pos + 1
	}
	return r.pos < end && recEnd > beg
}

// phredString converts raw Phred scores to Phred+33 text; 0xff marks
// absent qualities in BAM.
func phredString(q []byte) string {
	if len(q) == 0 || q[0] == 0xff {
		return ""
	}
	b := make([]byte, len(q))
	for i, v := range q {
		b[i] = v + 33
	}
	return string(b)
}

// recordSource yields records in archive order; next returns io.EOF at the end
type recordSource interface {
	next() (record, error)
	close() error
}

// resources tracks open record sources so Close on a collection releases
// iterators the caller abandoned.
type resources struct {
	open map[recordSource]struct{}
}

func (r *resources) add(src recordSource) {
	if r.open == nil {
		r.open = make(map[recordSource]struct{})
	}
	r.open[src] = struct{}{}
}

func (r *resources) release(src recordSource) error {
	if _, ok := r.open[src]; !ok {
		return nil
	}
	delete(r.open, src)
	return src.close()
}

func (r *resources) closeAll() error {
	var errs []error
	for src := range r.open {
		if err := src.close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.open = nil
	return errors.Join(errs...)
}

// readIterator groups consecutive paired records sharing a name into one
// read. Secondary and supplementary records are not reads.
type readIterator struct {
	src     recordSource
	res     *resources
	pending *record
	cur     Read
	err     error
	eof     bool
}

func newReadIterator(src recordSource, res *resources) *readIterator {
	res.add(src)
	return &readIterator{src: src, res: res}
}

func (it *readIterator) nextPrimary() (record, bool) {
	for !it.eof {
		rec, err := it.src.next()
		if err != nil {
			it.eof = true
			if err != io.EOF {
				it.err = err
			}
			return record{}, false
		}
		if rec.primary() {
			return rec, true
		}
	}
	return record{}, false
}

func (it *readIterator) Next() bool {
	if it.err != nil {
		return false
	}

	var first record
	if it.pending != nil {
		first = *it.pending
		it.pending = nil
	} else {
		var ok bool
		if first, ok = it.nextPrimary(); !ok {
			return false
		}
	}

	it.cur = Read{Name: first.name, Fragments: []Fragment{first.fragment()}}
	if first.flags&sam.Paired == 0 {
		return true
	}
	for {
		rec, ok := it.nextPrimary()
		if !ok {
			break
		}
		if rec.flags&sam.Paired == 0 || rec.name != first.name {
			it.pending = &rec
			break
		}
		it.cur.Fragments = append(it.cur.Fragments, rec.fragment())
	}
	// A decode error after a complete read still surfaces on the next call
	return true
}

func (it *readIterator) Read() Read {
	return it.cur
}

func (it *readIterator) Err() error {
	return it.err
}

func (it *readIterator) Close() error {
	return it.res.release(it.src)
}

// alignmentIterator filters a record source down to one reference window
type alignmentIterator struct {
	src  recordSource
	res  *resources
	ref  string
	beg  int
	end  int
	kind AlignmentKind
	cur  Alignment
	err  error
	done bool
}

func newAlignmentIterator(src recordSource, res *resources, ref string, beg, end int, kind AlignmentKind) *alignmentIterator {
	res.add(src)
	return &alignmentIterator{src: src, res: res, ref: ref, beg: beg, end: end, kind: kind}
}

func (it *alignmentIterator) Next() bool {
	for !it.done {
		rec, err := it.src.next()
		if err != nil {
			it.done = true
			if err != io.EOF {
				it.err = err
			}
			return false
		}
		if !rec.overlaps(it.ref, it.beg, it.end) || !rec.matches(it.kind) {
			continue
		}
		it.cur = Alignment{
			ReadName:  rec.name,
			Reference: rec.ref,
			Position:  int64(rec.pos) + 1,
			Primary:   rec.primary(),
			Fragment:  rec.fragment(),
		}
		return true
	}
	return false
}

func (it *alignmentIterator) Alignment() Alignment {
	return it.cur
}

func (it *alignmentIterator) Err() error {
	return it.err
}

func (it *alignmentIterator) Close() error {
	return it.res.release(it.src)
}

// emptyAlignments is a slice with nothing in it
type emptyAlignments struct{}

func (emptyAlignments) Next() bool           { return false }
func (emptyAlignments) Alignment() Alignment { return Alignment{} }
func (emptyAlignments) Err() error           { return nil }
func (emptyAlignments) Close() error         { return nil }

// countReads drains a read iterator, checking ctx between batches
func countReads(ctx context.Context, it ReadIterator) (int64, error) {
	defer it.Close()

	var n int64
	for it.Next() {
		n++
		if n%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
	}
	return n, it.Err()
}

// countMapped drains a record source counting mapped alignments
func countMapped(ctx context.Context, src recordSource) (int64, error) {
	defer src.close()

	var n, seen int64
	for {
		rec, err := src.next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if rec.mapped() {
			n++
		}
		seen++
		if seen%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
	}
}

// windowBounds converts a 1-based start and count to 0-based half-open bounds
func windowBounds(start, count int64) (beg, end int) {
	return int(start - 1), int(start - 1 + count)
}
