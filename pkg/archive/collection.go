// Package archive opens sequence archives (BAM, SAM, FASTQ and BAMS3
// datasets, local or on S3) behind one read-collection interface.
//
// A Collection exposes reads split into fragments, the references reads
// were aligned to, and alignment slices over a reference window. Decoding
// is delegated to biogo/hts, biogo/biogo and the bams3 chunk reader.
package archive

import (
	"context"
	"errors"
)

var (
	// ErrUnrecognizedAccession is returned when an accession is neither a
	// path with a known archive suffix nor found in any repository.
	ErrUnrecognizedAccession = errors.New("unrecognized accession")
	// ErrUnknownReference is returned when a collection has no reference
	// with the requested name.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrNoAlignments is returned when alignment data is requested from a
	// collection that holds none.
	ErrNoAlignments = errors.New("no alignments in collection")
)

// AlignmentKind selects which alignments a slice yields
type AlignmentKind int

const (
	// PrimaryAlignment is the representative alignment of a read
	PrimaryAlignment AlignmentKind = 1 << iota
	// SecondaryAlignment covers secondary and supplementary alignments
	SecondaryAlignment
	// AllAlignments yields both kinds
	AllAlignments = PrimaryAlignment | SecondaryAlignment
)

func (k AlignmentKind) String() string {
	switch k {
	case PrimaryAlignment:
		return "primary"
	case SecondaryAlignment:
		return "secondary"
	case AllAlignments:
		return "all"
	default:
		return "none"
	}
}

// Fragment is a sub-unit of a read, e.g. one mate of a pair.
// Qualities are Phred+33 and empty when the archive stores none.
type Fragment struct {
	Bases     string
	Qualities string
}

// Read is a named sequencing record with its fragments in archive order
type Read struct {
	Name      string
	Fragments []Fragment
}

// Reference is a named target sequence reads may align to
type Reference struct {
	Name   string
	Length int64
}

// Alignment is a single placed fragment on a reference
type Alignment struct {
	ReadName  string
	Reference string
	Position  int64 // 1-based leftmost position
	Primary   bool
	Fragment  Fragment
}

// ReadIterator walks reads in collection order.
// Next returns false at the end or on error; check Err afterwards.
type ReadIterator interface {
	Next() bool
	Read() Read
	Err() error
	Close() error
}

// AlignmentIterator walks an alignment slice
type AlignmentIterator interface {
	Next() bool
	Alignment() Alignment
	Err() error
	Close() error
}

// Collection is an opened archive. It is owned by a single caller and is
// not safe for concurrent use. Close releases every file the collection
// or its iterators opened.
type Collection interface {
	// Name returns the accession or location the collection was opened from
	Name() string

	// ReadCount returns the number of reads (not fragments)
	ReadCount(ctx context.Context) (int64, error)

	// AlignmentCount returns the number of mapped alignments
	AlignmentCount(ctx context.Context) (int64, error)

	// Reads iterates every read in collection order
	Reads(ctx context.Context) (ReadIterator, error)

	// References lists references in collection order
	References(ctx context.Context) ([]Reference, error)

	// Reference looks up a reference by name; ErrUnknownReference if absent
	Reference(ctx context.Context, name string) (Reference, error)

	// AlignmentSlice iterates alignments of kind overlapping the 1-based
	// window [start, start+count) of the named reference
	AlignmentSlice(ctx context.Context, ref string, start, count int64, kind AlignmentKind) (AlignmentIterator, error)

	Close() error
}

// Opener opens collections by accession or path
type Opener interface {
	Open(ctx context.Context, acc string) (Collection, error)
}
