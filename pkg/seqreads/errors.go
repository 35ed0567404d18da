package seqreads

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies facade errors
type Kind int

const (
	KindUnknown Kind = iota
	// KindArchive is a failure reported by the archive layer
	KindArchive
	// KindDomain is a request the collection cannot serve
	KindDomain
	// KindRange is a region outside its reference
	KindRange
	// KindCanceled is a context canceled at a checkpoint
	KindCanceled
	// KindInternal is an unexpected fault recovered at the boundary
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindDomain:
		return "domain"
	case KindRange:
		return "range"
	case KindCanceled:
		return "canceled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

var (
	// ErrNoAlignments is returned by ReadsInRegion for unaligned collections
	ErrNoAlignments = errors.New("no aligned reads available")
	// ErrUnknownReference is returned when the region names a reference the
	// collection lacks
	ErrUnknownReference = errors.New("unknown reference")
	// ErrRegionRange is returned when the region falls outside its reference
	ErrRegionRange = errors.New("wrong reference range")

	errInternal = errors.New("internal error (unknown reason)")
)

// Error is the error type returned by every operation
type Error struct {
	Op   string
	Acc  string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Acc == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Acc, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind reports the kind of a facade error, KindUnknown for others
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// detailError carries a full message while matching its sentinel
type detailError struct {
	msg      string
	sentinel error
}

func (e *detailError) Error() string { return e.msg }
func (e *detailError) Unwrap() error { return e.sentinel }

func unknownReferenceError(acc, ref string, options []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "The accession id %s does not have the reference %s. The options are:", acc, ref)
	for _, name := range options {
		b.WriteString(" " + name)
	}
	return &detailError{msg: b.String(), sentinel: ErrUnknownReference}
}

func regionRangeError(length int64) error {
	return &detailError{
		msg:      fmt.Sprintf("wrong reference range, reference length = %d", length),
		sentinel: ErrRegionRange,
	}
}

// archiveError wraps a failure of one archive step. Errors already typed by
// a nested step pass through unchanged.
func archiveError(op, acc, step string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := KindArchive
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCanceled
	}
	return &Error{Op: op, Acc: acc, Kind: kind, Err: fmt.Errorf("failed to %s: %w", step, err)}
}
