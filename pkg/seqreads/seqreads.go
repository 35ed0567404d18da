// Package seqreads fetches read counts, reads, qualities and region-filtered
// alignments from sequence archives.
//
// Every operation opens its own collection, releases it before returning
// and reports failures as *Error. Long iterations check ctx every
// Options.CheckpointInterval reads.
package seqreads

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
)

// ReadCount returns the number of reads in the archive named by acc.
// With ForwardErrors off, failures are logged and reported as -1 with a
// nil error; internal errors are returned regardless.
func ReadCount(ctx context.Context, acc string, opts *Options) (int64, error) {
	const op = "ReadCount"
	o := opts.withDefaults()

	var count int64 = -1
	err := withCollection(ctx, op, acc, o, func(c archive.Collection) error {
		n, err := c.ReadCount(ctx)
		if err != nil {
			return archiveError(op, acc, "count reads", err)
		}
		count = n
		return nil
	})
	if err != nil {
		if !o.ForwardErrors && ErrorKind(err) != KindInternal {
			o.Logger.WithFields(logrus.Fields{"op": op, "acc": acc}).WithError(err).Warn("Read count unavailable")
			return -1, nil
		}
		return -1, err
	}
	return count, nil
}

// Reads returns the bases of every fragment of the first maxReads reads.
// maxReads < 1 means all reads.
func Reads(ctx context.Context, acc string, maxReads int64, opts *Options) (*Result, error) {
	return collectReads(ctx, "Reads", acc, maxReads, false, opts.withDefaults())
}

// ReadsWithQuality is Reads with each fragment's quality string collected
// alongside its bases
func ReadsWithQuality(ctx context.Context, acc string, maxReads int64, opts *Options) (*Result, error) {
	return collectReads(ctx, "ReadsWithQuality", acc, maxReads, true, opts.withDefaults())
}

func collectReads(ctx context.Context, op, acc string, maxReads int64, withQualities bool, o *Options) (*Result, error) {
	log := o.Logger.WithFields(logrus.Fields{"op": op, "acc": acc})
	res := newResult(withQualities)

	err := withCollection(ctx, op, acc, o, func(c archive.Collection) error {
		limit := maxReads
		if limit < 1 {
			n, err := c.ReadCount(ctx)
			if err != nil {
				return archiveError(op, acc, "count reads", err)
			}
			limit = n
		}

		it, err := c.Reads(ctx)
		if err != nil {
			return archiveError(op, acc, "iterate reads", err)
		}
		defer it.Close()

		interval := int64(o.CheckpointInterval)
		var n int64
		for n < limit {
			if n%interval == 0 {
				if err := checkpoint(ctx, op, acc); err != nil {
					return err
				}
				if n > 0 {
					log.WithField("reads", n).Debugf("Processed %d reads", n)
				}
			}
			if !it.Next() {
				break
			}
			for _, f := range it.Read().Fragments {
				res.add(f.Bases, f.Qualities)
			}
			n++
		}
		if err := it.Err(); err != nil {
			return archiveError(op, acc, "read records", err)
		}
		log.WithField("reads", n).Debugf("Collected %d fragments from %d reads", len(res.Reads), n)
		return nil
	})
	if err != nil {
		return newResult(withQualities), err
	}
	return res, nil
}

// ReadsInRegion returns the bases of primary alignments overlapping the
// 1-based inclusive window [start, stop] of refName
func ReadsInRegion(ctx context.Context, acc, refName string, start, stop int64, opts *Options) (*Result, error) {
	const op = "ReadsInRegion"
	o := opts.withDefaults()
	log := o.Logger.WithFields(logrus.Fields{"op": op, "acc": acc})
	res := newResult(o.RegionQualities)

	err := withCollection(ctx, op, acc, o, func(c archive.Collection) error {
		total, err := c.AlignmentCount(ctx)
		if err != nil {
			return archiveError(op, acc, "count alignments", err)
		}
		if total == 0 {
			return &Error{Op: op, Acc: acc, Kind: KindDomain, Err: ErrNoAlignments}
		}

		refs, err := c.References(ctx)
		if err != nil {
			return archiveError(op, acc, "list references", err)
		}
		names := make([]string, 0, len(refs))
		found := false
		for _, r := range refs {
			names = append(names, r.Name)
			if r.Name == refName {
				found = true
			}
		}
		if !found {
			return &Error{Op: op, Acc: acc, Kind: KindDomain, Err: unknownReferenceError(acc, refName, names)}
		}

		ref, err := c.Reference(ctx, refName)
		if err != nil {
			return archiveError(op, acc, "resolve reference", err)
		}
		if start < 1 || stop < start || stop > ref.Length {
			return &Error{Op: op, Acc: acc, Kind: KindRange, Err: regionRangeError(ref.Length)}
		}

		count := stop - start + 1
		it, err := c.AlignmentSlice(ctx, refName, start, count, archive.PrimaryAlignment)
		if err != nil {
			return archiveError(op, acc, "slice alignments", err)
		}
		defer it.Close()

		interval := int64(o.CheckpointInterval)
		var n int64
		for ; ; n++ {
			if n%interval == 0 {
				if err := checkpoint(ctx, op, acc); err != nil {
					return err
				}
			}
			if !it.Next() {
				break
			}
			f := it.Alignment().Fragment
			res.add(f.Bases, f.Qualities)
		}
		if err := it.Err(); err != nil {
			return archiveError(op, acc, "iterate alignments", err)
		}
		log.WithField("alignments", n).Debugf("Collected %d alignments in %s:%d-%d", n, refName, start, stop)
		return nil
	})
	if err != nil {
		return newResult(o.RegionQualities), err
	}
	return res, nil
}

// withCollection opens acc, runs fn and closes the collection on every
// path. Panics from the archive layer become KindInternal errors.
func withCollection(ctx context.Context, op, acc string, o *Options, fn func(archive.Collection) error) (err error) {
	log := o.Logger.WithFields(logrus.Fields{"op": op, "acc": acc})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Recovered from unexpected fault")
			err = &Error{Op: op, Acc: acc, Kind: KindInternal, Err: errInternal}
		}
	}()

	if err := checkpoint(ctx, op, acc); err != nil {
		return err
	}

	c, err := o.Opener.Open(ctx, acc)
	if err != nil {
		return archiveError(op, acc, "open collection", err)
	}
	log.Debug("Opened collection")

	defer func() {
		if cerr := c.Close(); cerr != nil {
			if err == nil {
				err = archiveError(op, acc, "close collection", cerr)
			} else {
				log.WithError(cerr).Warn("Failed to close collection")
			}
		}
	}()

	return fn(c)
}

func checkpoint(ctx context.Context, op, acc string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Acc: acc, Kind: KindCanceled, Err: err}
	}
	return nil
}
