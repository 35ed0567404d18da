package seqreads

import (
	"github.com/sirupsen/logrus"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
)

// DefaultCheckpointInterval is the largest number of reads processed
// between cancellation checks
const DefaultCheckpointInterval = 100000

// Options holds the per-call settings shared by every operation
type Options struct {
	// ForwardErrors makes ReadCount return its error. When false the error
	// is logged and ReadCount returns -1 with a nil error.
	ForwardErrors bool

	// CheckpointInterval is how many reads are processed between context
	// checks. Values outside [1, DefaultCheckpointInterval] use the default.
	CheckpointInterval int

	// RegionQualities makes ReadsInRegion also collect quality strings
	RegionQualities bool

	// Opener resolves accessions to collections
	Opener archive.Opener

	Logger logrus.FieldLogger
}

// NewOptions creates options with defaults
func NewOptions() *Options {
	return &Options{
		ForwardErrors:      true,
		CheckpointInterval: DefaultCheckpointInterval,
		Opener:             archive.NewResolver(),
		Logger:             logrus.StandardLogger(),
	}
}

// withDefaults returns a copy of o with unset fields filled in
func (o *Options) withDefaults() *Options {
	if o == nil {
		return NewOptions()
	}
	out := *o
	if out.CheckpointInterval < 1 || out.CheckpointInterval > DefaultCheckpointInterval {
		out.CheckpointInterval = DefaultCheckpointInterval
	}
	if out.Opener == nil {
		out.Opener = archive.NewResolver()
	}
	if out.Logger == nil {
		out.Logger = logrus.StandardLogger()
	}
	return &out
}
