package archive

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/scttfrdmn/seqreads-go/pkg/bams3"
	"github.com/scttfrdmn/seqreads-go/pkg/storage"
)

// accessionPattern matches SRA/ENA/DDBJ run, experiment, sample and study accessions
var accessionPattern = regexp.MustCompile(`^[SED]R[RXSP][0-9]+$`)

// IsAccession reports whether s looks like an archive accession
func IsAccession(s string) bool {
	return accessionPattern.MatchString(s)
}

// Repository is a location holding archives named <accession><suffix>
type Repository struct {
	ID     string
	Type   string // "local" or "s3"
	Path   string
	Region string
}

// Resolver opens collections from direct locations or repository accessions
type Resolver struct {
	Repositories []Repository

	// Region is used for direct s3:// locations; empty defers to the AWS chain
	Region string
}

// NewResolver creates a resolver searching repos in order
func NewResolver(repos ...Repository) *Resolver {
	return &Resolver{Repositories: repos}
}

// Open resolves acc and opens the collection it names
func (r *Resolver) Open(ctx context.Context, acc string) (Collection, error) {
	acc = strings.TrimSpace(acc)
	if acc == "" {
		return nil, fmt.Errorf("%w: empty accession", ErrUnrecognizedAccession)
	}

	if format, _ := DetectFormat(acc); format != FormatUnknown {
		return OpenLocation(ctx, acc, r.Region)
	}

	if !IsAccession(acc) {
		return nil, fmt.Errorf("%w: %s (expected an accession or a path ending in %s)",
			ErrUnrecognizedAccession, acc, strings.Join(Suffixes, ", "))
	}

	for _, repo := range r.Repositories {
		c, err := r.openFromRepository(ctx, repo, acc)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s not found in %d repositories", ErrUnrecognizedAccession, acc, len(r.Repositories))
}

// openFromRepository returns nil, nil when the repository lacks acc
func (r *Resolver) openFromRepository(ctx context.Context, repo Repository, acc string) (Collection, error) {
	store, err := storage.NewStorage(ctx, repo.Path, repo.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", repo.ID, err)
	}

	for _, suffix := range Suffixes {
		name := acc + suffix
		marker := name
		if suffix == ".bams3" {
			marker = path.Join(name, "_metadata.json")
		}

		ok, err := store.Exists(marker)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s in repository %s: %w", name, repo.ID, err)
		}
		if !ok {
			continue
		}

		if suffix == ".bams3" {
			return OpenLocation(ctx, storage.Join(repo.Path, name), repo.Region)
		}
		format, codec := DetectFormat(name)
		return openInStorage(acc, store, name, format, codec)
	}
	return nil, nil
}

// OpenLocation opens an archive at a local path or s3:// URI, choosing the
// reader by suffix.
func OpenLocation(ctx context.Context, location string, region string) (Collection, error) {
	format, codec := DetectFormat(location)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s has no recognized archive suffix", ErrUnrecognizedAccession, location)
	}

	if format == FormatBAMS3 {
		reader, err := bams3.OpenDataset(ctx, location, region)
		if err != nil {
			return nil, fmt.Errorf("failed to open dataset %s: %w", location, err)
		}
		return newBAMS3Collection(location, reader), nil
	}

	base, name := storage.Split(location)
	store, err := storage.NewStorage(ctx, base, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return openInStorage(location, store, name, format, codec)
}

func openInStorage(name string, store storage.Storage, file string, format Format, codec Codec) (Collection, error) {
	switch format {
	case FormatBAM, FormatSAM:
		return openHTS(name, store, file, format)
	case FormatFASTQ:
		return openFASTQ(name, store, file, codec)
	default:
		return nil, fmt.Errorf("unsupported format %s for %s", format, file)
	}
}
