package bams3

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"

	"github.com/scttfrdmn/seqreads-go/pkg/storage"
)

// Reader reads BAMS3 datasets
type Reader struct {
	path     string
	metadata Metadata
	header   Header
	index    SpatialIndex
	storage  storage.Storage
}

// OpenDataset opens a BAMS3 dataset at a local path or s3:// URI
func OpenDataset(ctx context.Context, datasetPath string, region string) (*Reader, error) {
	// Create storage backend (auto-detects local vs S3)
	store, err := storage.NewStorage(ctx, datasetPath, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return NewReader(store)
}

// NewReader loads dataset metadata, header and spatial index from store
func NewReader(store storage.Storage) (*Reader, error) {
	r := &Reader{
		path:    store.GetBasePath(),
		storage: store,
	}

	if err := r.loadJSON("_metadata.json", &r.metadata); err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	if err := r.loadJSON("_header.json", &r.header); err != nil {
		return nil, fmt.Errorf("failed to load header: %w", err)
	}

	// The spatial index is optional; chunk metadata carries the same ranges
	indexPath := path.Join("_index", "spatial.json")
	if ok, err := store.Exists(indexPath); err != nil {
		return nil, fmt.Errorf("failed to stat index: %w", err)
	} else if ok {
		if err := r.loadJSON(indexPath, &r.index); err != nil {
			return nil, fmt.Errorf("failed to load index: %w", err)
		}
	}

	return r, nil
}

func (r *Reader) loadJSON(name string, v interface{}) error {
	data, err := r.storage.ReadFile(name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Path returns the dataset location
func (r *Reader) Path() string {
	return r.path
}

// GetMetadata returns the dataset metadata
func (r *Reader) GetMetadata() Metadata {
	return r.metadata
}

// GetHeader returns the SAM header
func (r *Reader) GetHeader() Header {
	return r.header
}

// GetStatistics returns dataset statistics
func (r *Reader) GetStatistics() Statistics {
	return r.metadata.Statistics
}

// References lists the header's reference sequences in declaration order.
// Lengths missing from the header fall back to the spatial index.
func (r *Reader) References() []Reference {
	refs := make([]Reference, 0, len(r.header.SQ))
	for _, sq := range r.header.SQ {
		ref := Reference{Name: sq["SN"]}
		if ln, err := strconv.Atoi(sq["LN"]); err == nil {
			ref.Length = ln
		} else if idx, ok := r.index.References[ref.Name]; ok {
			ref.Length = idx.Length
		}
		refs = append(refs, ref)
	}
	return refs
}

// Chunks returns every chunk ordered by header reference order, then start.
// Chunks on references the header does not declare (e.g. "*") sort last.
func (r *Reader) Chunks() []ChunkInfo {
	order := make(map[string]int, len(r.header.SQ))
	for i, sq := range r.header.SQ {
		order[sq["SN"]] = i
	}
	rank := func(name string) int {
		if i, ok := order[name]; ok {
			return i
		}
		return len(order)
	}

	chunks := append([]ChunkInfo(nil), r.metadata.Chunks...)
	sort.SliceStable(chunks, func(i, j int) bool {
		ri, rj := rank(chunks[i].Reference), rank(chunks[j].Reference)
		if ri != rj {
			return ri < rj
		}
		return chunks[i].Start < chunks[j].Start
	})
	return chunks
}

// FindChunks finds chunks that may hold reads overlapping a region.
// Reads are stored in the chunk holding their start, so a chunk qualifies
// when it starts before the region ends and its furthest alignment end
// passes the region start. Chunks written without MaxEnd fall back to
// reaching back one chunk width.
func (r *Reader) FindChunks(region Region) []ChunkInfo {
	var overlapping []ChunkInfo
	reach := region.Start - r.metadata.ChunkSize

	for _, chunk := range r.Chunks() {
		if chunk.Reference != region.Reference || chunk.Start >= region.End {
			continue
		}
		if chunk.MaxEnd > 0 {
			if chunk.MaxEnd > region.Start {
				overlapping = append(overlapping, chunk)
			}
		} else if chunk.End > reach {
			overlapping = append(overlapping, chunk)
		}
	}

	return overlapping
}

// MissingChunks lists chunk paths named by the metadata that storage does
// not hold
func (r *Reader) MissingChunks() ([]string, error) {
	files, err := r.storage.List("data")
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	var missing []string
	for _, chunk := range r.Chunks() {
		if !present[chunk.Path] {
			missing = append(missing, chunk.Path)
		}
	}
	return missing, nil
}

// LoadChunk loads a chunk file and converts it to Read objects
func (r *Reader) LoadChunk(chunkInfo ChunkInfo) ([]Read, error) {
	data, err := r.storage.ReadFile(chunkInfo.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk %s: %w", chunkInfo.Path, err)
	}

	if chunkInfo.Checksum != "" {
		if sum := fmt.Sprintf("%x", sha256.Sum256(data)); sum != chunkInfo.Checksum {
			return nil, fmt.Errorf("checksum mismatch for chunk %s", chunkInfo.Path)
		}
	}

	if chunkInfo.Compression == "zstd" {
		data, err = Decompress(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress chunk %s: %w", chunkInfo.Path, err)
		}
	}

	var chunkReads []ChunkRead
	if IsBinaryChunk(data) {
		chunkReads, err = DecodeChunk(data)
		if err != nil {
			return nil, fmt.Errorf("failed to read binary chunk %s: %w", chunkInfo.Path, err)
		}
	} else if err := json.Unmarshal(data, &chunkReads); err != nil {
		return nil, fmt.Errorf("failed to parse JSON chunk %s: %w", chunkInfo.Path, err)
	}

	reads := make([]Read, len(chunkReads))
	for i, cr := range chunkReads {
		reads[i] = r.convertChunkRead(cr, chunkInfo)
	}
	return reads, nil
}

func (r *Reader) convertChunkRead(cr ChunkRead, chunkInfo ChunkInfo) Read {
	read := Read{
		Name:           cr.Name,
		Flag:           cr.Flag,
		ReferenceID:    cr.ReferenceID,
		Position:       cr.Position,
		MappingQuality: cr.MappingQuality,
		CIGAR:          cr.CIGAR,
		CIGAROps:       cr.CIGAROps,
		Sequence:       cr.Sequence,
		Quality:        cr.Quality,
	}

	// Fall back to legacy fields if new fields are empty
	if read.ReferenceID == 0 && cr.Ref != 0 {
		read.ReferenceID = cr.Ref
	}
	if read.Position == 0 && cr.Pos != 0 {
		read.Position = cr.Pos
	}
	if read.MappingQuality == 0 && cr.MapQ != 0 {
		read.MappingQuality = cr.MapQ
	}
	if read.Sequence == "" && cr.Seq != "" {
		read.Sequence = cr.Seq
	}
	if read.Quality == "" && cr.Qual != "" {
		read.Quality = cr.Qual
	}

	// Chunks are keyed by reference name, so the chunk's name wins
	read.Reference = chunkInfo.Reference
	if read.Reference == "" && read.ReferenceID >= 0 && read.ReferenceID < len(r.header.SQ) {
		read.Reference = r.header.SQ[read.ReferenceID]["SN"]
	}
	return read
}

// Close closes the reader
func (r *Reader) Close() error {
	// Storage backends hold no open handles between reads
	return nil
}
