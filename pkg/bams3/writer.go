package bams3

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/scttfrdmn/seqreads-go/pkg/storage"
)

// unmappedReference names the chunk holding reads without a placement
const unmappedReference = "*"

// Writer writes BAMS3 datasets. Reads are bucketed into chunkSize windows
// by reference and start; Finalize writes chunks, header, metadata and the
// spatial index.
type Writer struct {
	storage     storage.Storage
	chunkSize   int
	compression string
	metadata    Metadata
	header      Header
	chunks      map[chunkKey][]ChunkRead
	chunkInfos  []ChunkInfo
	statistics  Statistics
}

type chunkKey struct {
	reference string
	start     int
}

// CreateDataset creates a writer for a dataset at a local path or s3:// URI
func CreateDataset(ctx context.Context, datasetPath string, region string, chunkSize int, compression string) (*Writer, error) {
	store, err := storage.NewStorage(ctx, datasetPath, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return NewWriter(store, chunkSize, compression)
}

// NewWriter creates a new BAMS3 writer on store
func NewWriter(store storage.Storage, chunkSize int, compression string) (*Writer, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	switch compression {
	case "", "none":
		compression = "none"
	case "zstd":
	default:
		return nil, fmt.Errorf("unsupported compression %q (expected none or zstd)", compression)
	}

	return &Writer{
		storage:     store,
		chunkSize:   chunkSize,
		compression: compression,
		chunks:      make(map[chunkKey][]ChunkRead),
		metadata: Metadata{
			Format:      "bams3",
			Version:     "0.3.0",
			Created:     time.Now(),
			CreatedBy:   "seqreads-go",
			ChunkSize:   chunkSize,
			Compression: CompressionConfig{Algorithm: compression},
		},
	}, nil
}

// SetHeader sets the SAM header
func (w *Writer) SetHeader(header Header) {
	w.header = header
}

// SetSource sets the source information
func (w *Writer) SetSource(source Source) {
	w.metadata.Source = source
}

// AddRead adds a read to the chunk covering its start. Reads flagged
// unmapped or without a reference go to the unmapped chunk.
func (w *Writer) AddRead(read Read) {
	w.statistics.TotalReads++
	if read.Flag&0x400 != 0 { // Duplicate flag
		w.statistics.DuplicateReads++
	}
	w.statistics.TotalBases += int64(len(read.Sequence))

	key := chunkKey{reference: unmappedReference}
	if read.Flag&0x4 == 0 && read.Reference != "" && read.Reference != unmappedReference && read.Position >= 0 {
		key = chunkKey{
			reference: read.Reference,
			start:     (read.Position / w.chunkSize) * w.chunkSize,
		}
		w.statistics.MappedReads++
	} else {
		w.statistics.UnmappedReads++
	}

	w.chunks[key] = append(w.chunks[key], ChunkRead{
		Name:           read.Name,
		Flag:           read.Flag,
		ReferenceID:    read.ReferenceID,
		Position:       read.Position,
		MappingQuality: read.MappingQuality,
		CIGAR:          read.CIGAR,
		CIGAROps:       read.CIGAROps,
		Sequence:       read.Sequence,
		Quality:        read.Quality,
	})
}

// Finalize writes all chunks and metadata and returns the dataset metadata
func (w *Writer) Finalize() (Metadata, error) {
	for _, key := range w.sortedKeys() {
		if err := w.writeChunk(key, w.chunks[key]); err != nil {
			return Metadata{}, fmt.Errorf("failed to write chunk %s:%d: %w", key.reference, key.start, err)
		}
	}

	if err := w.writeJSON("_header.json", w.header); err != nil {
		return Metadata{}, fmt.Errorf("failed to write header: %w", err)
	}

	var totalRefLength int64
	for _, sq := range w.header.SQ {
		if ln, err := strconv.ParseInt(sq["LN"], 10, 64); err == nil {
			totalRefLength += ln
		}
	}
	if totalRefLength > 0 {
		w.statistics.MeanCoverage = float64(w.statistics.TotalBases) / float64(totalRefLength)
	}

	w.metadata.Statistics = w.statistics
	w.metadata.Chunks = w.chunkInfos
	if err := w.writeJSON("_metadata.json", w.metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := w.writeSpatialIndex(); err != nil {
		return Metadata{}, fmt.Errorf("failed to write spatial index: %w", err)
	}
	return w.metadata, nil
}

// sortedKeys orders chunks by header reference order, then start, with
// the unmapped chunk last
func (w *Writer) sortedKeys() []chunkKey {
	order := make(map[string]int, len(w.header.SQ))
	for i, sq := range w.header.SQ {
		order[sq["SN"]] = i
	}
	rank := func(name string) int {
		if name == unmappedReference {
			return len(order) + 1
		}
		if i, ok := order[name]; ok {
			return i
		}
		return len(order)
	}

	keys := make([]chunkKey, 0, len(w.chunks))
	for key := range w.chunks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i].reference), rank(keys[j].reference)
		if ri != rj {
			return ri < rj
		}
		if keys[i].reference != keys[j].reference {
			return keys[i].reference < keys[j].reference
		}
		return keys[i].start < keys[j].start
	})
	return keys
}

// writeChunk encodes, optionally compresses and stores one chunk
func (w *Writer) writeChunk(key chunkKey, reads []ChunkRead) error {
	chunkPath := path.Join("data", "unmapped.chunk")
	start, end, maxEnd := 0, 0, 0
	if key.reference != unmappedReference {
		start, end = key.start, key.start+w.chunkSize
		chunkPath = path.Join("data", key.reference, fmt.Sprintf("%09d-%09d.chunk", start, end))
		for _, cr := range reads {
			if e := cr.End(); e > maxEnd {
				maxEnd = e
			}
		}
	}

	data, err := EncodeChunk(reads, w.compression)
	if err != nil {
		return err
	}
	if w.compression == "zstd" {
		compressed, err := Compress(data)
		if err != nil {
			return fmt.Errorf("failed to compress chunk: %w", err)
		}
		data = compressed
	}

	if err := w.storage.WriteFile(chunkPath, data); err != nil {
		return err
	}

	// Checksum covers the stored (compressed) bytes
	hash := sha256.Sum256(data)

	w.chunkInfos = append(w.chunkInfos, ChunkInfo{
		Path:        chunkPath,
		Reference:   key.reference,
		Start:       start,
		End:         end,
		MaxEnd:      maxEnd,
		Reads:       len(reads),
		SizeBytes:   int64(len(data)),
		Compression: w.compression,
		Checksum:    fmt.Sprintf("%x", hash),
		Created:     time.Now(),
	})
	return nil
}

// writeSpatialIndex writes the per-reference chunk index
func (w *Writer) writeSpatialIndex() error {
	index := SpatialIndex{
		References: make(map[string]ReferenceIndex),
	}

	lengths := make(map[string]int, len(w.header.SQ))
	for _, sq := range w.header.SQ {
		if ln, err := strconv.Atoi(sq["LN"]); err == nil {
			lengths[sq["SN"]] = ln
		}
	}

	for _, chunkInfo := range w.chunkInfos {
		if chunkInfo.Reference == unmappedReference {
			continue
		}
		refIndex, ok := index.References[chunkInfo.Reference]
		if !ok {
			refIndex = ReferenceIndex{
				Name:   chunkInfo.Reference,
				Length: lengths[chunkInfo.Reference],
			}
		}
		refIndex.Chunks = append(refIndex.Chunks, chunkInfo)
		index.References[chunkInfo.Reference] = refIndex
	}

	return w.writeJSON(path.Join("_index", "spatial.json"), index)
}

func (w *Writer) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return w.storage.WriteFile(name, data)
}
