package bams3

import "time"

// Metadata contains dataset metadata
type Metadata struct {
	Format      string            `json:"format"`
	Version     string            `json:"version"`
	Created     time.Time         `json:"created"`
	CreatedBy   string            `json:"created_by"`
	Source      Source            `json:"source"`
	Statistics  Statistics        `json:"statistics"`
	Chunks      []ChunkInfo       `json:"chunks"`
	ChunkSize   int               `json:"chunk_size"`
	Compression CompressionConfig `json:"compression"`
}

// Source describes the original data source
type Source struct {
	File   string `json:"file"`
	Format string `json:"format"`
}

// Statistics contains dataset statistics
type Statistics struct {
	TotalReads     int     `json:"total_reads"`
	MappedReads    int     `json:"mapped_reads"`
	UnmappedReads  int     `json:"unmapped_reads"`
	DuplicateReads int     `json:"duplicate_reads"`
	TotalBases     int64   `json:"total_bases"`
	MeanCoverage   float64 `json:"mean_coverage"`
}

// ChunkInfo describes a chunk
type ChunkInfo struct {
	Path        string    `json:"path"`
	Reference   string    `json:"reference"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	MaxEnd      int       `json:"max_end,omitempty"` // furthest alignment end of any read in the chunk
	Reads       int       `json:"reads"`
	SizeBytes   int64     `json:"size_bytes"`
	Compression string    `json:"compression"`
	Checksum    string    `json:"checksum"`
	Created     time.Time `json:"created"`
}

// CompressionConfig describes compression settings
type CompressionConfig struct {
	Algorithm string `json:"algorithm"`
}

// Header represents SAM header
type Header struct {
	HD map[string]string   `json:"HD"` // Header line
	SQ []map[string]string `json:"SQ"` // Reference sequences
	RG []map[string]string `json:"RG"` // Read groups
	PG []map[string]string `json:"PG"` // Programs
	CO []string            `json:"CO"` // Comments
}

// SpatialIndex maps genomic regions to chunks
type SpatialIndex struct {
	References map[string]ReferenceIndex `json:"references"`
}

// ReferenceIndex contains chunks for a reference
type ReferenceIndex struct {
	Name   string      `json:"name"`
	Length int         `json:"length"`
	Chunks []ChunkInfo `json:"chunks"`
}

// Reference is a named target sequence declared by the dataset header
type Reference struct {
	Name   string
	Length int
}

// CIGAROperation represents a single CIGAR operation.
// Type uses the BAM numeric op codes (0=M 1=I 2=D 3=N 4=S 5=H 6=P 7== 8=X).
type CIGAROperation struct {
	Type   byte
	Length int
}

// Read is a record loaded from a chunk, with its reference name resolved
type Read struct {
	Name           string
	Flag           int
	Reference      string
	ReferenceID    int
	Position       int // 0-based
	MappingQuality uint8
	CIGAR          string
	CIGAROps       []CIGAROperation
	Sequence       string
	Quality        string
}

// ChunkRead is the representation of a read in a chunk (supports both JSON and binary)
type ChunkRead struct {
	Name           string                 `json:"name"`
	Flag           int                    `json:"flag"`
	ReferenceID    int                    `json:"reference_id,omitempty"`
	Position       int                    `json:"position,omitempty"`
	MappingQuality uint8                  `json:"mapping_quality,omitempty"`
	CIGAR          string                 `json:"cigar"`
	CIGAROps       []CIGAROperation       `json:"cigar_ops,omitempty"`
	Sequence       string                 `json:"sequence,omitempty"`
	Quality        string                 `json:"quality,omitempty"`
	Tags           map[string]interface{} `json:"tags,omitempty"`

	// Legacy JSON fields (v0.1)
	Ref  int    `json:"ref,omitempty"`
	Pos  int    `json:"pos,omitempty"`
	MapQ uint8  `json:"mapq,omitempty"`
	Seq  string `json:"seq,omitempty"`
	Qual string `json:"qual,omitempty"`
}

// Region represents a genomic region query in 0-based half-open coordinates
type Region struct {
	Reference string
	Start     int
	End       int
}
