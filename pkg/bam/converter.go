// Package bam converts BAM and SAM files into BAMS3 datasets.
package bam

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/sirupsen/logrus"

	"github.com/scttfrdmn/seqreads-go/pkg/bams3"
	"github.com/scttfrdmn/seqreads-go/pkg/storage"
)

// progressInterval is how many records are converted between progress
// lines and context checks
const progressInterval = 100000

// ConvertConfig holds conversion settings
type ConvertConfig struct {
	ChunkSize   int
	Compression string

	// Region is the AWS region for s3:// input or output
	Region string

	Logger logrus.FieldLogger
}

// NewConvertConfig creates a config with defaults: 1M chunks, zstd
func NewConvertConfig() *ConvertConfig {
	return &ConvertConfig{
		ChunkSize:   1024 * 1024,
		Compression: "zstd",
		Logger:      logrus.StandardLogger(),
	}
}

// recordReader is satisfied by both bam.Reader and sam.Reader
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

// ConvertToBAMS3 converts a BAM or SAM file (local or s3://) into a BAMS3
// dataset at outputPath and returns the written metadata
func ConvertToBAMS3(ctx context.Context, inputPath, outputPath string, cfg *ConvertConfig) (bams3.Metadata, error) {
	if cfg == nil {
		cfg = NewConvertConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"input": inputPath, "output": outputPath})

	base, name := storage.Split(inputPath)
	store, err := storage.NewStorage(ctx, base, cfg.Region)
	if err != nil {
		return bams3.Metadata{}, fmt.Errorf("failed to create storage backend: %w", err)
	}
	f, err := store.Open(name)
	if err != nil {
		return bams3.Metadata{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var (
		reader recordReader
		format string
	)
	switch lower := strings.ToLower(name); {
	case strings.HasSuffix(lower, ".bam"):
		br, err := bam.NewReader(f, 1)
		if err != nil {
			return bams3.Metadata{}, fmt.Errorf("failed to create BAM reader: %w", err)
		}
		defer br.Close()
		reader, format = br, "BAM"
	case strings.HasSuffix(lower, ".sam"):
		sr, err := sam.NewReader(f)
		if err != nil {
			return bams3.Metadata{}, fmt.Errorf("failed to create SAM reader: %w", err)
		}
		reader, format = sr, "SAM"
	default:
		return bams3.Metadata{}, fmt.Errorf("unsupported input %s (expected .bam or .sam)", inputPath)
	}

	writer, err := bams3.CreateDataset(ctx, outputPath, cfg.Region, cfg.ChunkSize, cfg.Compression)
	if err != nil {
		return bams3.Metadata{}, fmt.Errorf("failed to create BAMS3 writer: %w", err)
	}
	writer.SetHeader(convertHeader(reader.Header()))
	writer.SetSource(bams3.Source{File: inputPath, Format: format})

	log.WithFields(logrus.Fields{
		"chunk_size":  bams3.FormatChunkSize(cfg.ChunkSize),
		"compression": cfg.Compression,
	}).Info("Converting to BAMS3")

	readCount := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return bams3.Metadata{}, fmt.Errorf("failed to read %s record: %w", format, err)
		}

		readCount++
		if readCount%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return bams3.Metadata{}, err
			}
			log.WithField("reads", readCount).Debugf("Processed %d reads", readCount)
		}

		writer.AddRead(convertRecord(record))
	}

	metadata, err := writer.Finalize()
	if err != nil {
		return bams3.Metadata{}, err
	}
	log.WithFields(logrus.Fields{
		"reads":  metadata.Statistics.TotalReads,
		"mapped": metadata.Statistics.MappedReads,
		"chunks": len(metadata.Chunks),
	}).Info("Conversion complete")
	return metadata, nil
}

// convertHeader converts sam.Header to bams3.Header
func convertHeader(samHeader *sam.Header) bams3.Header {
	header := bams3.Header{
		HD: make(map[string]string),
		SQ: []map[string]string{},
		RG: []map[string]string{},
		PG: []map[string]string{},
		CO: samHeader.Comments,
	}

	if samHeader.Version != "" {
		header.HD["VN"] = samHeader.Version
	}
	if samHeader.SortOrder != sam.UnknownOrder {
		header.HD["SO"] = samHeader.SortOrder.String()
	}

	for _, ref := range samHeader.Refs() {
		header.SQ = append(header.SQ, map[string]string{
			"SN": ref.Name(),
			"LN": fmt.Sprintf("%d", ref.Len()),
		})
	}

	for _, rg := range samHeader.RGs() {
		header.RG = append(header.RG, map[string]string{"ID": rg.Name()})
	}

	for _, pg := range samHeader.Progs() {
		pgMap := map[string]string{"ID": fmt.Sprintf("%d", pg.ID())}
		if pg.Name() != "" {
			pgMap["PN"] = pg.Name()
		}
		if pg.Version() != "" {
			pgMap["VN"] = pg.Version()
		}
		header.PG = append(header.PG, pgMap)
	}

	return header
}

// convertRecord converts a sam.Record to bams3.Read
func convertRecord(record *sam.Record) bams3.Read {
	read := bams3.Read{
		Name:           record.Name,
		Flag:           int(record.Flags),
		ReferenceID:    -1,
		Position:       record.Pos,
		MappingQuality: record.MapQ,
		CIGAR:          record.Cigar.String(),
		Sequence:       string(record.Seq.Expand()),
	}

	if record.Ref != nil {
		read.Reference = record.Ref.Name()
		read.ReferenceID = record.Ref.ID()
	}

	read.CIGAROps = make([]bams3.CIGAROperation, len(record.Cigar))
	for i, op := range record.Cigar {
		read.CIGAROps[i] = bams3.CIGAROperation{
			Type:   byte(op.Type()),
			Length: op.Len(),
		}
	}

	// Missing qualities are stored as 0xff in BAM
	if len(record.Qual) > 0 && record.Qual[0] != 0xff {
		qual := make([]byte, len(record.Qual))
		for i, q := range record.Qual {
			qual[i] = q + 33
		}
		read.Quality = string(qual)
	}

	return read
}
