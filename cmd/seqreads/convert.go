package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scttfrdmn/seqreads-go/pkg/bam"
	"github.com/scttfrdmn/seqreads-go/pkg/bams3"
)

var (
	chunkSizeStr string
	compression  string
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.bam|input.sam> <output.bams3>",
	Short: "Convert a BAM or SAM file to a BAMS3 dataset",
	Long: `Convert a BAM or SAM file into a chunked BAMS3 dataset that the other
commands can read, locally or from S3, without downloading the whole file.

Chunk Size:
  Power-of-2 sizes from 256K to 8M (default 1M)

Examples:
  seqreads convert sample.bam sample.bams3
  seqreads convert sample.bam s3://bucket/runs/SRR000123.bams3 --region us-west-2
  seqreads convert sample.sam sample.bams3 --chunk-size 512K --compression none`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunkSize, err := bams3.ParseChunkSize(chunkSizeStr)
		if err != nil {
			return fmt.Errorf("invalid chunk size: %w", err)
		}

		cfg := bam.NewConvertConfig()
		cfg.ChunkSize = chunkSize
		cfg.Compression = compression
		cfg.Region = awsRegion
		cfg.Logger = logrus.StandardLogger()

		metadata, err := bam.ConvertToBAMS3(cmd.Context(), args[0], args[1], cfg)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return writeJSON(out, metadata)
		}
		fmt.Fprintf(out, "Location: %s\n", args[1])
		fmt.Fprintf(out, "Total reads: %d\n", metadata.Statistics.TotalReads)
		fmt.Fprintf(out, "Mapped reads: %d\n", metadata.Statistics.MappedReads)
		fmt.Fprintf(out, "Chunks: %d\n", len(metadata.Chunks))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&chunkSizeStr, "chunk-size", "1M",
		"Chunk size: 256K, 512K, 1M, 2M, 4M, 8M (power of 2)")
	convertCmd.Flags().StringVar(&compression, "compression", "zstd",
		"Compression algorithm: none, zstd")
	convertCmd.Flags().StringVar(&awsRegion, "region", "",
		"AWS region for s3:// input or output (default from AWS config)")
}
