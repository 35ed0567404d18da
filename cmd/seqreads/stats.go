package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/seqreads-go/pkg/bams3"
)

var awsRegion string

var statsCmd = &cobra.Command{
	Use:   "stats <dataset.bams3>",
	Short: "Show statistics for a BAMS3 dataset",
	Long: `Display statistics for a BAMS3 dataset.

Statistics are read from the metadata file without loading any chunk.
Chunk files named by the metadata but absent from storage are reported.

Examples:
  seqreads stats sample.bams3
  seqreads stats s3://bucket/runs/sample.bams3 --region us-west-2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := bams3.OpenDataset(cmd.Context(), args[0], awsRegion)
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		defer reader.Close()

		metadata := reader.GetMetadata()
		header := reader.GetHeader()
		stats := reader.GetStatistics()
		out := cmd.OutOrStdout()

		missing, err := reader.MissingChunks()
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return writeJSON(out, struct {
				Path          string            `json:"path"`
				Format        string            `json:"format"`
				Version       string            `json:"version"`
				SortOrder     string            `json:"sort_order,omitempty"`
				Statistics    bams3.Statistics  `json:"statistics"`
				Chunks        int               `json:"chunks"`
				MissingChunks []string          `json:"missing_chunks,omitempty"`
				References    []bams3.Reference `json:"references"`
			}{reader.Path(), metadata.Format, metadata.Version, header.HD["SO"], stats,
				len(metadata.Chunks), missing, reader.References()})
		}

		fmt.Fprintf(out, "Dataset: %s\n", reader.Path())
		fmt.Fprintf(out, "Format: %s v%s\n", metadata.Format, metadata.Version)
		if !metadata.Created.IsZero() {
			fmt.Fprintf(out, "Created: %s\n", metadata.Created.Format("2006-01-02 15:04:05"))
		}
		if metadata.Source.File != "" {
			fmt.Fprintf(out, "Source: %s (%s)\n", metadata.Source.File, metadata.Source.Format)
		}
		if so := header.HD["SO"]; so != "" {
			fmt.Fprintf(out, "Sort order: %s\n", so)
		}
		fmt.Fprintf(out, "Read groups: %d\n", len(header.RG))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "Statistics:")
		fmt.Fprintf(out, "  Total reads: %d\n", stats.TotalReads)
		fmt.Fprintf(out, "  Mapped reads: %d (%.2f%%)\n", stats.MappedReads, percent(stats.MappedReads, stats.TotalReads))
		fmt.Fprintf(out, "  Unmapped reads: %d (%.2f%%)\n", stats.UnmappedReads, percent(stats.UnmappedReads, stats.TotalReads))
		fmt.Fprintf(out, "  Duplicate reads: %d\n", stats.DuplicateReads)
		fmt.Fprintf(out, "  Total bases: %d\n", stats.TotalBases)
		fmt.Fprintf(out, "  Mean coverage: %.2fx\n", stats.MeanCoverage)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "Structure:")
		fmt.Fprintf(out, "  Chunk size: %d bp\n", metadata.ChunkSize)
		fmt.Fprintf(out, "  Total chunks: %d\n", len(metadata.Chunks))
		fmt.Fprintf(out, "  Compression: %s\n", metadata.Compression.Algorithm)
		if len(missing) > 0 {
			fmt.Fprintf(out, "  Missing chunks: %d\n", len(missing))
			for _, p := range missing {
				fmt.Fprintf(out, "    %s\n", p)
			}
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, "References:")
		for _, ref := range reader.References() {
			fmt.Fprintf(out, "  %s: %d bp\n", ref.Name, ref.Length)
		}
		return nil
	},
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func init() {
	statsCmd.Flags().StringVar(&awsRegion, "region", "",
		"AWS region for s3:// datasets (default from AWS config)")
}
