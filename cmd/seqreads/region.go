package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
	"github.com/scttfrdmn/seqreads-go/pkg/seqreads"
)

var regionQuality bool

var regionCmd = &cobra.Command{
	Use:   "region <accession> <ref:start-stop> | <accession> <ref> <start> <stop>",
	Short: "Print primary alignments overlapping a region",
	Long: `Print the bases of primary alignments overlapping a reference window.
Coordinates are 1-based and inclusive; stop must not exceed the reference
length.

BAM files with a .bai index alongside are sliced through the index; other
archives are scanned.

Examples:
  seqreads region SRR000123 chr1:1,000,000-1,001,000
  seqreads region sample.bam chr20 100 200 --quality -o fastq`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 && len(args) != 4 {
			return fmt.Errorf("accepts 2 or 4 args, received %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		acc := args[0]
		region, err := regionArgs(args[1:])
		if err != nil {
			return fmt.Errorf("invalid region: %w", err)
		}

		opts := options()
		if regionQuality || outputFormat == "fastq" {
			opts.RegionQualities = true
		}

		res, err := seqreads.ReadsInRegion(cmd.Context(), acc, region.Reference, region.Start, region.Stop, opts)
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), outputFormat, acc, res)
	},
}

func regionArgs(args []string) (archive.Region, error) {
	if len(args) == 1 {
		return archive.ParseRegion(args[0])
	}

	region := archive.Region{Reference: args[0]}
	var err error
	region.Start, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return region, fmt.Errorf("invalid start position: %w", err)
	}
	region.Stop, err = strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return region, fmt.Errorf("invalid stop position: %w", err)
	}
	return region, nil
}

func init() {
	regionCmd.Flags().BoolVarP(&regionQuality, "quality", "q", false,
		"Include quality strings")
}
