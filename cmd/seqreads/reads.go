package main

import (
	"github.com/spf13/cobra"

	"github.com/scttfrdmn/seqreads-go/pkg/seqreads"
)

var (
	maxReads    int64
	withQuality bool
)

var readsCmd = &cobra.Command{
	Use:   "reads <accession>",
	Short: "Print read sequences from an archive",
	Long: `Print the bases of every fragment of the first --max reads, in archive
order. Paired reads contribute one line per mate.

Examples:
  seqreads reads SRR000123 --max 10
  seqreads reads sample.bam --quality -o json
  seqreads reads sample.fastq.zst -o fastq > out.fastq`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc := args[0]
		opts := options()

		var (
			res *seqreads.Result
			err error
		)
		if withQuality || outputFormat == "fastq" {
			res, err = seqreads.ReadsWithQuality(cmd.Context(), acc, maxReads, opts)
		} else {
			res, err = seqreads.Reads(cmd.Context(), acc, maxReads, opts)
		}
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), outputFormat, acc, res)
	},
}

func init() {
	readsCmd.Flags().Int64VarP(&maxReads, "max", "n", 0,
		"Maximum number of reads (0 for all)")
	readsCmd.Flags().BoolVarP(&withQuality, "quality", "q", false,
		"Include quality strings")
}
