package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/seqreads-go/pkg/seqreads"
)

var forwardErrors bool

var countCmd = &cobra.Command{
	Use:   "count <accession>",
	Short: "Count reads in an archive",
	Long: `Print the number of reads in an archive. Paired fragments count as
one read.

With --forward-errors=false a failure is logged and -1 is printed instead
of exiting with an error.

Examples:
  seqreads count SRR000123
  seqreads count /data/sample.bam
  seqreads count s3://bucket/runs/sample.fastq.gz --forward-errors=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options()
		if cmd.Flags().Changed("forward-errors") {
			opts.ForwardErrors = forwardErrors
		}

		n, err := seqreads.ReadCount(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), map[string]int64{"count": n})
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func init() {
	countCmd.Flags().BoolVar(&forwardErrors, "forward-errors", true,
		"Return errors instead of printing -1")
}
