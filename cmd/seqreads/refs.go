package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
)

var refsCmd = &cobra.Command{
	Use:   "refs <accession>",
	Short: "List the references of an archive",
	Long: `List reference names and lengths in archive order, followed by the
number of mapped alignments.

Example:
  seqreads refs SRR000123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts := options()

		c, err := opts.Opener.Open(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer c.Close()

		refs, err := c.References(ctx)
		if err != nil {
			return fmt.Errorf("failed to list references: %w", err)
		}
		alignments, err := c.AlignmentCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to count alignments: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			if refs == nil {
				refs = []archive.Reference{}
			}
			return writeJSON(out, struct {
				References []archive.Reference `json:"references"`
				Alignments int64               `json:"alignments"`
			}{refs, alignments})
		}

		for _, r := range refs {
			fmt.Fprintf(out, "%s\t%d\n", r.Name, r.Length)
		}
		fmt.Fprintf(out, "# %d references, %d alignments\n", len(refs), alignments)
		return nil
	},
}
