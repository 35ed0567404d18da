package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/scttfrdmn/seqreads-go/pkg/seqreads"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResult prints res as a JSON envelope, one sequence per line (with a
// tab-separated quality when present) or FASTQ records named <acc>.<n>
func writeResult(w io.Writer, format, acc string, res *seqreads.Result) error {
	switch format {
	case "json":
		return writeJSON(w, res)
	case "fastq":
		return writeFASTQ(w, acc, res)
	}

	bw := bufio.NewWriter(w)
	for i, bases := range res.Reads {
		if res.Qualities != nil {
			fmt.Fprintf(bw, "%s\t%s\n", bases, res.Qualities[i])
			continue
		}
		fmt.Fprintln(bw, bases)
	}
	return bw.Flush()
}

func writeFASTQ(w io.Writer, acc string, res *seqreads.Result) error {
	if res.Qualities == nil {
		return fmt.Errorf("fastq output requires quality strings")
	}

	name := acc
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	bw := bufio.NewWriter(w)
	for i, bases := range res.Reads {
		qual := res.Qualities[i]
		if qual == "" {
			// Archives without qualities get a placeholder of the same length
			qual = strings.Repeat("?", len(bases))
		}
		fmt.Fprintf(bw, "@%s.%d\n%s\n+\n%s\n", name, i+1, bases, qual)
	}
	return bw.Flush()
}
