package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scttfrdmn/seqreads-go/pkg/config"
	"github.com/scttfrdmn/seqreads-go/pkg/seqreads"
)

const version = "0.1.0"

var (
	configPath   string
	verbose      bool
	outputFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "seqreads",
	Short: "seqreads - Fetch reads from sequence archives",
	Long: `seqreads fetches read counts, reads, quality strings and region-filtered
alignments from sequence archives.

An accession is either a path (local or s3://) ending in a recognized
archive suffix (.bam, .sam, .bams3, .fastq[.gz|.zst|.sz], .fq[...]) or a
run accession such as SRR000123 looked up in the repositories listed in
the config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logrus.SetOutput(os.Stderr)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}

		switch outputFormat {
		case "json", "text", "fastq":
		default:
			return fmt.Errorf("unknown output format %q (expected json, text or fastq)", outputFormat)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default $"+config.EnvPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text",
		"Output format: json, text or fastq")

	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(readsCmd)
	rootCmd.AddCommand(regionCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(versionCmd)
}

// options returns the configured operation options
func options() *seqreads.Options {
	if cfg == nil {
		cfg = config.Default()
	}
	opts := cfg.Options()
	opts.Logger = logrus.StandardLogger()
	return opts
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seqreads-go version %s\n", version)
		fmt.Println("Read access for BAM, SAM, FASTQ and BAMS3 archives")
	},
}
