package archive

import "strings"

// Format identifies an archive layout
type Format int

const (
	FormatUnknown Format = iota
	FormatBAM
	FormatSAM
	FormatFASTQ
	FormatBAMS3
)

func (f Format) String() string {
	switch f {
	case FormatBAM:
		return "BAM"
	case FormatSAM:
		return "SAM"
	case FormatFASTQ:
		return "FASTQ"
	case FormatBAMS3:
		return "BAMS3"
	default:
		return "unknown"
	}
}

// Codec is the stream compression wrapped around a FASTQ file
type Codec string

const (
	CodecNone   Codec = ""
	CodecGzip   Codec = "gz"
	CodecZstd   Codec = "zst"
	CodecSnappy Codec = "sz"
)

var codecSuffixes = []Codec{CodecGzip, CodecZstd, CodecSnappy}

// Suffixes lists the archive suffixes tried, in order, when resolving a
// bare accession against a repository.
var Suffixes = []string{
	".bam",
	".bams3",
	".sam",
	".fastq.gz",
	".fastq.zst",
	".fastq.sz",
	".fastq",
	".fq.gz",
	".fq.zst",
	".fq.sz",
	".fq",
}

// DetectFormat classifies a location by its suffix
func DetectFormat(location string) (Format, Codec) {
	name := strings.ToLower(strings.TrimSuffix(location, "/"))

	switch {
	case strings.HasSuffix(name, ".bams3"):
		return FormatBAMS3, CodecNone
	case strings.HasSuffix(name, ".bam"):
		return FormatBAM, CodecNone
	case strings.HasSuffix(name, ".sam"):
		return FormatSAM, CodecNone
	}

	codec := CodecNone
	for _, c := range codecSuffixes {
		if strings.HasSuffix(name, "."+string(c)) {
			codec = c
			name = strings.TrimSuffix(name, "."+string(c))
			break
		}
	}
	if strings.HasSuffix(name, ".fastq") || strings.HasSuffix(name, ".fq") {
		return FormatFASTQ, codec
	}
	return FormatUnknown, CodecNone
}
