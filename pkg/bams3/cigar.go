package bams3

// BAM numeric CIGAR op codes that consume reference bases
const (
	cigarMatch    byte = 0
	cigarDeletion byte = 2
	cigarSkipped  byte = 3
	cigarEqual    byte = 7
	cigarMismatch byte = 8
)

// ReferenceSpan returns the number of reference bases the read covers.
// Binary chunks carry packed ops; JSON chunks only the CIGAR string.
func (r Read) ReferenceSpan() int {
	if len(r.CIGAROps) > 0 {
		span := 0
		for _, op := range r.CIGAROps {
			switch op.Type {
			case cigarMatch, cigarDeletion, cigarSkipped, cigarEqual, cigarMismatch:
				span += op.Length
			}
		}
		return span
	}
	return cigarStringSpan(r.CIGAR)
}

// End returns the 0-based exclusive end of the alignment
func (r Read) End() int {
	return r.Position + r.ReferenceSpan()
}

// End returns the 0-based exclusive end of the stored alignment
func (cr ChunkRead) End() int {
	return Read{Position: cr.Position, CIGAR: cr.CIGAR, CIGAROps: cr.CIGAROps}.End()
}

// cigarStringSpan calculates the reference span of a read from its CIGAR
func cigarStringSpan(cigar string) int {
	if cigar == "" || cigar == "*" {
		return 0
	}

	length := 0
	currentNum := 0

	for _, ch := range cigar {
		if ch >= '0' && ch <= '9' {
			currentNum = currentNum*10 + int(ch-'0')
			continue
		}
		switch ch {
		case 'M', 'D', 'N', '=', 'X':
			length += currentNum
		}
		currentNum = 0
	}

	return length
}
