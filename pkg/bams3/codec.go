package bams3

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Binary format constants
const (
	BinaryMagic   uint32 = 0x42414D33 // "BAM3"
	BinaryVersion uint16 = 0x0300     // v0.3.0

	// binaryVersion2 records carry 16-bit sequence and CIGAR counts
	binaryVersion2 uint16 = 0x0200
)

// Compression flags
const (
	CompressionNone uint16 = 0x0
	CompressionZstd uint16 = 0x1
)

// Base encoding (4-bit per base)
const (
	BaseA byte = 1
	BaseC byte = 2
	BaseG byte = 4
	BaseT byte = 8
	BaseN byte = 15
)

const (
	chunkHeaderSize  = 16
	recordHeaderSize = 16

	maxUint16 = 1<<16 - 1
)

// IsBinaryChunk reports whether decompressed chunk data starts with the
// binary magic number (stored little-endian as 0x33 0x4D 0x41 0x42).
func IsBinaryChunk(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[0:4]) == BinaryMagic
}

// EncodeChunk encodes reads in the binary chunk layout. The compression
// flag is recorded in the header only; callers compress the result.
func EncodeChunk(reads []ChunkRead, compression string) ([]byte, error) {
	buf := make([]byte, 0, chunkHeaderSize+len(reads)*150)

	var flags uint16 = CompressionNone
	if compression == "zstd" {
		flags = CompressionZstd
	}
	buf = binary.LittleEndian.AppendUint32(buf, BinaryMagic)
	buf = binary.LittleEndian.AppendUint16(buf, BinaryVersion)
	buf = binary.LittleEndian.AppendUint16(buf, flags)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(reads)))
	buf = binary.LittleEndian.AppendUint32(buf, 0) // reserved

	for i, read := range reads {
		var err error
		if buf, err = appendRecord(buf, read); err != nil {
			return nil, fmt.Errorf("failed to encode record %d (%s): %w", i, read.Name, err)
		}
	}
	return buf, nil
}

// appendRecord encodes a single read record
func appendRecord(buf []byte, read ChunkRead) ([]byte, error) {
	if len(read.Name) > maxUint16 {
		return nil, fmt.Errorf("read name too long: %d bytes", len(read.Name))
	}
	if len(read.Tags) > maxUint16 {
		return nil, fmt.Errorf("too many tags: %d", len(read.Tags))
	}
	if uint64(len(read.Sequence)) > math.MaxUint32 || uint64(len(read.CIGAROps)) > math.MaxUint32 {
		return nil, fmt.Errorf("read too long: %d bases, %d CIGAR ops", len(read.Sequence), len(read.CIGAROps))
	}
	start := len(buf)

	// Record header; record_size is patched once the body is written
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(read.Name)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(read.Tags)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(read.Sequence)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(read.CIGAROps)))

	buf = append(buf, read.Name...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(read.ReferenceID)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(read.Position)))
	buf = append(buf, read.MappingQuality)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(read.Flag))

	// Pack: upper 28 bits = length, lower 4 bits = op type
	for _, op := range read.CIGAROps {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Length)<<4|uint32(op.Type))
	}

	buf = append(buf, encodeSequence(read.Sequence)...)

	// Quality is stored as-is and must match the sequence length
	qual := []byte(read.Quality)
	if len(qual) != len(read.Sequence) {
		qual = make([]byte, len(read.Sequence))
		for i := range qual {
			qual[i] = 0xff
		}
	}
	buf = append(buf, qual...)

	names := make([]string, 0, len(read.Tags))
	for name := range read.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tag := []byte(name + "\x00\x00")[:2]
		buf = append(buf, tag[0], tag[1], 'Z')
		buf = append(buf, fmt.Sprintf("%v", read.Tags[name])...)
		buf = append(buf, 0)
	}

	binary.LittleEndian.PutUint32(buf[start:start+4], uint32(len(buf)-start))
	return buf, nil
}

// DecodeChunk reads a chunk in binary format. Decompression is handled by
// the caller; data must already be decompressed.
func DecodeChunk(data []byte) ([]ChunkRead, error) {
	if len(data) < chunkHeaderSize {
		return nil, fmt.Errorf("chunk too small: %d bytes", len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != BinaryMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%08X", magic)
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != BinaryVersion && version != binaryVersion2 {
		return nil, fmt.Errorf("unsupported version: 0x%04X", version)
	}

	numRecords := binary.LittleEndian.Uint32(data[8:12])

	reads := make([]ChunkRead, 0, numRecords)
	offset := chunkHeaderSize

	for i := uint32(0); i < numRecords; i++ {
		read, n, err := decodeRecord(data[offset:], version)
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", i, err)
		}
		reads = append(reads, read)
		offset += n
	}

	return reads, nil
}

// decodeRecord decodes a single record and returns its encoded size
func decodeRecord(data []byte, version uint16) (ChunkRead, int, error) {
	headerSize := recordHeaderSize
	if version == binaryVersion2 {
		headerSize = 12
	}
	if len(data) < headerSize {
		return ChunkRead{}, 0, fmt.Errorf("record too small")
	}

	recordSize := int(binary.LittleEndian.Uint32(data[0:4]))
	nameLen := int(binary.LittleEndian.Uint16(data[4:6]))
	var seqLen, cigarOps, numTags int
	if version == binaryVersion2 {
		seqLen = int(binary.LittleEndian.Uint16(data[6:8]))
		cigarOps = int(binary.LittleEndian.Uint16(data[8:10]))
		numTags = int(binary.LittleEndian.Uint16(data[10:12]))
	} else {
		numTags = int(binary.LittleEndian.Uint16(data[6:8]))
		seqLen = int(binary.LittleEndian.Uint32(data[8:12]))
		cigarOps = int(binary.LittleEndian.Uint32(data[12:16]))
	}

	fixed := headerSize + nameLen + 4 + 4 + 1 + 2 + cigarOps*4 + (seqLen+1)/2 + seqLen
	if recordSize < fixed || recordSize > len(data) {
		return ChunkRead{}, 0, fmt.Errorf("record size %d out of bounds", recordSize)
	}
	data = data[:recordSize]

	offset := headerSize
	read := ChunkRead{}

	read.Name = string(data[offset : offset+nameLen])
	offset += nameLen

	read.ReferenceID = int(int32(binary.LittleEndian.Uint32(data[offset : offset+4])))
	offset += 4

	read.Position = int(int32(binary.LittleEndian.Uint32(data[offset : offset+4])))
	offset += 4

	read.MappingQuality = data[offset]
	offset++

	read.Flag = int(binary.LittleEndian.Uint16(data[offset : offset+2]))
	offset += 2

	if cigarOps > 0 {
		read.CIGAROps = make([]CIGAROperation, cigarOps)
		for i := range read.CIGAROps {
			packed := binary.LittleEndian.Uint32(data[offset : offset+4])
			read.CIGAROps[i] = CIGAROperation{
				Length: int(packed >> 4),
				Type:   byte(packed & 0xF),
			}
			offset += 4
		}
	}

	seqBytes := (seqLen + 1) / 2
	read.Sequence = decodeSequence(data[offset:offset+seqBytes], seqLen)
	offset += seqBytes

	qual := data[offset : offset+seqLen]
	if seqLen == 0 || qual[0] != 0xff {
		read.Quality = string(qual)
	}
	offset += seqLen

	for i := 0; i < numTags && offset+3 <= len(data); i++ {
		if read.Tags == nil {
			read.Tags = make(map[string]interface{})
		}
		tagName := string(data[offset : offset+2])
		tagType := data[offset+2]
		offset += 3

		// Only NUL-terminated string tags are written
		if tagType != 'Z' {
			break
		}
		end := offset
		for end < len(data) && data[end] != 0 {
			end++
		}
		read.Tags[tagName] = string(data[offset:end])
		offset = end + 1
	}

	return read, recordSize, nil
}

// encodeSequence encodes DNA sequence to 4-bit format (2 bases per byte)
func encodeSequence(seq string) []byte {
	encoded := make([]byte, (len(seq)+1)/2)

	for i := 0; i < len(seq); i++ {
		base := encodeBase(seq[i])
		if i%2 == 0 {
			encoded[i/2] = base << 4
		} else {
			encoded[i/2] |= base
		}
	}

	return encoded
}

// encodeBase converts a base character to 4-bit encoding
func encodeBase(b byte) byte {
	switch b {
	case 'A', 'a':
		return BaseA
	case 'C', 'c':
		return BaseC
	case 'G', 'g':
		return BaseG
	case 'T', 't':
		return BaseT
	default:
		return BaseN
	}
}

// decodeSequence decodes 4-bit encoded sequence
func decodeSequence(data []byte, length int) string {
	bases := make([]byte, length)
	for i := 0; i < length; i++ {
		var encoded byte
		if i%2 == 0 {
			encoded = data[i/2] >> 4
		} else {
			encoded = data[i/2] & 0xF
		}
		bases[i] = decodeBase(encoded)
	}
	return string(bases)
}

// decodeBase converts 4-bit encoding to base character
func decodeBase(b byte) byte {
	switch b {
	case BaseA:
		return 'A'
	case BaseC:
		return 'C'
	case BaseG:
		return 'G'
	case BaseT:
		return 'T'
	default:
		return 'N'
	}
}
