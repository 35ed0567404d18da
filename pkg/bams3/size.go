package bams3

import (
	"fmt"
	"math"
)

// ParseChunkSize parses chunk size string (e.g., "1M", "512K") to bases
func ParseChunkSize(sizeStr string) (int, error) {
	if len(sizeStr) < 2 {
		return 0, fmt.Errorf("invalid chunk size format: %s", sizeStr)
	}

	var value float64
	var unit string

	_, err := fmt.Sscanf(sizeStr, "%f%s", &value, &unit)
	if err != nil {
		return 0, fmt.Errorf("failed to parse chunk size: %w", err)
	}

	var multiplier int64
	switch unit {
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size unit: %s", unit)
	}

	size := int64(value * float64(multiplier))

	if !isPowerOfTwo(size) {
		return 0, fmt.Errorf("chunk size must be a power of 2, got: %d", size)
	}

	// 256K to 8M
	if size < 256*1024 || size > 8*1024*1024 {
		return 0, fmt.Errorf("chunk size must be between 256K and 8M, got: %d", size)
	}

	return int(size), nil
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && (n&(n-1)) == 0
}

// FormatChunkSize formats a chunk size as e.g. "1M" or "512K"
func FormatChunkSize(size int) string {
	if size >= 1024*1024 {
		mb := float64(size) / (1024 * 1024)
		if mb == math.Floor(mb) {
			return fmt.Sprintf("%dM", int(mb))
		}
		return fmt.Sprintf("%.1fM", mb)
	} else if size >= 1024 {
		kb := float64(size) / 1024
		if kb == math.Floor(kb) {
			return fmt.Sprintf("%dK", int(kb))
		}
		return fmt.Sprintf("%.1fK", kb)
	}
	return fmt.Sprintf("%d", size)
}
