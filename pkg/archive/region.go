package archive

import (
	"fmt"
	"strconv"
	"strings"
)

// Region is a 1-based inclusive window on a named reference
type Region struct {
	Reference string
	Start     int64
	Stop      int64
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Reference, r.Start, r.Stop)
}

// ParseRegion parses a region string like "chr1:1000000-2000000".
// Reference names may themselves contain ':' (e.g. HLA contigs); the last
// colon separates the coordinates. Thousands separators are accepted.
func ParseRegion(regionStr string) (Region, error) {
	region := Region{}

	i := strings.LastIndex(regionStr, ":")
	if i <= 0 {
		return region, fmt.Errorf("invalid region format: %s (expected chr:start-end)", regionStr)
	}
	region.Reference = regionStr[:i]

	posParts := strings.Split(strings.ReplaceAll(regionStr[i+1:], ",", ""), "-")
	if len(posParts) != 2 {
		return region, fmt.Errorf("invalid region format: %s (expected chr:start-end)", regionStr)
	}

	var err error
	region.Start, err = strconv.ParseInt(posParts[0], 10, 64)
	if err != nil {
		return region, fmt.Errorf("invalid start position: %w", err)
	}

	region.Stop, err = strconv.ParseInt(posParts[1], 10, 64)
	if err != nil {
		return region, fmt.Errorf("invalid end position: %w", err)
	}

	return region, nil
}
