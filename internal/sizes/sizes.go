// Package sizes parses image size specifications.
//
// A size spec is a decimal integer followed by one of K, M or G. The unit
// base is an explicit parameter: base 10 gives SI multipliers (K = 1000),
// base 2 gives binary multipliers (K = 1024).
package sizes

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported unit bases.
const (
	BaseSI     = 10
	BaseBinary = 2
)

// Parse converts a size spec like "10M" into a byte count using the given
// unit base.
func Parse(spec string, base int) (int64, error) {
	spec = strings.TrimSpace(spec)
	if len(spec) < 2 {
		return 0, fmt.Errorf("invalid size %q: want <integer><K|M|G>", spec)
	}

	var k int64
	switch base {
	case BaseSI:
		k = 1000
	case BaseBinary:
		k = 1024
	default:
		return 0, fmt.Errorf("unsupported size base %d: want 10 or 2", base)
	}

	var unit int64
	switch spec[len(spec)-1] {
	case 'K':
		unit = k
	case 'M':
		unit = k * k
	case 'G':
		unit = k * k * k
	default:
		return 0, fmt.Errorf("invalid size %q: unit must be K, M or G", spec)
	}

	count, err := strconv.ParseInt(spec[:len(spec)-1], 10, 64)
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("invalid size %q: want <integer><K|M|G>", spec)
	}

	return count * unit, nil
}
