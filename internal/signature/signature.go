package signature

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Printed kiosk tickets carry a fixed-width signature: N equal-length
// blocks, each a base-16 number padded with deliberate non-hex noise
// characters. Segment boundaries are positional, not delimited. The
// encoder lives on the kiosk side; this codec must invert it exactly.

const (
	DefaultSegments      = 2
	DefaultSegmentLength = 3
)

var ErrBadLength = errors.New("signature length mismatch")

type Codec struct {
	Segments      int
	SegmentLength int
}

func NewCodec(segments, segmentLength int) Codec {
	if segments <= 0 {
		segments = DefaultSegments
	}
	if segmentLength <= 0 {
		segmentLength = DefaultSegmentLength
	}
	return Codec{Segments: segments, SegmentLength: segmentLength}
}

// Decode splits the signature into its fixed-width blocks and parses
// each block's hex digits, ignoring every non-hex rune.
func (c Codec) Decode(sig string) ([]int, error) {
	if len(sig) != c.Segments*c.SegmentLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadLength, len(sig), c.Segments*c.SegmentLength)
	}

	values := make([]int, 0, c.Segments)
	for i := 0; i < c.Segments; i++ {
		block := sig[i*c.SegmentLength : (i+1)*c.SegmentLength]
		digits := strings.Map(keepHex, block)
		value := 0
		if digits != "" {
			parsed, err := strconv.ParseInt(digits, 16, 64)
			if err != nil {
				return nil, err
			}
			value = int(parsed)
		}
		values = append(values, value)
	}
	return values, nil
}

// Values decodes the default two-segment layout into the pair a
// physical ticket carries: the service id and the ticket number.
func (c Codec) Values(sig string) (serviceID, ticketNumber int, err error) {
	parts, err := c.Decode(sig)
	if err != nil {
		return 0, 0, err
	}
	if len(parts) < 2 {
		return 0, 0, ErrBadLength
	}
	return parts[0], parts[1], nil
}

func keepHex(r rune) rune {
	switch {
	case r >= '0' && r <= '9':
		return r
	case r >= 'a' && r <= 'f':
		return r
	case r >= 'A' && r <= 'F':
		return r
	default:
		return -1
	}
}
