package byterange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned for Range headers that cannot be understood,
// e.g. a missing or non-numeric start position.
var ErrMalformed = errors.New("malformed range")

// UnsatisfiableError is returned when the range starts at or after the end of the resource.
type UnsatisfiableError struct {
	Start int64
	Size  int64
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("%d >= %d", e.Start, e.Size)
}

// Range is a resolved, inclusive byte range within a resource of known size.
type Range struct {
	Start int64
	End   int64
	Size  int64
}

// Length returns the number of bytes in the range.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange returns the value of the `Content-Range` header for the range.
func (r Range) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// UnsatisfiedContentRange returns the `Content-Range` value sent with 416 responses.
func UnsatisfiedContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

var rangeSpec = regexp.MustCompile(`^\s*(\d*)\s*-\s*(\d*)\s*$`)

// Parse resolves the `Range` header value against a resource of the given size.
// The syntax is `bytes=<start>-<end>`, where the end is optional and defaults
// to the last byte of the resource. Ends past the resource are clamped.
// Only the first range of a multi-range request is used.
func Parse(header string, size int64) (Range, error) {
	spec := strings.TrimSpace(header)
	unit, spec, found := strings.Cut(spec, "=")
	if !found || strings.TrimSpace(unit) != "bytes" {
		return Range{}, ErrMalformed
	}
	spec, _, _ = strings.Cut(spec, ",")

	matches := rangeSpec.FindStringSubmatch(spec)
	if matches == nil || matches[1] == "" {
		return Range{}, ErrMalformed
	}
	start, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return Range{}, ErrMalformed
	}
	if start >= size {
		return Range{}, &UnsatisfiableError{Start: start, Size: size}
	}

	end := size - 1
	if matches[2] != "" {
		if end, err = strconv.ParseInt(matches[2], 10, 64); err != nil {
			return Range{}, ErrMalformed
		}
		if end < start {
			return Range{}, ErrMalformed
		}
		if end >= size {
			end = size - 1
		}
	}

	return Range{Start: start, End: end, Size: size}, nil
}
