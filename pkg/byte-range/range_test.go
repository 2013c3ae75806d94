package byterange

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		header string
		size   int64
		want   Range
	}{
		{"bytes=0-99", 1000, Range{0, 99, 1000}},
		{"bytes=100-", 1000, Range{100, 999, 1000}},
		{"bytes=999-999", 1000, Range{999, 999, 1000}},
		{"bytes=500-5000", 1000, Range{500, 999, 1000}},
		{"bytes=0-1,5-6", 1000, Range{0, 1, 1000}},
		{" bytes = 10 - 20 ", 1000, Range{10, 20, 1000}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.header, tt.size)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.header, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tt.header, got, tt.want)
		}
	}
}

func TestParseUnsatisfiable(t *testing.T) {
	_, err := Parse("bytes=1000-", 1000)
	var unsatisfiable *UnsatisfiableError
	if !errors.As(err, &unsatisfiable) {
		t.Fatalf("Error is %v", err)
	}
	if unsatisfiable.Start != 1000 || unsatisfiable.Size != 1000 {
		t.Fatalf("Error is %+v", unsatisfiable)
	}
	if msg := err.Error(); msg != "1000 >= 1000" {
		t.Fatalf("Message is %s", msg)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, header := range []string{
		"",
		"bytes",
		"items=0-1",
		"bytes=-500",
		"bytes=abc-",
		"bytes=20-10",
	} {
		if _, err := Parse(header, 1000); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q) error is %v", header, err)
		}
	}
}

func TestHeaders(t *testing.T) {
	r := Range{Start: 0, End: 99, Size: 1000}
	if r.Length() != 100 {
		t.Fatalf("Length is %d", r.Length())
	}
	if cr := r.ContentRange(); cr != "bytes 0-99/1000" {
		t.Fatalf("Content-Range is %s", cr)
	}
	if cr := UnsatisfiedContentRange(1000); cr != "bytes */1000" {
		t.Fatalf("Content-Range is %s", cr)
	}
}
