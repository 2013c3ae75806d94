package statuscodes

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeVideo(t *testing.T, size int) (string, []byte) {
	t.Helper()
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "sample.mp4")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, content
}

func requestVideo(s *Server, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/video", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	return serve(s, req)
}

func TestVideoWithoutRange(t *testing.T) {
	path, content := writeVideo(t, 1000)
	s := newTestServer(t, Config{VideoPath: path})

	rr := requestVideo(s, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status is %d", rr.Code)
	}
	if cl := rr.Header().Get("Content-Length"); cl != "1000" {
		t.Fatalf("Content-Length is %s", cl)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("Content-Type is %s", ct)
	}
	if !bytes.Equal(rr.Body.Bytes(), content) {
		t.Fatal("Body does not match file")
	}
}

func TestVideoRanges(t *testing.T) {
	path, content := writeVideo(t, 1000)
	s := newTestServer(t, Config{VideoPath: path})

	tests := []struct {
		header       string
		start, end   int
		contentRange string
	}{
		{"bytes=0-99", 0, 99, "bytes 0-99/1000"},
		{"bytes=900-", 900, 999, "bytes 900-999/1000"},
		{"bytes=999-999", 999, 999, "bytes 999-999/1000"},
		// ends past the file are clamped
		{"bytes=990-2000", 990, 999, "bytes 990-999/1000"},
		// only the first range is served
		{"bytes=10-19, 50-59", 10, 19, "bytes 10-19/1000"},
	}
	for _, tt := range tests {
		rr := requestVideo(s, tt.header)
		if rr.Code != http.StatusPartialContent {
			t.Fatalf("%s: status is %d", tt.header, rr.Code)
		}
		if cr := rr.Header().Get("Content-Range"); cr != tt.contentRange {
			t.Fatalf("%s: Content-Range is %s", tt.header, cr)
		}
		if ar := rr.Header().Get("Accept-Ranges"); ar != "bytes" {
			t.Fatalf("%s: Accept-Ranges is %s", tt.header, ar)
		}
		if !bytes.Equal(rr.Body.Bytes(), content[tt.start:tt.end+1]) {
			t.Fatalf("%s: got %d bytes of wrong content", tt.header, rr.Body.Len())
		}
		if cl := rr.Header().Get("Content-Length"); cl != strconv.Itoa(tt.end-tt.start+1) {
			t.Fatalf("%s: Content-Length is %s", tt.header, cl)
		}
	}
}

func TestVideoUnsatisfiableRange(t *testing.T) {
	path, _ := writeVideo(t, 1000)
	s := newTestServer(t, Config{VideoPath: path})

	rr := requestVideo(s, "bytes=1000-")
	assertResponse(t, rr, http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable\n1000 >= 1000")
	if cr := rr.Header().Get("Content-Range"); cr != "bytes */1000" {
		t.Fatalf("Content-Range is %s", cr)
	}

	for _, header := range []string{"bytes=abc", "bytes=-500", "bytes=50-10", "items=0-10"} {
		rr := requestVideo(s, header)
		if rr.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("%s: status is %d", header, rr.Code)
		}
		if cr := rr.Header().Get("Content-Range"); cr != "bytes */1000" {
			t.Fatalf("%s: Content-Range is %s", header, cr)
		}
	}
}

func TestVideoMissingFile(t *testing.T) {
	s := newTestServer(t, Config{VideoPath: filepath.Join(t.TempDir(), "missing.mp4")})

	if rr := requestVideo(s, ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("Status is %d", rr.Code)
	}
	if rr := requestVideo(s, "bytes=0-10"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("Status is %d", rr.Code)
	}
}

func TestVideoSizeIsReadPerRequest(t *testing.T) {
	path, _ := writeVideo(t, 100)
	s := newTestServer(t, Config{VideoPath: path})

	if rr := requestVideo(s, "bytes=150-"); rr.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("Status is %d", rr.Code)
	}
	if err := os.WriteFile(path, make([]byte, 200), 0o644); err != nil {
		t.Fatal(err)
	}
	rr := requestVideo(s, "bytes=150-")
	if rr.Code != http.StatusPartialContent || rr.Body.Len() != 50 {
		t.Fatalf("Status is %d with %d bytes", rr.Code, rr.Body.Len())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk went away")
}

// recoverAbort runs fn and returns what it panicked with.
func recoverAbort(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}

func TestStreamFailureAbortsResponse(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest("GET", "/video", nil)

	recovered := recoverAbort(func() {
		s.stream(httptest.NewRecorder(), req, failingReader{}, 10)
	})
	if recovered != http.ErrAbortHandler {
		t.Fatalf("Recovered %v, expected http.ErrAbortHandler", recovered)
	}

	// a short file is a failure as well
	recovered = recoverAbort(func() {
		s.stream(httptest.NewRecorder(), req, strings.NewReader("short"), 10)
	})
	if recovered != http.ErrAbortHandler {
		t.Fatalf("Recovered %v, expected http.ErrAbortHandler", recovered)
	}

	if recovered := recoverAbort(func() {
		s.stream(httptest.NewRecorder(), req, strings.NewReader("exactly 10"), 10)
	}); recovered != nil {
		t.Fatalf("Recovered %v from a complete copy", recovered)
	}
}

func TestAbortedStreamIsObserved(t *testing.T) {
	logs := &syncBuffer{}
	logger := zerolog.New(logs)
	s := newTestServer(t, Config{Logger: &logger})

	handler := s.observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusPartialContent)
		s.stream(w, r, io.MultiReader(strings.NewReader("abc"), failingReader{}), 10)
	}))

	rr := httptest.NewRecorder()
	recovered := recoverAbort(func() {
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/video", nil))
	})
	if recovered != http.ErrAbortHandler {
		t.Fatalf("Recovered %v, expected http.ErrAbortHandler", recovered)
	}

	out := logs.String()
	if !strings.Contains(out, `"message":"Aborting video stream"`) {
		t.Fatalf("Abort not logged: %s", out)
	}
	if !strings.Contains(out, `"status":206`) || !strings.Contains(out, `"bytes":3`) ||
		!strings.Contains(out, `"message":"Sending response to client"`) {
		t.Fatalf("Aborted response not logged: %s", out)
	}

	metrics := serve(s, httptest.NewRequest("GET", "/metrics", nil)).Body.String()
	line := `statuscodes_responses_total{code="206",method="GET",route="unmatched"} 1`
	if !strings.Contains(metrics, line) {
		t.Fatalf("Metrics do not contain %s", line)
	}
}
