package recorder

import (
	"net/http"
	"time"
)

// Recorder is a wrapper around http.ResponseWriter that remembers what was sent to the client.
// Informational (1xx) headers are passed through without being recorded as the final status.
type Recorder struct {
	rw            http.ResponseWriter
	status        int
	bytes         int64
	wroteHeaders  bool
	informational []int
	CreatedAt     time.Time
}

// Implementation of http.ResponseWriter
func (r *Recorder) Header() http.Header {
	return r.rw.Header()
}

// Implementation of http.ResponseWriter
func (r *Recorder) WriteHeader(statusCode int) {
	if r.wroteHeaders {
		return
	}
	// interim responses may be followed by the final one
	if statusCode >= 100 && statusCode <= 199 && statusCode != http.StatusSwitchingProtocols {
		r.informational = append(r.informational, statusCode)
		r.rw.WriteHeader(statusCode)
		return
	}
	r.wroteHeaders = true
	r.status = statusCode
	r.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (r *Recorder) Write(b []byte) (int, error) {
	// write headers if not already written
	if !r.wroteHeaders {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.rw.Write(b)
	r.bytes += int64(n)
	return n, err
}

// Flush sends buffered data to the client if the underlying writer supports it.
func (r *Recorder) Flush() {
	if f, ok := r.rw.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying writer, for use by http.ResponseController.
func (r *Recorder) Unwrap() http.ResponseWriter {
	return r.rw
}

// Hijacked marks the response as taken over by the handler, e.g. after hijacking the connection
// and writing a status line manually.
func (r *Recorder) Hijacked(statusCode int) {
	r.wroteHeaders = true
	r.status = statusCode
}

// StatusCode returns the final status code of the response.
// If nothing was written, the implicit 200 is returned.
func (r *Recorder) StatusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Informational returns the interim status codes sent before the final response.
func (r *Recorder) Informational() []int {
	return r.informational
}

// BytesWritten returns the number of body bytes written.
func (r *Recorder) BytesWritten() int64 {
	return r.bytes
}

// New returns a new Recorder writing to w.
func New(w http.ResponseWriter) *Recorder {
	return &Recorder{
		CreatedAt: time.Now(),
		rw:        w,
	}
}

// From returns the Recorder wrapped (possibly several layers deep) by w, if any.
func From(w http.ResponseWriter) (*Recorder, bool) {
	for {
		switch t := w.(type) {
		case *Recorder:
			return t, true
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return nil, false
		}
	}
}
