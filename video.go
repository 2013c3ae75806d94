package statuscodes

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	byterange "github.com/always-cache/status-codes/pkg/byte-range"
)

const videoContentType = "video/mp4"

// video streams the configured video file, honoring single byte ranges.
// The file is stat'ed on every request.
func (s *Server) video(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLog(r)

	file, err := os.Open(s.config.VideoPath)
	if err != nil {
		logger.Error().Err(err).Str("path", s.config.VideoPath).Msg("Could not open video")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		logger.Error().Err(err).Str("path", s.config.VideoPath).Msg("Could not stat video")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	fileSize := stat.Size()

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
		w.Header().Set("Content-Type", videoContentType)
		w.WriteHeader(http.StatusOK)
		s.stream(w, r, file, fileSize)
		return
	}

	byteRange, err := byterange.Parse(rangeHeader, fileSize)
	if err != nil {
		var unsatisfiable *byterange.UnsatisfiableError
		if !errors.As(err, &unsatisfiable) {
			logger.Debug().Err(err).Str("range", rangeHeader).Msg("Could not parse range")
		}
		w.Header().Set("Content-Range", byterange.UnsatisfiedContentRange(fileSize))
		writeText(w, http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable\n"+err.Error())
		return
	}

	if _, err := file.Seek(byteRange.Start, io.SeekStart); err != nil {
		logger.Error().Err(err).Int64("offset", byteRange.Start).Msg("Could not seek video")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Range", byteRange.ContentRange())
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(byteRange.Length(), 10))
	w.Header().Set("Content-Type", videoContentType)
	w.WriteHeader(http.StatusPartialContent)
	s.stream(w, r, file, byteRange.Length())
}

// stream copies n bytes of the file to the client.
// Headers are already committed, so a failed copy aborts the connection.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, file io.Reader, n int64) {
	written, err := io.CopyN(w, file, n)
	if err != nil {
		s.requestLog(r).Warn().Err(err).
			Int64("written", written).
			Int64("expected", n).
			Msg("Aborting video stream")
		panic(http.ErrAbortHandler)
	}
}
