package statuscodes

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type acceptedResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// accepted answers immediately and processes the request body in the background.
func (s *Server) accepted(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.requestLog(r).Error().Err(err).Msg("Could not read request body")
		http.Error(w, "Could not read request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, acceptedResponse{
		Message: "Request accepted for processing",
		Status:  http.StatusAccepted,
	})

	logger := s.requestLog(r)
	s.runDetached(s.config.Delays.Accepted, func() {
		logBody(logger.Info(), body).Msg("Processing complete")
	})
}

type sourcedData struct {
	Data   string `json:"data"`
	Source string `json:"source"`
}

// nonAuthoritative returns a transformed copy of the origin's data.
func nonAuthoritative(w http.ResponseWriter, r *http.Request) {
	original := sourcedData{
		Data:   "This is the original data",
		Source: "original",
	}
	modified := original
	modified.Source = "modified"
	writeJSON(w, http.StatusNonAuthoritativeInfo, modified)
}

func (s *Server) noContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.requestLog(r).Info().Str("id", id).Msg("Resource has been deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetContent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.requestLog(r).Error().Err(err).Msg("Could not read request body")
		http.Error(w, "Could not read request body", http.StatusBadRequest)
		return
	}
	logBody(s.requestLog(r).Info(), body).Msg("Data received")
	w.WriteHeader(http.StatusResetContent)
}

// logBody adds the request body to the log event, as JSON if it is valid JSON.
func logBody(e *zerolog.Event, body []byte) *zerolog.Event {
	if len(body) > 0 && json.Valid(body) {
		return e.RawJSON("body", body)
	}
	return e.Bytes("body", body)
}
