package statuscodes

import (
	"net/http"
	"time"
)

type choice struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type choices struct {
	Message string   `json:"message"`
	Options []choice `json:"options"`
}

func (s *Server) multipleChoices(w http.ResponseWriter, r *http.Request) {
	base := s.baseURL(r)
	writeJSON(w, http.StatusMultipleChoices, choices{
		Message: "Multiple choices available",
		Options: []choice{
			{URL: base + "/option1", Description: "Option 1"},
			{URL: base + "/option2", Description: "Option 2"},
			{URL: base + "/option3", Description: "Option 3"},
		},
	})
}

// baseURL returns the configured base URL, or one built from the request.
func (s *Server) baseURL(r *http.Request) string {
	if s.config.BaseURL != "" {
		return s.config.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func redirect(code int, location string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, code)
	}
}

var (
	resourceLastModified = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)
	resourceETag         = "123456789"
)

// notModified compares the validators as plain strings, no date or weak tag semantics.
func notModified(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Last-Modified", resourceLastModified)
	w.Header().Set("ETag", resourceETag)

	if r.Header.Get("If-Modified-Since") == resourceLastModified || r.Header.Get("If-None-Match") == resourceETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeText(w, http.StatusOK, "This is the resource content")
}
