package statuscodes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// versionedResource names the resource guarded by /update-resource.
const versionedResource = "resource"

func forbidden(w http.ResponseWriter, r *http.Request) {
	role := "guest"
	if role != "admin" {
		writeText(w, http.StatusForbidden, "Access forbidden. You do not have permission to access this resource.")
		return
	}
	writeText(w, http.StatusOK, "Welcome! You have access to the restricted resource.")
}

// notAcceptable only serves clients asking for exactly application/json.
func notAcceptable(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") != "application/json" {
		writeText(w, http.StatusNotAcceptable, "Not Acceptable. This endpoint only supports application/json format.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "This is the resource in JSON format"})
}

func (s *Server) requestTimeout(w http.ResponseWriter, r *http.Request) {
	if !wait(r.Context(), s.config.Delays.RequestTimeout) {
		s.requestLog(r).Debug().Msg("Client went away before timeout")
		return
	}
	writeText(w, http.StatusRequestTimeout, "Request Timeout. Server did not receive a timely response.")
}

func gone(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusGone, "Gone. The requested resource is no longer available.")
}

func (s *Server) lengthRequired(w http.ResponseWriter, r *http.Request) {
	// servers keep the header, requests built in-process only set ContentLength
	if r.Header.Get("Content-Length") == "" && r.ContentLength <= 0 {
		writeText(w, http.StatusLengthRequired, "Length Required. Content-Length header is required.")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.requestLog(r).Error().Err(err).Msg("Could not read request body")
		http.Error(w, "Could not read request body", http.StatusBadRequest)
		return
	}
	logBody(s.requestLog(r).Info(), body).Msg("Data received")
	writeText(w, http.StatusOK, "Data received successfully.")
}

// preconditionFailed updates the resource only if If-Match carries its current version.
func (s *Server) preconditionFailed(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLog(r)

	clientVersion, err := parseVersion(r.Header.Get("If-Match"))
	if err != nil {
		logger.Debug().Err(err).Msg("Unusable If-Match header")
		writeText(w, http.StatusPreconditionFailed, "Precondition Failed. Resource version does not match.")
		return
	}

	updated, version, err := s.versions.CompareAndIncrement(versionedResource, clientVersion)
	if err != nil {
		logger.Error().Err(err).Msg("Could not update resource version")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !updated {
		logger.Debug().Int("client", clientVersion).Int("current", version).Msg("Stale resource version")
		writeText(w, http.StatusPreconditionFailed, "Precondition Failed. Resource version does not match.")
		return
	}
	logger.Info().Int("version", version).Msg("Resource updated")
	writeText(w, http.StatusOK, "Resource updated successfully.")
}

var leadingInteger = regexp.MustCompile(`^[+-]?\d+`)

// parseVersion reads the leading integer of an If-Match value, with or without entity-tag quotes.
// Trailing garbage is ignored, so "2abc" is version 2.
func parseVersion(ifMatch string) (int, error) {
	value := strings.Trim(strings.TrimSpace(ifMatch), `"`)
	digits := leadingInteger.FindString(value)
	if digits == "" {
		return 0, fmt.Errorf("no version number in %q", ifMatch)
	}
	return strconv.Atoi(digits)
}

// payloadTooLarge expects the body to be capped by middleware.RequestSize.
func (s *Server) payloadTooLarge(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		s.requestLog(r).Debug().Int64("limit", maxBytesErr.Limit).Msg("Request body too large")
		writeText(w, http.StatusRequestEntityTooLarge, "Payload Too Large. The request body exceeds the "+
			strconv.FormatInt(maxBytesErr.Limit, 10)+" byte limit.")
		return
	}
	if err != nil {
		s.requestLog(r).Error().Err(err).Msg("Could not read request body")
		http.Error(w, "Could not read request body", http.StatusBadRequest)
		return
	}
	logBody(s.requestLog(r).Info(), body).Msg("Data uploaded")
	writeText(w, http.StatusOK, "Data uploaded successfully.")
}

// failExpectation refuses to continue requests expecting 100-continue.
func failExpectation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Expect") == "100-continue" {
			writeText(w, http.StatusExpectationFailed, "Expectation Failed. The server cannot meet the requirements of the Expect request-header field.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
