package statuscodes

import (
	"net/http"
)

// notImplemented answers every method without a route of its own.
func notImplemented(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusNotImplemented, "Not Implemented. The server does not support the requested method.")
}

func badGateway(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusBadGateway, "Bad Gateway. The server received an invalid response from an upstream server.")
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "3600")
	writeText(w, http.StatusServiceUnavailable, "Service Unavailable. Please try again later.")
}

// gatewayTimeout simulates waiting on an upstream that never answers.
func (s *Server) gatewayTimeout(w http.ResponseWriter, r *http.Request) {
	if !wait(r.Context(), s.config.Delays.GatewayTimeout) {
		s.requestLog(r).Debug().Msg("Client went away while waiting for upstream")
		return
	}
	writeText(w, http.StatusGatewayTimeout, "Gateway Timeout. The server did not receive a timely response from the upstream server.")
}

// rejectHTTP11 answers 505 to HTTP/1.1 requests, the only version the demo refuses.
func rejectHTTP11(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ProtoMajor == 1 && r.ProtoMinor == 1 {
			writeText(w, http.StatusHTTPVersionNotSupported, "HTTP Version Not Supported. The server does not support the HTTP version used in the request.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func variantAlsoNegotiates(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusVariantAlsoNegotiates, "Variant Also Negotiates. There is an internal configuration error with transparent content negotiation.")
}

func insufficientStorage(w http.ResponseWriter, r *http.Request) {
	isStorageFull := true
	if isStorageFull {
		writeText(w, http.StatusInsufficientStorage, "Insufficient Storage. The server is unable to store the representation needed to complete the request.")
		return
	}
	writeText(w, http.StatusOK, "File uploaded successfully.")
}

func requireNetworkAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isAuthenticated := false
		if !isAuthenticated {
			writeText(w, http.StatusNetworkAuthenticationRequired, "Network Authentication Required. Please authenticate to gain network access.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
