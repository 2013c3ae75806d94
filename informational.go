package statuscodes

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	recorder "github.com/always-cache/status-codes/pkg/response-recorder"
)

// sendContinue writes an interim 100 Continue before the handler reads the body.
func sendContinue(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Expect") == "100-continue" {
			w.WriteHeader(http.StatusContinue)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) created(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.requestLog(r).Error().Err(err).Msg("Could not read request body")
		http.Error(w, "Could not read request body", http.StatusBadRequest)
		return
	}
	s.requestLog(r).Info().Bytes("body", body).Msg("Received data")
	writeText(w, http.StatusCreated, "Request processed")
}

// switchProtocols answers websocket upgrade requests with 101 and lets everything else through.
func switchProtocols(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			header := http.Header{}
			header.Set("Connection", "Upgrade")
			header.Set("Upgrade", "websocket")
			respondOnConnection(w, http.StatusSwitchingProtocols, header, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func processedWithCreated(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusCreated, "Request processed")
}

func processing(w http.ResponseWriter, r *http.Request) {
	respondOnConnection(w, http.StatusProcessing, http.Header{}, "")
}

func earlyHints(w http.ResponseWriter, r *http.Request) {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	respondOnConnection(w, http.StatusEarlyHints, header, "Early Hints")
}

// respondOnConnection sends a 1xx status as the final response.
// net/http treats 1xx codes (except 101) as interim responses, so the status line
// is written directly to the hijacked connection, which is closed afterwards.
// Writers that cannot be hijacked (HTTP/2, test recorders) get a regular WriteHeader.
func respondOnConnection(w http.ResponseWriter, status int, header http.Header, body string) {
	if body != "" {
		header.Set("Content-Length", strconv.Itoa(len(body)))
	}

	conn, bufrw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		for name, values := range header {
			w.Header()[name] = values
		}
		w.WriteHeader(status)
		if body != "" {
			w.Write([]byte(body))
		}
		return
	}
	defer conn.Close()

	if rec, ok := recorder.From(w); ok {
		rec.Hijacked(status)
	}
	fmt.Fprintf(bufrw, "HTTP/1.1 %03d %s\r\n", status, http.StatusText(status))
	header.Write(bufrw)
	bufrw.WriteString("\r\n")
	bufrw.WriteString(body)
	bufrw.Flush()
}
