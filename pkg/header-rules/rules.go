package headerrules

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Rules []Rule

// Rule adds headers to responses of matching requests.
// Empty match fields match everything.
type Rule struct {
	Prefix string `yaml:"prefix"`
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
	// Query parameters that must be present. An empty value only checks presence.
	Query map[string]string `yaml:"query"`
	// Headers set before the handler runs, handlers may overwrite them.
	Headers map[string]string `yaml:"headers"`
	// Headers set when the response is written, overwriting what the handler set.
	Override map[string]string `yaml:"override"`
}

// Handler applies the first matching rule to the response.
func (r Rules) Handler(next http.Handler) http.Handler {
	if len(r) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rule := r.find(req)
		if rule == nil {
			next.ServeHTTP(w, req)
			return
		}
		for name, value := range rule.Headers {
			log.Trace().Msgf("Setting header %s", name)
			w.Header().Set(name, value)
		}
		if len(rule.Override) > 0 {
			w = &overrideWriter{ResponseWriter: w, headers: rule.Override}
		}
		next.ServeHTTP(w, req)
	})
}

func (r Rules) find(req *http.Request) *Rule {
	if e := log.Trace(); e.Enabled() {
		e.Msgf("Finding rule for request %s:%s", req.Method, req.URL.Path)
	}
rulesLoop:
	for i := range r {
		rule := &r[i]
		if rule.Method != "" && !strings.EqualFold(rule.Method, req.Method) {
			continue
		}
		if rule.Path != "" && rule.Path != req.URL.Path {
			continue
		}
		if rule.Prefix != "" && !strings.HasPrefix(req.URL.Path, rule.Prefix) {
			continue
		}
		if len(rule.Query) > 0 {
			qry := req.URL.Query()
			for name, value := range rule.Query {
				if value == "" && !qry.Has(name) {
					continue rulesLoop
				} else if value != "" && qry.Get(name) != value {
					continue rulesLoop
				}
			}
		}
		return rule
	}
	return nil
}

// overrideWriter sets headers right before they are sent.
type overrideWriter struct {
	http.ResponseWriter
	headers map[string]string
	applied bool
}

func (o *overrideWriter) apply() {
	if o.applied {
		return
	}
	o.applied = true
	for name, value := range o.headers {
		o.ResponseWriter.Header().Set(name, value)
	}
}

func (o *overrideWriter) WriteHeader(statusCode int) {
	// interim responses carry their own headers
	if statusCode >= 200 || statusCode == http.StatusSwitchingProtocols {
		o.apply()
	}
	o.ResponseWriter.WriteHeader(statusCode)
}

func (o *overrideWriter) Write(b []byte) (int, error) {
	o.apply()
	return o.ResponseWriter.Write(b)
}

func (o *overrideWriter) Unwrap() http.ResponseWriter {
	return o.ResponseWriter
}

// Log logs the configured rules at debug level.
func (r Rules) Log(logger *zerolog.Logger) {
	for _, rule := range r {
		logger.Debug().
			Str("method", rule.Method).
			Str("path", rule.Path).
			Str("prefix", rule.Prefix).
			Int("headers", len(rule.Headers)+len(rule.Override)).
			Msg("Header rule")
	}
}
