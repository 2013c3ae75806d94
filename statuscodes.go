package statuscodes

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	ratelimit "github.com/always-cache/status-codes/pkg/rate-limit"
	recorder "github.com/always-cache/status-codes/pkg/response-recorder"
	"github.com/always-cache/status-codes/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server serves one example endpoint per HTTP status code.
type Server struct {
	config   Config
	router   chi.Router
	log      zerolog.Logger
	versions store.VersionProvider
	limiter  *ratelimit.FixedWindow
	metrics  *metrics

	// background work outliving its request, e.g. the 202 processing
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// New initializes the server and registers all routes.
// Zero values in the config are replaced with defaults.
func New(config Config) *Server {
	config = config.withDefaults()

	// use the global logger if not specified in config
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	versions := config.Versions
	if versions == nil {
		versions = store.NewMemVersions()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   config,
		log:      logger,
		versions: versions,
		limiter: ratelimit.New(ratelimit.Config{
			Limit:  config.RateLimit.Limit,
			Window: config.RateLimit.Window,
			Logger: &logger,
		}),
		metrics: newMetrics(),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.router = s.routes()
	config.Rules.Log(&logger)
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Config returns the configuration in effect, defaults included.
func (s *Server) Config() Config {
	return s.config
}

// Close cancels pending background work and waits for it to finish.
func (s *Server) Close() {
	s.cancel()
	s.tasks.Wait()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(s.config.Rules.Handler)

	r.Get("/", s.index)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	// 1xx
	r.With(sendContinue).Post("/post-endpoint100and201", s.created)
	r.Route("/get-endpoint101", func(r chi.Router) {
		r.Use(switchProtocols)
		r.Get("/", processedWithCreated)
	})
	r.Post("/post-endpoint102", processing)
	r.Get("/get-endpoint103", earlyHints)

	// 2xx
	r.Post("/post-endpoint202", s.accepted)
	r.Get("/get-endpoint203", nonAuthoritative)
	r.Delete("/delete-endpoint204/{id}", s.noContent)
	r.Post("/post-endpoint205", s.resetContent)
	r.Get("/video", s.video)

	// 3xx
	r.Get("/multiple-choices", s.multipleChoices)
	r.Get("/option1", text("This is option 1"))
	r.Get("/option2", text("This is option 2"))
	r.Get("/option3", text("This is option 3"))
	r.Post("/old-url", redirect(http.StatusMovedPermanently, "/new-url"))
	r.Get("/new-url", text("This is the new URL"))
	r.Post("/old-url2", redirect(http.StatusFound, "/new-url"))
	r.Get("/new-url2", text("This is the new URL"))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		r.MethodFunc(method, "/old-url3", redirect(http.StatusTemporaryRedirect, "/new-url"))
		r.MethodFunc(method, "/old-url4", redirect(http.StatusPermanentRedirect, "/new-url"))
	}
	r.Get("/new-url3", text("This is the new URL"))
	r.Get("/new-url4", text("This is the new URL"))
	r.Post("/submit", redirect(http.StatusSeeOther, "/success"))
	r.Get("/success", text("Success! Your request has been processed."))
	r.Get("/resource", notModified)

	// 4xx
	r.Get("/restricted", forbidden)
	r.Get("/get-endpoint406", notAcceptable)
	r.Get("/timeout", s.requestTimeout)
	r.Get("/deleted-resource", gone)
	r.Post("/post-data", s.lengthRequired)
	r.Put("/update-resource", s.preconditionFailed)
	r.With(middleware.RequestSize(s.config.UploadLimit)).Post("/upload-data", s.payloadTooLarge)
	r.Route("/endpoint417", func(r chi.Router) {
		r.Use(failExpectation)
		r.Get("/", text("Hello, world!"))
	})
	r.With(s.limiter.Handler).Get("/too-many-requests", text("Hello, world!"))

	// 5xx
	// the catch-all must be registered first, method routes override it
	r.HandleFunc("/resp501", notImplemented)
	r.Get("/resp501", text("All OK"))
	r.Head("/resp501", text("All OK"))
	r.Get("/server-error", badGateway)
	r.Get("/maintenance", serviceUnavailable)
	r.Get("/gateway-timeout", s.gatewayTimeout)
	r.Route("/get-endpoint505", func(r chi.Router) {
		r.Use(rejectHTTP11)
		r.Get("/", text("Hello, world!"))
	})
	r.Get("/variant", variantAlsoNegotiates)
	r.Post("/endpoint507", insufficientStorage)
	r.Route("/endpoint511", func(r chi.Router) {
		r.Use(requireNetworkAuthentication)
		r.Get("/", text("Hello, world!"))
	})

	return r
}

type indexEntry struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// index lists all registered routes.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	entries := make([]indexEntry, 0)
	err := chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		entries = append(entries, indexEntry{Method: method, Path: route})
		return nil
	})
	if err != nil {
		s.requestLog(r).Error().Err(err).Msg("Could not list routes")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Method < entries[j].Method
	})
	writeJSON(w, http.StatusOK, entries)
}

// observe records the response for the access log and metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorder.New(w)
		// deferred so aborted responses are logged as well
		defer func() {
			s.metrics.observe(r, rec)
			s.logRequest(r, rec)
		}()
		next.ServeHTTP(rec, r)
	})
}

func (s *Server) logRequest(r *http.Request, rec *recorder.Recorder) {
	s.requestLog(r).Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("proto", r.Proto).
		Str("sourceIp", ratelimit.ClientAddress(r)).
		Int("status", rec.StatusCode()).
		Ints("interim", rec.Informational()).
		Int64("bytes", rec.BytesWritten()).
		Dur("duration", time.Since(rec.CreatedAt)).
		Msg("Sending response to client")
}

// requestLog returns a child logger tagged with the request ID.
func (s *Server) requestLog(r *http.Request) *zerolog.Logger {
	logger := s.log.With().Str("reqId", middleware.GetReqID(r.Context())).Logger()
	return &logger
}

// runDetached runs fn after the delay, independently of the request that scheduled it.
// Pending tasks are cancelled when the server is closed.
func (s *Server) runDetached(delay time.Duration, fn func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			fn()
		case <-s.ctx.Done():
			s.log.Debug().Msg("Server closing, dropping delayed task")
		}
	}()
}

// wait blocks for the given duration or until the request is cancelled.
// It returns false if the client went away.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// text returns a handler responding 200 with a static body.
func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, body)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Could not write JSON response")
	}
}
