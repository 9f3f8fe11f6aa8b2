// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"

	service "github.com/okian/mingle/internal/app"
	"github.com/okian/mingle/internal/auth"
	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/internal/domain/types"
	"github.com/okian/mingle/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ProcessSurveyAndFindMatches(ctx context.Context, eventID string, answers []model.Answer) (types.MatchmakingResult, error)
	Grid(ctx context.Context, eventID string) (types.GridResponse, error)
	PutInterests(ctx context.Context, interests []string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchmakingHandler *MatchmakingHandler
	gridHandler        *GridHandler
	profileHandler     *ProfileHandler

	tokens        auth.Validator
	corsOrigins   []string
	ratePerMinute int
	log           logger.Logger
	extraRoutes   []func(chi.Router)
}

// Option configures a Server.
type Option func(*Server)

// WithTokenValidator sets how bearer tokens are resolved to users. Without
// one every request is anonymous.
func WithTokenValidator(v auth.Validator) Option {
	return func(s *Server) { s.tokens = v }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithRateLimit limits survey submissions per caller per minute. Zero
// disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute >= 0 {
			s.ratePerMinute = perMinute
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithRoutes mounts additional routes on the root router.
func WithRoutes(register func(chi.Router)) Option {
	return func(s *Server) {
		if register != nil {
			s.extraRoutes = append(s.extraRoutes, register)
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		corsOrigins:   []string{"*"},
		ratePerMinute: 60,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get()
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.matchmakingHandler = NewMatchmakingHandler(deps, s.log)
	s.gridHandler = NewGridHandler(deps, s.log)
	s.profileHandler = NewProfileHandler(deps, s.log)
	return s
}

// Router builds the chi router holding every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.healthHandler.HandleHealth)
	r.With(MetricsMiddleware("metrics")).Get("/metrics", s.healthHandler.HandleMetrics)
	r.With(MetricsMiddleware("stats")).Get("/stats", s.statsHandler.HandleStats)

	r.Route("/v1", func(r chi.Router) {
		if s.tokens != nil {
			r.Use(auth.Middleware(s.tokens))
		}

		r.With(MetricsMiddleware("matchmaking"), s.rateLimit()).
			Post("/matchmaking", s.matchmakingHandler.HandleSubmit)
		r.With(MetricsMiddleware("grid")).
			Get("/events/{eventID}/grid", s.gridHandler.HandleGetGrid)
		r.With(MetricsMiddleware("interests")).
			Put("/profile/interests", s.profileHandler.HandlePutInterests)
	})

	for _, register := range s.extraRoutes {
		register(r)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, NewKind("api.route", service.ErrNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, types.ErrorResponse{
			Code:    "METHOD_NOT_ALLOWED",
			Message: http.StatusText(http.StatusMethodNotAllowed),
		})
	})

	return r
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON document")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: messageOf(err, status)})
}

// messageOf returns the client-facing message. Server failures never leak
// their cause.
func messageOf(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	var se *service.Error
	if errors.As(err, &se) {
		if se.Err != nil {
			return se.Err.Error()
		}
		return se.Kind.Error()
	}
	var ke *kindError
	if errors.As(err, &ke) {
		if ke.err != nil {
			return ke.err.Error()
		}
		return ke.kind.Error()
	}
	return err.Error()
}

// logFailure logs server-side failures with the request id.
func logFailure(log logger.Logger, r *http.Request, op string, err error) {
	if status, _ := statusOf(err); status < http.StatusInternalServerError {
		return
	}
	log.Error(r.Context(), "request failed",
		logger.String("op", op),
		logger.String("requestID", chimiddleware.GetReqID(r.Context())),
		logger.Error(err),
	)
}
