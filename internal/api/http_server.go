package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// Services bundles the operations the HTTP API fronts.
type Services struct {
	Users    domain.UserService
	Items    domain.ItemService
	Bookings domain.BookingService
	Requests domain.RequestService
}

// HTTPServer exposes the sharing API over JSON.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	limiter domain.RateLimiter
	logger  *zerolog.Logger
	now     func() time.Time
	server  *http.Server
}

// NewHTTPServer wires routes and middleware. A nil limiter disables rate limiting.
func NewHTTPServer(cfg config.APIConfig, svc Services, limiter domain.RateLimiter, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.UserHeader == "" {
		cfg.UserHeader = "X-Sharer-User-Id"
	}
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := chain(mux,
		requestIDMiddleware,
		loggingMiddleware(logger),
		srv.rateLimitMiddleware,
	)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", s.handleHealth)

	s.handle(mux, "POST /users", s.handleCreateUser)
	s.handle(mux, "GET /users", s.handleListUsers)
	s.handle(mux, "GET /users/{id}", s.handleGetUser)
	s.handle(mux, "PATCH /users/{id}", s.handleUpdateUser)
	s.handle(mux, "DELETE /users/{id}", s.handleDeleteUser)

	s.handle(mux, "POST /items", s.handleCreateItem)
	s.handle(mux, "GET /items", s.handleOwnerItems)
	s.handle(mux, "GET /items/search", s.handleSearchItems)
	s.handle(mux, "GET /items/{itemId}", s.handleGetItem)
	s.handle(mux, "PATCH /items/{itemId}", s.handleUpdateItem)
	s.handle(mux, "DELETE /items/{itemId}", s.handleDeleteItem)
	s.handle(mux, "POST /items/{itemId}/comment", s.handleAddComment)

	s.handle(mux, "POST /bookings", s.handleCreateBooking)
	s.handle(mux, "PATCH /bookings/{bookingId}", s.handleApproveBooking)
	s.handle(mux, "GET /bookings/{bookingId}", s.handleGetBooking)
	s.handle(mux, "GET /bookings", s.handleBookerBookings)
	s.handle(mux, "GET /bookings/owner", s.handleOwnerBookings)

	s.handle(mux, "POST /requests", s.handleCreateRequest)
	s.handle(mux, "GET /requests", s.handleOwnRequests)
	s.handle(mux, "GET /requests/all", s.handleOtherRequests)
	s.handle(mux, "GET /requests/{requestId}", s.handleGetRequest)
}

// handle registers h under pattern and counts hits per pattern.
func (s *HTTPServer) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(pattern)
		h(w, r)
	})
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerID reads the trusted caller identity header.
func (s *HTTPServer) callerID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(s.cfg.UserHeader))
	if raw == "" {
		return 0, fmt.Errorf("%w: header %s is required", domain.ErrValidation, s.cfg.UserHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: header %s must be a positive integer", domain.ErrValidation, s.cfg.UserHeader)
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrValidation, name)
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrValidation, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}
	return nil
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConditionsNotMet), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateData):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeErrorKind(w, status, "INTERNAL", "internal error")
		return
	}
	writeErrorKind(w, status, domain.Kind(err), err.Error())
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeErrorKind(w http.ResponseWriter, statusCode int, kind, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message, "kind": kind})
}
