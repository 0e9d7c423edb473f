package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"countryrates/internal/admintoken"
	"countryrates/internal/metrics"
	"countryrates/internal/ratelimit"
	"countryrates/internal/util"
	"countryrates/pkg/domain"
	"countryrates/services/countries/internal/app"
)

const appName = "Country Currency Exchange API"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App     *app.App
	Metrics *metrics.RefreshMetrics
	// AdminVerifier guards refresh and delete. Nil leaves them open.
	AdminVerifier *admintoken.Verifier
	// Revocations rejects admin tokens revoked before expiry. Optional.
	Revocations admintoken.Revocations
	// RefreshLimiter throttles POST /countries/refresh per client. Nil disables it.
	RefreshLimiter *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the countries service.
type Server struct {
	app            *app.App
	metrics        *metrics.RefreshMetrics
	adminVerifier  *admintoken.Verifier
	revocations    admintoken.Revocations
	refreshLimiter *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	s := &Server{
		app:            cfg.App,
		metrics:        cfg.Metrics,
		adminVerifier:  cfg.AdminVerifier,
		revocations:    cfg.Revocations,
		refreshLimiter: cfg.RefreshLimiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("countries", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /internal/keepalive", s.handleKeepalive)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.Handle("POST /countries/refresh", s.withAdmin(s.withRefreshLimit(s.handleRefresh)))
	s.mux.HandleFunc("GET /countries", s.handleListCountries)
	s.mux.HandleFunc("GET /countries/image", s.handleSummaryImage)
	s.mux.HandleFunc("GET /countries/{name}", s.handleGetCountry)
	s.mux.Handle("DELETE /countries/{name}", s.withAdmin(s.handleDeleteCountry))
	s.mux.HandleFunc("GET /status", s.handleStatus)
}

// GET also answers HEAD; the body is dropped by net/http.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app_name": appName,
		"docs":     "see README for the endpoint list",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ping(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Warn("health check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKeepalive(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) withAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminVerifier == nil {
			next(w, r)
			return
		}
		token, ok := admintoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := s.adminVerifier.Verify(token, admintoken.ScopeWrite)
		if err != nil {
			util.LoggerFromContext(r.Context()).Warn("security_event",
				"event", "admin_token_rejected",
				"path", r.URL.Path,
				"client_ip", util.ClientIP(r, s.trustedProxies),
				"err", err,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if s.revocations != nil {
			revoked, err := s.revocations.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				util.LoggerFromContext(r.Context()).Error("admin token revocation check failed", "err", err)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if revoked {
				util.LoggerFromContext(r.Context()).Warn("security_event",
					"event", "admin_token_revoked",
					"path", r.URL.Path,
					"jti", claims.ID,
				)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		ctx := util.ContextWithLogger(r.Context(), util.LoggerFromContext(r.Context()).With("admin", claims.Subject))
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) withRefreshLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.refreshLimiter == nil {
			next(w, r)
			return
		}
		key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
		decision := s.refreshLimiter.Allow(r.Context(), key)
		if decision.Allowed {
			next(w, r)
			return
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
		writeError(w, http.StatusTooManyRequests, "too many requests")
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Refresh(r.Context())
	if err != nil {
		s.writeAppError(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	countries, err := s.app.ListCountries(r.Context(), app.ListQuery{
		Region:   q.Get("region"),
		Currency: q.Get("currency"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		s.writeAppError(w, r, "list countries", err)
		return
	}
	if countries == nil {
		countries = []domain.Country{}
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleGetCountry(w http.ResponseWriter, r *http.Request) {
	country, err := s.app.GetCountry(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeAppError(w, r, "get country", err)
		return
	}
	writeJSON(w, http.StatusOK, country)
}

func (s *Server) handleDeleteCountry(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteCountry(r.Context(), r.PathValue("name")); err != nil {
		s.writeAppError(w, r, "delete country", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummaryImage(w http.ResponseWriter, r *http.Request) {
	summary, err := s.app.SummaryImage(r.Context())
	if err != nil {
		s.writeAppError(w, r, "summary image", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(summary.ImageData)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Last-Modified", summary.LastRefreshedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(summary.ImageData)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Status(r.Context())
	if err != nil {
		s.writeAppError(w, r, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// writeAppError maps domain outcomes to status codes. Anything unrecognized
// is logged and reported as a 500 without leaking the cause.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		srcErr   *domain.SourceUnavailableError
		inputErr *domain.InvalidInputError
	)
	switch {
	case errors.Is(err, domain.ErrCountryNotFound):
		writeError(w, http.StatusNotFound, "Country not found")
	case errors.Is(err, domain.ErrSummaryNotFound):
		writeError(w, http.StatusNotFound, "Summary image not found")
	case errors.As(err, &srcErr):
		util.LoggerFromContext(r.Context()).Warn("upstream source unavailable", "op", op, "source", srcErr.Source, "err", err)
		writeErrorDetails(w, http.StatusServiceUnavailable, "External data source unavailable", "Could not fetch data from "+srcErr.Source)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict")
	case errors.As(err, &inputErr):
		writeErrorDetails(w, http.StatusBadRequest, "Validation failed", inputErr.Details)
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "op", op, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorDetails(w, status, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeFor(status, msg),
		Details:   details,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeFor(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "country not found":
		return "COUNTRY_NOT_FOUND"
	case message == "summary image not found":
		return "SUMMARY_NOT_FOUND"
	case message == "external data source unavailable":
		return "UPSTREAM_UNAVAILABLE"
	case message == "validation failed":
		return "VALIDATION_FAILED"
	case message == "database unavailable":
		return "SYSTEM_DATABASE_UNAVAILABLE"
	}
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusInternalServerError:
		return "SYSTEM_INTERNAL_ERROR"
	default:
		return "REQUEST_FAILED"
	}
}
