// Package router wires the HTTP API: route registration, middleware
// stack, request decoding/validation and error-to-status mapping.
package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"

	"github.com/mvolkov/biotap/internal/auth"
	"github.com/mvolkov/biotap/internal/config"
	"github.com/mvolkov/biotap/internal/gzippedhttp"
	"github.com/mvolkov/biotap/internal/hostchecker"
	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/ratelimit"
	"github.com/mvolkov/biotap/internal/service"
)

type Router struct {
	service  *service.Service
	validate *validator.Validate
	appName  string
	version  string
}

const apiVersion = "1.0.0"

// New assembles the chi mux with the full middleware stack and every
// API route. Trusted host filtering and security headers are only
// active in production.
func New(svc *service.Service, theAuth *auth.Auth, cfg *config.Config) *chi.Mux {
	apiRouter := &Router{
		service:  svc,
		validate: validator.New(),
		appName:  cfg.AppName,
		version:  apiVersion,
	}

	router := chi.NewRouter()

	router.Use(logger.WithLoggingHTTPMiddleware)
	if cfg.IsProduction() {
		router.Use(
			hostchecker.New(cfg.AllowedHosts).Middleware,
			securityHeaders,
		)
	}
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		}),
		ratelimit.New(cfg.RateLimitPerMinute).Middleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.Get(`/`, apiRouter.GetRoot)
	router.Get(`/health`, apiRouter.GetHealth)
	router.Get(`/api/health`, apiRouter.GetAPIHealth)

	router.Route(`/auth`, func(router chi.Router) {
		router.Post(`/register`, apiRouter.PostRegister)
		router.Post(`/login`, apiRouter.PostLogin)
		router.Post(`/password-reset/request`, apiRouter.PostPasswordResetRequest)
		router.Post(`/password-reset/confirm`, apiRouter.PostPasswordResetConfirm)
	})

	router.Route(`/users`, func(router chi.Router) {
		router.Use(theAuth.RequireUser)
		router.Get(`/me`, apiRouter.GetMe)
		router.Patch(`/me`, apiRouter.PatchMe)
		router.Delete(`/me`, apiRouter.DeleteMe)
		router.Post(`/change-password`, apiRouter.PostChangePassword)
		router.Get(`/me/links`, apiRouter.GetLinks)
	})

	router.Route(`/links`, func(router chi.Router) {
		router.Get(`/public/{username}`, apiRouter.GetPublicProfile)
		router.Get(`/{linkID}/redirect`, apiRouter.GetRedirect)
		router.Post(`/{linkID}/click`, apiRouter.PostClick)

		router.Group(func(router chi.Router) {
			router.Use(theAuth.RequireUser)
			router.Post(`/`, apiRouter.PostLink)
			router.Get(`/`, apiRouter.GetLinks)
			router.Get(`/{linkID}`, apiRouter.GetLink)
			router.Patch(`/{linkID}`, apiRouter.PatchLink)
			router.Delete(`/{linkID}`, apiRouter.DeleteLink)
		})
	})

	router.Route(`/analytics`, func(router chi.Router) {
		router.Use(theAuth.RequireUser)
		router.Get(`/`, apiRouter.GetAnalytics)
		router.Get(`/geographic`, apiRouter.GetGeographicAnalytics)
	})

	router.Route(`/admin`, func(router chi.Router) {
		router.Use(theAuth.RequireUser)
		router.Post(`/send-weekly-analytics`, apiRouter.PostSendWeeklyAnalytics)
		router.Get(`/email-stats`, apiRouter.GetEmailStats)
	})

	return router
}

func securityHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		res.Header().Set("X-Content-Type-Options", "nosniff")
		res.Header().Set("X-Frame-Options", "DENY")
		res.Header().Set("X-XSS-Protection", "1; mode=block")
		res.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		res.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		res.Header().Set(
			"Content-Security-Policy",
			"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline';",
		)

		h.ServeHTTP(res, req)
	})
}

func (r *Router) decodeAndValidate(req *http.Request, target any) error {
	if err := json.NewDecoder(req.Body).Decode(target); err != nil {
		return err
	}

	return r.validate.Struct(target)
}

func writeJSON(res http.ResponseWriter, statusCode int, payload any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	if err := json.NewEncoder(res).Encode(payload); err != nil {
		logger.Log.Debugln("error while response encoding:", err)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(res http.ResponseWriter, err error) {
	statusCode := statusForError(err)
	detail := err.Error()
	if statusCode == http.StatusInternalServerError {
		logger.Log.Errorln("request failed:", err)
		detail = "internal server error"
	}

	writeJSON(res, statusCode, errorResponse{Detail: detail})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrLinkInactive):
		return http.StatusNotFound

	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, models.ErrNotOwner):
		return http.StatusForbidden

	case errors.Is(err, models.ErrUsernameTaken),
		errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrInactiveUser),
		errors.Is(err, models.ErrInvalidResetToken),
		errors.Is(err, models.ErrWrongPassword):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
