/**
 * @description
 * This file contains custom middleware for the HTTP router: zerolog access logging
 * and bearer token authentication against the identity provider.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5/middleware: Request IDs and status-capturing writers.
 * - github.com/rs/zerolog: Structured request logs.
 */

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oikonomos/ledger-service/internal/auth"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/logger"
	"github.com/rs/zerolog"
)

// CurrentUserContextKey is a custom type for the context key to avoid collisions.
type CurrentUserContextKey string

const currentUserKey CurrentUserContextKey = "currentUser"

// RequestLogger logs one line per request and exposes a request-scoped logger
// through logger.FromContext.
func RequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := base.With().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Logger()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := reqLogger.Info()
			if status >= http.StatusInternalServerError {
				event = reqLogger.Error()
			} else if status >= http.StatusBadRequest {
				event = reqLogger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// RequireAuth validates the bearer token and stores the caller in the request context.
func RequireAuth(identity *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token", nil)
				return
			}
			user, err := identity.Authenticate(r.Context(), token)
			if err != nil {
				respondError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), currentUserKey, *user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser retrieves the authenticated caller from the request context.
func CurrentUser(ctx context.Context) (domain.CurrentUser, bool) {
	user, ok := ctx.Value(currentUserKey).(domain.CurrentUser)
	return user, ok
}
