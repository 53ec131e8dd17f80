package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oikonomos/ledger-service/internal/auth"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/logger"
	"github.com/oikonomos/ledger-service/internal/store"
)

const (
	codeInvalidInput       = "invalid_input"
	codeNotFound           = "not_found"
	codeMethodNotAllowed   = "method_not_allowed"
	codeIntegrity          = "db_integrity_error"
	codeUnauthorized       = "auth_unauthorized"
	codeInvalidCredentials = "auth_invalid_credentials"
	codeTokenExpired       = "auth_token_expired"
	codeForbidden          = "auth_forbidden"
	codeRateLimited        = "rate_limited"
	codeInternal           = "internal_error"
)

// errorResponse is the envelope every failed request receives.
type errorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	writeJSON(w, status, errorResponse{Code: code, Message: message, Details: details})
}

// respondError maps a service error to its HTTP status and envelope code.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		integrityErr *store.IntegrityError
		rateErr      *auth.RateLimitError
	)
	switch {
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
		writeError(w, http.StatusTooManyRequests, codeRateLimited, err.Error(), map[string]interface{}{
			"retryAfterSeconds": rateErr.RetryAfterSeconds,
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, err.Error(), nil)
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, codeTokenExpired, err.Error(), nil)
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error(), nil)
	case errors.As(err, &integrityErr):
		writeError(w, http.StatusBadRequest, codeIntegrity, err.Error(), map[string]interface{}{
			"constraint": integrityErr.Constraint,
		})
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error(), nil)
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error", nil)
	}
}
