/**
 * @description
 * This file contains the HTTP handlers for the ledger API. Handlers are responsible for
 * decoding requests, calling the ledger or identity service, and writing the JSON
 * response. Errors are mapped to status codes in one place, `respondError`.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: URL parameters.
 * - internal/app, internal/auth, internal/domain: Services and models.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/app"
	"github.com/oikonomos/ledger-service/internal/auth"
	"github.com/oikonomos/ledger-service/internal/domain"
)

const maxRequestBodyBytes = 1 << 20

// Handlers holds the services the API delegates to.
type Handlers struct {
	ledger   *app.Service
	identity *auth.Service
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(ledger *app.Service, identity *auth.Service) *Handlers {
	return &Handlers{ledger: ledger, identity: identity}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", domain.ErrInvalidInput, name)
	}
	return id, nil
}

// HealthHandler reports liveness and whether the store answers.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	info := h.ledger.SystemInfo()
	if err := h.ledger.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "store": info.StoreDriver})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": info.StoreDriver})
}

// SystemInitHandler returns the server's store driver, currency and clock.
func (h *Handlers) SystemInitHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.SystemInfo())
}

func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	tokens, err := h.identity.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handlers) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRefreshInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	tokens, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRefreshInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.identity.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MeHandler returns the authenticated caller.
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token", nil)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
