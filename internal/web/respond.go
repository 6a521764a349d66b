// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/afa-platform/afa/internal/auth"
	"github.com/afa-platform/afa/pkg/errutil"
)

// userResponse is the public JSON shape of a user. Role and plan are
// lower-case on the wire.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      strings.ToLower(string(u.Role)),
		Plan:      strings.ToLower(string(u.Plan)),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps session service errors to responses. Anything not
// recognized is logged and reported as a 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, inputMessage(err))
	default:
		errutil.LogErrorContext(r.Context(), s.logger, "request failed",
			oops.With("method", r.Method, "path", r.URL.Path).Wrap(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// inputMessage returns the validation message without the sentinel suffix.
func inputMessage(err error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutSuffix(msg, ": "+auth.ErrInvalidInput.Error()); ok && trimmed != "" {
		return trimmed
	}
	return msg
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return oops.Code(auth.CodeInvalidInput).Wrapf(auth.ErrInvalidInput, "invalid request body")
	}
	return nil
}
