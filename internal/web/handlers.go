// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/afa-platform/afa/internal/auth"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Plan     string `json:"plan"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates an account and signs it in. Clients choose a plan
// but never a role.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	plan, err := auth.ParsePlan(req.Plan)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	session, err := s.sessions.Register(r.Context(), auth.Profile{
		Name:  req.Name,
		Email: req.Email,
		Role:  auth.RoleUser,
		Plan:  plan,
	}, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, session)
	writeJSON(w, http.StatusCreated, newUserResponse(session.User))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	session, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, newUserResponse(session.User))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session := s.sessions.Logout(r.Context()); session.Cleared() {
		s.clearSessionCookie(w)
	} else {
		s.setSessionCookie(w, session)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := s.sessions.Resolve(r.Context(), sessionToken(r))
	if !identity.Authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(identity.User))
}

// handleListUsers pages through users. Only administrators may call it.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	identity := s.sessions.Resolve(r.Context(), sessionToken(r))
	if !identity.Authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !identity.User.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	limit, ok := queryInt(r, "limit", defaultPageSize)
	if !ok || limit < 1 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPageSize))
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	users, err := s.directory.List(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type healthResponse struct {
	OK bool   `json:"ok"`
	DB string `json:"db"`
}

// handleHealth reports liveness together with database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, healthResponse{OK: false, DB: "error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{OK: true, DB: "ok"})
}

func queryInt(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
