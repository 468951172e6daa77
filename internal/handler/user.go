package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
)

// UserService is what UserHandler needs from the identity service.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// UserHandler serves /api/users.
//
// tokens is optional. With it, a successful login also sets a session
// cookie and GET /users/me is available; without it, login only answers
// with the user.
type UserHandler struct {
	users         UserService
	tokens        *auth.TokenService
	secureCookies bool
	logger        *slog.Logger
}

func NewUserHandler(users UserService, tokens *auth.TokenService, secureCookies bool, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:         users,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Routes mounts the user endpoints on r (the /api/users subrouter).
//
//	POST /           register
//	GET  /           list
//	POST /login      login
//	POST /logout     clear the session cookie
//	GET  /me         current session user (only with sessions enabled)
func (h *UserHandler) Routes(r chi.Router) {
	r.Post("/", h.HandleRegister)
	r.Get("/", h.HandleList)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)

	if h.tokens != nil {
		r.With(auth.RequireAuth(h.tokens)).Get("/me", h.HandleMe)
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/users
// REQUEST BODY: {"name": "Ada", "email": "ada@example.com", "password": "..."}
// RESPONSE: 201 + the user, never the hash
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleList returns every user.
//
// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleLogin checks credentials.
//
// HTTP: POST /api/users/login
// REQUEST BODY: {"email": "...", "password": "..."}
// RESPONSE: 200 + the user; 400 missing fields; 401 for ANY bad credential
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.tokens != nil {
		token, err := h.tokens.Generate(user.ID)
		if err != nil {
			// Credentials were fine; the session is a bonus. Log and answer anyway.
			h.logger.Error("failed to issue session token",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			auth.SetSessionCookie(w, token, h.secureCookies)
		}
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the session cookie. It succeeds with or without one.
//
// HTTP: POST /api/users/logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// HandleMe returns the user behind the session cookie.
//
// HTTP: GET /api/users/me (behind RequireAuth)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated", Message: "valid session required"})
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
