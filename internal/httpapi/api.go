// ABOUTME: HTTP JSON API exposing the session, exercise, saved, and chat stores.
// ABOUTME: Also carries widget ingress (POST /api/bridge) and the SSE change feed.

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/repfit/repfit/internal/bridge"
	"github.com/repfit/repfit/internal/chat"
	"github.com/repfit/repfit/internal/exercise"
	"github.com/repfit/repfit/internal/notify"
	"github.com/repfit/repfit/internal/saved"
	"github.com/repfit/repfit/internal/session"
)

// RegisterRequest is the JSON request body for POST /api/session/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the JSON request body for POST /api/session/login.
type LoginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	RememberEmail bool   `json:"rememberEmail"`
}

// SessionResponse is the JSON response for GET /api/session.
type SessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *session.Identity `json:"user,omitempty"`
	SavedEmail    string            `json:"savedEmail,omitempty"`
}

// BeginResetRequest is the JSON request body for POST /api/session/reset.
type BeginResetRequest struct {
	Email string `json:"email"`
}

// BeginResetResponse carries the one-time reset token back to the caller.
// A hosted deployment would mail the token instead of returning it.
type BeginResetResponse struct {
	Token string `json:"token"`
}

// CompleteResetRequest is the JSON request body for POST /api/session/reset/complete.
type CompleteResetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// AddExerciseRequest is the JSON request body for POST /api/exercises.
type AddExerciseRequest struct {
	ExerciseType string `json:"exerciseType"`
	Count        int    `json:"count"`
}

// SavedStatusResponse is the JSON response for GET /api/saved/{id}.
type SavedStatusResponse struct {
	ID    string `json:"id"`
	Saved bool   `json:"saved"`
}

// API exposes the stores over HTTP. All state lives in the injected stores;
// the API itself is stateless.
type API struct {
	sessions  *session.Store
	exercises *exercise.Log
	saved     *saved.Store
	chats     *chat.History
	bridge    *bridge.Bridge
	notifier  *notify.Broadcaster
	logger    *slog.Logger
}

// New creates an API wired to the given stores. notifier may be nil, in
// which case GET /api/events reports service unavailable.
func New(sessions *session.Store, exercises *exercise.Log, savedStore *saved.Store, chats *chat.History, b *bridge.Bridge, notifier *notify.Broadcaster) *API {
	return &API{
		sessions:  sessions,
		exercises: exercises,
		saved:     savedStore,
		chats:     chats,
		bridge:    b,
		notifier:  notifier,
		logger:    slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Session
	mux.HandleFunc("GET /api/session", a.handleSession)
	mux.HandleFunc("POST /api/session/register", a.handleRegister)
	mux.HandleFunc("POST /api/session/login", a.handleLogin)
	mux.HandleFunc("POST /api/session/logout", a.handleLogout)
	mux.HandleFunc("POST /api/session/reset", a.handleBeginReset)
	mux.HandleFunc("POST /api/session/reset/complete", a.handleCompleteReset)

	// Exercise log
	mux.HandleFunc("POST /api/exercises", a.handleAddExercise)
	mux.HandleFunc("GET /api/exercises", a.handleListExercises)
	mux.HandleFunc("GET /api/exercises/groups", a.handleExerciseGroups)
	mux.HandleFunc("DELETE /api/exercises/{id}", a.handleRemoveExercise)
	mux.HandleFunc("DELETE /api/exercises", a.handleClearExercises)

	// Saved exercises
	mux.HandleFunc("POST /api/saved", a.handleSaveExercise)
	mux.HandleFunc("GET /api/saved", a.handleListSaved)
	mux.HandleFunc("GET /api/saved/{id}", a.handleSavedStatus)
	mux.HandleFunc("DELETE /api/saved/{id}", a.handleUnsaveExercise)

	// Chat history
	mux.HandleFunc("GET /api/chats", a.handleListChats)
	mux.HandleFunc("GET /api/chats/{id}", a.handleGetChat)
	mux.HandleFunc("GET /api/chats/{id}/transcript", a.handleChatTranscript)
	mux.HandleFunc("DELETE /api/chats/{id}", a.handleRemoveChat)
	mux.HandleFunc("DELETE /api/chats", a.handleClearChats)

	// Widget ingress and change feed
	mux.HandleFunc("POST /api/bridge", a.handleBridge)
	mux.HandleFunc("GET /api/events", a.handleEvents)
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	identity := a.sessions.Restore(r.Context())

	resp := SessionResponse{
		Authenticated: identity != nil,
		User:          identity,
		SavedEmail:    a.sessions.SavedEmail(r.Context()),
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := a.sessions.Register(r.Context(), req.Email, req.Name, req.Password)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
	case errors.Is(err, session.ErrBadEmail), errors.Is(err, session.ErrWeakPassword):
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrEmailTaken):
		a.sendJSONError(w, http.StatusConflict, err.Error())
	default:
		a.logger.Error("registration failed", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	identity, err := a.sessions.Login(r.Context(), req.Email, req.Password, req.RememberEmail)
	switch {
	case err == nil:
		a.writeJSON(w, http.StatusOK, identity)
	case errors.Is(err, session.ErrInvalidCredentials):
		a.sendJSONError(w, http.StatusUnauthorized, err.Error())
	default:
		a.logger.Error("login failed", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleBeginReset(w http.ResponseWriter, r *http.Request) {
	var req BeginResetRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, err := a.sessions.BeginReset(r.Context(), req.Email)
	switch {
	case err == nil:
		a.writeJSON(w, http.StatusOK, BeginResetResponse{Token: token})
	case errors.Is(err, session.ErrUnknownEmail):
		a.sendJSONError(w, http.StatusNotFound, err.Error())
	default:
		a.logger.Error("reset request failed", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (a *API) handleCompleteReset(w http.ResponseWriter, r *http.Request) {
	var req CompleteResetRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := a.sessions.CompleteReset(r.Context(), req.Email, req.Token, req.Password)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrResetTokenInvalid):
		a.sendJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrWeakPassword):
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error("reset completion failed", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (a *API) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req AddExerciseRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	record, err := a.exercises.Add(r.Context(), exercise.Type(req.ExerciseType), req.Count)
	switch {
	case err == nil:
		a.writeJSON(w, http.StatusCreated, record)
	case errors.Is(err, exercise.ErrUnknownType), errors.Is(err, exercise.ErrInvalidCount):
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error("failed to record exercise", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (a *API) handleListExercises(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 0)
	a.writeJSON(w, http.StatusOK, a.exercises.List(limit))
}

func (a *API) handleExerciseGroups(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.exercises.Groups())
}

func (a *API) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	if !a.exercises.Remove(r.Context(), r.PathValue("id")) {
		a.sendJSONError(w, http.StatusNotFound, "no such record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearExercises(w http.ResponseWriter, r *http.Request) {
	if err := a.exercises.RemoveAll(r.Context()); err != nil {
		a.logger.Error("failed to clear exercise log", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSaveExercise(w http.ResponseWriter, r *http.Request) {
	var req saved.Exercise
	if err := decodeJSON(r.Body, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !a.saved.Add(r.Context(), req) {
		a.sendJSONError(w, http.StatusConflict, "exercise not saved")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *API) handleListSaved(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.saved.List())
}

func (a *API) handleSavedStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a.writeJSON(w, http.StatusOK, SavedStatusResponse{ID: id, Saved: a.saved.IsSaved(id)})
}

// handleUnsaveExercise removes a bookmark. Removing an ID that was never
// saved still succeeds; the store rewrites the set either way.
func (a *API) handleUnsaveExercise(w http.ResponseWriter, r *http.Request) {
	if !a.saved.Remove(r.Context(), r.PathValue("id")) {
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListChats(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 0)
	a.writeJSON(w, http.StatusOK, a.chats.List(limit))
}

func (a *API) handleGetChat(w http.ResponseWriter, r *http.Request) {
	session := a.chats.Get(r.PathValue("id"))
	if session == nil {
		a.sendJSONError(w, http.StatusNotFound, "no such session")
		return
	}
	a.writeJSON(w, http.StatusOK, session)
}

func (a *API) handleRemoveChat(w http.ResponseWriter, r *http.Request) {
	if !a.chats.Remove(r.Context(), r.PathValue("id")) {
		a.sendJSONError(w, http.StatusNotFound, "no such session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearChats(w http.ResponseWriter, r *http.Request) {
	if err := a.chats.RemoveAll(r.Context()); err != nil {
		a.logger.Error("failed to clear chat history", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBridge feeds one widget message into the bridge. The Origin header
// plays the role of the message's source origin; the bridge drops anything
// from an origin outside its allow-list. Delivery is fire-and-forget, so the
// response says only that the message was accepted for dispatch.
func (a *API) handleBridge(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "could not read body")
		return
	}

	a.bridge.Dispatch(r.Context(), r.Header.Get("Origin"), payload)
	w.WriteHeader(http.StatusAccepted)
}

// writeJSON writes a JSON response with the given status.
func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (a *API) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body, rejecting unknown fields.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseLimit reads the optional ?limit query parameter. Zero or absent means
// no limit.
func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
