package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

const sessionCookie = "session_id"

type gameUseCase interface {
	CurrentGame(ctx context.Context, sessionID string) (entity.GameState, error)
	MakeTurn(ctx context.Context, sessionID string, cell int) (entity.GameState, error)
	RestartGame(ctx context.Context, sessionID string) (entity.GameState, error)
}

type GameHandler interface {
	GetGame(w http.ResponseWriter, r *http.Request)
	MakeTurn(w http.ResponseWriter, r *http.Request)
	Restart(w http.ResponseWriter, r *http.Request)
}

type gameHandler struct {
	logger     *slog.Logger
	game       gameUseCase
	sessionTTL time.Duration
}

func NewGameHandler(logger *slog.Logger, game gameUseCase, sessionTTL time.Duration) GameHandler {
	return &gameHandler{
		logger:     logger.With("component", "rest"),
		game:       game,
		sessionTTL: sessionTTL,
	}
}

type turnRequest struct {
	Cell *int `json:"cell"`
}

func (that *gameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetGame")

	sessionID := that.ensureSession(w, r)

	game, err := that.game.CurrentGame(r.Context(), sessionID)
	if err != nil {
		log.Error("failed to get game", "error", err)
		that.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	that.writeJSON(w, http.StatusOK, newGameView(game))
}

func (that *gameHandler) MakeTurn(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "MakeTurn")

	sessionID := that.ensureSession(w, r)

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cell == nil {
		that.writeError(w, http.StatusBadRequest, "body must be {\"cell\": <0-8>}")
		return
	}

	game, err := that.game.MakeTurn(r.Context(), sessionID, *req.Cell)
	if errors.Is(err, apperror.ErrIllegalMove) {
		view := newGameView(game)
		view.Error = err.Error()
		that.writeJSON(w, http.StatusConflict, view)
		return
	}

	if err != nil {
		log.Error("failed to make turn", "error", err)
		that.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	that.writeJSON(w, http.StatusOK, newGameView(game))
}

func (that *gameHandler) Restart(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Restart")

	sessionID := that.ensureSession(w, r)

	game, err := that.game.RestartGame(r.Context(), sessionID)
	if err != nil {
		log.Error("failed to restart game", "error", err)
		that.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	that.writeJSON(w, http.StatusOK, newGameView(game))
}

// ensureSession returns the session id from the cookie, issuing a new one when absent.
// The cookie is sent on every response so its expiry follows the stored game's ttl.
func (that *gameHandler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	var sessionID string
	if c, err := r.Cookie(sessionCookie); err == nil {
		sessionID = c.Value
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if that.sessionTTL > 0 {
		cookie.Expires = time.Now().Add(that.sessionTTL)
	}

	http.SetCookie(w, cookie)

	return sessionID
}

func (that *gameHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "status", status, "error", err)
	}
}

func (that *gameHandler) writeError(w http.ResponseWriter, status int, msg string) {
	that.writeJSON(w, status, map[string]string{"error": msg})
}
