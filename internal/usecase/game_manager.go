package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/repository"
	"github.com/rocketscienceinc/tictactoe-local/internal/tictactoe"
)

type gameRepo interface {
	GetByID(ctx context.Context, sessionID string) (entity.GameState, error)
	Update(ctx context.Context, sessionID string, fn repository.UpdateFunc) (entity.GameState, error)
	DeleteByID(ctx context.Context, sessionID string) error
}

// GameManager forwards one session's clicks into the engine and keeps the resulting state.
// Moves and restarts of a session are applied one at a time.
type GameManager struct {
	logger   *slog.Logger
	gameRepo gameRepo
	sessions *sessionLocks
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo: gameRepo,
		sessions: newSessionLocks(),
	}
}

// CurrentGame returns the session's game, or a fresh one when the session has none yet.
func (that *GameManager) CurrentGame(ctx context.Context, sessionID string) (entity.GameState, error) {
	game, err := that.gameRepo.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrGameNotFound) {
		return tictactoe.Initialize(), nil
	}

	if err != nil {
		return entity.GameState{}, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// MakeTurn applies a move for the current player. An illegal move returns the unchanged
// game together with an error wrapping apperror.ErrIllegalMove; nothing is stored.
func (that *GameManager) MakeTurn(ctx context.Context, sessionID string, cell int) (entity.GameState, error) {
	log := that.logger.With("method", "MakeTurn", "session", sessionID, "cell", cell)

	unlock := that.sessions.lock(sessionID)
	defer unlock()

	var before entity.GameState
	next, err := that.gameRepo.Update(ctx, sessionID, func(game entity.GameState, found bool) (entity.GameState, error) {
		if !found {
			game = tictactoe.Initialize()
		}
		before = game

		return tictactoe.ApplyMove(game, cell)
	})
	if errors.Is(err, apperror.ErrIllegalMove) {
		log.Debug("move rejected", "reason", err)

		return before, err
	}

	if err != nil {
		return entity.GameState{}, fmt.Errorf("failed make turn: %w", err)
	}

	log.Debug("move accepted", "player", before.CurrentPlayer)

	switch next.Status.State {
	case entity.StateWon:
		log.Info("game won", "winner", next.Status.Winner, "line", next.Status.Line)
	case entity.StateDraw:
		log.Info("game drawn")
	case entity.StateInProgress:
	}

	return next, nil
}

// RestartGame drops the session's game; the next read starts a fresh one.
func (that *GameManager) RestartGame(ctx context.Context, sessionID string) (entity.GameState, error) {
	log := that.logger.With("method", "RestartGame", "session", sessionID)

	unlock := that.sessions.lock(sessionID)
	defer unlock()

	game, err := that.CurrentGame(ctx, sessionID)
	if err != nil {
		return entity.GameState{}, err
	}

	err = that.gameRepo.DeleteByID(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrGameNotFound) {
		return entity.GameState{}, fmt.Errorf("failed to delete game: %w", err)
	}

	log.Info("game restarted")

	return tictactoe.Restart(game), nil
}
