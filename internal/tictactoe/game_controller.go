package tictactoe

import (
	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

// Initialize returns a fresh game: empty board, X to move.
func Initialize() entity.GameState {
	return entity.GameState{
		CurrentPlayer: entity.X,
		Status:        entity.InProgress(),
	}
}

// ApplyMove places the current player's mark on cell. It is a pure function of its inputs:
// on rejection the given state is returned unchanged together with an apperror.ErrIllegalMove.
func ApplyMove(state entity.GameState, cell int) (entity.GameState, error) {
	if err := validateMove(state, cell); err != nil {
		return state, err
	}

	next := state
	next.Board[cell] = state.CurrentPlayer
	next.Status = entity.DetermineResult(next.Board)

	if next.IsInProgress() {
		next.CurrentPlayer = state.CurrentPlayer.Opponent()
	}

	return next, nil
}

// Restart discards state and starts over.
func Restart(_ entity.GameState) entity.GameState {
	return Initialize()
}

// validateMove - checks if the move is valid.
func validateMove(state entity.GameState, cell int) error {
	if state.IsFinished() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(state.Board) {
		return apperror.ErrInvalidCell
	}

	if state.Board[cell] != entity.Empty {
		return apperror.ErrCellOccupied
	}

	return nil
}
