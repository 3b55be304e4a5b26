package rest

import (
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

// CellView is what the page needs to draw one square.
type CellView struct {
	Index       int    `json:"index"`
	Mark        string `json:"mark"`
	Highlighted bool   `json:"highlighted"`
	Playable    bool   `json:"playable"`
}

// GameView is the response body of every game endpoint.
type GameView struct {
	Board         [entity.BoardSize]string `json:"board"`
	Cells         []CellView               `json:"cells"`
	CurrentPlayer string                   `json:"current_player"`
	Status        entity.State             `json:"status"`
	Winner        string                   `json:"winner,omitempty"`
	WinningLine   []int                    `json:"winning_line,omitempty"`
	Message       string                   `json:"message"`
	InputEnabled  bool                     `json:"input_enabled"`
	Error         string                   `json:"error,omitempty"`
}

func newGameView(game entity.GameState) GameView {
	view := GameView{
		Cells:         make([]CellView, 0, entity.BoardSize),
		CurrentPlayer: string(game.CurrentPlayer),
		Status:        game.Status.State,
		Message:       statusMessage(game),
		InputEnabled:  game.IsInProgress(),
	}

	for i, cell := range game.Board {
		view.Board[i] = string(cell)
		view.Cells = append(view.Cells, CellView{
			Index:       i,
			Mark:        string(cell),
			Highlighted: game.IsWinningCell(i),
			Playable:    game.IsInProgress() && cell == entity.Empty,
		})
	}

	if game.Status.State == entity.StateWon {
		view.Winner = string(game.Status.Winner)
		view.WinningLine = game.Status.Line[:]
	}

	return view
}

func statusMessage(game entity.GameState) string {
	switch game.Status.State {
	case entity.StateWon:
		return "Winner: " + string(game.Status.Winner)
	case entity.StateDraw:
		return "It's a draw!"
	default:
		return "Current player: " + string(game.CurrentPlayer)
	}
}
