package entity

// Cell is the content of one board position.
type Cell string

const (
	Empty Cell = ""
	X     Cell = "X"
	O     Cell = "O"
)

// Opponent returns the other player's mark. Empty has no opponent.
func (that Cell) Opponent() Cell {
	switch that {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

const BoardSize = 9

// Board is the 3x3 grid stored row-major: row0 is 0,1,2; row1 is 3,4,5; row2 is 6,7,8.
type Board [BoardSize]Cell

// Line is a triple of board indices that wins when all three hold the same mark.
type Line [3]int

// WinLines is scanned in this order; the first completed line is reported.
var WinLines = [8]Line{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type State string

const (
	StateInProgress State = "in_progress"
	StateWon        State = "won"
	StateDraw       State = "draw"
)

// Status is the derived outcome of a board. Winner and Line are set only when State is StateWon.
type Status struct {
	State  State `json:"state"`
	Winner Cell  `json:"winner,omitempty"`
	Line   Line  `json:"line"`
}

func InProgress() Status {
	return Status{State: StateInProgress}
}

func Won(player Cell, line Line) Status {
	return Status{State: StateWon, Winner: player, Line: line}
}

func Draw() Status {
	return Status{State: StateDraw}
}

// GameState is replaced wholesale on every transition.
type GameState struct {
	Board         Board  `json:"board"`
	CurrentPlayer Cell   `json:"current_player"`
	Status        Status `json:"status"`
}

func (that GameState) IsFinished() bool {
	return that.Status.State == StateWon || that.Status.State == StateDraw
}

func (that GameState) IsInProgress() bool {
	return that.Status.State == StateInProgress
}

// IsWinningCell reports whether index belongs to the completed line of a won game.
func (that GameState) IsWinningCell(index int) bool {
	if that.Status.State != StateWon {
		return false
	}

	for _, i := range that.Status.Line {
		if i == index {
			return true
		}
	}

	return false
}

// Count returns how many cells hold mark.
func (that Board) Count(mark Cell) int {
	n := 0
	for _, cell := range that {
		if cell == mark {
			n++
		}
	}

	return n
}

func (that Board) IsFull() bool {
	return that.Count(Empty) == 0
}

// DetermineResult derives the status of a board in one pass: winner and line together.
func DetermineResult(board Board) Status {
	for _, line := range WinLines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != Empty && a == b && b == c {
			return Won(a, line)
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return InProgress()
	}

	return Draw()
}
