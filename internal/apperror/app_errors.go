package apperror

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is the only error class the engine reports. Every rejection wraps it.
var ErrIllegalMove = errors.New("illegal move")

var (
	ErrGameFinished = fmt.Errorf("%w: game is already finished", ErrIllegalMove)
	ErrCellOccupied = fmt.Errorf("%w: cell is already occupied", ErrIllegalMove)
	ErrInvalidCell  = fmt.Errorf("%w: invalid cell index", ErrIllegalMove)
)
