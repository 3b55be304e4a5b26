package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/repository"
	"github.com/rocketscienceinc/tictactoe-local/internal/tictactoe"
)

var errRedisDown = errors.New("redis down")

type brokenRepo struct {
	getErr    error
	updateErr error
	deleteErr error
	updated   int
}

func (that *brokenRepo) GetByID(context.Context, string) (entity.GameState, error) {
	if that.getErr != nil {
		return entity.GameState{}, that.getErr
	}
	return entity.GameState{}, repository.ErrGameNotFound
}

func (that *brokenRepo) Update(_ context.Context, _ string, fn repository.UpdateFunc) (entity.GameState, error) {
	next, err := fn(entity.GameState{}, false)
	if err != nil {
		return entity.GameState{}, err
	}
	if that.updateErr != nil {
		return entity.GameState{}, that.updateErr
	}
	that.updated++
	return next, nil
}

func (that *brokenRepo) DeleteByID(context.Context, string) error {
	return that.deleteErr
}

// slowRepo reads and writes in separate steps with a delay in between, like a
// remote store without transactions. Ordering has to come from the caller.
type slowRepo struct {
	repository.GameRepository
	delay time.Duration
}

func (that *slowRepo) Update(ctx context.Context, sessionID string, fn repository.UpdateFunc) (entity.GameState, error) {
	current, err := that.GameRepository.GetByID(ctx, sessionID)
	found := err == nil
	if err != nil && !errors.Is(err, repository.ErrGameNotFound) {
		return entity.GameState{}, err
	}

	time.Sleep(that.delay)

	next, err := fn(current, found)
	if err != nil {
		return entity.GameState{}, err
	}

	return that.GameRepository.Update(ctx, sessionID, func(entity.GameState, bool) (entity.GameState, error) {
		return next, nil
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (*GameManager, repository.GameRepository) {
	t.Helper()

	repo := repository.NewMemoryGameRepository(time.Hour)

	return NewGameManager(discardLogger(), repo), repo
}

func TestGameManager_CurrentGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns a fresh game for a new session", func(t *testing.T) {
		manager, _ := newTestManager(t)

		game, err := manager.CurrentGame(ctx, "session-1")

		require.NoError(t, err)
		assert.Equal(t, tictactoe.Initialize(), game)
	})

	t.Run("Returns the stored game", func(t *testing.T) {
		// Given: a session with a move already played
		manager, _ := newTestManager(t)
		played, err := manager.MakeTurn(ctx, "session-1", 4)
		require.NoError(t, err)

		// When: the current game is requested
		game, err := manager.CurrentGame(ctx, "session-1")

		// Then: it is the stored game
		require.NoError(t, err)
		assert.Equal(t, played, game)
	})

	t.Run("Sessions are independent", func(t *testing.T) {
		manager, _ := newTestManager(t)
		_, err := manager.MakeTurn(ctx, "session-1", 4)
		require.NoError(t, err)

		game, err := manager.CurrentGame(ctx, "session-2")

		require.NoError(t, err)
		assert.Equal(t, tictactoe.Initialize(), game)
	})

	t.Run("Storage error is returned", func(t *testing.T) {
		manager := NewGameManager(discardLogger(), &brokenRepo{getErr: errRedisDown})

		_, err := manager.CurrentGame(ctx, "session-1")

		require.ErrorIs(t, err, errRedisDown)
	})
}

func TestGameManager_MakeTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores the accepted move", func(t *testing.T) {
		// Given: a new session
		manager, repo := newTestManager(t)

		// When: X plays cell 0
		game, err := manager.MakeTurn(ctx, "session-1", 0)

		// Then: the move is applied and stored
		require.NoError(t, err)
		assert.Equal(t, entity.X, game.Board[0])
		assert.Equal(t, entity.O, game.CurrentPlayer)

		stored, err := repo.GetByID(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, game, stored)
	})

	t.Run("Illegal move leaves the game unchanged", func(t *testing.T) {
		// Given: a session where X holds cell 0
		manager, repo := newTestManager(t)
		before, err := manager.MakeTurn(ctx, "session-1", 0)
		require.NoError(t, err)

		// When: cell 0 is played again
		game, err := manager.MakeTurn(ctx, "session-1", 0)

		// Then: the move is rejected and the stored game is untouched
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, before, game)

		stored, err := repo.GetByID(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, before, stored)
	})

	t.Run("Illegal first move returns a fresh game", func(t *testing.T) {
		manager, _ := newTestManager(t)

		game, err := manager.MakeTurn(ctx, "session-1", 9)

		require.ErrorIs(t, err, apperror.ErrInvalidCell)
		assert.Equal(t, tictactoe.Initialize(), game)
	})

	t.Run("Win ends the game", func(t *testing.T) {
		manager, _ := newTestManager(t)

		var game entity.GameState
		var err error
		for _, cell := range []int{0, 3, 1, 4, 2} {
			game, err = manager.MakeTurn(ctx, "session-1", cell)
			require.NoError(t, err)
		}

		assert.Equal(t, entity.Won(entity.X, entity.Line{0, 1, 2}), game.Status)

		_, err = manager.MakeTurn(ctx, "session-1", 8)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Storage error on update", func(t *testing.T) {
		manager := NewGameManager(discardLogger(), &brokenRepo{updateErr: errRedisDown})

		_, err := manager.MakeTurn(ctx, "session-1", 0)

		require.ErrorIs(t, err, errRedisDown)
		assert.NotErrorIs(t, err, apperror.ErrIllegalMove)
	})

	t.Run("Rejected move is not stored", func(t *testing.T) {
		repo := &brokenRepo{}
		manager := NewGameManager(discardLogger(), repo)

		_, err := manager.MakeTurn(ctx, "session-1", 42)

		require.ErrorIs(t, err, apperror.ErrInvalidCell)
		assert.Zero(t, repo.updated)
	})
}

func TestGameManager_MakeTurn_ConcurrentMovesOnOneSession(t *testing.T) {
	ctx := context.Background()

	// Given: a store whose reads and writes are separate, slow steps
	repo := &slowRepo{GameRepository: repository.NewMemoryGameRepository(time.Hour), delay: 5 * time.Millisecond}
	manager := NewGameManager(discardLogger(), repo)

	// When: two moves for the same session arrive at the same time
	cells := []int{0, 8}
	errs := make([]error, len(cells))

	var wg sync.WaitGroup
	for i, cell := range cells {
		i, cell := i, cell
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = manager.MakeTurn(ctx, "session-1", cell)
		}()
	}
	wg.Wait()

	// Then: both moves land, one by X and one by O
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	game, err := manager.CurrentGame(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 1, game.Board.Count(entity.X))
	assert.Equal(t, 1, game.Board.Count(entity.O))
	assert.NotEqual(t, entity.Empty, game.Board[0])
	assert.NotEqual(t, entity.Empty, game.Board[8])
	assert.Equal(t, entity.X, game.CurrentPlayer)
}

func TestGameManager_RestartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Restart after a win", func(t *testing.T) {
		// Given: a finished game
		manager, repo := newTestManager(t)
		for _, cell := range []int{0, 3, 1, 4, 2} {
			_, err := manager.MakeTurn(ctx, "session-1", cell)
			require.NoError(t, err)
		}

		// When: the game is restarted
		game, err := manager.RestartGame(ctx, "session-1")

		// Then: a fresh game is returned and the old one is gone
		require.NoError(t, err)
		assert.Equal(t, tictactoe.Initialize(), game)

		_, err = repo.GetByID(ctx, "session-1")
		require.ErrorIs(t, err, repository.ErrGameNotFound)

		current, err := manager.CurrentGame(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, tictactoe.Initialize(), current)

		// And: play continues from the fresh game
		next, err := manager.MakeTurn(ctx, "session-1", 8)
		require.NoError(t, err)
		assert.Equal(t, entity.O, next.CurrentPlayer)
	})

	t.Run("Restart without a stored game", func(t *testing.T) {
		manager, _ := newTestManager(t)

		game, err := manager.RestartGame(ctx, "session-1")

		require.NoError(t, err)
		assert.Equal(t, tictactoe.Initialize(), game)
	})

	t.Run("Storage error on delete", func(t *testing.T) {
		manager := NewGameManager(discardLogger(), &brokenRepo{deleteErr: errRedisDown})

		_, err := manager.RestartGame(ctx, "session-1")

		require.ErrorIs(t, err, errRedisDown)
	})
}

func TestSessionLocks(t *testing.T) {
	locks := newSessionLocks()

	// Given: session-1 is held
	unlock := locks.lock("session-1")

	// Then: another session is not blocked
	done := make(chan struct{})
	go func() {
		locks.lock("session-2")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session-2 blocked by session-1")
	}

	// And: once released, no entries are left behind
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
