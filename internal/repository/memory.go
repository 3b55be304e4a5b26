package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

type memoryEntry struct {
	game      entity.GameState
	expiresAt time.Time
}

type memGame struct {
	mu    sync.Mutex
	games map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryGameRepository keeps games in process memory. A zero ttl keeps them forever.
func NewMemoryGameRepository(ttl time.Duration) GameRepository {
	return &memGame{
		games: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (that *memGame) GetByID(_ context.Context, sessionID string) (entity.GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.lookupLocked(sessionID)
	if !ok {
		return entity.GameState{}, ErrGameNotFound
	}

	return entry.game, nil
}

// Update holds the repository lock for the whole read-modify-write.
func (that *memGame) Update(_ context.Context, sessionID string, fn UpdateFunc) (entity.GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, found := that.lookupLocked(sessionID)

	next, err := fn(entry.game, found)
	if err != nil {
		return entity.GameState{}, err
	}

	stored := memoryEntry{game: next}
	if that.ttl > 0 {
		stored.expiresAt = that.now().Add(that.ttl)
	}

	that.games[sessionID] = stored

	return next, nil
}

func (that *memGame) DeleteByID(_ context.Context, sessionID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.lookupLocked(sessionID); !ok {
		return ErrGameNotFound
	}

	delete(that.games, sessionID)

	return nil
}

func (that *memGame) lookupLocked(sessionID string) (memoryEntry, bool) {
	entry, ok := that.games[sessionID]
	if !ok {
		return memoryEntry{}, false
	}

	if !entry.expiresAt.IsZero() && !that.now().Before(entry.expiresAt) {
		delete(that.games, sessionID)
		return memoryEntry{}, false
	}

	return entry, true
}
