package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

const maxUpdateRetries = 20

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrUpdateConflict = errors.New("game was modified concurrently")
)

// UpdateFunc receives the stored game (found is false when the session has none) and
// returns the game to store. Returning an error aborts the update and stores nothing.
type UpdateFunc func(game entity.GameState, found bool) (entity.GameState, error)

// GameRepository keeps the game of each browser session. Entries expire with the session.
type GameRepository interface {
	GetByID(ctx context.Context, sessionID string) (entity.GameState, error)
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (entity.GameState, error)
	DeleteByID(ctx context.Context, sessionID string) error
}

type dbGame struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGameRepository(client *redis.Client, ttl time.Duration) GameRepository {
	return &dbGame{
		client: client,
		ttl:    ttl,
	}
}

func gameKey(sessionID string) string {
	return "game:" + sessionID
}

func (that *dbGame) GetByID(ctx context.Context, sessionID string) (entity.GameState, error) {
	return getGame(ctx, that.client, gameKey(sessionID))
}

// Update runs fn inside an optimistic transaction on the session key, so a write from
// another process between the read and the write makes the attempt start over.
func (that *dbGame) Update(ctx context.Context, sessionID string, fn UpdateFunc) (entity.GameState, error) {
	key := gameKey(sessionID)

	var updated entity.GameState

	txf := func(tx *redis.Tx) error {
		current, err := getGame(ctx, tx, key)
		found := err == nil
		if err != nil && !errors.Is(err, ErrGameNotFound) {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		gameJSON, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gameJSON, that.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = next

		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return entity.GameState{}, fmt.Errorf("failed to update game: %w", err)
		}

		return updated, nil
	}

	return entity.GameState{}, ErrUpdateConflict
}

func (that *dbGame) DeleteByID(ctx context.Context, sessionID string) error {
	deleted, err := that.client.Del(ctx, gameKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete game by ID: %w", err)
	}

	if deleted == 0 {
		return ErrGameNotFound
	}

	return nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getGame(ctx context.Context, client stringGetter, key string) (entity.GameState, error) {
	response, err := client.Get(ctx, key).Result()

	if errors.Is(err, redis.Nil) {
		return entity.GameState{}, ErrGameNotFound
	}

	if err != nil {
		return entity.GameState{}, fmt.Errorf("failed to get game by id: %w", err)
	}

	var existingGame entity.GameState
	if err = json.Unmarshal([]byte(response), &existingGame); err != nil {
		return entity.GameState{}, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return existingGame, nil
}
