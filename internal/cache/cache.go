// Package cache mirrors the game action log to Redis: every record is
// appended to a per-game list and published on a per-game channel.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the shared client. It stays nil when Redis is not configured.
var Rdb *redis.Client

// ErrNotConnected is returned when Rdb has not been initialised.
var ErrNotConnected = errors.New("redis client not initialised")

// GameActionRecord is one entry of a game's action history.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   string                 `json:"actorUserId,omitempty"` // empty for game events
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"` // unix millis
}

// ActionsKey is the list holding a game's records in order.
func ActionsKey(gameID uuid.UUID) string {
	return fmt.Sprintf("turnengine:game:%s:actions", gameID)
}

// ActionsChannel is the pub/sub channel new records are published on.
func ActionsChannel(gameID uuid.UUID) string {
	return fmt.Sprintf("turnengine:game:%s:events", gameID)
}

// Connect initialises Rdb and checks the server is reachable.
func Connect(ctx context.Context, addr, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// Close releases Rdb.
func Close() error {
	if Rdb == nil {
		return nil
	}
	err := Rdb.Close()
	Rdb = nil
	return err
}

// PublishGameAction appends rec to the game's list and publishes it.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding action %d: %w", rec.ActionIndex, err)
	}
	pipe := Rdb.TxPipeline()
	pipe.RPush(ctx, ActionsKey(rec.GameID), data)
	pipe.Publish(ctx, ActionsChannel(rec.GameID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing action %d: %w", rec.ActionIndex, err)
	}
	return nil
}

// GameActions reads back a game's history.
func GameActions(ctx context.Context, gameID uuid.UUID) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, ErrNotConnected
	}
	raw, err := Rdb.LRange(ctx, ActionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading actions for %s: %w", gameID, err)
	}
	out := make([]GameActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decoding action for %s: %w", gameID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
