// Package database persists GameState snapshots to PostgreSQL.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// DB is the shared pool. It stays nil when Postgres is not configured.
var DB *pgxpool.Pool

// ErrNotConnected is returned when DB has not been initialised.
var ErrNotConnected = errors.New("database pool not initialised")

// ErrNotFound is returned when a game has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot kinds.
const (
	KindTurn  = "turn"
	KindFinal = "final"
)

const (
	schemaSQL = `
CREATE TABLE IF NOT EXISTS game_snapshots (
    game_id    UUID        NOT NULL,
    turn       INTEGER     NOT NULL,
    kind       TEXT        NOT NULL,
    state      JSONB       NOT NULL,
    winner_id  TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (game_id, turn, kind)
)`

	upsertSnapshotQuery = `
INSERT INTO game_snapshots (game_id, turn, kind, state, winner_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (game_id, turn, kind)
DO UPDATE SET state = EXCLUDED.state, winner_id = EXCLUDED.winner_id, created_at = EXCLUDED.created_at`

	latestSnapshotQuery = `
SELECT turn, kind, state, winner_id, created_at
FROM game_snapshots
WHERE game_id = $1
ORDER BY turn DESC, (kind = 'final') DESC
LIMIT 1`
)

// Snapshot is one stored GameState.
type Snapshot struct {
	GameID    uuid.UUID
	Turn      int
	Kind      string
	State     engine.GameState
	WinnerID  string
	CreatedAt time.Time
}

// Connect initialises DB and checks the server is reachable.
func Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parsing postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging postgres: %w", err)
	}
	DB = pool
	return nil
}

// Close releases DB.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// EnsureSchema creates the snapshot table if it is missing.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return ErrNotConnected
	}
	if _, err := DB.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// UpsertTurnSnapshot stores the state as it stood at the end of a turn.
func UpsertTurnSnapshot(ctx context.Context, gameID uuid.UUID, state engine.GameState) error {
	return upsert(ctx, gameID, state.Turn, KindTurn, state, "")
}

// StoreFinalGameState stores the frozen end-of-game state.
func StoreFinalGameState(ctx context.Context, gameID uuid.UUID, state engine.GameState, winnerID string) error {
	return upsert(ctx, gameID, state.Turn, KindFinal, state, winnerID)
}

func upsert(ctx context.Context, gameID uuid.UUID, turn int, kind string, state engine.GameState, winnerID string) error {
	if DB == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding %s snapshot for %s: %w", kind, gameID, err)
	}
	var winner *string
	if winnerID != "" {
		winner = &winnerID
	}
	if _, err := DB.Exec(ctx, upsertSnapshotQuery, gameID, turn, kind, data, winner, time.Now().UTC()); err != nil {
		return fmt.Errorf("storing %s snapshot for %s: %w", kind, gameID, err)
	}
	return nil
}

// LatestSnapshot loads the most recent snapshot of a game.
func LatestSnapshot(ctx context.Context, gameID uuid.UUID) (*Snapshot, error) {
	if DB == nil {
		return nil, ErrNotConnected
	}
	var (
		snap   = Snapshot{GameID: gameID}
		data   []byte
		winner *string
	)
	err := DB.QueryRow(ctx, latestSnapshotQuery, gameID).Scan(&snap.Turn, &snap.Kind, &data, &winner, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: %w", gameID, err)
	}
	if err := json.Unmarshal(data, &snap.State); err != nil {
		return nil, fmt.Errorf("decoding snapshot for %s: %w", gameID, err)
	}
	if winner != nil {
		snap.WinnerID = *winner
	}
	return &snap, nil
}
