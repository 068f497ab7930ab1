package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

func TestWithoutPool(t *testing.T) {
	require.Nil(t, DB)
	ctx := context.Background()
	id := uuid.New()
	state := engine.NewGame(1)

	assert.ErrorIs(t, EnsureSchema(ctx), ErrNotConnected)
	assert.ErrorIs(t, UpsertTurnSnapshot(ctx, id, state), ErrNotConnected)
	assert.ErrorIs(t, StoreFinalGameState(ctx, id, state, "p1"), ErrNotConnected)
	_, err := LatestSnapshot(ctx, id)
	assert.ErrorIs(t, err, ErrNotConnected)
	Close()
}

func TestConnectRejectsBadDSN(t *testing.T) {
	err := Connect(context.Background(), "postgres://%zz")
	assert.Error(t, err)
	assert.Nil(t, DB)
}
