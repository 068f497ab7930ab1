package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
	"github.com/tomaszsb/Game-alpha-sub005/internal/catalog"
	"github.com/tomaszsb/Game-alpha-sub005/internal/game"
	"github.com/tomaszsb/Game-alpha-sub005/internal/models"
)

const board = `
spaces:
  - name: START
    starting: true
    requiresDiceRoll: false
    visits:
      any:
        movement: {type: fixed, destinations: [DONE]}
        effects:
          - {type: money, action: add, value: "50", description: Grant}
  - name: DONE
    ending: true
    requiresDiceRoll: false
`

func setupServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cat, err := catalog.ParseYAML([]byte(board))
	require.NoError(t, err)
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	rules := engine.DefaultRules()
	rules.AutoPlayDelay = time.Millisecond
	srv := New(cat, tokens, Options{Rules: rules, Seed: 9, PingInterval: time.Hour}, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body interface{}, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createGame(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/games", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		GameID string `json:"gameId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.GameID
}

func joinGame(t *testing.T, ts *httptest.Server, gameID string, req joinRequest) joinResponse {
	t.Helper()
	resp := postJSON(t, ts.URL+"/games/"+gameID+"/seats", req, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out joinResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func dial(t *testing.T, ts *httptest.Server, gameID, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/" + gameID + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads events until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want game.GameEventType) game.GameEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", want)
		var ev game.GameEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == want {
			return ev
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, actionType string, payload map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(models.GameAction{ActionType: actionType, Payload: payload})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, b))
}

func TestHealthAndListing(t *testing.T) {
	_, ts := setupServer(t)
	id := createGame(t, ts)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/games")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var list []summary
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID.String())
	assert.Equal(t, engine.PhaseSetup, list[0].Phase)

	resp3, err := http.Get(ts.URL + "/games/" + id)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)

	resp4, err := http.Get(ts.URL + "/games/00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	defer resp4.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp4.StatusCode)
}

func TestJoinIssuesTokens(t *testing.T) {
	srv, ts := setupServer(t)
	id := createGame(t, ts)

	human := joinGame(t, ts, id, joinRequest{Name: "Ada"})
	assert.NotEmpty(t, human.SeatID)
	claims, err := srv.tokens.Verify(human.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.GameID)
	assert.Equal(t, human.SeatID, claims.SeatID)

	bot := joinGame(t, ts, id, joinRequest{Name: "Bot", AI: true})
	assert.NotEmpty(t, bot.SeatID)
	assert.Empty(t, bot.Token, "AI seats never connect")

	resp := postJSON(t, ts.URL+"/games/"+id+"/seats", "not an object", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartRequiresSeatToken(t *testing.T) {
	_, ts := setupServer(t)
	id := createGame(t, ts)
	other := createGame(t, ts)
	seat := joinGame(t, ts, id, joinRequest{Name: "Ada"})
	foreign := joinGame(t, ts, other, joinRequest{Name: "Eve"})

	assert.Equal(t, http.StatusUnauthorized, postJSON(t, ts.URL+"/games/"+id+"/start", nil, "").StatusCode)
	assert.Equal(t, http.StatusForbidden, postJSON(t, ts.URL+"/games/"+id+"/start", nil, foreign.Token).StatusCode)
	assert.Equal(t, http.StatusNoContent, postJSON(t, ts.URL+"/games/"+id+"/start", nil, seat.Token).StatusCode)
	assert.Equal(t, http.StatusConflict, postJSON(t, ts.URL+"/games/"+id+"/start", nil, seat.Token).StatusCode)

	resp := postJSON(t, ts.URL+"/games/"+id+"/seats", joinRequest{Name: "Late"}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	_, ts := setupServer(t)
	id := createGame(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/" + id + "/ws?token=garbage"
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketPlaysGame(t *testing.T) {
	srv, ts := setupServer(t)
	id := createGame(t, ts)
	seat := joinGame(t, ts, id, joinRequest{Name: "Ada"})

	conn := dial(t, ts, id, seat.Token)
	ev := readUntil(t, conn, game.EventPrivateSyncState)
	require.NotNil(t, ev.Sync)
	assert.False(t, ev.Sync.Started)

	send(t, conn, models.ActionRollDice, nil)
	rej := readUntil(t, conn, game.EventPrivateRejected)
	assert.Equal(t, string(engine.ErrCodeWrongPhase), rej.Payload["code"])

	send(t, conn, models.ActionStartGame, nil)
	turn := readUntil(t, conn, game.EventGamePlayerTurn)
	assert.Equal(t, seat.SeatID, turn.PlayerID)
	readUntil(t, conn, game.EventGameStart)

	send(t, conn, models.ActionStartTurn, nil)
	fx := readUntil(t, conn, game.EventTurnEffects)
	require.NotNil(t, fx.Effects)
	assert.Contains(t, fx.Effects.Summary, "Grant")

	send(t, conn, models.ActionEndTurn, nil)
	end := readUntil(t, conn, game.EventGameEnd)
	assert.Equal(t, seat.SeatID, end.PlayerID)

	rm, ok := srv.games.get(srv.games.list()[0].ID)
	require.True(t, ok)
	rm.session.Mu.Lock()
	defer rm.session.Mu.Unlock()
	assert.True(t, rm.session.GameOver)
	state := rm.session.Engine.GetGameState()
	p, _ := state.Player(seat.SeatID)
	assert.Equal(t, "DONE", p.CurrentSpace)
	assert.Equal(t, 50, p.Money)
}

func TestWebSocketDisconnectMarksSeat(t *testing.T) {
	srv, ts := setupServer(t)
	id := createGame(t, ts)
	seat := joinGame(t, ts, id, joinRequest{Name: "Ada"})

	conn := dial(t, ts, id, seat.Token)
	readUntil(t, conn, game.EventPrivateSyncState)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "leaving"))

	rm, ok := srv.games.get(srv.games.list()[0].ID)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		rm.session.Mu.Lock()
		defer rm.session.Mu.Unlock()
		return rm.session.ConnectedSeats() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseGame(t *testing.T) {
	srv, ts := setupServer(t)
	id := createGame(t, ts)
	seat := joinGame(t, ts, id, joinRequest{Name: "Ada"})

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/games/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer "+seat.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, srv.games.count())
}
