package internal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/system-design/14-game-rooms/internal"
	"github.com/koopa0/system-design/14-game-rooms/internal/history"
	"github.com/koopa0/system-design/14-game-rooms/pkg/logger"
)

type handlerEnv struct {
	coord    *internal.Coordinator
	recorder *fakeRecorder
	router   http.Handler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	recorder := &fakeRecorder{}
	coord := newTestCoordinator(t, nil, internal.Dependencies{Recorder: recorder})
	hub := internal.NewHub(coord, internal.DefaultConfig().WebSocket, logger.Discard())
	handler := internal.NewHandler(coord, hub, recorder, logger.Discard())
	return &handlerEnv{coord: coord, recorder: recorder, router: handler.Routes()}
}

func (env *handlerEnv) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

// TestHandler_Health 測試健康檢查
func TestHandler_Health(t *testing.T) {
	env := newHandlerEnv(t)
	status, resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", resp["status"])
	assert.NotZero(t, resp["time"])
}

// TestHandler_Stats 測試統計資訊
func TestHandler_Stats(t *testing.T) {
	env := newHandlerEnv(t)
	seatPair(t, env.coord, internal.Connect4, newPeer("a"), newPeer("b"))
	_, err := env.coord.Join(context.Background(), internal.Memory, newPeer("c"))
	require.NoError(t, err)

	status, resp := env.get(t, "/stats")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), resp["connections"])

	rooms := resp["rooms"].(map[string]any)
	assert.Equal(t, float64(2), rooms["totalRooms"])
	assert.Equal(t, float64(3), rooms["totalPlayers"])
	assert.Equal(t, float64(3), rooms["seatedConnections"])

	byGame := rooms["byGame"].(map[string]any)
	connect4 := byGame["connect4"].(map[string]any)
	assert.Equal(t, float64(1), connect4["rooms"])
	assert.Equal(t, float64(1), connect4["byPhase"].(map[string]any)["playing"])
	memory := byGame["memory"].(map[string]any)
	assert.Equal(t, float64(1), memory["byPhase"].(map[string]any)["waiting"])
}

// TestHandler_ListRooms 測試房間列表與篩選
func TestHandler_ListRooms(t *testing.T) {
	env := newHandlerEnv(t)
	seatPair(t, env.coord, internal.TicTacToe, newPeer("a"), newPeer("b"))
	_, err := env.coord.Join(context.Background(), internal.Mancala, newPeer("c"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantTotal  float64
	}{
		{"all games", "/api/v1/rooms", http.StatusOK, 2},
		{"filter by game", "/api/v1/rooms?game=mancala", http.StatusOK, 1},
		{"alias", "/api/v1/rooms?game=tic-tac-toe", http.StatusOK, 1},
		{"no rooms", "/api/v1/rooms?game=memory", http.StatusOK, 0},
		{"unknown game", "/api/v1/rooms?game=chess", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.get(t, tt.path)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "INVALID_INPUT", resp["code"])
				return
			}
			assert.Equal(t, tt.wantTotal, resp["total"])
			assert.Len(t, resp["rooms"], int(tt.wantTotal))
		})
	}
}

// TestHandler_GetRoom 測試房間詳情
func TestHandler_GetRoom(t *testing.T) {
	env := newHandlerEnv(t)
	roomID := seatPair(t, env.coord, internal.TicTacToe, newPeer("a"), newPeer("b"))

	status, resp := env.get(t, "/api/v1/rooms/"+roomID)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, roomID, resp["roomId"])
	assert.Equal(t, "tictactoe", resp["game"])
	assert.Equal(t, "playing", resp["phase"])
	assert.Equal(t, float64(2), resp["players"])

	status, resp = env.get(t, "/api/v1/rooms/tictactoe_missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ROOM_NOT_FOUND", resp["code"])
}

// TestHandler_ListMatches 測試對局紀錄查詢
func TestHandler_ListMatches(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	now := time.Now()
	for _, m := range []history.MatchResult{
		{RoomID: "r1", Game: "tictactoe", Reason: history.ReasonFinished, EndedAt: now},
		{RoomID: "r2", Game: "memory", Reason: history.ReasonAbandoned, EndedAt: now},
		{RoomID: "r3", Game: "tictactoe", Reason: history.ReasonFinished, EndedAt: now},
	} {
		require.NoError(t, env.recorder.Record(ctx, m))
	}

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantRooms  []string
	}{
		{"all", "/api/v1/matches", http.StatusOK, []string{"r3", "r2", "r1"}},
		{"by game", "/api/v1/matches?game=tictactoe", http.StatusOK, []string{"r3", "r1"}},
		{"limit", "/api/v1/matches?limit=1", http.StatusOK, []string{"r3"}},
		{"bad limit", "/api/v1/matches?limit=abc", http.StatusBadRequest, nil},
		{"unknown game", "/api/v1/matches?game=go", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.get(t, tt.path)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantStatus != http.StatusOK {
				return
			}
			matches := resp["matches"].([]any)
			got := make([]string, 0, len(matches))
			for _, m := range matches {
				got = append(got, m.(map[string]any)["roomId"].(string))
			}
			assert.Equal(t, tt.wantRooms, got)
		})
	}
}

// TestHandler_PanicRecovery 測試 panic 恢復中間件
func TestHandler_PanicRecovery(t *testing.T) {
	coord := newTestCoordinator(t, nil, internal.Dependencies{})
	hub := internal.NewHub(coord, internal.DefaultConfig().WebSocket, logger.Discard())
	handler := internal.NewHandler(coord, hub, panicRecorder{}, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil)
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp["code"])
}

type panicRecorder struct{}

func (panicRecorder) Record(context.Context, history.MatchResult) error { return nil }

func (panicRecorder) ListRecent(context.Context, string, int) ([]history.MatchResult, error) {
	panic("boom")
}
