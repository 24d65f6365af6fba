package internal_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/system-design/14-game-rooms/internal"
	"github.com/koopa0/system-design/14-game-rooms/internal/dictionary"
	"github.com/koopa0/system-design/14-game-rooms/pkg/logger"
)

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

type wsMessage struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func newWSServer(t *testing.T) (*httptest.Server, *internal.Hub) {
	t.Helper()
	return newWSServerWith(t, internal.Dependencies{})
}

func newWSServerWith(t *testing.T, deps internal.Dependencies) (*httptest.Server, *internal.Hub) {
	t.Helper()
	coord := newTestCoordinator(t, nil, deps)
	hub := internal.NewHub(coord, internal.DefaultConfig().WebSocket, logger.Discard())
	handler := internal.NewHandler(coord, hub, nil, logger.Discard())

	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, playerID string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if playerID != "" {
		url += "?player_id=" + playerID
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) emit(event string, data any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// expect 讀取直到收到指定事件
func (c *wsClient) expect(event string) map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg wsMessage
		require.NoError(c.t, c.conn.ReadJSON(&msg), "waiting for %s", event)
		if msg.Event == event {
			return msg.Data
		}
	}
}

// TestWebSocket_TicTacToe 兩個真實連線走完一局井字棋
func TestWebSocket_TicTacToe(t *testing.T) {
	srv, hub := newWSServer(t)
	x := dial(t, srv, "alice")
	o := dial(t, srv, "")

	x.emit(internal.EventJoinTicTacToe, nil)
	assigned := x.expect(internal.EventPlayerAssigned)
	assert.Equal(t, "X", assigned["symbol"])
	roomID := assigned["roomId"].(string)

	o.emit(internal.EventJoinTicTacToe, nil)
	assert.Equal(t, "O", o.expect(internal.EventPlayerAssigned)["symbol"])
	x.expect(internal.EventGameStart)
	o.expect(internal.EventGameStart)

	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	moves := []struct {
		c   *wsClient
		pos int
	}{{x, 0}, {o, 3}, {x, 1}, {o, 4}}
	for _, m := range moves {
		m.c.emit(internal.EventTicTacToeMove, map[string]any{"roomId": roomID, "position": m.pos})
		x.expect(internal.EventGameUpdate)
		o.expect(internal.EventGameUpdate)
	}

	// 不帶 roomId 的 makeMove 由連線所在房間解析
	x.emit(internal.EventMakeMove, map[string]any{"position": 2})
	assert.Equal(t, "X", x.expect(internal.EventGameOver)["winner"])
	assert.Equal(t, "X", o.expect(internal.EventGameOver)["winner"])
}

// TestWebSocket_JoinEvents 每個遊戲專屬的加入事件進入對應遊戲的房間
func TestWebSocket_JoinEvents(t *testing.T) {
	tests := []struct {
		event    string
		game     internal.GameType
		assigned string
	}{
		{internal.EventJoinTicTacToe, internal.TicTacToe, internal.EventPlayerAssigned},
		{internal.EventJoinConnect4, internal.Connect4, internal.EventPlayerAssigned},
		{internal.EventJoinWordHunt, internal.WordHunt, internal.EventPlayerAssigned},
		{internal.EventJoinMemoryGame, internal.Memory, internal.EventMemoryPlayerAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			srv, _ := newWSServer(t)
			c := dial(t, srv, "")

			c.emit(tt.event, nil)
			assigned := c.expect(tt.assigned)
			assert.True(t, strings.HasPrefix(assigned["roomId"].(string), string(tt.game)+"_"),
				"room %v should belong to %s", assigned["roomId"], tt.game)
			assert.Equal(t, true, assigned["waiting"])
		})
	}
}

// TestWebSocket_MancalaJoinGame joinGame 接受裸字串或物件
func TestWebSocket_MancalaJoinGame(t *testing.T) {
	srv, _ := newWSServer(t)
	a := dial(t, srv, "")
	b := dial(t, srv, "")

	a.emit(internal.EventJoinGame, "mancala")
	assert.Equal(t, "A", a.expect(internal.EventGameJoined)["side"])
	b.emit(internal.EventJoinGame, map[string]any{"gameType": "mancala"})
	assert.Equal(t, "B", b.expect(internal.EventGameJoined)["side"])

	start := a.expect(internal.EventGameStart)
	assert.Equal(t, "A", start["currentPlayer"])

	a.emit(internal.EventMakeMove, map[string]any{"pitIndex": 0})
	state := b.expect(internal.EventGameState)
	assert.Equal(t, "B", state["currentPlayer"])
}

// TestWebSocket_Disconnect 關閉連線等同離開，對手收到通知
func TestWebSocket_Disconnect(t *testing.T) {
	srv, hub := newWSServer(t)
	a := dial(t, srv, "")
	b := dial(t, srv, "")

	a.emit(internal.EventJoinConnect4, nil)
	a.expect(internal.EventPlayerAssigned)
	b.emit(internal.EventJoinConnect4, nil)
	roomID := b.expect(internal.EventPlayerAssigned)["roomId"]
	b.expect(internal.EventGameStart)

	require.NoError(t, a.conn.Close())

	notice := b.expect(internal.EventPlayerDisconnected)
	assert.Equal(t, roomID, notice["roomId"])
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)
}

// TestWebSocket_PingAndMalformed 壞掉的訊息不會中斷連線
func TestWebSocket_PingAndMalformed(t *testing.T) {
	srv, _ := newWSServer(t)
	c := dial(t, srv, "")

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	c.emit("noSuchEvent", nil)
	c.emit(internal.EventTicTacToeMove, "bad payload")

	c.emit(internal.EventPing, nil)
	pong := c.expect(internal.EventPong)
	assert.NotZero(t, pong["time"])
}

// TestWebSocket_WordLookupsBounded 每條連線同時進行的字典查詢有上限，Stop 會等查詢結束
func TestWebSocket_WordLookupsBounded(t *testing.T) {
	var inflight, peak atomic.Int32
	checker := dictionary.CheckerFunc(func(ctx context.Context, _ string) (bool, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-ctx.Done()
		inflight.Add(-1)
		return false, ctx.Err()
	})
	srv, hub := newWSServerWith(t, internal.Dependencies{Dictionary: checker})
	a := dial(t, srv, "")
	b := dial(t, srv, "")

	a.emit(internal.EventJoinWordHunt, nil)
	a.expect(internal.EventPlayerAssigned)
	b.emit(internal.EventJoinWordHunt, nil)
	a.expect(internal.EventGameStart)

	for _, w := range []string{"cat", "dog", "sun", "map", "pen", "cup", "hat", "box"} {
		a.emit(internal.EventSubmitWord, map[string]any{"word": w})
	}

	assert.Eventually(t, func() bool { return inflight.Load() == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return inflight.Load() > 4 }, 50*time.Millisecond, 5*time.Millisecond)

	hub.Stop()
	assert.Equal(t, int32(0), inflight.Load())
	assert.Equal(t, int32(4), peak.Load())
}
