package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
	"github.com/koopa0/system-design/14-game-rooms/pkg/logger"
)

// maxPendingLookups 每條連線同時進行的字典查詢上限
const maxPendingLookups = 4

// Hub WebSocket 連線中心
//
// 每個連線一個 readPump 與一個 writePump；readPump 依序處理收到的事件，
// 房間狀態由 Coordinator 保護，Hub 本身只管理連線集合。
type Hub struct {
	coord    *Coordinator
	cfg      WebSocketConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
	conns    map[string]*Connection
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// Connection 一條 WebSocket 連線，同時是房間的 Peer
type Connection struct {
	id       string
	identity string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	mu       sync.Mutex
	closed   bool

	// cancel 結束這條連線的 context，進行中的字典查詢隨之放棄
	cancel  context.CancelFunc
	lookups chan struct{}
}

// NewHub 創建 WebSocket Hub
func NewHub(coord *Coordinator, cfg WebSocketConfig, logger *slog.Logger) *Hub {
	return &Hub{
		coord:  coord,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			// 前端與伺服器不同源（開發時的 dev server）
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[string]*Connection),
	}
}

// ServeWS 升級為 WebSocket 連線
//
// 連線 ID 由伺服器產生；player_id 查詢參數作為跨連線的身分（井字棋重新加入用），
// 未提供時以連線 ID 代替。
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	identity := r.URL.Query().Get("player_id")
	if identity == "" {
		identity = id
	}

	ctx, cancel := context.WithCancel(logger.WithConnID(context.Background(), id))
	c := &Connection{
		id:       id,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, hub.cfg.SendBuffer),
		hub:      hub,
		cancel:   cancel,
		lookups:  make(chan struct{}, maxPendingLookups),
	}
	hub.register(c)

	hub.wg.Add(1)
	go c.writePump()
	go c.readPump(ctx)

	hub.logger.Info("websocket connected", "conn_id", id, "identity", identity)
}

func (hub *Hub) register(c *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.conns[c.id] = c
}

func (hub *Hub) unregister(c *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if actual, ok := hub.conns[c.id]; ok && actual == c {
		delete(hub.conns, c.id)
	}
}

// ConnectionCount 目前連線數
func (hub *Hub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.conns)
}

// Stop 關閉所有連線並等待讀取迴圈與字典查詢結束（斷線處理都已完成）
func (hub *Hub) Stop() {
	hub.mu.Lock()
	conns := make([]*Connection, 0, len(hub.conns))
	for _, c := range hub.conns {
		conns = append(conns, c)
	}
	hub.mu.Unlock()

	for _, c := range conns {
		c.cancel()
		c.closeSend()
		c.conn.Close()
	}
	hub.wg.Wait()
	hub.logger.Info("websocket hub stopped", "connections", len(conns))
}

// ID 連線 ID
func (c *Connection) ID() string { return c.id }

// Identity 玩家身分
func (c *Connection) Identity() string { return c.identity }

// Send 非阻塞地排入一則訊息；緩衝區滿或連線已關閉時丟棄
func (c *Connection) Send(event string, data any) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		c.hub.logger.Error("marshal message failed", "event", event, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.logger.Warn("send buffer full, dropping message", "conn_id", c.id, "event", event)
	}
}

// closeSend 關閉發送通道，writePump 收到後送出關閉訊框
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump 讀取客戶端事件直到連線中斷
//
// 讀取期限在每次收到 Pong 時延長 PongWait；結束時離開所有房間。
func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.cancel()
		c.hub.unregister(c)
		c.closeSend()
		c.conn.Close()
		c.hub.coord.Disconnect(context.WithoutCancel(ctx), c)
		c.hub.logger.InfoContext(ctx, "websocket disconnected")
		c.hub.wg.Done()
	}()

	cfg := c.hub.cfg
	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(cfg.MaxMessageSize)
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait)); err != nil {
		c.hub.logger.ErrorContext(ctx, "set read deadline failed", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WarnContext(ctx, "websocket read error", "error", err)
			}
			return
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(ctx, message)
		}
	}
}

// writePump 將排隊的訊息寫出，並每 PingPeriod 送出 Ping
func (c *Connection) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 一併寫出已排隊的訊息
			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, next); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 解析外層格式並分派
func (c *Connection) handleMessage(ctx context.Context, message []byte) {
	var in inbound
	if err := json.Unmarshal(message, &in); err != nil || in.Event == "" {
		c.hub.logger.WarnContext(ctx, "malformed client message", "error", err)
		return
	}
	if err := c.dispatch(ctx, in); err != nil {
		c.logError(ctx, in.Event, err)
	}
}

func (c *Connection) dispatch(ctx context.Context, in inbound) error {
	coord := c.hub.coord

	if t, ok := gameForJoinEvent(in.Event); ok {
		_, err := coord.Join(ctx, t, c)
		return err
	}

	switch in.Event {
	case EventJoinGame:
		var req joinGameRequest
		name, err := decodeStringOr(in.Data, &req)
		if err != nil {
			return invalidPayload(err)
		}
		if name == "" {
			name = req.GameType
		}
		t, ok := ParseGameType(name)
		if !ok {
			return apperrors.ErrUnknownGame.WithDetails(name)
		}
		_, err = coord.Join(ctx, t, c)
		return err

	case EventTicTacToeMove:
		var req moveRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		if req.Position == nil {
			return apperrors.ErrMissingTarget
		}
		return coord.PlayTicTacToe(ctx, c, req.RoomID, *req.Position)

	case EventMakeMove:
		var req moveRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		return coord.MakeMove(ctx, c, req.RoomID, req.Position, req.PitIndex)

	case EventConnect4Move:
		var req moveRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		column := req.Column
		if column == nil {
			column = req.Position
		}
		if column == nil {
			return apperrors.ErrMissingTarget
		}
		return coord.PlayConnect4(ctx, c, req.RoomID, *column)

	case EventSubmitWord:
		var req wordRequest
		word, err := decodeStringOr(in.Data, &req)
		if err != nil {
			return invalidPayload(err)
		}
		if word == "" {
			word = req.Word
		}
		// 字典查詢可能很慢，不阻塞這條連線的其他事件；進行中的查詢達上限時等待空位
		select {
		case c.lookups <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.hub.wg.Add(1)
		go func() {
			defer func() {
				<-c.lookups
				c.hub.wg.Done()
			}()
			if err := coord.SubmitWord(ctx, c, req.RoomID, word); err != nil {
				c.logError(ctx, in.Event, err)
			}
		}()
		return nil

	case EventGameOver:
		var req roomRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		return coord.TimeUp(ctx, c, req.RoomID)

	case EventMemoryFlipCard:
		var req flipRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		if req.CardID == nil {
			return apperrors.ErrMissingTarget
		}
		return coord.FlipCard(ctx, c, req.RoomID, *req.CardID)

	case EventLeaveGame:
		var req roomRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		return coord.Leave(ctx, c, req.RoomID)

	case EventPing:
		c.Send(EventPong, map[string]any{"time": time.Now().UnixMilli()})
		return nil
	}

	if t, ok := gameForRematchEvent(in.Event); ok {
		var req roomRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		return coord.RequestRematch(ctx, c, t, req.RoomID)
	}

	c.hub.logger.DebugContext(ctx, "unknown event", "event", in.Event)
	return nil
}

// logError 走步類與單字類錯誤是正常遊戲流程，只記 Debug
func (c *Connection) logError(ctx context.Context, event string, err error) {
	level := slog.LevelWarn
	if apperrors.IsInvalidMove(err) || apperrors.IsNotFound(err) || apperrors.IsWordRejected(err) {
		level = slog.LevelDebug
	}
	c.hub.logger.Log(ctx, level, "event rejected",
		"event", event,
		"code", apperrors.CodeOf(err),
		"error", err)
}

// decodeData 解析物件 payload；data 缺少時保留零值
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidPayload(err)
	}
	return nil
}

func invalidPayload(err error) error {
	return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid payload")
}
