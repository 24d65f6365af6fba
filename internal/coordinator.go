package internal

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/koopa0/system-design/14-game-rooms/internal/dictionary"
	"github.com/koopa0/system-design/14-game-rooms/internal/events"
	"github.com/koopa0/system-design/14-game-rooms/internal/game"
	"github.com/koopa0/system-design/14-game-rooms/internal/history"
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
	"github.com/koopa0/system-design/14-game-rooms/pkg/logger"
)

// reportTimeout 寫入對局紀錄與發布事件的上限
const reportTimeout = 5 * time.Second

// Dependencies 協調器的外部協作者，nil 欄位使用預設實作
type Dependencies struct {
	Dictionary dictionary.Checker
	Recorder   history.Recorder
	Publisher  events.Publisher
	// Rand 每個房間取一個亂數來源（盤面與牌組）
	Rand func() *rand.Rand
}

// Coordinator 配對、走步、廣播、斷線與再戰
//
// 每個操作都在單一房間鎖內完成同步部分；紀錄寫入、事件發布與註冊表移除
// 在放開房間鎖之後執行。唯一會在鎖外等待的是找字遊戲的字典查詢。
type Coordinator struct {
	registry  *Registry
	cfg       GamesConfig
	dict      dictionary.Checker
	recorder  history.Recorder
	publisher events.Publisher
	newRand   func() *rand.Rand
	logger    *slog.Logger
}

// NewCoordinator 創建協調器
func NewCoordinator(registry *Registry, cfg GamesConfig, deps Dependencies, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		registry:  registry,
		cfg:       cfg,
		dict:      deps.Dictionary,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		newRand:   deps.Rand,
		logger:    logger,
	}
	if c.dict == nil {
		c.dict = dictionary.AcceptAll
	}
	if c.recorder == nil {
		c.recorder = history.NopRecorder{}
	}
	if c.publisher == nil {
		c.publisher = events.NopPublisher{}
	}
	if c.newRand == nil {
		c.newRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	return c
}

// Start 啟動等待再戰逾時的清理
func (c *Coordinator) Start() {
	c.registry.StartSweeper(c.cfg.SweepInterval, c.cfg.RematchTTL, c.expire)
}

// Shutdown 停止清理並關閉所有房間（不通知玩家，連線由 Hub 關閉）
func (c *Coordinator) Shutdown() {
	c.registry.Stop()
	for _, room := range c.registry.All() {
		room.mu.Lock()
		room.closed = true
		room.stopTimer()
		room.mu.Unlock()
		c.registry.Remove(room)
	}
}

// Registry 房間註冊表
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Assignment 加入結果
type Assignment struct {
	RoomID  string
	Game    GameType
	Seat    game.Seat
	Role    string
	Waiting bool
	Resumed bool
}

func (c *Coordinator) newEngine(t GameType) engine {
	roles := gameSpecs[t].Roles
	switch t {
	case Connect4:
		return newConnect4Engine(roles)
	case Mancala:
		return newMancalaEngine(roles, c.cfg.Mancala.StonesPerPit)
	case WordHunt:
		return newWordHuntEngine(c.cfg.WordHunt.BoardSize, c.cfg.WordHunt.Duration, c.newRand())
	case Memory:
		return newMemoryEngine(c.cfg.Memory.Pairs, c.newRand())
	default:
		return newTicTacToeEngine(roles)
	}
}

// Join 配對：加入最早建立的等待中房間，沒有則建立新房間
//
// 已在同類房間中的連線會收到原本的座位；井字棋在開啟重新加入時，
// 相同身分的連線可以取回暫離的座位。
func (c *Coordinator) Join(ctx context.Context, t GameType, p Peer) (Assignment, error) {
	if _, ok := SpecOf(t); !ok {
		return Assignment{}, apperrors.ErrUnknownGame.WithDetails(string(t))
	}

	reg := c.registry
	reg.mu.Lock()

	if room, ok := reg.members[p.ID()][t]; ok {
		room.mu.Lock()
		if s, seated := room.seatOf(p); seated && !room.closed {
			reg.mu.Unlock()
			a := c.assignLocked(room, s)
			if room.started {
				room.sendTo(s, room.Spec.StartEvent, room.state.start(room, s))
			}
			room.mu.Unlock()
			return a, nil
		}
		room.mu.Unlock()
	}

	if t == TicTacToe && c.cfg.TicTacToe.RejoinGrace > 0 && p.Identity() != "" {
		if room, s, ok := reg.findAwayLocked(t, p.Identity()); ok {
			room.mu.Lock()
			if !room.closed && room.seats[s] != nil && room.seats[s].away {
				reg.bindLocked(p.ID(), room)
				reg.mu.Unlock()
				a := c.rejoinLocked(room, s, p)
				room.mu.Unlock()
				c.logger.InfoContext(ctx, "player rejoined", "room_id", room.ID, "seat", int(s))
				return a, nil
			}
			room.mu.Unlock()
		}
	}

	room := reg.findWaitingLocked(t)
	if room != nil {
		room.mu.Lock()
		if room.closed || room.started || room.occupants() != 1 {
			room.mu.Unlock()
			room = nil
		}
	}
	if room == nil {
		room = reg.createLocked(t, c.newEngine(t))
		room.mu.Lock()
	}
	s := room.sit(p)
	reg.bindLocked(p.ID(), room)
	reg.mu.Unlock()

	a := c.assignLocked(room, s)
	var started *events.Event
	if room.full() {
		e := c.startLocked(room)
		started = &e
	}
	room.mu.Unlock()

	c.logger.InfoContext(logger.WithRoomID(ctx, a.RoomID), "player joined",
		"game", t,
		"role", a.Role,
		"waiting", a.Waiting)

	if started != nil {
		c.publish(*started)
	}
	return a, nil
}

// assignLocked 送出座位分配訊息
func (c *Coordinator) assignLocked(room *Room, s game.Seat) Assignment {
	payload := room.state.assigned(room, s)
	payload["roomId"] = room.ID
	payload["waiting"] = !room.full()
	room.sendTo(s, room.Spec.AssignedEvent, payload)

	return Assignment{
		RoomID:  room.ID,
		Game:    room.Game,
		Seat:    s,
		Role:    room.role(s),
		Waiting: !room.full(),
	}
}

// startLocked 開始新的一局並通知雙方
func (c *Coordinator) startLocked(room *Room) events.Event {
	room.started = true
	room.startedAt = time.Now()
	room.finishedAt = time.Time{}
	room.rematch = [2]bool{}
	room.session++

	for i := range room.seats {
		s := game.Seat(i)
		if room.Game == Memory {
			room.sendTo(s, EventMemoryPlayerRoles, map[string]any{
				"playerNum":  i + 1,
				"playerId":   room.peerID(s),
				"opponentId": room.peerID(s.Other()),
			})
		}
		room.sendTo(s, room.Spec.StartEvent, room.state.start(room, s))
	}

	if room.Game == WordHunt {
		c.startCountdownLocked(room)
	}

	ids := room.identities()
	return events.Event{
		Kind:    events.Started,
		Game:    string(room.Game),
		RoomID:  room.ID,
		Players: ids[:],
	}
}

// rejoinLocked 相同身分取回暫離座位，雙方收到目前局面
func (c *Coordinator) rejoinLocked(room *Room, s game.Seat, p Peer) Assignment {
	st := room.seats[s]
	st.peer = p
	st.away = false
	room.stopTimer()
	room.session++

	a := c.assignLocked(room, s)
	a.Resumed = true
	for i := range room.seats {
		room.sendTo(game.Seat(i), room.Spec.StartEvent, room.state.start(room, game.Seat(i)))
	}
	return a
}

// lookup 以 roomID 或連線所在房間解析
func (c *Coordinator) lookup(p Peer, t GameType, roomID string) (*Room, error) {
	if roomID == "" {
		room, ok := c.registry.RoomOf(p.ID(), t)
		if !ok {
			return nil, apperrors.ErrRoomNotFound
		}
		return room, nil
	}
	return c.registry.Get(t, roomID)
}

// seatLocked 確認房間可走步並返回連線的座位
func (c *Coordinator) seatLocked(room *Room, p Peer) (game.Seat, error) {
	if room.closed {
		return 0, apperrors.ErrRoomNotFound
	}
	s, ok := room.seatOf(p)
	if !ok {
		return 0, apperrors.ErrNotSeated
	}
	if !room.started {
		return 0, apperrors.ErrNotStarted
	}
	return s, nil
}

// concludeLocked 終局：記錄結果；不支援再戰的遊戲同時關閉房間
//
// 返回的函數必須在放開房間鎖後執行。
func (c *Coordinator) concludeLocked(room *Room) func() {
	res := c.resultLocked(room, history.ReasonFinished)
	room.finishedAt = res.EndedAt
	room.stopTimer()

	teardown := !room.Spec.Rematch
	if teardown {
		room.closed = true
	}
	return func() {
		c.report(res)
		if teardown {
			c.registry.Remove(room)
		}
	}
}

// closeLocked 關閉房間並通知 skip 以外的在線成員
//
// 進行中的對局記為放棄。返回的函數必須在放開房間鎖後執行。
func (c *Coordinator) closeLocked(room *Room, skip game.Seat) func() {
	abandoned := room.started && !room.state.outcome().Over
	var res history.MatchResult
	if abandoned {
		res = c.resultLocked(room, history.ReasonAbandoned)
	}

	room.closed = true
	room.stopTimer()
	other := skip.Other()
	room.sendTo(other, room.Spec.DisconnectEvent, map[string]any{"roomId": room.ID})

	return func() {
		if abandoned {
			c.report(res)
		}
		c.registry.Remove(room)
	}
}

// resultLocked 組成對局紀錄
func (c *Coordinator) resultLocked(room *Room, reason history.Reason) history.MatchResult {
	ids := room.identities()
	scores := room.state.scores()
	res := history.MatchResult{
		RoomID:       room.ID,
		Game:         string(room.Game),
		FirstPlayer:  ids[game.First],
		SecondPlayer: ids[game.Second],
		FirstScore:   scores[game.First],
		SecondScore:  scores[game.Second],
		Reason:       reason,
		Moves:        room.state.moves(),
		StartedAt:    room.startedAt,
		EndedAt:      time.Now(),
	}
	if reason == history.ReasonFinished {
		out := room.state.outcome()
		res.Draw = out.Draw
		if out.Winner != nil {
			w := int(*out.Winner)
			res.Winner = &w
		}
	}
	return res
}

// report 寫入對局紀錄並發布結束事件；失敗只記錄日誌
func (c *Coordinator) report(res history.MatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := c.recorder.Record(ctx, res); err != nil {
		c.logger.Error("record match failed", "room_id", res.RoomID, "error", err)
	}

	kind := events.Finished
	if res.Reason == history.ReasonAbandoned {
		kind = events.Abandoned
	}
	c.publish(events.Event{
		Kind:    kind,
		Game:    res.Game,
		RoomID:  res.RoomID,
		Players: []string{res.FirstPlayer, res.SecondPlayer},
		Winner:  res.Winner,
		Draw:    res.Draw,
		Reason:  string(res.Reason),
	})
}

func (c *Coordinator) publish(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := c.publisher.Publish(ctx, e); err != nil {
		c.logger.Error("publish event failed", "room_id", e.RoomID, "kind", e.Kind, "error", err)
	}
}

// Disconnect 連線中斷：離開所有房間
//
// 井字棋在開啟重新加入且對局進行中時保留座位，等待同一身分回來。
func (c *Coordinator) Disconnect(ctx context.Context, p Peer) {
	for _, room := range c.registry.RoomsOf(p.ID()) {
		c.leaveRoom(ctx, room, p, true)
	}
}

// Leave 主動離開；roomID 為空時離開所有房間
func (c *Coordinator) Leave(ctx context.Context, p Peer, roomID string) error {
	left := false
	for _, room := range c.registry.RoomsOf(p.ID()) {
		if roomID != "" && room.ID != roomID {
			continue
		}
		c.leaveRoom(ctx, room, p, false)
		left = true
	}
	if !left {
		return apperrors.ErrRoomNotFound
	}
	return nil
}

func (c *Coordinator) leaveRoom(ctx context.Context, room *Room, p Peer, holdSeat bool) {
	ctx = logger.WithRoomID(ctx, room.ID)
	room.mu.Lock()
	s, ok := room.seatOf(p)
	if room.closed || !ok {
		room.mu.Unlock()
		c.registry.Unbind(p.ID(), room)
		return
	}

	if holdSeat && c.canHoldSeatLocked(room, s) {
		grace := c.cfg.TicTacToe.RejoinGrace
		st := room.seats[s]
		st.away = true
		st.peer = nil
		room.session++
		session := room.session
		room.sendTo(s.Other(), EventPlayerAway, map[string]any{
			"roomId":       room.ID,
			"player":       room.role(s),
			"graceSeconds": int(grace.Seconds()),
		})
		room.schedule(grace, func() { c.abandon(room, session) })
		room.mu.Unlock()

		c.registry.Unbind(p.ID(), room)
		c.logger.InfoContext(ctx, "player away", "grace", grace)
		return
	}

	after := c.closeLocked(room, s)
	room.mu.Unlock()
	after()
	c.logger.InfoContext(ctx, "player left", "game", room.Game)
}

// canHoldSeatLocked 是否保留暫離座位
func (c *Coordinator) canHoldSeatLocked(room *Room, s game.Seat) bool {
	if room.Game != TicTacToe || c.cfg.TicTacToe.RejoinGrace <= 0 {
		return false
	}
	if !room.started || room.state.outcome().Over || room.seats[s].identity == "" {
		return false
	}
	return room.peerAt(s.Other()) != nil
}

// abandon 暫離逾時，視同斷線
func (c *Coordinator) abandon(room *Room, session uint64) {
	room.mu.Lock()
	if room.closed || room.session != session {
		room.mu.Unlock()
		return
	}
	var away game.Seat
	for i, st := range room.seats {
		if st != nil && st.away {
			away = game.Seat(i)
		}
	}
	after := c.closeLocked(room, away)
	room.mu.Unlock()
	after()
	c.logger.Info("rejoin grace expired", "room_id", room.ID)
}

// RequestRematch 要求再戰；雙方都要求後重置局面並重新開始
func (c *Coordinator) RequestRematch(ctx context.Context, p Peer, t GameType, roomID string) error {
	if spec, ok := SpecOf(t); !ok || !spec.Rematch {
		return apperrors.ErrUnknownGame.WithDetails(string(t))
	}
	room, err := c.lookup(p, t, roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	s, err := c.seatLocked(room, p)
	if err != nil {
		room.mu.Unlock()
		return err
	}
	if !room.state.outcome().Over {
		room.mu.Unlock()
		return apperrors.ErrInProgress
	}
	if room.rematch[s] {
		room.mu.Unlock()
		return nil
	}

	room.rematch[s] = true
	if !room.rematch[s.Other()] {
		room.sendTo(s.Other(), room.Spec.OpponentRematchEvent, map[string]any{"roomId": room.ID})
		room.mu.Unlock()
		return nil
	}

	room.state.reset()
	started := c.startLocked(room)
	room.mu.Unlock()

	c.logger.InfoContext(ctx, "rematch started", "room_id", room.ID, "game", t)
	c.publish(started)
	return nil
}

// expire 終局後等待再戰逾時
func (c *Coordinator) expire(room *Room) {
	room.mu.Lock()
	if room.closed || room.finishedAt.IsZero() {
		room.mu.Unlock()
		return
	}
	room.closed = true
	room.stopTimer()
	room.broadcast(room.Spec.DisconnectEvent, map[string]any{
		"roomId": room.ID,
		"reason": "rematch_timeout",
	})
	room.mu.Unlock()

	c.registry.Remove(room)
	c.logger.Info("room expired", "room_id", room.ID, "game", room.Game)
}

// SweepExpired 立即清理等待再戰逾時的房間
func (c *Coordinator) SweepExpired(now time.Time) int {
	rooms := c.registry.Expired(now, c.cfg.RematchTTL)
	for _, room := range rooms {
		c.expire(room)
	}
	return len(rooms)
}

// winnerRole 勝方角色名稱，平局或未結束為 nil
func winnerRole(out game.Outcome, roles [2]string) any {
	if out.Winner == nil {
		return nil
	}
	return roles[*out.Winner]
}
