package internal

import (
	"sync"
	"time"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
)

// Peer 房間成員的連線抽象
//
// Send 必須是非阻塞的：房間在持有鎖時廣播，慢連線只能丟訊息，不能拖住房間。
type Peer interface {
	ID() string
	Identity() string
	Send(event string, data any)
}

// Phase 房間對外顯示的階段
//
//	waiting → playing → finished ─(雙方再戰)→ playing
//	   任何階段 ─(斷線 / 離開 / 逾時)→ 刪除
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// engine 單一遊戲的局面包裝，將純規則引擎轉為線上 payload
//
// 所有方法都在房間鎖內呼叫。
type engine interface {
	reset()
	outcome() game.Outcome
	scores() [2]int
	moves() int
	assigned(r *Room, s game.Seat) map[string]any
	start(r *Room, s game.Seat) map[string]any
	view() map[string]any
}

// seat 一個座位；away 表示連線中斷但保留座位等待重新加入
type seat struct {
	peer     Peer
	identity string
	away     bool
}

// Room 一局遊戲的房間：兩個有序座位加上該遊戲的局面
//
// 先加入者坐 game.First，取得先手角色（X、red、A、玩家一）。
// 房間以 session 計數標記每一局；計時器與字典查詢回呼都比對 session，
// 房間關閉或已開新局時直接放棄，不會修改已刪除的房間。
type Room struct {
	ID        string
	Game      GameType
	Spec      GameSpec
	CreatedAt time.Time

	mu         sync.Mutex
	seq        uint64
	seats      [2]*seat
	rematch    [2]bool
	session    uint64
	timer      *time.Timer
	closed     bool
	started    bool
	startedAt  time.Time
	finishedAt time.Time
	state      engine
}

func newRoom(id string, t GameType, seq uint64, state engine) *Room {
	spec := gameSpecs[t]
	return &Room{
		ID:        id,
		Game:      t,
		Spec:      spec,
		CreatedAt: time.Now(),
		seq:       seq,
		state:     state,
	}
}

// occupants 已入座人數（包含暫離者）
func (r *Room) occupants() int {
	n := 0
	for _, s := range r.seats {
		if s != nil {
			n++
		}
	}
	return n
}

func (r *Room) full() bool {
	return r.occupants() == len(r.seats)
}

// sit 讓連線坐上第一個空位
func (r *Room) sit(p Peer) game.Seat {
	for i, s := range r.seats {
		if s == nil {
			r.seats[i] = &seat{peer: p, identity: p.Identity()}
			return game.Seat(i)
		}
	}
	panic("room is full")
}

// seatOf 查詢連線所在座位
func (r *Room) seatOf(p Peer) (game.Seat, bool) {
	for i, s := range r.seats {
		if s != nil && !s.away && s.peer != nil && s.peer.ID() == p.ID() {
			return game.Seat(i), true
		}
	}
	return 0, false
}

// awaySeat 查詢同一身分暫離的座位
func (r *Room) awaySeat(identity string) (game.Seat, bool) {
	for i, s := range r.seats {
		if s != nil && s.away && s.identity == identity {
			return game.Seat(i), true
		}
	}
	return 0, false
}

// peerAt 座位上在線的連線
func (r *Room) peerAt(s game.Seat) Peer {
	if st := r.seats[s]; st != nil && !st.away {
		return st.peer
	}
	return nil
}

// peerID 座位連線 ID，空位返回空字串
func (r *Room) peerID(s game.Seat) string {
	if p := r.peerAt(s); p != nil {
		return p.ID()
	}
	return ""
}

// role 座位的角色名稱
func (r *Room) role(s game.Seat) string {
	return r.Spec.Roles[s]
}

// sendTo 發送給單一座位（暫離或空位則丟棄）
func (r *Room) sendTo(s game.Seat, event string, data any) {
	if p := r.peerAt(s); p != nil {
		p.Send(event, data)
	}
}

// broadcast 發送給所有在線成員
func (r *Room) broadcast(event string, data any) {
	for i := range r.seats {
		r.sendTo(game.Seat(i), event, data)
	}
}

// identities 雙方身分（用於紀錄）
func (r *Room) identities() [2]string {
	var ids [2]string
	for i, s := range r.seats {
		if s != nil {
			ids[i] = s.identity
		}
	}
	return ids
}

// schedule 設定房間唯一的計時器，取代舊的
func (r *Room) schedule(d time.Duration, fn func()) {
	r.stopTimer()
	r.timer = time.AfterFunc(d, fn)
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// phase 目前階段
func (r *Room) phase() Phase {
	switch {
	case !r.started:
		return PhaseWaiting
	case r.state.outcome().Over:
		return PhaseFinished
	default:
		return PhasePlaying
	}
}

// RoomSummary 房間列表項目（不含隱藏資訊）
type RoomSummary struct {
	ID        string         `json:"roomId"`
	Game      GameType       `json:"game"`
	Phase     Phase          `json:"phase"`
	Players   int            `json:"players"`
	Away      int            `json:"away"`
	CreatedAt time.Time      `json:"createdAt"`
	State     map[string]any `json:"state"`
}

// Summary 返回房間摘要
func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	away := 0
	for _, s := range r.seats {
		if s != nil && s.away {
			away++
		}
	}
	return RoomSummary{
		ID:        r.ID,
		Game:      r.Game,
		Phase:     r.phase(),
		Players:   r.occupants(),
		Away:      away,
		CreatedAt: r.CreatedAt,
		State:     r.state.view(),
	}
}

// expired 終局後等待再戰超過 ttl
func (r *Room) expired(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && !r.finishedAt.IsZero() && now.Sub(r.finishedAt) > ttl
}
