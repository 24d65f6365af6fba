package internal

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// Registry 房間註冊表：每種遊戲一個命名空間，加上連線到房間的索引
//
// 鎖順序：Registry.mu → Room.mu。持有房間鎖時不得再取註冊表鎖；
// 拆除房間時先在房間鎖內標記 closed，放開後再從註冊表移除。
type Registry struct {
	rooms   map[GameType]map[string]*Room // game -> roomID -> Room
	members map[string]map[GameType]*Room // connID -> game -> Room
	seq     uint64
	mu      sync.RWMutex
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once
}

// NewRegistry 創建房間註冊表
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{
		rooms:   make(map[GameType]map[string]*Room, len(AllGames)),
		members: make(map[string]map[GameType]*Room),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	for _, t := range AllGames {
		r.rooms[t] = make(map[string]*Room)
	}
	return r
}

// StartSweeper 定期清理等待再戰逾時的房間
func (r *Registry) StartSweeper(interval, ttl time.Duration, onExpire func(*Room)) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	r.wg.Add(1)
	go r.cleanupLoop(interval, ttl, onExpire)
}

func (r *Registry) cleanupLoop(interval, ttl time.Duration, onExpire func(*Room)) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, room := range r.Expired(now, ttl) {
				onExpire(room)
			}
		case <-r.stopCh:
			return
		}
	}
}

// Expired 列出終局後等待再戰超過 ttl 的房間
func (r *Registry) Expired(now time.Time, ttl time.Duration) []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Room
	for _, byID := range r.rooms {
		for _, room := range byID {
			if room.expired(now, ttl) {
				out = append(out, room)
			}
		}
	}
	return out
}

// Stop 停止清理
func (r *Registry) Stop() {
	r.stopped.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Get 取得指定遊戲的房間
func (r *Registry) Get(t GameType, roomID string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[t][roomID]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrRoomNotFound.WithDetails(roomID)
	}
	return room, nil
}

// Find 在所有遊戲中尋找房間
func (r *Registry) Find(roomID string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, byID := range r.rooms {
		if room, ok := byID[roomID]; ok {
			return room, nil
		}
	}
	return nil, apperrors.ErrRoomNotFound.WithDetails(roomID)
}

// RoomOf 連線在某遊戲中所在的房間
func (r *Registry) RoomOf(connID string, t GameType) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.members[connID][t]
	return room, ok
}

// RoomsOf 連線所在的所有房間（依遊戲固定順序）
func (r *Registry) RoomsOf(connID string) []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Room
	for _, t := range AllGames {
		if room, ok := r.members[connID][t]; ok {
			out = append(out, room)
		}
	}
	return out
}

// Remove 移除房間及指向它的成員索引
func (r *Registry) Remove(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room.Game][room.ID] != room {
		return
	}
	delete(r.rooms[room.Game], room.ID)

	for connID, byGame := range r.members {
		if byGame[room.Game] == room {
			delete(byGame, room.Game)
			if len(byGame) == 0 {
				delete(r.members, connID)
			}
		}
	}

	r.logger.Info("room removed", "room_id", room.ID, "game", room.Game)
}

// Unbind 移除連線到房間的索引（房間本身保留）
func (r *Registry) Unbind(connID string, room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbindLocked(connID, room)
}

func (r *Registry) unbindLocked(connID string, room *Room) {
	if byGame, ok := r.members[connID]; ok && byGame[room.Game] == room {
		delete(byGame, room.Game)
		if len(byGame) == 0 {
			delete(r.members, connID)
		}
	}
}

// 以下方法要求呼叫端持有 r.mu 寫鎖

// bindLocked 記錄連線所在房間
func (r *Registry) bindLocked(connID string, room *Room) {
	byGame, ok := r.members[connID]
	if !ok {
		byGame = make(map[GameType]*Room)
		r.members[connID] = byGame
	}
	byGame[room.Game] = room
}

// createLocked 建立新房間
func (r *Registry) createLocked(t GameType, state engine) *Room {
	r.seq++
	id := fmt.Sprintf("%s_%s", t, uuid.NewString())
	room := newRoom(id, t, r.seq, state)
	r.rooms[t][id] = room

	r.logger.Info("room created", "room_id", id, "game", t)
	return room
}

// findWaitingLocked 找出最早建立、恰好一人且尚未關閉的房間
func (r *Registry) findWaitingLocked(t GameType) *Room {
	var best *Room
	for _, room := range r.rooms[t] {
		room.mu.Lock()
		ok := !room.closed && !room.started && room.occupants() == 1
		room.mu.Unlock()
		if ok && (best == nil || room.seq < best.seq) {
			best = room
		}
	}
	return best
}

// findAwayLocked 找出同一身分暫離的座位
func (r *Registry) findAwayLocked(t GameType, identity string) (*Room, game.Seat, bool) {
	for _, room := range r.rooms[t] {
		room.mu.Lock()
		s, ok := room.awaySeat(identity)
		closed := room.closed
		room.mu.Unlock()
		if ok && !closed {
			return room, s, true
		}
	}
	return nil, 0, false
}

// All 所有房間
func (r *Registry) All() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Room
	for _, byID := range r.rooms {
		for _, room := range byID {
			out = append(out, room)
		}
	}
	return out
}

// List 房間摘要，t 為空時列出全部；依建立順序排序
func (r *Registry) List(t GameType) []RoomSummary {
	r.mu.RLock()
	var rooms []*Room
	for gt, byID := range r.rooms {
		if t != "" && gt != t {
			continue
		}
		for _, room := range byID {
			rooms = append(rooms, room)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].seq < rooms[j].seq })

	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	return out
}

// GameStats 單一遊戲的統計
type GameStats struct {
	Rooms   int           `json:"rooms"`
	Players int           `json:"players"`
	ByPhase map[Phase]int `json:"byPhase"`
}

// Stats 註冊表統計
type Stats struct {
	TotalRooms   int                    `json:"totalRooms"`
	TotalPlayers int                    `json:"totalPlayers"`
	Seated       int                    `json:"seatedConnections"`
	ByGame       map[GameType]GameStats `json:"byGame"`
}

// Stats 獲取統計資訊
func (r *Registry) Stats() Stats {
	stats := Stats{ByGame: make(map[GameType]GameStats, len(AllGames))}
	for _, t := range AllGames {
		stats.ByGame[t] = GameStats{ByPhase: make(map[Phase]int)}
	}

	for _, s := range r.List("") {
		gs := stats.ByGame[s.Game]
		gs.Rooms++
		gs.Players += s.Players
		gs.ByPhase[s.Phase]++
		stats.ByGame[s.Game] = gs

		stats.TotalRooms++
		stats.TotalPlayers += s.Players
	}

	r.mu.RLock()
	stats.Seated = len(r.members)
	r.mu.RUnlock()
	return stats
}
