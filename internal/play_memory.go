package internal

import (
	"context"
	"math/rand/v2"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
)

// memoryEngine 翻牌配對；未翻開的牌絕不傳送牌面
type memoryEngine struct {
	mem   *game.Memory
	pairs int
	rng   *rand.Rand
	flips int
}

func newMemoryEngine(pairs int, rng *rand.Rand) *memoryEngine {
	e := &memoryEngine{pairs: pairs, rng: rng}
	e.reset()
	return e
}

func (e *memoryEngine) reset() {
	e.mem = game.NewMemory(game.DefaultCardValues, e.pairs, e.rng)
	e.flips = 0
}

func (e *memoryEngine) outcome() game.Outcome { return e.mem.Result }
func (e *memoryEngine) scores() [2]int        { return e.mem.Scores }
func (e *memoryEngine) moves() int            { return e.flips }

// board 公開牌面：只有翻開或已配對的牌帶 value
func (e *memoryEngine) board() []map[string]any {
	cards := make([]map[string]any, len(e.mem.Cards))
	for i, card := range e.mem.Cards {
		m := map[string]any{
			"id":        card.ID,
			"isFlipped": card.FaceUp,
			"isMatched": card.Matched,
		}
		if card.FaceUp || card.Matched {
			m["value"] = card.Value
		}
		cards[i] = m
	}
	return cards
}

func (e *memoryEngine) scoreMap() map[string]int {
	return map[string]int{
		"player1": e.mem.Scores[game.First],
		"player2": e.mem.Scores[game.Second],
	}
}

func (e *memoryEngine) view() map[string]any {
	return map[string]any{
		"board":  e.board(),
		"scores": e.scoreMap(),
		"turn":   int(e.mem.Turn) + 1,
		"phase":  e.mem.Phase.String(),
	}
}

func (e *memoryEngine) assigned(r *Room, s game.Seat) map[string]any {
	return map[string]any{
		"playerNum": int(s) + 1,
		"playerId":  r.peerID(s),
		"board":     e.board(),
	}
}

func (e *memoryEngine) start(r *Room, s game.Seat) map[string]any {
	return map[string]any{
		"currentPlayer": r.peerID(e.mem.Turn),
		"board":         e.board(),
		"scores":        e.scoreMap(),
		"playerNum":     int(s) + 1,
	}
}

// winnerNum 勝方玩家編號，平局為 nil
func (e *memoryEngine) winnerNum() any {
	if e.mem.Result.Winner == nil {
		return nil
	}
	return int(*e.mem.Result.Winner) + 1
}

// FlipCard 翻牌
//
// 翻開的牌面廣播給雙方；第二張不相符時，經過 flip_back_delay 後蓋回並換人。
// 蓋回的計時器綁定房間的 session，房間關閉或已開新局時不做任何事。
func (c *Coordinator) FlipCard(ctx context.Context, p Peer, roomID string, cardID int) error {
	room, err := c.lookup(p, Memory, roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	s, err := c.seatLocked(room, p)
	if err != nil {
		room.mu.Unlock()
		return err
	}

	me := room.state.(*memoryEngine)
	res, err := me.mem.Flip(s, cardID)
	if err != nil {
		room.mu.Unlock()
		return err
	}
	me.flips++

	room.broadcast(EventMemoryCardFlipped, map[string]any{
		"cardId":    res.Card.ID,
		"cardValue": res.Card.Value,
		"player":    int(s) + 1,
	})

	if !res.Second {
		room.mu.Unlock()
		return nil
	}

	if !res.Match {
		session := room.session
		room.schedule(c.cfg.Memory.FlipBackDelay, func() { c.flipBack(room, session) })
		room.mu.Unlock()
		return nil
	}

	room.broadcast(EventMemoryMatchFound, map[string]any{
		"matchedCardIds": []int{res.Pair[0], res.Pair[1]},
		"scores":         me.scoreMap(),
		"currentPlayer":  room.peerID(me.mem.Turn),
	})

	var after func()
	if res.Outcome.Over {
		room.broadcast(EventMemoryGameOver, map[string]any{
			"scores": me.scoreMap(),
			"winner": me.winnerNum(),
		})
		after = c.concludeLocked(room)
		c.logger.InfoContext(ctx, "game over", "room_id", room.ID, "game", Memory, "winner", me.winnerNum())
	}
	room.mu.Unlock()

	if after != nil {
		after()
	}
	return nil
}

// flipBack 蓋回不相符的兩張牌並換人
func (c *Coordinator) flipBack(room *Room, session uint64) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed || room.session != session {
		return
	}
	me := room.state.(*memoryEngine)
	pair, err := me.mem.ResolveMismatch()
	if err != nil {
		return
	}
	room.timer = nil

	room.broadcast(EventMemoryNoMatch, map[string]any{
		"cardId1": pair[0],
		"cardId2": pair[1],
	})
	room.broadcast(EventMemoryTurnUpdate, map[string]any{
		"currentPlayer": room.peerID(me.mem.Turn),
	})
}
