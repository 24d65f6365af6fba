package internal

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// wordHuntEngine 找字遊戲：共用盤面、共用單字帳本，分數一律由帳本計算
type wordHuntEngine struct {
	hunt     *game.WordHunt
	size     int
	duration time.Duration
	rng      *rand.Rand
	deadline time.Time
	result   game.Outcome
}

func newWordHuntEngine(size int, duration time.Duration, rng *rand.Rand) *wordHuntEngine {
	e := &wordHuntEngine{size: size, duration: duration, rng: rng}
	e.reset()
	return e
}

func (e *wordHuntEngine) reset() {
	grid, err := game.RollGrid(e.size, e.rng)
	if err != nil {
		grid, _ = game.RollGrid(4, e.rng)
	}
	e.hunt = game.NewWordHunt(grid)
	e.deadline = time.Time{}
	e.result = game.Outcome{}
}

func (e *wordHuntEngine) outcome() game.Outcome { return e.result }
func (e *wordHuntEngine) moves() int            { return len(e.hunt.Accepted()) }

func (e *wordHuntEngine) scores() [2]int {
	return [2]int{e.hunt.Score(game.First), e.hunt.Score(game.Second)}
}

func (e *wordHuntEngine) view() map[string]any {
	sc := e.scores()
	return map[string]any{
		"letters":  e.hunt.Grid,
		"accepted": e.hunt.Accepted(),
		"scores":   []int{sc[0], sc[1]},
	}
}

func (e *wordHuntEngine) assigned(r *Room, s game.Seat) map[string]any {
	return map[string]any{"player": int(s) + 1}
}

func (e *wordHuntEngine) start(r *Room, s game.Seat) map[string]any {
	return map[string]any{
		"letters":  e.hunt.Grid,
		"duration": int(e.duration.Seconds()),
		"player":   int(s) + 1,
	}
}

// startCountdownLocked 開局時啟動倒數，時間到由伺服器結束本局
func (c *Coordinator) startCountdownLocked(room *Room) {
	wh := room.state.(*wordHuntEngine)
	wh.deadline = time.Now().Add(wh.duration)
	session := room.session
	room.schedule(wh.duration, func() { c.timeUp(room, session) })
}

// SubmitWord 提交單字
//
// 長度、盤面可拼出與重複檢查在房間鎖內完成；字典查詢在鎖外進行，
// 回來後重新上鎖並以帳本做最終的唯一性判定，兩人同時送出同一個字只有一人得分。
// 被拒絕的單字只通知提交者，並返回對應錯誤。
func (c *Coordinator) SubmitWord(ctx context.Context, p Peer, roomID, raw string) error {
	room, err := c.lookup(p, WordHunt, roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	s, err := c.seatLocked(room, p)
	if err != nil {
		room.mu.Unlock()
		return err
	}
	wh := room.state.(*wordHuntEngine)
	if wh.hunt.Over() {
		room.mu.Unlock()
		return apperrors.ErrGameOver
	}

	word, ok := game.NormalizeWord(raw)
	if !ok {
		return c.rejectLocked(room, s, raw, RejectNotAWord, apperrors.ErrNotAWord)
	}
	if len(word) < c.cfg.WordHunt.MinWordLength {
		return c.rejectLocked(room, s, word, RejectTooShort, apperrors.ErrWordTooShort)
	}
	if c.cfg.WordHunt.RequireTraceable && !wh.hunt.CanTrace(word) {
		return c.rejectLocked(room, s, word, RejectNotOnBoard, apperrors.ErrWordNotOnBoard)
	}
	if _, taken := wh.hunt.Claimed(word); taken {
		return c.rejectLocked(room, s, word, RejectDuplicate, apperrors.ErrDuplicateWord)
	}
	session := room.session
	room.mu.Unlock()

	valid, err := c.dict.Check(ctx, word)

	room.mu.Lock()
	if room.closed || room.session != session {
		room.mu.Unlock()
		return apperrors.ErrGameOver
	}
	if err != nil {
		c.logger.WarnContext(ctx, "dictionary lookup failed", "word", word, "error", err)
		return c.rejectLocked(room, s, word, RejectDictionaryDown, apperrors.ErrDictionaryUnavailable.WithDetails(err.Error()))
	}
	if !valid {
		return c.rejectLocked(room, s, word, RejectNotAWord, apperrors.ErrNotAWord)
	}
	if err := wh.hunt.Claim(s, word); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateWord) {
			return c.rejectLocked(room, s, word, RejectDuplicate, err)
		}
		room.mu.Unlock()
		return err
	}

	sc := wh.scores()
	points := game.WordPoints(word)
	for i := range room.seats {
		seat := game.Seat(i)
		room.sendTo(seat, EventWordAccepted, map[string]any{
			"word":          word,
			"isOpponent":    seat != s,
			"points":        points,
			"playerScore":   sc[seat],
			"opponentScore": sc[seat.Other()],
		})
	}
	room.mu.Unlock()

	c.logger.DebugContext(ctx, "word accepted", "room_id", room.ID, "word", word, "points", points)
	return nil
}

// rejectLocked 通知提交者並放開房間鎖
func (c *Coordinator) rejectLocked(room *Room, s game.Seat, word, reason string, err error) error {
	room.sendTo(s, EventWordRejected, map[string]any{
		"word":   word,
		"reason": reason,
	})
	room.mu.Unlock()
	return err
}

// TimeUp 客戶端回報時間到
//
// 倒數由伺服器掌握；只有在距離截止不超過容許誤差時才提前結束，
// 已結束的局直接忽略。
func (c *Coordinator) TimeUp(ctx context.Context, p Peer, roomID string) error {
	room, err := c.lookup(p, WordHunt, roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	if _, err := c.seatLocked(room, p); err != nil {
		room.mu.Unlock()
		return err
	}
	wh := room.state.(*wordHuntEngine)
	if wh.hunt.Over() {
		room.mu.Unlock()
		return nil
	}
	if time.Until(wh.deadline) > c.cfg.WordHunt.TimeUpTolerance {
		room.mu.Unlock()
		return apperrors.ErrInProgress
	}
	after := c.finishWordHuntLocked(room)
	room.mu.Unlock()

	after()
	c.logger.InfoContext(ctx, "game over", "room_id", room.ID, "game", WordHunt, "source", "client")
	return nil
}

// timeUp 伺服器倒數結束
func (c *Coordinator) timeUp(room *Room, session uint64) {
	room.mu.Lock()
	if room.closed || room.session != session {
		room.mu.Unlock()
		return
	}
	wh := room.state.(*wordHuntEngine)
	if wh.hunt.Over() {
		room.mu.Unlock()
		return
	}
	room.timer = nil
	after := c.finishWordHuntLocked(room)
	room.mu.Unlock()

	after()
	c.logger.Info("game over", "room_id", room.ID, "game", WordHunt, "source", "timer")
}

// finishWordHuntLocked 結算並分別通知雙方（各自視角的分數）
func (c *Coordinator) finishWordHuntLocked(room *Room) func() {
	wh := room.state.(*wordHuntEngine)
	wh.result = wh.hunt.Finish()

	sc := wh.scores()
	for i := range room.seats {
		s := game.Seat(i)
		var winner any
		if wh.result.Winner != nil {
			winner = int(*wh.result.Winner) + 1
		}
		room.sendTo(s, room.Spec.OverEvent, map[string]any{
			"playerScore":   sc[s],
			"opponentScore": sc[s.Other()],
			"words":         wh.hunt.Words(s),
			"opponentWords": wh.hunt.Words(s.Other()),
			"winner":        winner,
			"draw":          wh.result.Draw,
		})
	}
	return c.concludeLocked(room)
}
