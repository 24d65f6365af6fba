package internal

import (
	"context"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// turnEngine 單一目標走步的回合制遊戲（井字棋、四子棋、播棋）
type turnEngine interface {
	engine
	play(s game.Seat, target int) error
	update(r *Room) map[string]any
	over(r *Room) map[string]any
}

// cellName 格子內容轉為角色名稱，空格為 null
func cellName(c game.Cell, roles [2]string) any {
	if s, ok := c.Seat(); ok {
		return roles[s]
	}
	return nil
}

// ticTacToeEngine 井字棋
type ticTacToeEngine struct {
	g     *game.TicTacToe
	roles [2]string
}

func newTicTacToeEngine(roles [2]string) *ticTacToeEngine {
	return &ticTacToeEngine{g: game.NewTicTacToe(), roles: roles}
}

func (e *ticTacToeEngine) reset()                { e.g.Reset() }
func (e *ticTacToeEngine) outcome() game.Outcome { return e.g.Result }
func (e *ticTacToeEngine) scores() [2]int        { return [2]int{} }
func (e *ticTacToeEngine) moves() int            { return e.g.Moves }

func (e *ticTacToeEngine) board() []any {
	cells := make([]any, len(e.g.Board))
	for i, c := range e.g.Board {
		cells[i] = cellName(c, e.roles)
	}
	return cells
}

func (e *ticTacToeEngine) view() map[string]any {
	return map[string]any{
		"board":         e.board(),
		"currentPlayer": e.roles[e.g.Turn],
	}
}

func (e *ticTacToeEngine) assigned(r *Room, s game.Seat) map[string]any {
	payload := e.view()
	payload["symbol"] = e.roles[s]
	return payload
}

func (e *ticTacToeEngine) start(r *Room, s game.Seat) map[string]any {
	payload := e.view()
	payload["symbol"] = e.roles[s]
	return payload
}

func (e *ticTacToeEngine) play(s game.Seat, target int) error {
	_, err := e.g.Play(s, target)
	return err
}

func (e *ticTacToeEngine) update(*Room) map[string]any { return e.view() }

func (e *ticTacToeEngine) over(*Room) map[string]any {
	return map[string]any{
		"winner": winnerRole(e.g.Result, e.roles),
		"draw":   e.g.Result.Draw,
		"board":  e.board(),
	}
}

// connect4Engine 四子棋
type connect4Engine struct {
	g       *game.Connect4
	roles   [2]string
	lastRow int
	lastCol int
}

func newConnect4Engine(roles [2]string) *connect4Engine {
	return &connect4Engine{g: game.NewConnect4(), roles: roles, lastRow: -1, lastCol: -1}
}

func (e *connect4Engine) reset() {
	e.g.Reset()
	e.lastRow, e.lastCol = -1, -1
}

func (e *connect4Engine) outcome() game.Outcome { return e.g.Result }
func (e *connect4Engine) scores() [2]int        { return [2]int{} }
func (e *connect4Engine) moves() int            { return e.g.Moves }

func (e *connect4Engine) board() [][]any {
	rows := make([][]any, game.Connect4Rows)
	for r := range rows {
		rows[r] = make([]any, game.Connect4Cols)
		for c := range rows[r] {
			rows[r][c] = cellName(e.g.Board[r][c], e.roles)
		}
	}
	return rows
}

func (e *connect4Engine) view() map[string]any {
	return map[string]any{
		"board":         e.board(),
		"currentPlayer": e.roles[e.g.Turn],
	}
}

func (e *connect4Engine) assigned(r *Room, s game.Seat) map[string]any {
	payload := e.view()
	payload["color"] = e.roles[s]
	return payload
}

func (e *connect4Engine) start(r *Room, s game.Seat) map[string]any {
	payload := e.view()
	payload["color"] = e.roles[s]
	return payload
}

func (e *connect4Engine) play(s game.Seat, target int) error {
	row, _, err := e.g.Drop(s, target)
	if err != nil {
		return err
	}
	e.lastRow, e.lastCol = row, target
	return nil
}

func (e *connect4Engine) update(*Room) map[string]any {
	payload := e.view()
	payload["lastMove"] = map[string]int{"row": e.lastRow, "column": e.lastCol}
	return payload
}

func (e *connect4Engine) over(*Room) map[string]any {
	return map[string]any{
		"winner": winnerRole(e.g.Result, e.roles),
		"draw":   e.g.Result.Draw,
		"board":  e.board(),
	}
}

// PlayTicTacToe 井字棋落子
func (c *Coordinator) PlayTicTacToe(ctx context.Context, p Peer, roomID string, position int) error {
	return c.move(ctx, p, TicTacToe, roomID, position)
}

// PlayConnect4 四子棋投子
func (c *Coordinator) PlayConnect4(ctx context.Context, p Peer, roomID string, column int) error {
	return c.move(ctx, p, Connect4, roomID, column)
}

// MakeMove 不指明遊戲的走步：依 roomID 或連線所在房間決定是井字棋、播棋還是四子棋
//
// 井字棋與四子棋取 position，播棋取 pitIndex（缺少時退回 position）。
func (c *Coordinator) MakeMove(ctx context.Context, p Peer, roomID string, position, pitIndex *int) error {
	var t GameType
	if roomID != "" {
		room, err := c.registry.Find(roomID)
		if err != nil {
			return err
		}
		t = room.Game
	} else {
		for _, candidate := range []GameType{TicTacToe, Mancala, Connect4} {
			if _, ok := c.registry.RoomOf(p.ID(), candidate); ok {
				t = candidate
				break
			}
		}
		if t == "" {
			return apperrors.ErrRoomNotFound
		}
	}

	target := position
	if t == Mancala && pitIndex != nil {
		target = pitIndex
	}
	if target == nil {
		return apperrors.ErrMissingTarget
	}

	switch t {
	case TicTacToe, Connect4, Mancala:
		return c.move(ctx, p, t, roomID, *target)
	default:
		return apperrors.ErrUnknownGame.WithDetails(string(t))
	}
}

// move 套用一步並廣播；終局時廣播結果
func (c *Coordinator) move(ctx context.Context, p Peer, t GameType, roomID string, target int) error {
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

	te := room.state.(turnEngine)
	if err := te.play(s, target); err != nil {
		room.mu.Unlock()
		return err
	}

	room.broadcast(room.Spec.UpdateEvent, te.update(room))

	var after func()
	if out := te.outcome(); out.Over {
		room.broadcast(room.Spec.OverEvent, te.over(room))
		after = c.concludeLocked(room)
		c.logger.InfoContext(ctx, "game over",
			"room_id", room.ID,
			"game", t,
			"winner", winnerRole(out, room.Spec.Roles),
			"moves", te.moves())
	}
	room.mu.Unlock()

	if after != nil {
		after()
	}
	return nil
}
