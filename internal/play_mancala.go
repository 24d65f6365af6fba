package internal

import (
	"context"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
)

// mancalaEngine 播棋；坑位以 14 格陣列傳送，6 與 13 為兩方的倉
type mancalaEngine struct {
	g     *game.Mancala
	roles [2]string
	last  *game.Sowing
}

func newMancalaEngine(roles [2]string, stones int) *mancalaEngine {
	return &mancalaEngine{g: game.NewMancala(stones), roles: roles}
}

func (e *mancalaEngine) reset() {
	e.g.Reset()
	e.last = nil
}

func (e *mancalaEngine) outcome() game.Outcome { return e.g.Result }
func (e *mancalaEngine) moves() int            { return e.g.Moves }

func (e *mancalaEngine) scores() [2]int {
	return [2]int{e.g.Pits[game.StoreA], e.g.Pits[game.StoreB]}
}

func (e *mancalaEngine) pits() []int {
	return append([]int(nil), e.g.Pits[:]...)
}

func (e *mancalaEngine) view() map[string]any {
	return map[string]any{
		"pits":          e.pits(),
		"currentPlayer": e.roles[e.g.Turn],
	}
}

func (e *mancalaEngine) assigned(r *Room, s game.Seat) map[string]any {
	return map[string]any{"side": e.roles[s]}
}

func (e *mancalaEngine) start(r *Room, s game.Seat) map[string]any {
	payload := e.view()
	payload["side"] = e.roles[s]
	return payload
}

func (e *mancalaEngine) play(s game.Seat, pit int) error {
	sowing, err := e.g.Sow(s, pit)
	if err != nil {
		return err
	}
	e.last = &sowing
	return nil
}

func (e *mancalaEngine) update(*Room) map[string]any {
	payload := e.view()
	if e.last != nil {
		payload["lastMove"] = map[string]any{
			"landing":   e.last.Landing,
			"captured":  e.last.Captured,
			"extraTurn": e.last.ExtraTurn,
		}
	}
	return payload
}

func (e *mancalaEngine) over(*Room) map[string]any {
	sc := e.scores()
	return map[string]any{
		"winner": winnerRole(e.g.Result, e.roles),
		"draw":   e.g.Result.Draw,
		"pits":   e.pits(),
		"scores": map[string]int{e.roles[game.First]: sc[game.First], e.roles[game.Second]: sc[game.Second]},
	}
}

// PlayMancala 播棋播種
func (c *Coordinator) PlayMancala(ctx context.Context, p Peer, roomID string, pit int) error {
	return c.move(ctx, p, Mancala, roomID, pit)
}
