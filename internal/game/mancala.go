package game

import (
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// 坑位配置：0–5 為 A 方坑、6 為 A 方倉、7–12 為 B 方坑、13 為 B 方倉
const (
	PitsPerSide   = 6
	MancalaSlots  = 2*PitsPerSide + 2
	StoreA        = PitsPerSide
	StoreB        = MancalaSlots - 1
	DefaultStones = 4
)

// Mancala 播棋局面
type Mancala struct {
	Pits   [MancalaSlots]int
	Turn   Seat
	Moves  int
	Result Outcome

	stones int
}

// Sowing 一次播種的結果
type Sowing struct {
	Landing   int
	Captured  int
	ExtraTurn bool
	Outcome   Outcome
}

// NewMancala 每個坑放 stones 顆，倉為空，由 A 方開始
func NewMancala(stones int) *Mancala {
	if stones <= 0 {
		stones = DefaultStones
	}
	g := &Mancala{stones: stones}
	g.Reset()
	return g
}

// Reset 重置為初始局面
func (g *Mancala) Reset() {
	g.Pits = [MancalaSlots]int{}
	for i := 0; i < PitsPerSide; i++ {
		g.Pits[i] = g.stones
		g.Pits[i+PitsPerSide+1] = g.stones
	}
	g.Turn = First
	g.Moves = 0
	g.Result = Outcome{}
}

// StoreOf 返回座位的倉位索引
func StoreOf(s Seat) int {
	if s == First {
		return StoreA
	}
	return StoreB
}

// OwnsPit 檢查坑是否屬於該座位（不含倉）
func OwnsPit(s Seat, pit int) bool {
	if s == First {
		return pit >= 0 && pit < StoreA
	}
	return pit > StoreA && pit < StoreB
}

// Opposite A 方坑 i 對應 B 方坑 i+7
func Opposite(pit int) int {
	if pit < StoreA {
		return pit + PitsPerSide + 1
	}
	return pit - PitsPerSide - 1
}

// Total 全盤石子總數，任何走步前後皆不變
func (g *Mancala) Total() int {
	sum := 0
	for _, n := range g.Pits {
		sum += n
	}
	return sum
}

// Sow 從自己的坑取出全部石子，逆時針逐坑播下，跳過對手的倉
func (g *Mancala) Sow(s Seat, pit int) (Sowing, error) {
	if g.Result.Over {
		return Sowing{Outcome: g.Result}, apperrors.ErrGameOver
	}
	if s != g.Turn {
		return Sowing{}, apperrors.ErrNotYourTurn
	}
	if pit < 0 || pit >= MancalaSlots {
		return Sowing{}, apperrors.ErrOutOfRange
	}
	if !OwnsPit(s, pit) {
		return Sowing{}, apperrors.ErrNotOwnPit
	}
	if g.Pits[pit] == 0 {
		return Sowing{}, apperrors.ErrEmptyPit
	}

	stones := g.Pits[pit]
	g.Pits[pit] = 0
	skip := StoreOf(s.Other())
	pos := pit
	for stones > 0 {
		pos = (pos + 1) % MancalaSlots
		if pos == skip {
			continue
		}
		g.Pits[pos]++
		stones--
	}

	result := Sowing{Landing: pos}
	store := StoreOf(s)

	// 落在自己原本為空的坑且對面有石子：兩坑一併收入倉
	if OwnsPit(s, pos) && g.Pits[pos] == 1 {
		opp := Opposite(pos)
		if g.Pits[opp] > 0 {
			result.Captured = g.Pits[opp] + 1
			g.Pits[store] += result.Captured
			g.Pits[opp] = 0
			g.Pits[pos] = 0
		}
	}

	result.ExtraTurn = pos == store
	if !result.ExtraTurn {
		g.Turn = s.Other()
	}
	g.Moves++

	g.Result = g.checkEnd()
	result.Outcome = g.Result
	return result, nil
}

// checkEnd 任一方坑全空即終局，雙方剩餘石子各自掃入己方倉
func (g *Mancala) checkEnd() Outcome {
	if !g.sideEmpty(First) && !g.sideEmpty(Second) {
		return Outcome{}
	}
	g.sweep(First)
	g.sweep(Second)
	return byScore(g.Pits[StoreA], g.Pits[StoreB])
}

func (g *Mancala) sideEmpty(s Seat) bool {
	for i := 0; i < MancalaSlots; i++ {
		if OwnsPit(s, i) && g.Pits[i] > 0 {
			return false
		}
	}
	return true
}

func (g *Mancala) sweep(s Seat) {
	store := StoreOf(s)
	for i := 0; i < MancalaSlots; i++ {
		if OwnsPit(s, i) {
			g.Pits[store] += g.Pits[i]
			g.Pits[i] = 0
		}
	}
}
