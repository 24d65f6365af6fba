package game

import (
	"math/rand/v2"

	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// DefaultCardValues 預設牌面（前端以 <value>.png 顯示）
var DefaultCardValues = []string{
	"apple", "banana", "cherry", "grape",
	"lemon", "orange", "peach", "pear",
	"plum", "kiwi", "mango", "melon",
}

// MemoryPhase 翻牌狀態機
//
//	AwaitingFlip → OneFlipped → (配對成功) AwaitingFlip
//	                         → (配對失敗) Resolving → AwaitingFlip（換人）
type MemoryPhase int

const (
	AwaitingFlip MemoryPhase = iota
	OneFlipped
	Resolving
)

func (p MemoryPhase) String() string {
	switch p {
	case OneFlipped:
		return "one_flipped"
	case Resolving:
		return "resolving"
	default:
		return "awaiting_flip"
	}
}

// Card 一張牌
type Card struct {
	ID      int
	Value   string
	FaceUp  bool
	Matched bool
}

// Memory 翻牌配對局面
type Memory struct {
	Cards   []Card
	Turn    Seat
	Pending []int
	Scores  [2]int
	Phase   MemoryPhase
	Result  Outcome
}

// FlipResult 一次翻牌的結果
type FlipResult struct {
	Card    Card
	Second  bool
	Match   bool
	Pair    [2]int
	Outcome Outcome
}

// NewMemory 以前 pairs 種牌面各兩張洗牌建立牌組
func NewMemory(values []string, pairs int, rng *rand.Rand) *Memory {
	if pairs <= 0 || pairs > len(values) {
		pairs = len(values)
	}
	cards := make([]Card, 0, pairs*2)
	for i := 0; i < pairs; i++ {
		cards = append(cards, Card{Value: values[i]}, Card{Value: values[i]})
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	for i := range cards {
		cards[i].ID = i
	}
	return &Memory{Cards: cards, Turn: First}
}

// Flip 翻開一張牌
func (m *Memory) Flip(s Seat, id int) (FlipResult, error) {
	if m.Result.Over {
		return FlipResult{}, apperrors.ErrGameOver
	}
	if s != m.Turn {
		return FlipResult{}, apperrors.ErrNotYourTurn
	}
	if m.Phase == Resolving || len(m.Pending) >= 2 {
		return FlipResult{}, apperrors.ErrFlipPending
	}
	if id < 0 || id >= len(m.Cards) {
		return FlipResult{}, apperrors.ErrOutOfRange
	}
	card := &m.Cards[id]
	if card.FaceUp || card.Matched {
		return FlipResult{}, apperrors.ErrCardTaken
	}

	card.FaceUp = true
	m.Pending = append(m.Pending, id)
	result := FlipResult{Card: *card}

	if len(m.Pending) == 1 {
		m.Phase = OneFlipped
		return result, nil
	}

	first, second := &m.Cards[m.Pending[0]], &m.Cards[m.Pending[1]]
	result.Second = true
	result.Pair = [2]int{first.ID, second.ID}

	if first.Value != second.Value {
		m.Phase = Resolving
		return result, nil
	}

	// 配對成功：同一玩家繼續
	first.Matched, second.Matched = true, true
	m.Scores[s]++
	m.Pending = nil
	m.Phase = AwaitingFlip
	result.Match = true
	if m.allMatched() {
		m.Result = byScore(m.Scores[First], m.Scores[Second])
	}
	result.Outcome = m.Result
	return result, nil
}

// ResolveMismatch 蓋回兩張不相符的牌並換人
func (m *Memory) ResolveMismatch() ([2]int, error) {
	if m.Phase != Resolving || len(m.Pending) != 2 {
		return [2]int{}, apperrors.ErrNoPendingPair
	}
	pair := [2]int{m.Pending[0], m.Pending[1]}
	for _, id := range pair {
		m.Cards[id].FaceUp = false
	}
	m.Pending = nil
	m.Phase = AwaitingFlip
	m.Turn = m.Turn.Other()
	return pair, nil
}

// Matched 已配對的牌數
func (m *Memory) Matched() int {
	n := 0
	for _, c := range m.Cards {
		if c.Matched {
			n++
		}
	}
	return n
}

func (m *Memory) allMatched() bool {
	return m.Matched() == len(m.Cards)
}
