// Package game 實作五種雙人回合制遊戲的純狀態轉換規則。
//
// 引擎不做任何 I/O，也不持有鎖；呼叫端（房間協調器）負責序列化對同一局的存取。
// 所有非法走步以 pkg/errors 中的預定義錯誤返回，狀態保持不變。
package game

// Seat 玩家座位，依加入順序決定：0 為先手（X、red、A、玩家一）
type Seat int

const (
	First  Seat = 0
	Second Seat = 1
)

// Other 返回對手座位
func (s Seat) Other() Seat {
	return 1 - s
}

// Valid 檢查座位是否合法
func (s Seat) Valid() bool {
	return s == First || s == Second
}

// Cell 棋盤格子內容
type Cell int8

const (
	Empty Cell = iota
	FirstMark
	SecondMark
)

// markOf 座位對應的棋子
func markOf(s Seat) Cell {
	return Cell(s) + 1
}

// Seat 返回棋子所屬座位，空格返回 false
func (c Cell) Seat() (Seat, bool) {
	switch c {
	case FirstMark:
		return First, true
	case SecondMark:
		return Second, true
	default:
		return 0, false
	}
}

// Outcome 終局判定結果
type Outcome struct {
	Over   bool  `json:"over"`
	Winner *Seat `json:"winner"`
	Draw   bool  `json:"draw"`
}

func won(s Seat) Outcome {
	return Outcome{Over: true, Winner: &s}
}

func drawn() Outcome {
	return Outcome{Over: true, Draw: true}
}

// byScore 以分數比較決定勝負，相同則為平局
func byScore(a, b int) Outcome {
	switch {
	case a > b:
		return won(First)
	case b > a:
		return won(Second)
	default:
		return drawn()
	}
}
