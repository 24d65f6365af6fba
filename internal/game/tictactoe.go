package game

import (
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// ticTacToeLines 三列、三行、兩條對角線
var ticTacToeLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToe 井字棋局面
type TicTacToe struct {
	Board  [9]Cell
	Turn   Seat
	Moves  int
	Result Outcome
}

// NewTicTacToe 建立空棋盤，由先手開始
func NewTicTacToe() *TicTacToe {
	return &TicTacToe{Turn: First}
}

// Play 在指定位置落子
func (g *TicTacToe) Play(s Seat, pos int) (Outcome, error) {
	if g.Result.Over {
		return g.Result, apperrors.ErrGameOver
	}
	if s != g.Turn {
		return g.Result, apperrors.ErrNotYourTurn
	}
	if pos < 0 || pos >= len(g.Board) {
		return g.Result, apperrors.ErrOutOfRange
	}
	if g.Board[pos] != Empty {
		return g.Result, apperrors.ErrOccupied
	}

	g.Board[pos] = markOf(s)
	g.Turn = s.Other()
	g.Moves++
	g.Result = g.evaluate()
	return g.Result, nil
}

// evaluate 第一條連線獲勝；無連線且滿盤為平局
func (g *TicTacToe) evaluate() Outcome {
	for _, line := range ticTacToeLines {
		a := g.Board[line[0]]
		if a != Empty && a == g.Board[line[1]] && a == g.Board[line[2]] {
			seat, _ := a.Seat()
			return won(seat)
		}
	}
	for _, c := range g.Board {
		if c == Empty {
			return Outcome{}
		}
	}
	return drawn()
}

// Reset 重置為初始空棋盤
func (g *TicTacToe) Reset() {
	*g = TicTacToe{Turn: First}
}
