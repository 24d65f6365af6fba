package game

import (
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

const (
	Connect4Rows = 6
	Connect4Cols = 7
	connectRun   = 4
)

// Connect4 四子棋局面，第 0 列為最上方
type Connect4 struct {
	Board  [Connect4Rows][Connect4Cols]Cell
	Turn   Seat
	Moves  int
	Result Outcome
}

// NewConnect4 建立空棋盤，由先手（red）開始
func NewConnect4() *Connect4 {
	return &Connect4{Turn: First}
}

// Drop 將棋子投入指定欄，棋子落在該欄最下方的空格
func (g *Connect4) Drop(s Seat, col int) (int, Outcome, error) {
	if g.Result.Over {
		return -1, g.Result, apperrors.ErrGameOver
	}
	if s != g.Turn {
		return -1, g.Result, apperrors.ErrNotYourTurn
	}
	if col < 0 || col >= Connect4Cols {
		return -1, g.Result, apperrors.ErrOutOfRange
	}

	row := g.lowestEmptyRow(col)
	if row < 0 {
		return -1, g.Result, apperrors.ErrColumnFull
	}

	g.Board[row][col] = markOf(s)
	g.Turn = s.Other()
	g.Moves++
	g.Result = g.evaluate()
	return row, g.Result, nil
}

func (g *Connect4) lowestEmptyRow(col int) int {
	for row := Connect4Rows - 1; row >= 0; row-- {
		if g.Board[row][col] == Empty {
			return row
		}
	}
	return -1
}

// evaluate 依序掃描橫、直、右下斜、右上斜四連
func (g *Connect4) evaluate() Outcome {
	directions := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {-1, 1}}
	for _, d := range directions {
		for row := 0; row < Connect4Rows; row++ {
			for col := 0; col < Connect4Cols; col++ {
				if seat, ok := g.runFrom(row, col, d[0], d[1]); ok {
					return won(seat)
				}
			}
		}
	}
	if g.full() {
		return drawn()
	}
	return Outcome{}
}

func (g *Connect4) runFrom(row, col, dr, dc int) (Seat, bool) {
	first := g.Board[row][col]
	if first == Empty {
		return 0, false
	}
	endRow, endCol := row+dr*(connectRun-1), col+dc*(connectRun-1)
	if endRow < 0 || endRow >= Connect4Rows || endCol < 0 || endCol >= Connect4Cols {
		return 0, false
	}
	for i := 1; i < connectRun; i++ {
		if g.Board[row+dr*i][col+dc*i] != first {
			return 0, false
		}
	}
	return first.Seat()
}

// full 最上列全部佔用即滿盤
func (g *Connect4) full() bool {
	for _, c := range g.Board[0] {
		if c == Empty {
			return false
		}
	}
	return true
}

// Reset 重置為初始空棋盤
func (g *Connect4) Reset() {
	*g = Connect4{Turn: First}
}
