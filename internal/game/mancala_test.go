package game_test

import (
	"math/rand/v2"
	"testing"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMancala_Initial 測試初始局面
func TestMancala_Initial(t *testing.T) {
	g := game.NewMancala(4)
	assert.Equal(t, 48, g.Total())
	assert.Equal(t, 0, g.Pits[game.StoreA])
	assert.Equal(t, 0, g.Pits[game.StoreB])
	assert.Equal(t, game.First, g.Turn)
}

// TestMancala_Preconditions 測試走步前置條件
func TestMancala_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(g *game.Mancala)
		seat    game.Seat
		pit     int
		wantErr *apperrors.AppError
	}{
		{name: "wrong turn", seat: game.Second, pit: 7, wantErr: apperrors.ErrNotYourTurn},
		{name: "opponent pit", seat: game.First, pit: 8, wantErr: apperrors.ErrNotOwnPit},
		{name: "own store", seat: game.First, pit: game.StoreA, wantErr: apperrors.ErrNotOwnPit},
		{name: "out of range", seat: game.First, pit: 14, wantErr: apperrors.ErrOutOfRange},
		{
			name:    "empty pit",
			setup:   func(g *game.Mancala) { g.Pits[2] = 0; g.Pits[game.StoreA] = 4 },
			seat:    game.First,
			pit:     2,
			wantErr: apperrors.ErrEmptyPit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := game.NewMancala(4)
			if tt.setup != nil {
				tt.setup(g)
			}
			before := g.Pits

			_, err := g.Sow(tt.seat, tt.pit)
			assert.Same(t, tt.wantErr, err)
			assert.Equal(t, before, g.Pits)
		})
	}
}

// TestMancala_ExtraTurn 落在自己的倉可再走一次
func TestMancala_ExtraTurn(t *testing.T) {
	g := game.NewMancala(4)

	// 坑 2 有 4 顆：3,4,5,6（倉）
	res, err := g.Sow(game.First, 2)
	require.NoError(t, err)
	assert.Equal(t, game.StoreA, res.Landing)
	assert.True(t, res.ExtraTurn)
	assert.Equal(t, game.First, g.Turn)
	assert.Equal(t, 1, g.Pits[game.StoreA])
	assert.Equal(t, 48, g.Total())

	res, err = g.Sow(game.First, 0)
	require.NoError(t, err)
	assert.False(t, res.ExtraTurn)
	assert.Equal(t, game.Second, g.Turn)
}

// TestMancala_Capture 從坑 2 播 3 顆落在原本為空的坑 5，收走對面坑 12
func TestMancala_Capture(t *testing.T) {
	g := game.NewMancala(4)
	g.Pits = [game.MancalaSlots]int{
		0, 0, 3, 0, 0, 0, 10, // A 方坑 + 倉
		4, 4, 4, 4, 4, 7, 8, // B 方坑 + 倉
	}
	total := g.Total()
	storeBefore := g.Pits[game.StoreA]
	n := g.Pits[12]

	res, err := g.Sow(game.First, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Landing)
	assert.Equal(t, n+1, res.Captured)
	assert.Equal(t, storeBefore+n+1, g.Pits[game.StoreA])
	assert.Zero(t, g.Pits[5])
	assert.Zero(t, g.Pits[12])
	assert.Equal(t, 1, g.Pits[3])
	assert.Equal(t, 1, g.Pits[4])
	assert.Equal(t, game.Second, g.Turn)
	assert.Equal(t, total, g.Total())
}

// TestMancala_NoCaptureWhenOppositeEmpty 對面為空不收子
func TestMancala_NoCaptureWhenOppositeEmpty(t *testing.T) {
	g := game.NewMancala(4)
	g.Pits = [game.MancalaSlots]int{
		0, 1, 0, 0, 0, 5, 10,
		4, 4, 0, 4, 4, 4, 12,
	}
	res, err := g.Sow(game.First, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Landing)
	assert.Zero(t, res.Captured)
	assert.Equal(t, 1, g.Pits[2])
	assert.Equal(t, 10, g.Pits[game.StoreA])
}

// TestMancala_SkipsOpponentStore 播種跳過對手的倉
func TestMancala_SkipsOpponentStore(t *testing.T) {
	g := game.NewMancala(4)
	g.Pits = [game.MancalaSlots]int{
		1, 1, 1, 1, 1, 10, 0,
		1, 1, 1, 1, 1, 1, 5,
	}
	total := g.Total()

	// 坑 5 有 10 顆：6、7..12 共 7 顆，跳過 13，再到 0、1、2
	res, err := g.Sow(game.First, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Landing)
	assert.Equal(t, 5, g.Pits[game.StoreB])
	assert.Equal(t, 1, g.Pits[game.StoreA])
	assert.Equal(t, 2, g.Pits[0])
	assert.Equal(t, 2, g.Pits[1])
	assert.Equal(t, 2, g.Pits[2])
	assert.Equal(t, total, g.Total())
}

// TestMancala_EndSweep 一方坑全空時掃盤並判定勝負
func TestMancala_EndSweep(t *testing.T) {
	g := game.NewMancala(4)
	g.Pits = [game.MancalaSlots]int{
		0, 0, 0, 0, 0, 1, 20,
		1, 2, 0, 0, 3, 0, 21,
	}
	total := g.Total()

	res, err := g.Sow(game.First, 5)
	require.NoError(t, err)
	require.True(t, res.Outcome.Over)
	assert.Equal(t, total, g.Total())
	for pit := 0; pit < game.MancalaSlots; pit++ {
		if pit != game.StoreA && pit != game.StoreB {
			assert.Zero(t, g.Pits[pit], "pit %d", pit)
		}
	}
	assert.Equal(t, 21, g.Pits[game.StoreA])
	assert.Equal(t, 27, g.Pits[game.StoreB])
	require.NotNil(t, res.Outcome.Winner)
	assert.Equal(t, game.Second, *res.Outcome.Winner)

	_, err = g.Sow(g.Turn, 7)
	assert.Same(t, apperrors.ErrGameOver, err)
}

// TestMancala_Tie 雙方倉數相同無勝者
func TestMancala_Tie(t *testing.T) {
	g := game.NewMancala(4)
	g.Pits = [game.MancalaSlots]int{
		0, 0, 0, 0, 0, 1, 23,
		0, 0, 0, 0, 0, 0, 24,
	}
	res, err := g.Sow(game.First, 5)
	require.NoError(t, err)
	assert.True(t, res.Outcome.Over)
	assert.True(t, res.Outcome.Draw)
	assert.Nil(t, res.Outcome.Winner)
}

// TestMancala_ConservationRandomPlay 隨機對局中石子總數恆定
func TestMancala_ConservationRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 200; round++ {
		g := game.NewMancala(4)
		for step := 0; step < 2000 && !g.Result.Over; step++ {
			var legal []int
			for pit := 0; pit < game.MancalaSlots; pit++ {
				if game.OwnsPit(g.Turn, pit) && g.Pits[pit] > 0 {
					legal = append(legal, pit)
				}
			}
			require.NotEmpty(t, legal, "進行中的局面必須有合法走步")

			_, err := g.Sow(g.Turn, legal[rng.IntN(len(legal))])
			require.NoError(t, err)
			require.Equal(t, 48, g.Total())
		}
		require.True(t, g.Result.Over)
	}
}
