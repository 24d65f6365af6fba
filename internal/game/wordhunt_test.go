package game_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/koopa0/system-design/14-game-rooms/internal/game"
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid() [][]string {
	return [][]string{
		{"C", "A", "T", "S"},
		{"O", "R", "E", "Qu"},
		{"D", "O", "G", "I"},
		{"X", "Y", "Z", "T"},
	}
}

// TestWordPoints 測試長度分數表
func TestWordPoints(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"at", 0},
		{"cat", 1},
		{"cats", 1},
		{"cores", 2},
		{"corset", 3},
		{"catered", 5},
		{"abcdefgh", 11},
		{"abcdefghijkl", 11},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, game.WordPoints(tt.word))
		})
	}
}

// TestNormalizeWord 測試單字正規化
func TestNormalizeWord(t *testing.T) {
	w, ok := game.NormalizeWord("  CaTs ")
	assert.True(t, ok)
	assert.Equal(t, "cats", w)

	_, ok = game.NormalizeWord("don't")
	assert.False(t, ok)

	_, ok = game.NormalizeWord("")
	assert.False(t, ok)
}

// TestWordHunt_ClaimIsGloballyUnique 同一單字只計一次分
func TestWordHunt_ClaimIsGloballyUnique(t *testing.T) {
	w := game.NewWordHunt(testGrid())

	require.NoError(t, w.Claim(game.First, "cat"))
	assert.Same(t, apperrors.ErrDuplicateWord, w.Claim(game.Second, "cat"))
	assert.Same(t, apperrors.ErrDuplicateWord, w.Claim(game.First, "cat"))

	assert.Equal(t, 1, w.Score(game.First)+w.Score(game.Second))
	owner, ok := w.Claimed("cat")
	require.True(t, ok)
	assert.Equal(t, game.First, owner)
}

// TestWordHunt_ScoreFromLedger 分數由帳本重新計算
func TestWordHunt_ScoreFromLedger(t *testing.T) {
	w := game.NewWordHunt(testGrid())
	require.NoError(t, w.Claim(game.First, "cat"))
	require.NoError(t, w.Claim(game.First, "cores"))
	require.NoError(t, w.Claim(game.Second, "dog"))

	assert.Equal(t, []string{"cat", "cores"}, w.Words(game.First))
	assert.Equal(t, []string{"dog"}, w.Words(game.Second))
	assert.Equal(t, 3, w.Score(game.First))
	assert.Equal(t, 1, w.Score(game.Second))
	assert.Equal(t, []string{"cat", "cores", "dog"}, w.Accepted())

	out := w.Finish()
	require.NotNil(t, out.Winner)
	assert.Equal(t, game.First, *out.Winner)
	assert.True(t, w.Over())
	assert.Same(t, apperrors.ErrGameOver, w.Claim(game.Second, "rot"))
}

// TestWordHunt_CanTrace 測試盤面路徑檢查
func TestWordHunt_CanTrace(t *testing.T) {
	w := game.NewWordHunt(testGrid())

	tests := []struct {
		word string
		want bool
	}{
		{"cat", true},
		{"cats", true},
		{"core", true},
		{"dog", true},
		{"rot", false}, // O 與 T 不相鄰
		{"tat", false}, // 同一格不能重複使用
		{"quit", true}, // Qu 佔兩個字母
		{"qit", false}, // Q 後面必須接 u
		{"cod", true},   // 直向相鄰
		{"ego", true},
		{"zzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, w.CanTrace(tt.word))
		})
	}
}

// TestRollGrid 測試骰子盤面產生
func TestRollGrid(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, size := range []int{4, 5} {
		grid, err := game.RollGrid(size, rng)
		require.NoError(t, err)
		require.Len(t, grid, size)
		for _, row := range grid {
			require.Len(t, row, size)
			for _, tile := range row {
				if strings.HasPrefix(tile, "Q") {
					assert.Equal(t, "Qu", tile)
				} else {
					assert.Len(t, tile, 1)
				}
			}
		}
	}

	_, err := game.RollGrid(6, rng)
	assert.Error(t, err)
}

// TestRollGrid_FacesComeFromDice 每格字母都來自不同的骰子
func TestRollGrid_FacesComeFromDice(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	grid, err := game.RollGrid(4, rng)
	require.NoError(t, err)

	used := make([]bool, len(game.ClassicDice))
	var assign func(cells []string, i int) bool
	assign = func(cells []string, i int) bool {
		if i == len(cells) {
			return true
		}
		face := cells[i][:1]
		for d, die := range game.ClassicDice {
			if !used[d] && strings.Contains(die, face) {
				used[d] = true
				if assign(cells, i+1) {
					return true
				}
				used[d] = false
			}
		}
		return false
	}

	var cells []string
	for _, row := range grid {
		cells = append(cells, row...)
	}
	assert.True(t, assign(cells, 0), "盤面必須能對應到 16 顆骰子各一面")
}
