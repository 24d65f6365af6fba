package game

import (
	"sort"
	"strings"

	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// MinWordLength 最短可計分單字長度
const MinWordLength = 3

// wordPoints 長度對應分數，8 個字母以上一律以 8 計
var wordPoints = map[int]int{
	3: 1,
	4: 1,
	5: 2,
	6: 3,
	7: 5,
	8: 11,
}

const maxPointTier = 8

// WordPoints 單字分數
func WordPoints(word string) int {
	n := len(word)
	if n < MinWordLength {
		return 0
	}
	if n > maxPointTier {
		n = maxPointTier
	}
	return wordPoints[n]
}

// ScoreWords 單字集合的總分
func ScoreWords(words []string) int {
	total := 0
	for _, w := range words {
		total += WordPoints(w)
	}
	return total
}

// NormalizeWord 轉為小寫並確認只含 ASCII 字母
func NormalizeWord(raw string) (string, bool) {
	word := strings.ToLower(strings.TrimSpace(raw))
	if word == "" {
		return "", false
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return "", false
		}
	}
	return word, true
}

// WordHunt 找字遊戲的一局：固定盤面加上全域單字帳本
type WordHunt struct {
	Grid [][]string

	claims map[string]Seat
	order  []string
	over   bool
}

// NewWordHunt 以指定盤面建立一局
func NewWordHunt(grid [][]string) *WordHunt {
	return &WordHunt{
		Grid:   grid,
		claims: make(map[string]Seat),
	}
}

// Claimed 查詢單字是否已被記錄
func (w *WordHunt) Claimed(word string) (Seat, bool) {
	s, ok := w.claims[word]
	return s, ok
}

// Claim 記錄單字歸屬；已被任一玩家記錄則拒絕
//
// 字典查詢期間不持有鎖，因此唯一性必須在記錄時再次檢查。
func (w *WordHunt) Claim(s Seat, word string) error {
	if w.over {
		return apperrors.ErrGameOver
	}
	if !s.Valid() {
		return apperrors.ErrNotSeated
	}
	if _, taken := w.claims[word]; taken {
		return apperrors.ErrDuplicateWord
	}
	w.claims[word] = s
	w.order = append(w.order, word)
	return nil
}

// Words 座位已取得的單字（字母序）
func (w *WordHunt) Words(s Seat) []string {
	words := make([]string, 0, len(w.claims))
	for word, owner := range w.claims {
		if owner == s {
			words = append(words, word)
		}
	}
	sort.Strings(words)
	return words
}

// Score 由帳本重新計算座位分數
func (w *WordHunt) Score(s Seat) int {
	return ScoreWords(w.Words(s))
}

// Finish 結束本局，之後不再接受單字
func (w *WordHunt) Finish() Outcome {
	w.over = true
	return byScore(w.Score(First), w.Score(Second))
}

// Over 是否已結束
func (w *WordHunt) Over() bool {
	return w.over
}

// Accepted 依接受順序返回所有單字
func (w *WordHunt) Accepted() []string {
	return append([]string(nil), w.order...)
}

// CanTrace 檢查單字能否沿相鄰（含斜向）且不重複的格子拼出
func (w *WordHunt) CanTrace(word string) bool {
	size := len(w.Grid)
	if size == 0 {
		return false
	}
	visited := make([][]bool, size)
	for i := range visited {
		visited[i] = make([]bool, len(w.Grid[i]))
	}

	var walk func(row, col int, rest string) bool
	walk = func(row, col int, rest string) bool {
		tile := strings.ToLower(w.Grid[row][col])
		if !strings.HasPrefix(rest, tile) {
			return false
		}
		rest = rest[len(tile):]
		if rest == "" {
			return true
		}
		visited[row][col] = true
		defer func() { visited[row][col] = false }()
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				r, c := row+dr, col+dc
				if (dr == 0 && dc == 0) || r < 0 || r >= size || c < 0 || c >= len(w.Grid[r]) || visited[r][c] {
					continue
				}
				if walk(r, c, rest) {
					return true
				}
			}
		}
		return false
	}

	for row := range w.Grid {
		for col := range w.Grid[row] {
			if walk(row, col, word) {
				return true
			}
		}
	}
	return false
}
