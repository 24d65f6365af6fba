package game

import (
	"fmt"
	"math/rand/v2"
)

// ClassicDice 4×4 盤面的 16 顆字母骰
var ClassicDice = []string{
	"AAEEGN", "ABBJOO", "ACHOPS", "AFFKPS",
	"AOOTTW", "CIMOTU", "DEILRX", "DELRVY",
	"DISTTY", "EEGHNW", "EEINSU", "EHRTVW",
	"EIOSST", "ELRTTY", "HIMNQU", "HLNNRZ",
}

// BigDice 5×5 盤面的 25 顆字母骰
var BigDice = []string{
	"AAAFRS", "AAEEEE", "AAFIRS", "ADENNN", "AEEEEM",
	"AEEGMU", "AEGMNN", "AFIRSY", "BJKQXZ", "CCNSTW",
	"CEIILT", "CEILPT", "CEIPST", "DDLNOR", "DHHLOR",
	"DHHNOT", "DHLNOR", "EIIITT", "EMOTTT", "ENSSSU",
	"FIPRSY", "GORRVW", "HIPRRY", "NOOTUW", "OOOTTU",
}

// faceTiles 骰面到多字母牌的對應（大小寫敏感）
var faceTiles = map[byte]string{
	'Q': "Qu",
}

// RollGrid 洗亂骰子位置，每顆骰子隨機取一面作為可見字母
func RollGrid(size int, rng *rand.Rand) ([][]string, error) {
	var dice []string
	switch size {
	case 4:
		dice = ClassicDice
	case 5:
		dice = BigDice
	default:
		return nil, fmt.Errorf("unsupported board size %d", size)
	}

	order := rng.Perm(len(dice))
	grid := make([][]string, size)
	for row := range grid {
		grid[row] = make([]string, size)
		for col := range grid[row] {
			die := dice[order[row*size+col]]
			face := die[rng.IntN(len(die))]
			if tile, ok := faceTiles[face]; ok {
				grid[row][col] = tile
			} else {
				grid[row][col] = string(face)
			}
		}
	}
	return grid, nil
}
