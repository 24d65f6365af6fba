package internal

import "strings"

// GameType 遊戲種類，同時是房間註冊表的命名空間
type GameType string

const (
	TicTacToe GameType = "tictactoe"
	Connect4  GameType = "connect4"
	Mancala   GameType = "mancala"
	WordHunt  GameType = "wordhunt"
	Memory    GameType = "memory"
)

// AllGames 所有遊戲（固定順序，用於統計輸出）
var AllGames = []GameType{TicTacToe, Connect4, Mancala, WordHunt, Memory}

// GameSpec 遊戲的角色名稱與事件名稱
//
// Rematch 為 false 的遊戲在終局廣播後立即刪除房間；
// 為 true 的遊戲保留房間，等待雙方都要求再戰。
type GameSpec struct {
	Type  GameType
	Roles [2]string

	JoinEvent       string
	AssignedEvent   string
	StartEvent      string
	UpdateEvent     string
	OverEvent       string
	DisconnectEvent string

	Rematch              bool
	RematchEvent         string
	OpponentRematchEvent string
}

var gameSpecs = map[GameType]GameSpec{
	TicTacToe: {
		Type:            TicTacToe,
		Roles:           [2]string{"X", "O"},
		JoinEvent:       EventJoinTicTacToe,
		AssignedEvent:   EventPlayerAssigned,
		StartEvent:      EventGameStart,
		UpdateEvent:     EventGameUpdate,
		OverEvent:       EventGameOver,
		DisconnectEvent: EventPlayerDisconnected,
	},
	Connect4: {
		Type:                 Connect4,
		Roles:                [2]string{"red", "yellow"},
		JoinEvent:            EventJoinConnect4,
		AssignedEvent:        EventPlayerAssigned,
		StartEvent:           EventGameStart,
		UpdateEvent:          EventGameUpdate,
		OverEvent:            EventGameOver,
		DisconnectEvent:      EventPlayerDisconnected,
		Rematch:              true,
		RematchEvent:         EventRequestNewConnect4Game,
		OpponentRematchEvent: EventOpponentWantsRematch,
	},
	Mancala: {
		Type:            Mancala,
		Roles:           [2]string{"A", "B"},
		JoinEvent:       EventJoinGame,
		AssignedEvent:   EventGameJoined,
		StartEvent:      EventGameStart,
		UpdateEvent:     EventGameState,
		OverEvent:       EventGameOver,
		DisconnectEvent: EventPlayerDisconnected,
	},
	WordHunt: {
		Type:                 WordHunt,
		Roles:                [2]string{"1", "2"},
		JoinEvent:            EventJoinWordHunt,
		AssignedEvent:        EventPlayerAssigned,
		StartEvent:           EventGameStart,
		OverEvent:            EventGameOver,
		DisconnectEvent:      EventPlayerDisconnected,
		Rematch:              true,
		RematchEvent:         EventRequestNewGame,
		OpponentRematchEvent: EventOpponentWantsRematch,
	},
	Memory: {
		Type:                 Memory,
		Roles:                [2]string{"1", "2"},
		JoinEvent:            EventJoinMemoryGame,
		AssignedEvent:        EventMemoryPlayerAssigned,
		StartEvent:           EventMemoryGameStart,
		OverEvent:            EventMemoryGameOver,
		DisconnectEvent:      EventOpponentDisconnectedMemory,
		Rematch:              true,
		RematchEvent:         EventRequestNewMemoryGame,
		OpponentRematchEvent: EventOpponentWantsMemoryRematch,
	},
}

// SpecOf 查詢遊戲規格
func SpecOf(t GameType) (GameSpec, bool) {
	spec, ok := gameSpecs[t]
	return spec, ok
}

// ParseGameType 解析遊戲名稱（不分大小寫，接受 connect-four 等別名）
func ParseGameType(s string) (GameType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tictactoe", "tic-tac-toe":
		return TicTacToe, true
	case "connect4", "connect-four", "connectfour":
		return Connect4, true
	case "mancala":
		return Mancala, true
	case "wordhunt", "word-hunt":
		return WordHunt, true
	case "memory", "memory-match":
		return Memory, true
	default:
		return "", false
	}
}

// gameForJoinEvent 遊戲專屬的加入事件對應的遊戲
//
// joinGame 由多個遊戲共用，必須另外解析遊戲名稱，這裡不處理。
func gameForJoinEvent(event string) (GameType, bool) {
	if event == EventJoinGame {
		return "", false
	}
	for _, t := range AllGames {
		if gameSpecs[t].JoinEvent == event {
			return t, true
		}
	}
	return "", false
}

// gameForRematchEvent 再戰請求事件對應的遊戲
func gameForRematchEvent(event string) (GameType, bool) {
	for _, t := range AllGames {
		if spec := gameSpecs[t]; spec.Rematch && spec.RematchEvent == event {
			return t, true
		}
	}
	return "", false
}
