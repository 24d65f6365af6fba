package internal

import "encoding/json"

// Message 所有 WebSocket 訊息的外層格式：{"event": ..., "data": ...}
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// inbound 收到的訊息，data 延後依事件解析
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// 客戶端 → 伺服器
const (
	EventJoinTicTacToe  = "joinTicTacToe"
	EventJoinConnect4   = "joinConnect4"
	EventJoinWordHunt   = "joinWordHunt"
	EventJoinMemoryGame = "joinMemoryGame"
	EventJoinGame       = "joinGame"

	EventTicTacToeMove  = "tictactoeMove"
	EventMakeMove       = "makeMove"
	EventConnect4Move   = "connect4Move"
	EventSubmitWord     = "submitWord"
	EventMemoryFlipCard = "memoryFlipCard"

	EventRequestNewConnect4Game = "requestNewConnect4Game"
	EventRequestNewGame         = "requestNewGame"
	EventRequestNewMemoryGame   = "requestNewMemoryGame"

	EventLeaveGame = "leaveGame"
	EventPing      = "ping"
)

// 伺服器 → 客戶端
const (
	EventPlayerAssigned       = "playerAssigned"
	EventGameJoined           = "gameJoined"
	EventMemoryPlayerAssigned = "memoryPlayerAssigned"

	EventGameStart       = "gameStart"
	EventMemoryGameStart = "memoryGameStart"
	EventGameUpdate      = "gameUpdate"
	EventGameState       = "gameState"
	EventGameOver        = "gameOver"
	EventMemoryGameOver  = "memoryGameOver"

	EventWordAccepted = "wordAccepted"
	EventWordRejected = "wordRejected"

	EventMemoryPlayerRoles = "memoryPlayerRoles"
	EventMemoryCardFlipped = "memoryCardFlipped"
	EventMemoryMatchFound  = "memoryMatchFound"
	EventMemoryNoMatch     = "memoryNoMatch"
	EventMemoryTurnUpdate  = "memoryTurnUpdate"

	EventPlayerDisconnected         = "playerDisconnected"
	EventOpponentDisconnectedMemory = "opponentDisconnectedMemory"
	EventPlayerAway                 = "playerAway"

	EventOpponentWantsRematch       = "opponentWantsRematch"
	EventOpponentWantsMemoryRematch = "opponentWantsMemoryRematch"

	EventPong = "pong"
)

// 單字拒絕原因
const (
	RejectTooShort       = "too_short"
	RejectNotOnBoard     = "not_on_board"
	RejectDuplicate      = "duplicate"
	RejectNotAWord       = "not_a_word"
	RejectDictionaryDown = "dictionary_unavailable"
)

// 客戶端 payload；roomId 省略時以連線所在房間解析

type joinGameRequest struct {
	GameType string `json:"gameType"`
}

type moveRequest struct {
	RoomID   string `json:"roomId"`
	Position *int   `json:"position"`
	PitIndex *int   `json:"pitIndex"`
	Column   *int   `json:"column"`
}

type wordRequest struct {
	RoomID string `json:"roomId"`
	Word   string `json:"word"`
}

type flipRequest struct {
	RoomID string `json:"roomId"`
	CardID *int   `json:"cardId"`
}

type roomRequest struct {
	RoomID string `json:"roomId"`
}

// decodeStringOr 解析可能是裸字串或物件的 data
//
// joinGame 可送 "mancala" 或 {"gameType":"mancala"}；submitWord 可送 "cat" 或 {"word":"cat"}。
func decodeStringOr(raw json.RawMessage, obj any) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return "", json.Unmarshal(raw, obj)
}
