// Package errors 提供遊戲房間服務的錯誤定義
package errors

import (
	"errors"
	"fmt"
)

// 錯誤碼
const (
	// ErrCodeInvalidMove 非法走步（目標已佔用、超出範圍、空坑）
	ErrCodeInvalidMove = "INVALID_MOVE"
	// ErrCodeNotYourTurn 不是該玩家的回合
	ErrCodeNotYourTurn = "NOT_YOUR_TURN"
	// ErrCodeGameOver 遊戲已結束
	ErrCodeGameOver = "GAME_OVER"
	// ErrCodeRoomNotFound 房間不存在
	ErrCodeRoomNotFound = "ROOM_NOT_FOUND"
	// ErrCodeRoomFull 房間已滿
	ErrCodeRoomFull = "ROOM_FULL"
	// ErrCodeWordRejected 單字被拒絕
	ErrCodeWordRejected = "WORD_REJECTED"
	// ErrCodeDuplicateWord 單字已被任一玩家提交
	ErrCodeDuplicateWord = "DUPLICATE_WORD"
	// ErrCodeDictionaryUnavailable 字典服務不可用
	ErrCodeDictionaryUnavailable = "DICTIONARY_UNAVAILABLE"
	// ErrCodeInvalidInput 無效輸入
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeInternal 內部錯誤
	ErrCodeInternal = "INTERNAL_ERROR"
)

// AppError 應用程式錯誤
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error 實現 error 介面
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 實現 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 以錯誤碼比對，讓 errors.Is 可以匹配同類錯誤
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 創建新的應用程式錯誤
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包裝錯誤
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails 返回帶有詳細資訊的副本，不修改預定義錯誤
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// 預定義錯誤
var (
	ErrNotYourTurn   = New(ErrCodeNotYourTurn, "not your turn")
	ErrOutOfRange    = New(ErrCodeInvalidMove, "target out of range")
	ErrOccupied      = New(ErrCodeInvalidMove, "cell already occupied")
	ErrColumnFull    = New(ErrCodeInvalidMove, "column is full")
	ErrEmptyPit      = New(ErrCodeInvalidMove, "pit is empty")
	ErrNotOwnPit     = New(ErrCodeInvalidMove, "pit does not belong to player")
	ErrFlipPending   = New(ErrCodeInvalidMove, "two cards already pending")
	ErrCardTaken     = New(ErrCodeInvalidMove, "card is face up or matched")
	ErrNoPendingPair = New(ErrCodeInvalidMove, "no mismatched pair pending")
	ErrGameOver      = New(ErrCodeGameOver, "game is over")
	ErrRoomNotFound  = New(ErrCodeRoomNotFound, "room not found")
	ErrRoomFull      = New(ErrCodeRoomFull, "room is full")
	ErrNotSeated     = New(ErrCodeInvalidInput, "connection is not seated in room")
	ErrNotStarted    = New(ErrCodeInvalidMove, "game has not started")
	ErrInProgress    = New(ErrCodeInvalidMove, "game still in progress")
	ErrUnknownGame   = New(ErrCodeInvalidInput, "unknown game type")
	ErrMissingTarget = New(ErrCodeInvalidInput, "move target missing")

	ErrWordTooShort   = New(ErrCodeWordRejected, "word too short")
	ErrWordNotOnBoard = New(ErrCodeWordRejected, "word cannot be traced on board")
	ErrNotAWord       = New(ErrCodeWordRejected, "not a dictionary word")
	ErrDuplicateWord  = New(ErrCodeDuplicateWord, "word already claimed")

	ErrDictionaryUnavailable = New(ErrCodeDictionaryUnavailable, "dictionary lookup failed")
)

// IsInvalidMove 檢查是否為可靜默忽略的走步錯誤
func IsInvalidMove(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrCodeInvalidMove, ErrCodeNotYourTurn, ErrCodeGameOver:
			return true
		}
	}
	return false
}

// IsNotFound 檢查是否為房間不存在錯誤
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeRoomNotFound
	}
	return false
}

// IsWordRejected 檢查是否為單字拒絕類錯誤（包含重複與字典不可用）
func IsWordRejected(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrCodeWordRejected, ErrCodeDuplicateWord, ErrCodeDictionaryUnavailable:
			return true
		}
	}
	return false
}

// CodeOf 返回錯誤碼，非 AppError 時返回 INTERNAL_ERROR
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}
