// Package history 記錄每一局的結果。
//
// 結果在一局結束（分出勝負、平局或中途斷線放棄）時寫入。
// 未設定資料庫時使用 NopRecorder，結果直接丟棄。
package history

import (
	"context"
	"time"
)

// Reason 一局結束的原因
type Reason string

const (
	ReasonFinished  Reason = "finished"
	ReasonAbandoned Reason = "abandoned"
)

// MatchResult 一局的結果
type MatchResult struct {
	ID           int64     `json:"id"`
	RoomID       string    `json:"roomId"`
	Game         string    `json:"game"`
	FirstPlayer  string    `json:"firstPlayer"`
	SecondPlayer string    `json:"secondPlayer"`
	Winner       *int      `json:"winner"`
	Draw         bool      `json:"draw"`
	FirstScore   int       `json:"firstScore"`
	SecondScore  int       `json:"secondScore"`
	Reason       Reason    `json:"reason"`
	Moves        int       `json:"moves"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
}

// Recorder 對局紀錄存儲
type Recorder interface {
	Record(ctx context.Context, m MatchResult) error
	ListRecent(ctx context.Context, game string, limit int) ([]MatchResult, error)
}

// NopRecorder 不保存任何紀錄
type NopRecorder struct{}

// Record 實現 Recorder
func (NopRecorder) Record(context.Context, MatchResult) error { return nil }

// ListRecent 實現 Recorder，永遠返回空清單
func (NopRecorder) ListRecent(context.Context, string, int) ([]MatchResult, error) {
	return []MatchResult{}, nil
}

// 查詢筆數上下限
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ClampLimit 將查詢筆數限制在合理範圍
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
