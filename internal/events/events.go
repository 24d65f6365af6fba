// Package events 發布房間生命週期事件。
//
// Subject 格式：<prefix>.<game>.<kind>，例如 games.connect4.finished。
// 發布是盡力而為：失敗只記錄日誌，不影響遊戲流程。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Kind 事件種類
type Kind string

const (
	Started   Kind = "started"
	Finished  Kind = "finished"
	Abandoned Kind = "abandoned"
)

// Event 房間生命週期事件
type Event struct {
	Kind      Kind      `json:"kind"`
	Game      string    `json:"game"`
	RoomID    string    `json:"roomId"`
	Players   []string  `json:"players"`
	Winner    *int      `json:"winner,omitempty"`
	Draw      bool      `json:"draw,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher 事件發布器
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NopPublisher 丟棄所有事件
type NopPublisher struct{}

// Publish 實現 Publisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close 實現 Publisher
func (NopPublisher) Close() {}

// Conn NATSPublisher 需要的連線操作
type Conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher 將事件以 JSON 發布到 NATS
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// Connect 連線到 NATS 並建立發布器
func Connect(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("game-rooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATSPublisher(conn, prefix), nil
}

// NewNATSPublisher 以既有連線建立發布器，prefix 為空時使用 "games"
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "games"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject 事件對應的 subject
func (p *NATSPublisher) Subject(e Event) string {
	return p.prefix + "." + e.Game + "." + string(e.Kind)
}

// Publish 實現 Publisher
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(e), data); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject(e), err)
	}
	return nil
}

// Close 送出緩衝中的訊息後關閉連線
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}
