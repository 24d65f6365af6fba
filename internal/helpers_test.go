package internal_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/koopa0/system-design/14-game-rooms/internal"
	"github.com/koopa0/system-design/14-game-rooms/internal/events"
	"github.com/koopa0/system-design/14-game-rooms/internal/history"
	"github.com/koopa0/system-design/14-game-rooms/pkg/logger"
	"github.com/stretchr/testify/require"
)

// received 一則客戶端視角的訊息（data 已經過 JSON 來回）
type received struct {
	Event string
	Data  map[string]any
}

// fakePeer 記錄收到的所有訊息
type fakePeer struct {
	id       string
	identity string

	mu   sync.Mutex
	msgs []received
}

func newPeer(id string) *fakePeer {
	return &fakePeer{id: id, identity: id}
}

func (p *fakePeer) ID() string       { return p.id }
func (p *fakePeer) Identity() string { return p.identity }

func (p *fakePeer) Send(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, received{Event: event, Data: m})
}

// last 最後一則指定事件
func (p *fakePeer) last(event string) (map[string]any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.msgs) - 1; i >= 0; i-- {
		if p.msgs[i].Event == event {
			return p.msgs[i].Data, true
		}
	}
	return nil, false
}

func (p *fakePeer) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

func (p *fakePeer) has(event string) bool {
	return p.count(event) > 0
}

// fakeRecorder 記錄寫入的對局結果
type fakeRecorder struct {
	mu      sync.Mutex
	results []history.MatchResult
}

func (r *fakeRecorder) Record(_ context.Context, m history.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, m)
	return nil
}

func (r *fakeRecorder) ListRecent(_ context.Context, game string, limit int) ([]history.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []history.MatchResult{}
	for i := len(r.results) - 1; i >= 0 && len(out) < limit; i-- {
		if game == "" || r.results[i].Game == game {
			out = append(out, r.results[i])
		}
	}
	return out, nil
}

func (r *fakeRecorder) all() []history.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.MatchResult(nil), r.results...)
}

// fakePublisher 記錄發布的事件種類
type fakePublisher struct {
	mu    sync.Mutex
	kinds []events.Kind
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, e.Kind)
	return nil
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) published() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Kind(nil), p.kinds...)
}

func discardLogger() *slog.Logger {
	return logger.Discard()
}

// seededRand 每個房間使用相同種子，讓牌組與盤面可預測
func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func newTestCoordinator(t *testing.T, mutate func(*internal.GamesConfig), deps internal.Dependencies) *internal.Coordinator {
	t.Helper()
	cfg := internal.DefaultConfig().Games
	if mutate != nil {
		mutate(&cfg)
	}
	if deps.Rand == nil {
		deps.Rand = seededRand
	}
	c := internal.NewCoordinator(internal.NewRegistry(logger.Discard()), cfg, deps, logger.Discard())
	t.Cleanup(c.Shutdown)
	return c
}

// seatPair 讓兩個連線加入同一局並返回房間 ID
func seatPair(t *testing.T, c *internal.Coordinator, game internal.GameType, a, b *fakePeer) string {
	t.Helper()
	ctx := context.Background()
	first, err := c.Join(ctx, game, a)
	require.NoError(t, err)
	second, err := c.Join(ctx, game, b)
	require.NoError(t, err)
	require.Equal(t, first.RoomID, second.RoomID)
	return first.RoomID
}
