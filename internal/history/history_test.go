package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-game-rooms/internal/history"
	"github.com/koopa0/system-design/14-game-rooms/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClampLimit 測試查詢筆數限制
func TestClampLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, history.DefaultLimit},
		{"negative uses default", -5, history.DefaultLimit},
		{"within range", 7, 7},
		{"capped", 1000, history.MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, history.ClampLimit(tt.limit))
		})
	}
}

// TestNopRecorder 不保存任何紀錄
func TestNopRecorder(t *testing.T) {
	var r history.Recorder = history.NopRecorder{}
	require.NoError(t, r.Record(context.Background(), history.MatchResult{RoomID: "r1"}))

	list, err := r.ListRecent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// TestPostgresRecorder 使用真實 PostgreSQL 容器
func TestPostgresRecorder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := testutils.SetupPostgres(t)
	rec := history.NewPostgresRecorder(env.PostgresPool)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	winner := 0
	matches := []history.MatchResult{
		{
			RoomID: "ttt-1", Game: "tictactoe", FirstPlayer: "c1", SecondPlayer: "c2",
			Winner: &winner, Reason: history.ReasonFinished, Moves: 5,
			StartedAt: base, EndedAt: base.Add(time.Minute),
		},
		{
			RoomID: "wh-1", Game: "wordhunt", FirstPlayer: "c3", SecondPlayer: "c4",
			Draw: true, FirstScore: 12, SecondScore: 12, Reason: history.ReasonFinished,
			StartedAt: base, EndedAt: base.Add(3 * time.Minute),
		},
		{
			RoomID: "ttt-2", Game: "tictactoe", FirstPlayer: "c5", SecondPlayer: "c6",
			Reason: history.ReasonAbandoned, Moves: 2,
			StartedAt: base, EndedAt: base.Add(2 * time.Minute),
		},
	}
	for _, m := range matches {
		require.NoError(t, rec.Record(ctx, m))
	}

	all, err := rec.ListRecent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "wh-1", all[0].RoomID)
	assert.True(t, all[0].Draw)
	assert.Equal(t, 12, all[0].FirstScore)
	assert.Nil(t, all[0].Winner)

	ttt, err := rec.ListRecent(ctx, "tictactoe", 10)
	require.NoError(t, err)
	require.Len(t, ttt, 2)
	assert.Equal(t, "ttt-2", ttt[0].RoomID)
	assert.Equal(t, history.ReasonAbandoned, ttt[0].Reason)
	require.NotNil(t, ttt[1].Winner)
	assert.Equal(t, 0, *ttt[1].Winner)
	assert.Equal(t, 5, ttt[1].Moves)
	assert.True(t, ttt[1].EndedAt.Equal(base.Add(time.Minute)))

	one, err := rec.ListRecent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	env.TruncateMatches(t)
	none, err := rec.ListRecent(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestMigrate_Idempotent 重複套用不報錯
func TestMigrate_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := testutils.SetupPostgres(t)
	assert.NoError(t, history.Migrate(env.PostgresDSN, env.Logger))
}
