package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder 以 PostgreSQL 保存對局紀錄
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder 建立紀錄器，資料表需先由 Migrate 建立
func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

// Record 實現 Recorder
func (r *PostgresRecorder) Record(ctx context.Context, m MatchResult) error {
	query := `
		INSERT INTO matches (
			room_id, game, first_player, second_player, winner, draw,
			first_score, second_score, reason, moves, started_at, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		m.RoomID, m.Game, m.FirstPlayer, m.SecondPlayer, m.Winner, m.Draw,
		m.FirstScore, m.SecondScore, string(m.Reason), m.Moves, m.StartedAt, m.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", m.RoomID, err)
	}
	return nil
}

// ListRecent 實現 Recorder；game 為空時列出所有遊戲
func (r *PostgresRecorder) ListRecent(ctx context.Context, game string, limit int) ([]MatchResult, error) {
	query := `
		SELECT id, room_id, game, first_player, second_player, winner, draw,
		       first_score, second_score, reason, moves, started_at, ended_at
		FROM matches
		WHERE ($1 = '' OR game = $1)
		ORDER BY ended_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, game, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MatchResult, error) {
		var (
			m      MatchResult
			winner *int16
			reason string
		)
		err := row.Scan(
			&m.ID, &m.RoomID, &m.Game, &m.FirstPlayer, &m.SecondPlayer, &winner, &m.Draw,
			&m.FirstScore, &m.SecondScore, &reason, &m.Moves, &m.StartedAt, &m.EndedAt,
		)
		if winner != nil {
			w := int(*winner)
			m.Winner = &w
		}
		m.Reason = Reason(reason)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan matches: %w", err)
	}
	return results, nil
}
