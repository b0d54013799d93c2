package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		ts, js := columnTypes(db)
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS leaderboards (
					id TEXT PRIMARY KEY,
					type TEXT NOT NULL,
					point_config ` + js + `,
					prizes ` + js + `,
					finalised BOOLEAN NOT NULL DEFAULT FALSE,
					create_time ` + ts + ` NOT NULL,
					payout_time ` + ts + `
				)`,
				`CREATE INDEX IF NOT EXISTS leaderboards_finalised_create_time_idx
					ON leaderboards (finalised, create_time DESC)`,
				`CREATE TABLE IF NOT EXISTS leaderboard_entries (
					leaderboard_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					points BIGINT NOT NULL DEFAULT 0,
					tie_breaker BIGINT NOT NULL DEFAULT 0,
					running_points BIGINT NOT NULL DEFAULT 0,
					running_tie_breaker BIGINT NOT NULL DEFAULT 0,
					rank BIGINT NOT NULL DEFAULT 0,
					created_at ` + ts + ` NOT NULL,
					PRIMARY KEY (leaderboard_id, user_id)
				)`,
				`CREATE INDEX IF NOT EXISTS leaderboard_entries_rank_order_idx
					ON leaderboard_entries (leaderboard_id, points DESC, tie_breaker DESC, user_id DESC)`,
			}
			for _, s := range stmts {
				if _, err := tx.ExecContext(ctx, s); err != nil {
					return fmt.Errorf("create leaderboard schema: %w", err)
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, s := range []string{
				`DROP TABLE IF EXISTS leaderboard_entries`,
				`DROP TABLE IF EXISTS leaderboards`,
			} {
				if _, err := tx.ExecContext(ctx, s); err != nil {
					return fmt.Errorf("drop leaderboard schema: %w", err)
				}
			}
			return nil
		})
	})
}
