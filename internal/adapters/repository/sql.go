package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/podium/internal/domain/model"
)

// rankOrder is the ordering ranks are materialised under.
const rankOrder = "points DESC, tie_breaker DESC, user_id DESC, created_at ASC"

// SQLRepository is a Repository on bun. It runs on PostgreSQL and SQLite.
type SQLRepository struct {
	db  *bun.DB
	now func() time.Time
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository wraps an open bun database.
func NewSQLRepository(db *bun.DB) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

// DB exposes the underlying database for migrations.
func (r *SQLRepository) DB() *bun.DB { return r.db }

func (r *SQLRepository) GetInfo(ctx context.Context, id string) (model.LeaderboardInfo, error) {
	defer observe("get_info", time.Now())
	lb, err := r.leaderboard(ctx, r.db, id)
	if err != nil {
		return model.LeaderboardInfo{}, err
	}
	n, err := r.db.NewSelect().Model((*Entry)(nil)).Where("leaderboard_id = ?", id).Count(ctx)
	if err != nil {
		return model.LeaderboardInfo{}, fmt.Errorf("repository.GetInfo: %w", err)
	}
	return lb.info(int64(n)), nil
}

func (r *SQLRepository) leaderboard(ctx context.Context, db bun.IDB, id string) (*Leaderboard, error) {
	lb := new(Leaderboard)
	err := db.NewSelect().Model(lb).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: load %s: %w", id, err)
	}
	return lb, nil
}

func (r *SQLRepository) List(ctx context.Context, finalised bool, skip, take int) ([]model.LeaderboardInfo, int64, error) {
	defer observe("list", time.Now())
	var rows []Leaderboard
	q := r.db.NewSelect().Model(&rows).
		Where("finalised = ?", finalised).
		OrderExpr("create_time DESC, id ASC").
		Offset(max(skip, 0))
	if take > 0 {
		q = q.Limit(take)
	}
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.List: %w", err)
	}
	out := make([]model.LeaderboardInfo, 0, len(rows))
	if len(rows) == 0 {
		return out, int64(total), nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var counts []struct {
		LeaderboardID string `bun:"leaderboard_id"`
		N             int64  `bun:"n"`
	}
	if err := r.db.NewSelect().Model((*Entry)(nil)).
		Column("leaderboard_id").
		ColumnExpr("COUNT(*) AS n").
		Where("leaderboard_id IN (?)", bun.In(ids)).
		Group("leaderboard_id").
		Scan(ctx, &counts); err != nil {
		return nil, 0, fmt.Errorf("repository.List: %w", err)
	}
	byID := make(map[string]int64, len(counts))
	for _, c := range counts {
		byID[c.LeaderboardID] = c.N
	}
	for i := range rows {
		out = append(out, rows[i].info(byID[rows[i].ID]))
	}
	return out, int64(total), nil
}

func (r *SQLRepository) Get(ctx context.Context, id string, skip, take int) ([]model.Entry, error) {
	defer observe("get", time.Now())
	if _, err := r.leaderboard(ctx, r.db, id); err != nil {
		return nil, err
	}
	var rows []Entry
	q := r.db.NewSelect().Model(&rows).
		Where("leaderboard_id = ?", id).
		OrderExpr(rankOrder).
		Offset(max(skip, 0))
	if take > 0 {
		q = q.Limit(take)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("repository.Get: %w", err)
	}
	out := make([]model.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].entry()
	}
	return out, nil
}

func (r *SQLRepository) Add(ctx context.Context, info model.LeaderboardInfo) error {
	defer observe("add", time.Now())
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*Leaderboard)(nil)).Where("id = ?", info.ID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("repository.Add: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, info.ID)
		}
		if _, err := tx.NewInsert().Model(leaderboardRow(info)).Exec(ctx); err != nil {
			return fmt.Errorf("repository.Add: %w", err)
		}
		return nil
	})
}

func (r *SQLRepository) Remove(ctx context.Context, id string) error {
	defer observe("remove", time.Now())
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Entry)(nil)).Where("leaderboard_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("repository.Remove: %w", err)
		}
		res, err := tx.NewDelete().Model((*Leaderboard)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("repository.Remove: %w", err)
		}
		return affected(res, fmt.Errorf("%w: %s", ErrNotFound, id))
	})
}

func (r *SQLRepository) Reset(ctx context.Context, id string, tieBreaker int64) error {
	defer observe("reset", time.Now())
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		lb, err := r.leaderboard(ctx, tx, id)
		if err != nil {
			return err
		}
		if lb.Finalised {
			return fmt.Errorf("%w: %s", ErrAlreadyFinalised, id)
		}
		_, err = tx.NewUpdate().Model((*Entry)(nil)).
			Set("points = 0").
			Set("tie_breaker = ?", tieBreaker).
			Set("running_points = 0").
			Set("running_tie_breaker = ?", tieBreaker).
			Set("rank = 0").
			Where("leaderboard_id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("repository.Reset: %w", err)
		}
		return nil
	})
}

// Finalise flips the finalised flag with a guarded update so two callers
// cannot both succeed.
func (r *SQLRepository) Finalise(ctx context.Context, id string) error {
	defer observe("finalise", time.Now())
	res, err := r.db.NewUpdate().Model((*Leaderboard)(nil)).
		Set("finalised = ?", true).
		Where("id = ?", id).
		Where("finalised = ?", false).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repository.Finalise: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.leaderboard(ctx, r.db, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrAlreadyFinalised, id)
}

func (r *SQLRepository) UpdateRanks(ctx context.Context, id string) error {
	defer observe("update_ranks", time.Now())
	_, err := r.db.ExecContext(ctx, `
		UPDATE leaderboard_entries AS e
		SET rank = ranked.rn
		FROM (
			SELECT user_id, ROW_NUMBER() OVER (ORDER BY `+rankOrder+`) AS rn
			FROM leaderboard_entries
			WHERE leaderboard_id = ?
		) AS ranked
		WHERE e.leaderboard_id = ? AND e.user_id = ranked.user_id`, id, id)
	if err != nil {
		return fmt.Errorf("repository.UpdateRanks: %w", err)
	}
	return nil
}

func (r *SQLRepository) SetPayoutTime(ctx context.Context, id string, at time.Time) error {
	defer observe("set_payout_time", time.Now())
	at = at.UTC()
	res, err := r.db.NewUpdate().Model((*Leaderboard)(nil)).
		Set("payout_time = ?", at).
		Where("id = ?", id).
		Where("finalised = ?", true).
		Where("payout_time IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repository.SetPayoutTime: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	lb, err := r.leaderboard(ctx, r.db, id)
	if err != nil {
		return err
	}
	if !lb.Finalised {
		return fmt.Errorf("%w: %s", ErrNotFinalised, id)
	}
	return fmt.Errorf("%w: %s", ErrAlreadyPaid, id)
}

func (r *SQLRepository) AddEntries(ctx context.Context, id string, entries []model.Entry) error {
	defer observe("add_entries", time.Now())
	if len(entries) == 0 {
		return nil
	}
	rows := entryRows(id, entries, r.now().UTC())
	if _, err := r.db.NewInsert().Model(&rows).
		On("CONFLICT (leaderboard_id, user_id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("repository.AddEntries: %w", err)
	}
	return nil
}

func (r *SQLRepository) RemoveEntries(ctx context.Context, id string, userIDs []string) error {
	defer observe("remove_entries", time.Now())
	if len(userIDs) == 0 {
		return nil
	}
	if _, err := r.db.NewDelete().Model((*Entry)(nil)).
		Where("leaderboard_id = ?", id).
		Where("user_id IN (?)", bun.In(userIDs)).
		Exec(ctx); err != nil {
		return fmt.Errorf("repository.RemoveEntries: %w", err)
	}
	return nil
}

func (r *SQLRepository) SaveEntries(ctx context.Context, id string, entries []model.Entry) error {
	defer observe("save_entries", time.Now())
	if len(entries) == 0 {
		return nil
	}
	rows := entryRows(id, entries, r.now().UTC())
	if _, err := r.db.NewInsert().Model(&rows).
		On("CONFLICT (leaderboard_id, user_id) DO UPDATE").
		Set("points = EXCLUDED.points").
		Set("tie_breaker = EXCLUDED.tie_breaker").
		Set("running_points = EXCLUDED.running_points").
		Set("running_tie_breaker = EXCLUDED.running_tie_breaker").
		Exec(ctx); err != nil {
		return fmt.Errorf("repository.SaveEntries: %w", err)
	}
	return nil
}

func affected(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
