package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

type board struct {
	info  model.LeaderboardInfo
	rows  map[string]*row
	order *node
}

func (b *board) put(r *row) {
	b.rows[r.entry.UserID] = r
	b.order = insert(b.order, r)
}

func (b *board) drop(r *row) {
	b.order = remove(b.order, r)
	delete(b.rows, r.entry.UserID)
}

// MemoryRepository is an in-process Repository. Each leaderboard keeps its
// entries in a treap so paging and rank materialisation follow rank order
// without sorting.
type MemoryRepository struct {
	mu     sync.RWMutex
	boards map[string]*board
	now    func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithMemoryClock replaces the time source used for entry creation times.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryRepository) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	m := &MemoryRepository{boards: make(map[string]*board), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, metrics.Since(start))
}

func (m *MemoryRepository) board(id string) (*board, error) {
	b, ok := m.boards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, nil
}

func (m *MemoryRepository) GetInfo(_ context.Context, id string) (model.LeaderboardInfo, error) {
	defer observe("get_info", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.board(id)
	if err != nil {
		return model.LeaderboardInfo{}, err
	}
	info := b.info
	info.EntryCount = int64(len(b.rows))
	return info, nil
}

func (m *MemoryRepository) List(_ context.Context, finalised bool, skip, take int) ([]model.LeaderboardInfo, int64, error) {
	defer observe("list", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []model.LeaderboardInfo
	for _, b := range m.boards {
		if b.info.Finalised != finalised {
			continue
		}
		info := b.info
		info.EntryCount = int64(len(b.rows))
		all = append(all, info)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreateTime.Equal(all[j].CreateTime) {
			return all[i].CreateTime.After(all[j].CreateTime)
		}
		return all[i].ID < all[j].ID
	})
	total := int64(len(all))
	skip = max(skip, 0)
	if skip >= len(all) {
		return []model.LeaderboardInfo{}, total, nil
	}
	end := len(all)
	if take > 0 {
		end = min(skip+take, len(all))
	}
	return all[skip:end], total, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string, skip, take int) ([]model.Entry, error) {
	defer observe("get", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.board(id)
	if err != nil {
		return nil, err
	}
	limit := take
	if limit <= 0 {
		limit = len(b.rows)
	}
	rows := make([]*row, 0, min(limit, len(b.rows)))
	collect(b.order, max(skip, 0), limit, &rows)
	out := make([]model.Entry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out, nil
}

func (m *MemoryRepository) Add(_ context.Context, info model.LeaderboardInfo) error {
	defer observe("add", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[info.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, info.ID)
	}
	info.EntryCount = 0
	m.boards[info.ID] = &board{info: info, rows: make(map[string]*row)}
	return nil
}

func (m *MemoryRepository) Remove(_ context.Context, id string) error {
	defer observe("remove", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.board(id); err != nil {
		return err
	}
	delete(m.boards, id)
	return nil
}

func (m *MemoryRepository) Reset(_ context.Context, id string, tieBreaker int64) error {
	defer observe("reset", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(id)
	if err != nil {
		return err
	}
	if b.info.Finalised {
		return fmt.Errorf("%w: %s", ErrAlreadyFinalised, id)
	}
	rows := make([]*row, 0, len(b.rows))
	for _, r := range b.rows {
		rows = append(rows, r)
	}
	for _, r := range rows {
		b.drop(r)
		r.entry.Points, r.entry.TieBreaker = 0, tieBreaker
		r.entry.RunningPoints, r.entry.RunningTieBreaker = 0, tieBreaker
		r.entry.Rank = 0
		b.put(r)
	}
	return nil
}

func (m *MemoryRepository) Finalise(_ context.Context, id string) error {
	defer observe("finalise", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(id)
	if err != nil {
		return err
	}
	if b.info.Finalised {
		return fmt.Errorf("%w: %s", ErrAlreadyFinalised, id)
	}
	b.info.Finalised = true
	return nil
}

func (m *MemoryRepository) UpdateRanks(_ context.Context, id string) error {
	defer observe("update_ranks", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(id)
	if err != nil {
		return err
	}
	var rank int64
	walk(b.order, func(r *row) {
		rank++
		r.entry.Rank = rank
	})
	return nil
}

func (m *MemoryRepository) SetPayoutTime(_ context.Context, id string, at time.Time) error {
	defer observe("set_payout_time", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(id)
	if err != nil {
		return err
	}
	if !b.info.Finalised {
		return fmt.Errorf("%w: %s", ErrNotFinalised, id)
	}
	if b.info.PayoutTime != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyPaid, id)
	}
	at = at.UTC()
	b.info.PayoutTime = &at
	return nil
}

func (m *MemoryRepository) AddEntries(_ context.Context, id string, entries []model.Entry) error {
	defer observe("add_entries", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(id)
	if err != nil {
		return err
	}
	now := m.now()
	for _, e := range entries {
		if _, ok := b.rows[e.UserID]; ok {
			continue
		}
		b.put(&row{entry: stored(e), created: now})
	}
	return nil
}

func (m *MemoryRepository) RemoveEntries(_ context.Context, id string, userIDs []string) error {
	defer observe("remove_entries", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(id)
	if err != nil {
		return err
	}
	for _, u := range userIDs {
		if r, ok := b.rows[u]; ok {
			b.drop(r)
		}
	}
	return nil
}

func (m *MemoryRepository) SaveEntries(_ context.Context, id string, entries []model.Entry) error {
	defer observe("save_entries", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(id)
	if err != nil {
		return err
	}
	now := m.now()
	for _, e := range entries {
		r, ok := b.rows[e.UserID]
		if !ok {
			b.put(&row{entry: stored(e), created: now})
			continue
		}
		b.drop(r)
		rank := r.entry.Rank
		r.entry = stored(e)
		r.entry.Rank = rank
		b.put(r)
	}
	return nil
}

// stored keeps only the columns the repository persists.
func stored(e model.Entry) model.Entry {
	return model.Entry{
		UserID:            e.UserID,
		Points:            e.Points,
		TieBreaker:        e.TieBreaker,
		RunningPoints:     e.RunningPoints,
		RunningTieBreaker: e.RunningTieBreaker,
	}
}
