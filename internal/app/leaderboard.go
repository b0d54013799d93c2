package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/score"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// AddLeaderboard validates and creates a leaderboard, then caches and
// indexes it as active.
func (s *Service) AddLeaderboard(ctx context.Context, nl model.NewLeaderboard) (model.LeaderboardInfo, error) {
	if nl.Type == "" {
		return model.LeaderboardInfo{}, invalid("leaderboard type is required")
	}
	if nl.PointConfig != nil {
		if err := nl.PointConfig.Validate(); err != nil {
			return model.LeaderboardInfo{}, classify("AddLeaderboard", err)
		}
	}
	for _, band := range nl.Prizes {
		if err := band.Validate(); err != nil {
			return model.LeaderboardInfo{}, classify("AddLeaderboard", err)
		}
	}
	if err := overlapping(nl.Prizes); err != nil {
		return model.LeaderboardInfo{}, err
	}

	id := nl.ID
	if id == "" {
		id = uuid.NewString()
	}
	info := model.LeaderboardInfo{
		ID:          id,
		Type:        nl.Type,
		PointConfig: nl.PointConfig,
		Prizes:      nl.Prizes,
		CreateTime:  s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.Add(ctx, info); err != nil {
		return model.LeaderboardInfo{}, classify("AddLeaderboard", err)
	}
	if err := s.ranking.Store(ctx, info); err != nil {
		return model.LeaderboardInfo{}, classify("AddLeaderboard", err)
	}
	if err := s.ranking.AddToIndex(ctx, id, info.CreateTime); err != nil {
		return model.LeaderboardInfo{}, classify("AddLeaderboard", err)
	}
	s.logger.Info(ctx, "leaderboard created", logger.String("leaderboard_id", id), logger.String("type", info.Type))
	return info, nil
}

func overlapping(bands []model.PrizeBand) error {
	for i := range bands {
		for j := i + 1; j < len(bands); j++ {
			a, b := bands[i], bands[j]
			if a.MinRank <= b.MaxRank && b.MinRank <= a.MaxRank {
				return invalid("prize bands [%d, %d] and [%d, %d] overlap", a.MinRank, a.MaxRank, b.MinRank, b.MaxRank)
			}
		}
	}
	return nil
}

// RemoveLeaderboard deletes a leaderboard everywhere.
func (s *Service) RemoveLeaderboard(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, id); err != nil {
		return classify("RemoveLeaderboard", err)
	}
	if err := s.ranking.Purge(ctx, id); err != nil {
		return classify("RemoveLeaderboard", err)
	}
	return nil
}

// ResetLeaderboard zeroes every entry's scores and progress.
func (s *Service) ResetLeaderboard(ctx context.Context, id string) error {
	if _, err := s.live(ctx, id); err != nil {
		return classify("ResetLeaderboard", err)
	}
	tb := score.TieBreaker(s.now())
	if err := s.repo.Reset(ctx, id, tb); err != nil {
		return classify("ResetLeaderboard", err)
	}
	if err := s.ranking.ResetEntries(ctx, id, tb); err != nil {
		return classify("ResetLeaderboard", err)
	}
	return nil
}

// GetLeaderboard returns a leaderboard's metadata and entry count.
func (s *Service) GetLeaderboard(ctx context.Context, id string) (model.LeaderboardInfo, error) {
	info, _, err := s.info(ctx, id)
	if err != nil {
		return model.LeaderboardInfo{}, classify("GetLeaderboard", err)
	}
	return info, nil
}

// GetActive pages the active leaderboards. Pages are 1-based.
func (s *Service) GetActive(ctx context.Context, page, size int) (model.Page[model.LeaderboardInfo], error) {
	p, err := s.ranking.GetActivePage(ctx, max(page, 1), s.pageSize(size))
	if err != nil {
		return p, classify("GetActive", err)
	}
	metrics.UpdateActiveLeaderboards(int(p.Total))
	return p, nil
}

// GetInactive pages finalised leaderboards from the repository, newest
// first. Pages are 1-based.
func (s *Service) GetInactive(ctx context.Context, page, size int) (model.Page[model.LeaderboardInfo], error) {
	page, size = max(page, 1), s.pageSize(size)
	items, total, err := s.repo.List(ctx, true, (page-1)*size, size)
	if err != nil {
		return model.Page[model.LeaderboardInfo]{}, classify("GetInactive", err)
	}
	return model.Page[model.LeaderboardInfo]{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// Expire sets when every cache key of the leaderboard expires.
func (s *Service) Expire(ctx context.Context, id string, at time.Time) error {
	if _, err := s.ranking.GetInfo(ctx, id); err != nil {
		return classify("Expire", err)
	}
	if err := s.ranking.Expire(ctx, id, at); err != nil {
		return classify("Expire", err)
	}
	return nil
}

// Finalise freezes a leaderboard. Cached scores are flushed into the
// repository, the repository marks it finalised and materialises ranks, and
// the cache keeps it for the retention window outside the active index.
func (s *Service) Finalise(ctx context.Context, id string) (model.LeaderboardInfo, error) {
	info, cached, err := s.info(ctx, id)
	if err != nil {
		return info, classify("Finalise", err)
	}
	if info.Finalised {
		return info, conflict("leaderboard %s is already finalised", id)
	}

	if cached {
		entries, err := s.ranking.GetRange(ctx, id, 0, 0)
		if err != nil {
			return info, classify("Finalise", err)
		}
		if err := s.ranking.Hydrate(ctx, id, entries); err != nil {
			return info, classify("Finalise", err)
		}
		if err := s.persist(ctx, id, entries); err != nil {
			return info, classify("Finalise", fmt.Errorf("flush entries: %w", err))
		}
	}

	if err := s.repo.Finalise(ctx, id); err != nil {
		return info, classify("Finalise", err)
	}
	if err := s.repo.UpdateRanks(ctx, id); err != nil {
		return info, classify("Finalise", err)
	}
	info.Finalised = true

	if cached {
		if err := s.ranking.Store(ctx, info); err != nil {
			return info, classify("Finalise", err)
		}
		if err := s.ranking.Expire(ctx, id, s.now().Add(s.retention)); err != nil {
			return info, classify("Finalise", err)
		}
	}
	if err := s.ranking.RemoveFromIndex(ctx, id); err != nil {
		return info, classify("Finalise", err)
	}
	metrics.RecordFinalisation()
	s.logger.Info(ctx, "leaderboard finalised", logger.String("leaderboard_id", id), logger.Int64("entries", info.EntryCount))
	return info, nil
}

// Payout awards every prize band to the entries holding its ranks and
// records the payout time. Entries with no points win nothing. A failed
// award leaves the payout time unset so the payout can be retried; the
// awarder deduplicates repeated awards.
func (s *Service) Payout(ctx context.Context, id string) ([]model.AwardRecord, error) {
	info, err := s.repo.GetInfo(ctx, id)
	if err != nil {
		return nil, classify("Payout", err)
	}
	if !info.Finalised {
		return nil, conflict("leaderboard %s is not finalised", id)
	}
	if info.PayoutTime != nil {
		return nil, conflict("leaderboard %s is already paid out", id)
	}
	if s.awarder == nil && len(info.Prizes) > 0 {
		return nil, fmt.Errorf("%w: no prize awarder configured", ErrUnavailable)
	}

	records := []model.AwardRecord{}
	for _, band := range info.Prizes {
		entries, err := s.repo.Get(ctx, id, int(band.MinRank-1), int(band.MaxRank-band.MinRank+1))
		if err != nil {
			return records, classify("Payout", err)
		}
		for i, e := range entries {
			if e.Points <= 0 {
				continue
			}
			rank := e.Rank
			if rank == 0 {
				rank = band.MinRank + int64(i)
			}
			rec, err := s.awarder.Award(ctx, id, e.UserID, rank, band.Prizes)
			if err != nil {
				return records, classify("Payout", fmt.Errorf("award %s rank %d: %w", e.UserID, rank, err))
			}
			records = append(records, rec)
		}
	}

	at := s.now().UTC()
	if err := s.repo.SetPayoutTime(ctx, id, at); err != nil {
		return records, classify("Payout", err)
	}
	if cachedInfo, err := s.ranking.GetInfo(ctx, id); err == nil {
		cachedInfo.PayoutTime = &at
		if err := s.ranking.Store(ctx, cachedInfo); err != nil {
			s.logger.Warn(ctx, "failed to cache payout time", logger.String("leaderboard_id", id), logger.Error(err))
		}
	}
	metrics.RecordPayout()
	s.logger.Info(ctx, "leaderboard paid out", logger.String("leaderboard_id", id), logger.Int("awards", len(records)))
	return records, nil
}

// RestoreCache rebuilds a leaderboard's cache from the repository. With
// restoreEntries set, entries are reloaded too. A finalised leaderboard is
// given the retention expiry and is not indexed as active.
func (s *Service) RestoreCache(ctx context.Context, id string, restoreEntries bool) error {
	info, err := s.repo.GetInfo(ctx, id)
	if err != nil {
		return classify("RestoreCache", err)
	}
	if err := s.ranking.Store(ctx, info); err != nil {
		return classify("RestoreCache", err)
	}

	if restoreEntries {
		for skip := 0; ; skip += s.persistBatchSize {
			entries, err := s.repo.Get(ctx, id, skip, s.persistBatchSize)
			if err != nil {
				return classify("RestoreCache", err)
			}
			if err := s.ranking.StoreEntries(ctx, id, entries); err != nil {
				return classify("RestoreCache", err)
			}
			if len(entries) < s.persistBatchSize {
				break
			}
		}
	}

	if info.Finalised {
		if err := s.ranking.Expire(ctx, id, s.now().Add(s.retention)); err != nil {
			return classify("RestoreCache", err)
		}
		return nil
	}
	if err := s.ranking.AddToIndex(ctx, id, info.CreateTime); err != nil {
		return classify("RestoreCache", err)
	}
	s.logger.Info(ctx, "cache restored", logger.String("leaderboard_id", id), logger.Bool("entries", restoreEntries))
	return nil
}
