package service

import (
	"context"
	"errors"
	"slices"

	"github.com/okian/podium/internal/adapters/cache/ranking"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/score"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// GetEntries returns entries from skip, best first. take <= 0 means all.
func (s *Service) GetEntries(ctx context.Context, id string, skip, take int64) ([]model.Entry, error) {
	return s.query(ctx, "GetEntries", id,
		func() ([]model.Entry, error) { return s.ranking.GetRange(ctx, id, skip, take) },
		func(all []model.Entry) []model.Entry { return page(all, skip, take) },
	)
}

// GetByRank returns entries ranked minRank..maxRank inclusive. maxRank <= 0
// leaves the upper end open.
func (s *Service) GetByRank(ctx context.Context, id string, minRank, maxRank int64) ([]model.Entry, error) {
	return s.query(ctx, "GetByRank", id,
		func() ([]model.Entry, error) { return s.ranking.GetByRank(ctx, id, minRank, maxRank) },
		func(all []model.Entry) []model.Entry {
			minRank = max(minRank, 1)
			if maxRank > 0 && maxRank < minRank {
				return []model.Entry{}
			}
			take := int64(0)
			if maxRank > 0 {
				take = maxRank - minRank + 1
			}
			return page(all, minRank-1, take)
		},
	)
}

// GetAroundUser returns up to 2*count+1 entries around the user.
func (s *Service) GetAroundUser(ctx context.Context, id, userID string, count int64) ([]model.Entry, error) {
	return s.query(ctx, "GetAroundUser", id,
		func() ([]model.Entry, error) { return s.ranking.GetAroundUser(ctx, id, userID, count) },
		func(all []model.Entry) []model.Entry {
			i := slices.IndexFunc(all, func(e model.Entry) bool { return e.UserID == userID })
			if i < 0 {
				return []model.Entry{}
			}
			count = max(count, 0)
			width := 2*count + 1
			start := max(int64(i)-count, 0)
			if end := start + width; end > int64(len(all)) {
				start = max(int64(len(all))-width, 0)
			}
			return page(all, start, width)
		},
	)
}

// GetByPoints returns entries whose points lie in [minPoints, maxPoints].
// A nil bound leaves that side open.
func (s *Service) GetByPoints(ctx context.Context, id string, minPoints, maxPoints *int64) ([]model.Entry, error) {
	lo, hi := ranking.MinScore, ranking.MaxScore
	if minPoints != nil {
		lo = score.LowerBound(*minPoints)
	}
	if maxPoints != nil {
		hi = score.UpperBound(*maxPoints)
	}
	return s.query(ctx, "GetByPoints", id,
		func() ([]model.Entry, error) { return s.ranking.GetByScoreRange(ctx, id, lo, hi) },
		func(all []model.Entry) []model.Entry {
			out := []model.Entry{}
			for _, e := range all {
				if (minPoints == nil || e.Points >= *minPoints) && (maxPoints == nil || e.Points <= *maxPoints) {
					out = append(out, e)
				}
			}
			return out
		},
	)
}

// GetEntry returns one user's entry.
func (s *Service) GetEntry(ctx context.Context, id, userID string) (model.Entry, error) {
	entries, err := s.query(ctx, "GetEntry", id,
		func() ([]model.Entry, error) {
			e, ok, err := s.ranking.Rank(ctx, id, userID)
			if err != nil || !ok {
				return nil, err
			}
			return []model.Entry{e}, nil
		},
		func(all []model.Entry) []model.Entry {
			i := slices.IndexFunc(all, func(e model.Entry) bool { return e.UserID == userID })
			if i < 0 {
				return nil
			}
			return all[i : i+1]
		},
	)
	if err != nil {
		return model.Entry{}, err
	}
	if len(entries) == 0 {
		return model.Entry{}, notFound("entry %s on leaderboard %s", userID, id)
	}
	return entries[0], nil
}

// query reads entries from the cache and hydrates them. When the
// leaderboard is not cached it is served from the repository instead.
func (s *Service) query(ctx context.Context, op, id string, live func() ([]model.Entry, error), durable func([]model.Entry) []model.Entry) ([]model.Entry, error) {
	_, cached, err := s.info(ctx, id)
	if err != nil {
		return nil, classify(op, err)
	}
	if !cached {
		all, err := s.durable(ctx, id)
		if err != nil {
			return nil, classify(op, err)
		}
		entries := durable(all)
		s.profiles(ctx, entries)
		return entries, nil
	}

	entries, err := live()
	if err != nil {
		return nil, classify(op, err)
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	if err := s.ranking.Hydrate(ctx, id, entries); err != nil {
		return nil, classify(op, err)
	}
	s.profiles(ctx, entries)
	return entries, nil
}

// durable loads every entry from the repository in rank order. Entries of
// a leaderboard that was never finalised have no stored rank, so their
// position is used.
func (s *Service) durable(ctx context.Context, id string) ([]model.Entry, error) {
	all, err := s.repo.Get(ctx, id, 0, 0)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Rank == 0 {
			all[i].Rank = int64(i) + 1
		}
	}
	return all, nil
}

func page(all []model.Entry, skip, take int64) []model.Entry {
	skip = max(skip, 0)
	if skip >= int64(len(all)) {
		return []model.Entry{}
	}
	end := int64(len(all))
	if take > 0 {
		end = min(skip+take, end)
	}
	return all[skip:end]
}

// profiles attaches display profiles. Lookup failures degrade to
// placeholders rather than failing the query.
func (s *Service) profiles(ctx context.Context, entries []model.Entry) {
	if len(entries) == 0 {
		return
	}
	var found map[string]model.Profile
	if s.identity != nil {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.UserID
		}
		var err error
		found, err = s.identity.Resolve(ctx, ids)
		if err != nil {
			metrics.RecordErrorByComponent("service", "identity_failed")
			s.logger.Warn(ctx, "identity lookup failed", logger.Int("users", len(ids)), logger.Error(err))
		}
	}
	for i := range entries {
		p, ok := found[entries[i].UserID]
		if !ok {
			p = model.Profile{DisplayName: anonymous}
		}
		if p.DisplayName == "" {
			p.DisplayName = anonymous
		}
		if p.Country == "" {
			p.Country = s.defaultCountry
		}
		entries[i].Profile = p
	}
}

// AddEntry puts a user on a leaderboard with zero points. It fails with a
// conflict when the user is already on it.
func (s *Service) AddEntry(ctx context.Context, id, userID string) (model.Entry, error) {
	if userID == "" {
		return model.Entry{}, invalid("user id is required")
	}
	if _, err := s.live(ctx, id); err != nil {
		return model.Entry{}, classify("AddEntry", err)
	}
	added, err := s.create(ctx, id, userID)
	if err != nil {
		return model.Entry{}, classify("AddEntry", err)
	}
	if !added {
		return model.Entry{}, conflict("entry %s already exists on leaderboard %s", userID, id)
	}
	return s.GetEntry(ctx, id, userID)
}

// create adds a zero-point entry to the cache and the repository. It
// reports false when the user was already cached.
func (s *Service) create(ctx context.Context, id, userID string) (bool, error) {
	tb := score.TieBreaker(s.now())
	e := model.Entry{UserID: userID, TieBreaker: tb, RunningTieBreaker: tb}
	n, err := s.ranking.AddEntries(ctx, id, []model.Entry{e})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := s.repo.AddEntries(ctx, id, []model.Entry{e}); err != nil {
		return true, err
	}
	return true, nil
}

// RemoveEntry takes a user off a leaderboard, including progress.
func (s *Service) RemoveEntry(ctx context.Context, id, userID string) error {
	if _, err := s.live(ctx, id); err != nil {
		return classify("RemoveEntry", err)
	}
	_, ok, err := s.ranking.Rank(ctx, id, userID)
	if err != nil {
		return classify("RemoveEntry", err)
	}
	if !ok {
		return notFound("entry %s on leaderboard %s", userID, id)
	}
	if err := s.ranking.RemoveEntries(ctx, id, []string{userID}); err != nil {
		return classify("RemoveEntry", err)
	}
	if err := s.repo.RemoveEntries(ctx, id, []string{userID}); err != nil {
		return classify("RemoveEntry", err)
	}
	return nil
}

// EntryExists reports whether the user is on the leaderboard.
func (s *Service) EntryExists(ctx context.Context, id, userID string) (bool, error) {
	if _, _, err := s.info(ctx, id); err != nil {
		return false, classify("EntryExists", err)
	}
	_, err := s.GetEntry(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
