package service

import (
	"context"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// API is the set of leaderboard operations. Service implements it and
// WithLogging decorates it.
type API interface {
	AddLeaderboard(ctx context.Context, nl model.NewLeaderboard) (model.LeaderboardInfo, error)
	RemoveLeaderboard(ctx context.Context, id string) error
	ResetLeaderboard(ctx context.Context, id string) error
	GetLeaderboard(ctx context.Context, id string) (model.LeaderboardInfo, error)
	GetActive(ctx context.Context, page, size int) (model.Page[model.LeaderboardInfo], error)
	GetInactive(ctx context.Context, page, size int) (model.Page[model.LeaderboardInfo], error)
	Expire(ctx context.Context, id string, at time.Time) error
	Finalise(ctx context.Context, id string) (model.LeaderboardInfo, error)
	Payout(ctx context.Context, id string) ([]model.AwardRecord, error)
	RestoreCache(ctx context.Context, id string, restoreEntries bool) error

	GetEntries(ctx context.Context, id string, skip, take int64) ([]model.Entry, error)
	GetByRank(ctx context.Context, id string, minRank, maxRank int64) ([]model.Entry, error)
	GetAroundUser(ctx context.Context, id, userID string, count int64) ([]model.Entry, error)
	GetByPoints(ctx context.Context, id string, minPoints, maxPoints *int64) ([]model.Entry, error)
	GetEntry(ctx context.Context, id, userID string) (model.Entry, error)
	AddEntry(ctx context.Context, id, userID string) (model.Entry, error)
	RemoveEntry(ctx context.Context, id, userID string) error
	EntryExists(ctx context.Context, id, userID string) (bool, error)

	Award(ctx context.Context, id, userID, eventName string, input *float64, opts model.AwardOptions) (model.AwardResult, error)
	AdjustPoints(ctx context.Context, id string, adjustments []model.Adjustment) ([]model.AdjustmentResult, error)
	KnockoutByPoints(ctx context.Context, id string, minPoints int64) (model.KnockoutResult, error)

	GetProgress(ctx context.Context, id, userID, eventName string) ([]model.Progress, error)
	IncrementProgress(ctx context.Context, id, userID, eventName string) (int64, error)
	ResetProgress(ctx context.Context, id, userID string) error
}

var _ API = (*Service)(nil)

type loggingService struct {
	next   API
	logger logger.Logger
}

// WithLogging wraps next so every operation logs its name, leaderboard,
// duration and outcome.
func WithLogging(next API, l logger.Logger) API {
	if l == nil {
		l = logger.GetOrNop().Named("service")
	}
	return &loggingService{next: next, logger: l}
}

func (s *loggingService) log(ctx context.Context, op, id string, start time.Time, err error, fields ...logger.Field) {
	fields = append(fields,
		logger.String("op", op),
		logger.String("leaderboard_id", id),
		logger.Duration("took", time.Since(start)),
	)
	if err != nil {
		metrics.RecordErrorByComponent("service", op)
		s.logger.Warn(ctx, "operation failed", append(fields, logger.Error(err))...)
		return
	}
	s.logger.Debug(ctx, "operation done", fields...)
}

func (s *loggingService) AddLeaderboard(ctx context.Context, nl model.NewLeaderboard) (info model.LeaderboardInfo, err error) {
	defer func(start time.Time) { s.log(ctx, "AddLeaderboard", info.ID, start, err) }(time.Now())
	return s.next.AddLeaderboard(ctx, nl)
}

func (s *loggingService) RemoveLeaderboard(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.log(ctx, "RemoveLeaderboard", id, start, err) }(time.Now())
	return s.next.RemoveLeaderboard(ctx, id)
}

func (s *loggingService) ResetLeaderboard(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.log(ctx, "ResetLeaderboard", id, start, err) }(time.Now())
	return s.next.ResetLeaderboard(ctx, id)
}

func (s *loggingService) GetLeaderboard(ctx context.Context, id string) (_ model.LeaderboardInfo, err error) {
	defer func(start time.Time) { s.log(ctx, "GetLeaderboard", id, start, err) }(time.Now())
	return s.next.GetLeaderboard(ctx, id)
}

func (s *loggingService) GetActive(ctx context.Context, page, size int) (_ model.Page[model.LeaderboardInfo], err error) {
	defer func(start time.Time) {
		s.log(ctx, "GetActive", "", start, err, logger.Int("page", page), logger.Int("size", size))
	}(time.Now())
	return s.next.GetActive(ctx, page, size)
}

func (s *loggingService) GetInactive(ctx context.Context, page, size int) (_ model.Page[model.LeaderboardInfo], err error) {
	defer func(start time.Time) {
		s.log(ctx, "GetInactive", "", start, err, logger.Int("page", page), logger.Int("size", size))
	}(time.Now())
	return s.next.GetInactive(ctx, page, size)
}

func (s *loggingService) Expire(ctx context.Context, id string, at time.Time) (err error) {
	defer func(start time.Time) { s.log(ctx, "Expire", id, start, err) }(time.Now())
	return s.next.Expire(ctx, id, at)
}

func (s *loggingService) Finalise(ctx context.Context, id string) (_ model.LeaderboardInfo, err error) {
	defer func(start time.Time) { s.log(ctx, "Finalise", id, start, err) }(time.Now())
	return s.next.Finalise(ctx, id)
}

func (s *loggingService) Payout(ctx context.Context, id string) (records []model.AwardRecord, err error) {
	defer func(start time.Time) {
		s.log(ctx, "Payout", id, start, err, logger.Int("awards", len(records)))
	}(time.Now())
	return s.next.Payout(ctx, id)
}

func (s *loggingService) RestoreCache(ctx context.Context, id string, restoreEntries bool) (err error) {
	defer func(start time.Time) { s.log(ctx, "RestoreCache", id, start, err) }(time.Now())
	return s.next.RestoreCache(ctx, id, restoreEntries)
}

func (s *loggingService) GetEntries(ctx context.Context, id string, skip, take int64) (_ []model.Entry, err error) {
	defer func(start time.Time) { s.log(ctx, "GetEntries", id, start, err) }(time.Now())
	return s.next.GetEntries(ctx, id, skip, take)
}

func (s *loggingService) GetByRank(ctx context.Context, id string, minRank, maxRank int64) (_ []model.Entry, err error) {
	defer func(start time.Time) { s.log(ctx, "GetByRank", id, start, err) }(time.Now())
	return s.next.GetByRank(ctx, id, minRank, maxRank)
}

func (s *loggingService) GetAroundUser(ctx context.Context, id, userID string, count int64) (_ []model.Entry, err error) {
	defer func(start time.Time) {
		s.log(ctx, "GetAroundUser", id, start, err, logger.String("user_id", userID))
	}(time.Now())
	return s.next.GetAroundUser(ctx, id, userID, count)
}

func (s *loggingService) GetByPoints(ctx context.Context, id string, minPoints, maxPoints *int64) (_ []model.Entry, err error) {
	defer func(start time.Time) { s.log(ctx, "GetByPoints", id, start, err) }(time.Now())
	return s.next.GetByPoints(ctx, id, minPoints, maxPoints)
}

func (s *loggingService) GetEntry(ctx context.Context, id, userID string) (_ model.Entry, err error) {
	defer func(start time.Time) {
		s.log(ctx, "GetEntry", id, start, err, logger.String("user_id", userID))
	}(time.Now())
	return s.next.GetEntry(ctx, id, userID)
}

func (s *loggingService) AddEntry(ctx context.Context, id, userID string) (_ model.Entry, err error) {
	defer func(start time.Time) {
		s.log(ctx, "AddEntry", id, start, err, logger.String("user_id", userID))
	}(time.Now())
	return s.next.AddEntry(ctx, id, userID)
}

func (s *loggingService) RemoveEntry(ctx context.Context, id, userID string) (err error) {
	defer func(start time.Time) {
		s.log(ctx, "RemoveEntry", id, start, err, logger.String("user_id", userID))
	}(time.Now())
	return s.next.RemoveEntry(ctx, id, userID)
}

func (s *loggingService) EntryExists(ctx context.Context, id, userID string) (_ bool, err error) {
	defer func(start time.Time) {
		s.log(ctx, "EntryExists", id, start, err, logger.String("user_id", userID))
	}(time.Now())
	return s.next.EntryExists(ctx, id, userID)
}

func (s *loggingService) Award(ctx context.Context, id, userID, eventName string, input *float64, opts model.AwardOptions) (res model.AwardResult, err error) {
	defer func(start time.Time) {
		s.log(ctx, "Award", id, start, err,
			logger.String("user_id", userID),
			logger.String("event", eventName),
			logger.Bool("awarded", res.Awarded),
			logger.Int64("points", res.Points))
	}(time.Now())
	return s.next.Award(ctx, id, userID, eventName, input, opts)
}

func (s *loggingService) AdjustPoints(ctx context.Context, id string, adjustments []model.Adjustment) (_ []model.AdjustmentResult, err error) {
	defer func(start time.Time) {
		s.log(ctx, "AdjustPoints", id, start, err, logger.Int("adjustments", len(adjustments)))
	}(time.Now())
	return s.next.AdjustPoints(ctx, id, adjustments)
}

func (s *loggingService) KnockoutByPoints(ctx context.Context, id string, minPoints int64) (res model.KnockoutResult, err error) {
	defer func(start time.Time) {
		s.log(ctx, "KnockoutByPoints", id, start, err,
			logger.Int64("min_points", minPoints), logger.Int("removed", len(res.Removed)))
	}(time.Now())
	return s.next.KnockoutByPoints(ctx, id, minPoints)
}

func (s *loggingService) GetProgress(ctx context.Context, id, userID, eventName string) (_ []model.Progress, err error) {
	defer func(start time.Time) {
		s.log(ctx, "GetProgress", id, start, err, logger.String("user_id", userID))
	}(time.Now())
	return s.next.GetProgress(ctx, id, userID, eventName)
}

func (s *loggingService) IncrementProgress(ctx context.Context, id, userID, eventName string) (_ int64, err error) {
	defer func(start time.Time) {
		s.log(ctx, "IncrementProgress", id, start, err, logger.String("user_id", userID), logger.String("event", eventName))
	}(time.Now())
	return s.next.IncrementProgress(ctx, id, userID, eventName)
}

func (s *loggingService) ResetProgress(ctx context.Context, id, userID string) (err error) {
	defer func(start time.Time) {
		s.log(ctx, "ResetProgress", id, start, err, logger.String("user_id", userID))
	}(time.Now())
	return s.next.ResetProgress(ctx, id, userID)
}
