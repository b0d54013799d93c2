package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/adapters/cache/ranking"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rules"
	"github.com/okian/podium/internal/domain/score"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Award records one gameplay event for a user and grants the points of the
// matching rule. Unconfigured events, unmatched counts and zero-point rules
// are reported in the result and are not errors.
//
// With an idempotency key and a deduper configured, a repeated key is
// reported as a duplicate and nothing is applied. A failed award forgets its
// key so the caller can retry.
func (s *Service) Award(ctx context.Context, id, userID, eventName string, input *float64, opts model.AwardOptions) (model.AwardResult, error) {
	if opts.IdempotencyKey == "" || s.dedupe == nil {
		return s.award(ctx, id, userID, eventName, input, opts)
	}
	seen, err := s.dedupe.SeenAndRecord(ctx, id, opts.IdempotencyKey)
	if err != nil {
		return model.AwardResult{}, classify("Award", err)
	}
	if seen {
		metrics.RecordAward("duplicate")
		return model.AwardResult{Duplicate: true}, nil
	}
	res, err := s.award(ctx, id, userID, eventName, input, opts)
	if err != nil {
		if uerr := s.dedupe.Unrecord(ctx, id, opts.IdempotencyKey); uerr != nil {
			s.logger.Warn(ctx, "failed to forget idempotency key",
				logger.String("leaderboard_id", id), logger.String("key", opts.IdempotencyKey), logger.Error(uerr))
		}
	}
	return res, err
}

func (s *Service) award(ctx context.Context, id, userID, eventName string, input *float64, opts model.AwardOptions) (model.AwardResult, error) {
	var in *int64
	if input != nil {
		v, err := score.Integer(*input)
		if err != nil {
			return model.AwardResult{}, classify("Award", err)
		}
		in = &v
	}
	if userID == "" || eventName == "" {
		return model.AwardResult{}, invalid("user id and event name are required")
	}

	info, err := s.live(ctx, id)
	if err != nil {
		return model.AwardResult{}, classify("Award", err)
	}
	if len(info.PointConfig) == 0 {
		return model.AwardResult{}, classify("Award", fmt.Errorf("%w: leaderboard %s has no point configuration", rules.ErrInvalidConfig, id))
	}
	cfg, ok := info.PointConfig.Event(eventName)
	if !ok {
		metrics.RecordAward("unconfigured")
		return model.AwardResult{}, nil
	}

	if err := s.ensureEntry(ctx, id, userID, opts.CreateEntry); err != nil {
		return model.AwardResult{}, classify("Award", err)
	}
	if err := s.ranking.RegisterEvent(ctx, id, eventName); err != nil {
		return model.AwardResult{}, classify("Award", err)
	}
	count, err := s.progress.Increment(ctx, id, userID, eventName, cfg.Resets)
	if err != nil {
		return model.AwardResult{}, classify("Award", err)
	}

	rule, ok, err := rules.Match(cfg.Rules, count)
	if err != nil {
		return model.AwardResult{}, classify("Award", err)
	}
	if !ok {
		metrics.RecordAward("unmatched")
		return model.AwardResult{EventCount: count}, nil
	}
	points := rules.Calculate(rule, count, in)
	if points == 0 {
		metrics.RecordAward("zero")
		return model.AwardResult{Matched: true, EventCount: count}, nil
	}

	at := opts.At
	if at.IsZero() {
		at = s.now()
	}
	tb := score.TieBreaker(at)
	results, err := s.AdjustPoints(ctx, id, []model.Adjustment{{UserID: userID, Points: points, TieBreaker: &tb}})
	if err != nil {
		return model.AwardResult{}, err
	}
	if len(results) == 0 {
		// Removed between the existence check and the adjustment.
		return model.AwardResult{}, notFound("entry %s on leaderboard %s", userID, id)
	}
	res := results[0]
	metrics.RecordAward("awarded")

	if opts.Notify && s.notifier != nil {
		err := s.notifier.Publish(ctx, model.Notification{
			ID:            uuid.NewString(),
			Kind:          model.NotifyPoints,
			LeaderboardID: id,
			UserID:        userID,
			Points:        &res,
			CreatedAt:     s.now().UTC(),
		})
		if err != nil {
			s.logger.Warn(ctx, "points notification dropped",
				logger.String("leaderboard_id", id), logger.String("user_id", userID), logger.Error(err))
		}
	}
	return model.AwardResult{Matched: true, Awarded: true, Points: points, EventCount: count, Result: &res}, nil
}

func (s *Service) ensureEntry(ctx context.Context, id, userID string, create bool) error {
	_, ok, err := s.ranking.Rank(ctx, id, userID)
	if err != nil || ok {
		return err
	}
	if !create {
		return notFound("entry %s on leaderboard %s", userID, id)
	}
	// A concurrent award may have created it first; either way it exists now.
	_, err = s.create(ctx, id, userID)
	return err
}

// AdjustPoints applies a batch of point adjustments. Users not on the
// leaderboard are skipped. The new scores are mirrored into the repository
// and the users are marked active; failures of either are logged only,
// since the cache already holds the result.
func (s *Service) AdjustPoints(ctx context.Context, id string, adjustments []model.Adjustment) ([]model.AdjustmentResult, error) {
	for _, adj := range adjustments {
		if adj.UserID == "" {
			return nil, invalid("adjustment without user id")
		}
		if !adj.Reset.Valid() {
			return nil, invalid("unknown reset mode %q", adj.Reset)
		}
	}
	if _, err := s.live(ctx, id); err != nil {
		return nil, classify("AdjustPoints", err)
	}

	results, err := s.ranking.AdjustPoints(ctx, id, adjustments)
	if err != nil {
		return nil, classify("AdjustPoints", err)
	}
	if len(results) == 0 {
		return results, nil
	}

	entries := make([]model.Entry, len(results))
	users := make([]string, len(results))
	for i, r := range results {
		entries[i] = r.Entry()
		users[i] = r.UserID
	}
	if err := s.persist(ctx, id, entries); err != nil {
		metrics.RecordErrorByComponent("service", "mirror_failed")
		s.logger.Error(ctx, "failed to mirror scores", logger.String("leaderboard_id", id), logger.Int("entries", len(entries)), logger.Error(err))
	}
	if err := s.ranking.UpdateActive(ctx, id, users); err != nil {
		s.logger.Warn(ctx, "failed to update heartbeats", logger.String("leaderboard_id", id), logger.Error(err))
	}
	return results, nil
}

// KnockoutByPoints removes every entry with fewer than minPoints points and
// reports how many remain.
func (s *Service) KnockoutByPoints(ctx context.Context, id string, minPoints int64) (model.KnockoutResult, error) {
	if _, err := s.live(ctx, id); err != nil {
		return model.KnockoutResult{}, classify("KnockoutByPoints", err)
	}
	removed, err := s.ranking.GetByScoreRange(ctx, id, ranking.MinScore, below(minPoints))
	if err != nil {
		return model.KnockoutResult{}, classify("KnockoutByPoints", err)
	}
	if len(removed) > 0 {
		users := make([]string, len(removed))
		for i, e := range removed {
			users[i] = e.UserID
		}
		if err := s.ranking.RemoveEntries(ctx, id, users); err != nil {
			return model.KnockoutResult{}, classify("KnockoutByPoints", err)
		}
		if err := s.repo.RemoveEntries(ctx, id, users); err != nil {
			return model.KnockoutResult{}, classify("KnockoutByPoints", err)
		}
	}
	remaining, err := s.ranking.Count(ctx, id)
	if err != nil {
		return model.KnockoutResult{}, classify("KnockoutByPoints", err)
	}
	metrics.RecordKnockout(len(removed))
	return model.KnockoutResult{Removed: removed, Remaining: remaining}, nil
}

// below is the exclusive score bound under every key with at least p points.
func below(p int64) string {
	lb := score.LowerBound(p)
	if rest, ok := strings.CutPrefix(lb, "("); ok {
		return rest
	}
	return "(" + lb
}

// GetProgress reports the user's milestone progress. With eventName set
// only that event is reported.
func (s *Service) GetProgress(ctx context.Context, id, userID, eventName string) ([]model.Progress, error) {
	info, _, err := s.info(ctx, id)
	if err != nil {
		return nil, classify("GetProgress", err)
	}
	out, err := s.progress.Get(ctx, id, userID, info.PointConfig, eventName)
	if err != nil {
		return nil, classify("GetProgress", err)
	}
	return out, nil
}

// IncrementProgress counts one occurrence of eventName for the user without
// awarding points, applying the event's configured resets.
func (s *Service) IncrementProgress(ctx context.Context, id, userID, eventName string) (int64, error) {
	if userID == "" || eventName == "" {
		return 0, invalid("user id and event name are required")
	}
	info, err := s.live(ctx, id)
	if err != nil {
		return 0, classify("IncrementProgress", err)
	}
	cfg, _ := info.PointConfig.Event(eventName)
	if err := s.ranking.RegisterEvent(ctx, id, eventName); err != nil {
		return 0, classify("IncrementProgress", err)
	}
	n, err := s.progress.Increment(ctx, id, userID, eventName, cfg.Resets)
	if err != nil {
		return 0, classify("IncrementProgress", err)
	}
	return n, nil
}

// ResetProgress zeroes every counter of the user on the leaderboard.
func (s *Service) ResetProgress(ctx context.Context, id, userID string) error {
	if _, err := s.live(ctx, id); err != nil {
		return classify("ResetProgress", err)
	}
	if err := s.progress.Reset(ctx, id, userID); err != nil {
		return classify("ResetProgress", err)
	}
	return nil
}
