// Package prize issues prize award requests on a JetStream stream. Each
// winner gets one message whose id is derived from the leaderboard, user
// and rank, so a repeated payout is deduplicated by the stream.
package prize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	defaultSubject = "podium.prizes.award"
	defaultStream  = "PODIUM_PRIZES"
)

// ErrUnsupportedPrize is returned for a prize variant the awarder cannot map.
var ErrUnsupportedPrize = errors.New("unsupported prize")

// Publisher is the JetStream publishing surface the awarder needs.
// jetstream.JetStream satisfies it.
type Publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Request is the award message body.
type Request struct {
	ID            string       `json:"id"`
	LeaderboardID string       `json:"leaderboardId"`
	UserID        string       `json:"userId"`
	Rank          int64        `json:"rank"`
	Items         []Item       `json:"items"`
	Prizes        model.Prizes `json:"prizes"`
	IssuedAt      time.Time    `json:"issuedAt"`
}

// Item is a fulfilment line for one prize.
type Item struct {
	Kind     model.PrizeKind `json:"kind"`
	Quantity int64           `json:"quantity"`
	Unit     string          `json:"unit"`
	Ref      string          `json:"ref,omitempty"`
}

// JetStreamAwarder publishes award requests to JetStream.
type JetStreamAwarder struct {
	js      Publisher
	subject string
	now     func() time.Time
	logger  logger.Logger
}

// Option configures a JetStreamAwarder.
type Option func(*JetStreamAwarder)

// WithSubject sets the subject award requests are published on.
func WithSubject(s string) Option {
	return func(a *JetStreamAwarder) {
		if s != "" {
			a.subject = s
		}
	}
}

// WithClock sets the time source for IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(a *JetStreamAwarder) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *JetStreamAwarder) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewJetStreamAwarder creates an awarder over js.
func NewJetStreamAwarder(js Publisher, opts ...Option) *JetStreamAwarder {
	a := &JetStreamAwarder{
		js:      js,
		subject: defaultSubject,
		now:     time.Now,
		logger:  logger.GetOrNop().Named("prize"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MsgID is the deduplication id of an award.
func MsgID(leaderboardID, userID string, rank int64) string {
	return leaderboardID + ":" + userID + ":" + strconv.FormatInt(rank, 10)
}

// Award publishes one award request and waits for the stream to store it.
func (a *JetStreamAwarder) Award(ctx context.Context, leaderboardID, userID string, rank int64, prizes model.Prizes) (model.AwardRecord, error) {
	items := make([]Item, 0, len(prizes))
	for _, p := range prizes {
		it, err := item(p)
		if err != nil {
			return model.AwardRecord{}, fmt.Errorf("prize.Award: %w", err)
		}
		items = append(items, it)
	}

	req := Request{
		ID:            uuid.NewString(),
		LeaderboardID: leaderboardID,
		UserID:        userID,
		Rank:          rank,
		Items:         items,
		Prizes:        prizes,
		IssuedAt:      a.now().UTC(),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return model.AwardRecord{}, fmt.Errorf("prize.Award: encode: %w", err)
	}

	msg := nats.NewMsg(a.subject)
	msg.Data = data
	msg.Header.Set("Podium-Leaderboard", leaderboardID)
	ack, err := a.js.PublishMsg(ctx, msg, jetstream.WithMsgID(MsgID(leaderboardID, userID, rank)))
	if err != nil {
		metrics.RecordErrorByComponent("prize", "publish_failed")
		return model.AwardRecord{}, fmt.Errorf("prize.Award: publish %s: %w", a.subject, err)
	}
	if ack.Duplicate {
		a.logger.Info(ctx, "award already issued",
			logger.String("leaderboard_id", leaderboardID),
			logger.String("user_id", userID),
			logger.Int64("rank", rank))
	}
	for _, it := range items {
		metrics.RecordPrizeAwarded(string(it.Kind))
	}

	return model.AwardRecord{
		ID:            req.ID,
		LeaderboardID: leaderboardID,
		UserID:        userID,
		Rank:          rank,
		Prizes:        prizes,
		Stream:        ack.Stream,
		Sequence:      ack.Sequence,
		Duplicate:     ack.Duplicate,
		IssuedAt:      req.IssuedAt,
	}, nil
}

func item(p model.Prize) (Item, error) {
	switch v := p.(type) {
	case model.CashPrize:
		return Item{Kind: v.Kind(), Quantity: v.Amount, Unit: strings.ToUpper(v.Currency)}, nil
	case model.UpgradePrize:
		return Item{Kind: v.Kind(), Quantity: int64(v.DurationDays), Unit: "days", Ref: v.Tier}, nil
	case model.TangiblePrize:
		return Item{Kind: v.Kind(), Quantity: 1, Unit: "item", Ref: v.SKU}, nil
	default:
		return Item{}, fmt.Errorf("%w: %T", ErrUnsupportedPrize, p)
	}
}

// EnsureStream creates the award stream when it does not exist yet.
func EnsureStream(ctx context.Context, js jetstream.JetStream, subject string, l logger.Logger) error {
	if subject == "" {
		subject = defaultSubject
	}
	_, err := js.Stream(ctx, defaultStream)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := js.CreateStream(ctx, jetstream.StreamConfig{
			Name:       defaultStream,
			Subjects:   []string{subject},
			Duplicates: 24 * time.Hour,
		}); err != nil {
			return fmt.Errorf("prize.EnsureStream: create %s: %w", defaultStream, err)
		}
		l.Info(ctx, "created prize stream", logger.String("stream", defaultStream), logger.String("subject", subject))
		return nil
	}
	if err != nil {
		return fmt.Errorf("prize.EnsureStream: %w", err)
	}
	return nil
}
