// Package notify delivers point and progress notifications to users over
// NATS. Delivery is asynchronous: callers publish onto a bounded queue and a
// worker pool drains it into the sink.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/okian/podium/internal/domain/model"
)

const (
	defaultSubjectPrefix = "podium.notify"

	headerKind          = "Podium-Kind"
	headerLeaderboardID = "Podium-Leaderboard"
)

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink publishes each notification on a per-user subject.
type NATSSink struct {
	pub    Publisher
	prefix string
}

// NewNATSSink creates a sink publishing under prefix. An empty prefix uses
// the default.
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject a notification is published on:
// <prefix>.<leaderboardId>.<userId>.<kind>.
func (s *NATSSink) Subject(n model.Notification) string {
	return strings.Join([]string{s.prefix, token(n.LeaderboardID), token(n.UserID), token(string(n.Kind))}, ".")
}

// Send publishes n as JSON.
func (s *NATSSink) Send(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify.Send: encode %s: %w", n.ID, err)
	}
	msg := nats.NewMsg(s.Subject(n))
	msg.Data = data
	msg.Header.Set(headerKind, string(n.Kind))
	msg.Header.Set(headerLeaderboardID, n.LeaderboardID)
	if n.ID != "" {
		msg.Header.Set(nats.MsgIdHdr, n.ID)
	}
	if err := s.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("notify.Send: publish %s: %w", msg.Subject, err)
	}
	return nil
}

// token makes s safe as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
