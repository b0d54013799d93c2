// Package keys names every cache key owned by a leaderboard.
//
// The leaderboard id is wrapped in a hash tag so all of a leaderboard's keys
// land in the same cluster slot and can be used together in scripts.
package keys

import "strings"

// DefaultPrefix namespaces keys when no prefix is configured.
const DefaultPrefix = "podium"

// Set holds the five keys of one leaderboard.
type Set struct {
	Info    string // JSON metadata record
	Entries string // high-water sorted set
	Running string // running sorted set
	Events  string // set of event names seen
	Active  string // hash userId -> last heartbeat (unix seconds)
}

// All lists the keys of the set.
func (s Set) All() []string {
	return []string{s.Info, s.Entries, s.Running, s.Events, s.Active}
}

// Resolver builds keys under a prefix. It holds no state beyond the prefix.
type Resolver struct {
	prefix string
}

// New returns a resolver for prefix, or DefaultPrefix when empty.
func New(prefix string) Resolver {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Resolver{prefix: prefix}
}

func (r Resolver) base(id string) string {
	return r.prefix + ":lb:{" + id + "}"
}

// For returns the key set of a leaderboard.
func (r Resolver) For(id string) Set {
	b := r.base(id)
	return Set{
		Info:    b + ":info",
		Entries: b + ":entries",
		Running: b + ":running",
		Events:  b + ":events",
		Active:  b + ":active",
	}
}

// Event is the progress counter hash for one event of a leaderboard.
func (r Resolver) Event(id, eventName string) string {
	return r.base(id) + ":event:" + eventName
}

// Events maps event names to their progress keys.
func (r Resolver) Events(id string, eventNames []string) []string {
	out := make([]string, len(eventNames))
	for i, name := range eventNames {
		out[i] = r.Event(id, name)
	}
	return out
}

// Lock is the per-entry lock key.
func (r Resolver) Lock(id, userID string) string {
	return r.base(id) + ":lock:" + userID
}

// Award is the idempotency marker of one award request.
func (r Resolver) Award(id, requestKey string) string {
	return r.base(id) + ":award:" + requestKey
}

// Index is the global sorted set of active leaderboard ids.
func (r Resolver) Index() string {
	return r.prefix + ":lb:index"
}

// Profiles is the hash of user display profiles.
func (r Resolver) Profiles() string {
	return r.prefix + ":profiles"
}
