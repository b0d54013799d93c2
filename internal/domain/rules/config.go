// Package rules holds the point configuration of a leaderboard and the
// engine that turns a gameplay event into awarded points.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

const (
	inputToken = "input"
	countToken = "count"
)

// PointsKind says where a rule's base value comes from.
type PointsKind uint8

const (
	pointsUnset PointsKind = iota
	// PointsFixed uses the configured value.
	PointsFixed
	// PointsInput uses the caller-supplied input.
	PointsInput
)

// Points is a fixed number or "use the input". JSON: 25 or "input".
type Points struct {
	Kind  PointsKind
	Value int64
}

// Fixed returns a fixed points value.
func Fixed(v int64) Points { return Points{Kind: PointsFixed, Value: v} }

// Input returns a points value taken from the award input.
func Input() Points { return Points{Kind: PointsInput} }

func (p Points) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PointsFixed:
		return []byte(strconv.FormatInt(p.Value, 10)), nil
	case PointsInput:
		return json.Marshal(inputToken)
	default:
		return []byte("null"), nil
	}
}

func (p *Points) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = Points{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != inputToken {
			return fmt.Errorf("%w: points must be a number or %q, got %q", ErrInvalidConfig, inputToken, s)
		}
		*p = Input()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: points: %v", ErrInvalidConfig, err)
	}
	if math.Trunc(f) != f || math.IsInf(f, 0) {
		return fmt.Errorf("%w: points must be a whole number, got %v", ErrInvalidConfig, f)
	}
	*p = Fixed(int64(f))
	return nil
}

// MultiplierKind says how a rule scales its base value.
type MultiplierKind uint8

const (
	// MultiplyNone leaves the base value unchanged.
	MultiplyNone MultiplierKind = iota
	// MultiplyFactor scales by a fixed factor.
	MultiplyFactor
	// MultiplyCount scales by the current event count.
	MultiplyCount
)

// Multiplier is a numeric factor or "use the event count". JSON: 2, 1.5 or "count".
type Multiplier struct {
	Kind   MultiplierKind
	Factor float64
}

// Factor returns a numeric multiplier.
func Factor(f float64) *Multiplier { return &Multiplier{Kind: MultiplyFactor, Factor: f} }

// ByCount returns a multiplier that scales by the event count.
func ByCount() *Multiplier { return &Multiplier{Kind: MultiplyCount} }

func (m Multiplier) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case MultiplyFactor:
		return json.Marshal(m.Factor)
	case MultiplyCount:
		return json.Marshal(countToken)
	default:
		return []byte("null"), nil
	}
}

func (m *Multiplier) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != countToken {
			return fmt.Errorf("%w: multiplier must be a number or %q, got %q", ErrInvalidConfig, countToken, s)
		}
		*m = *ByCount()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: multiplier: %v", ErrInvalidConfig, err)
	}
	*m = *Factor(f)
	return nil
}

// Rule is one configured outcome for an event. Count, when set, restricts
// the rule to the exact occurrence number of the event.
type Rule struct {
	Count      *int64      `json:"count,omitempty"`
	Points     Points      `json:"points"`
	Multiplier *Multiplier `json:"multiplier,omitempty"`
}

// EventConfig is the rule list for one event plus the events whose
// counters are zeroed when it fires.
type EventConfig struct {
	Rules  []Rule   `json:"rules"`
	Resets []string `json:"resets,omitempty"`
}

// PointConfig maps event names to their configuration.
type PointConfig map[string]EventConfig

// Event looks up an event's configuration.
func (c PointConfig) Event(name string) (EventConfig, bool) {
	ec, ok := c[name]
	return ec, ok
}

// Events returns the configured event names in sorted order.
func (c PointConfig) Events() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the structure of the configuration. It runs once when a
// leaderboard is created.
func (c PointConfig) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no events configured", ErrInvalidConfig)
	}
	for _, name := range c.Events() {
		ec := c[name]
		if name == "" {
			return fmt.Errorf("%w: empty event name", ErrInvalidConfig)
		}
		if len(ec.Rules) == 0 {
			return fmt.Errorf("%w: event %q has no rules", ErrInvalidConfig, name)
		}
		for i, r := range ec.Rules {
			if err := r.validate(); err != nil {
				return fmt.Errorf("event %q rule %d: %w", name, i, err)
			}
		}
		for _, reset := range ec.Resets {
			if _, ok := c[reset]; !ok {
				return fmt.Errorf("%w: event %q resets unknown event %q", ErrInvalidConfig, name, reset)
			}
		}
	}
	return nil
}

func (r Rule) validate() error {
	if r.Points.Kind == pointsUnset {
		return fmt.Errorf("%w: points not set", ErrInvalidConfig)
	}
	if r.Count != nil && *r.Count < 1 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidConfig, *r.Count)
	}
	if r.Multiplier != nil && r.Multiplier.Kind == MultiplyFactor {
		f := r.Multiplier.Factor
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: multiplier must be finite", ErrInvalidConfig)
		}
	}
	return nil
}
