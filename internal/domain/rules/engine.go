package rules

import "math"

// Match returns the rule that applies to the eventCount-th occurrence of an
// event. Rules are scanned from the end of the list so later, more specific
// rules win; the first rule whose count is unset or equal to eventCount is
// returned. The bool is false when nothing matches.
func Match(rules []Rule, eventCount int64) (Rule, bool, error) {
	if len(rules) == 0 {
		return Rule{}, false, ErrNoRules
	}
	for i := len(rules) - 1; i >= 0; i-- {
		r := rules[i]
		if r.Count == nil || *r.Count == eventCount {
			return r, true, nil
		}
	}
	return Rule{}, false, nil
}

// Calculate computes the points a matched rule awards. A nil input counts
// as zero for rules that take their points from the input.
func Calculate(rule Rule, eventCount int64, input *int64) int64 {
	var base int64
	switch rule.Points.Kind {
	case PointsFixed:
		base = rule.Points.Value
	default:
		if input != nil {
			base = *input
		}
	}
	if rule.Multiplier == nil {
		return base
	}
	switch rule.Multiplier.Kind {
	case MultiplyFactor:
		return int64(math.Round(float64(base) * rule.Multiplier.Factor))
	case MultiplyCount:
		return base * eventCount
	default:
		return base
	}
}

// Milestones returns the trigger counts declared by rules, in list order
// without duplicates.
func Milestones(rules []Rule) []int64 {
	var out []int64
	seen := make(map[int64]struct{}, len(rules))
	for _, r := range rules {
		if r.Count == nil {
			continue
		}
		if _, dup := seen[*r.Count]; dup {
			continue
		}
		seen[*r.Count] = struct{}{}
		out = append(out, *r.Count)
	}
	return out
}

// Count is a convenience for building rules with a trigger count.
func Count(n int64) *int64 { return &n }
