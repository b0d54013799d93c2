// Package score packs a points value and a tie-breaker into one sortable
// sorted-set score and decodes it back.
//
// A key has the textual form "{points}.{tieBreaker}" where the tie-breaker
// is zero-padded to ten digits. Larger tie-breakers sort first at equal points.
//
// The sorted set stores the key as a float64, so the tie-breaker survives
// only while a float can tell neighbouring ten-digit fractions apart. That
// holds for |points| <= MaxPoints; beyond it tie-breakers collapse and
// equal-point ordering is lost, so CheckRange rejects such scores.
package score

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// Digits is the fixed width of the tie-breaker field.
	Digits = 10

	// MaxTieBreaker is the largest value that fits the tie-breaker field.
	MaxTieBreaker int64 = 9_999_999_999

	// MaxPoints is the largest magnitude a score may reach. Below 2^19 the
	// spacing between adjacent float64 values is 2^-34, finer than the 1e-10
	// step of the tie-breaker field.
	MaxPoints int64 = 1<<19 - 1

	// TieBreakBase is the value timestamps are subtracted from so earlier
	// timestamps produce larger tie-breakers.
	TieBreakBase int64 = math.MaxInt32
)

// Key is an encoded (points, tieBreaker) pair.
type Key string

// Format encodes points and a tie-breaker. The tie-breaker is clamped to
// [0, MaxTieBreaker] so it never spills into the integer part.
func Format(points, tieBreaker int64) Key {
	return Key(fmt.Sprintf("%d.%0*d", points, Digits, clamp(tieBreaker)))
}

// FormatNumber encodes a points value that arrived as a float. It fails
// when the value is not a whole number.
func FormatNumber(points float64, tieBreaker int64) (Key, error) {
	p, err := Integer(points)
	if err != nil {
		return "", err
	}
	return Format(p, tieBreaker), nil
}

// Integer converts a float to int64, rejecting fractions and non-finite values.
func Integer(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Trunc(v) != v {
		return 0, fmt.Errorf("%w: %v", ErrNonInteger, v)
	}
	if v > math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrNonInteger, v)
	}
	return int64(v), nil
}

// CheckRange reports whether points can be encoded without losing the
// tie-breaker.
func CheckRange(points int64) error {
	if points > MaxPoints || points < -MaxPoints {
		return fmt.Errorf("%w: |%d| > %d", ErrOutOfRange, points, MaxPoints)
	}
	return nil
}

// Float returns the key as the float score stored in the sorted set.
func (k Key) Float() (float64, error) {
	f, err := strconv.ParseFloat(string(k), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, string(k))
	}
	return f, nil
}

func (k Key) String() string { return string(k) }

// Parse decodes a key. The fractional part is truncated to ten digits and
// right-padded with zeros when shorter.
func Parse(raw string) (points, tieBreaker int64, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, "eE") {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	whole, frac, _ := strings.Cut(raw, ".")
	if len(frac) > Digits {
		frac = frac[:Digits]
	}
	if pad := Digits - len(frac); pad > 0 {
		frac += strings.Repeat("0", pad)
	}
	if points, err = strconv.ParseInt(whole, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	if tieBreaker, err = strconv.ParseInt(frac, 10, 64); err != nil || tieBreaker < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return points, tieBreaker, nil
}

// ParseFloat decodes a score read back from the sorted set. The float is
// rendered with the shortest representation that round-trips, so a score
// written from a key reads back as the same digits.
func ParseFloat(f float64) (points, tieBreaker int64, err error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformed, f)
	}
	return Parse(strconv.FormatFloat(f, 'f', -1, 64))
}

// TieBreaker derives the tie-breaker for a moment in time. A zero time
// means now.
func TieBreaker(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return clamp(TieBreakBase - t.Unix())
}

// LowerBound is the inclusive sorted-set bound that admits every key with
// at least the given points.
func LowerBound(points int64) string {
	if points >= 0 {
		return strconv.FormatInt(points, 10)
	}
	// Negative keys sit in (points-1, points].
	return "(" + strconv.FormatInt(points-1, 10)
}

// UpperBound is the sorted-set bound that admits every key with at most
// the given points.
func UpperBound(points int64) string {
	if points >= 0 {
		return "(" + strconv.FormatInt(points+1, 10)
	}
	return strconv.FormatInt(points, 10)
}

func clamp(t int64) int64 {
	switch {
	case t < 0:
		return 0
	case t > MaxTieBreaker:
		return MaxTieBreaker
	default:
		return t
	}
}
