package testevents

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/okian/podium/internal/domain/model"
)

// Verify checks that top is the best n of expected: ranks are consecutive
// from 1, every user's points equal its expected total, and the points
// sequence matches the expected ordering. Users tied on points may appear
// in any order.
func Verify(expected map[string]int64, top []model.Entry, n int) error {
	want := make([]int64, 0, len(expected))
	for _, p := range expected {
		want = append(want, p)
	}
	slices.SortFunc(want, func(a, b int64) int { return cmp.Compare(b, a) })
	if n > 0 && len(want) > n {
		want = want[:n]
	}
	if len(top) != len(want) {
		return fmt.Errorf("got %d entries, want %d", len(top), len(want))
	}
	for i, e := range top {
		if e.Rank != int64(i+1) {
			return fmt.Errorf("entry %d (%s) has rank %d", i, e.UserID, e.Rank)
		}
		exp, ok := expected[e.UserID]
		if !ok {
			return fmt.Errorf("unexpected user %s at rank %d", e.UserID, e.Rank)
		}
		if e.Points != exp {
			return fmt.Errorf("user %s has %d points, want %d", e.UserID, e.Points, exp)
		}
		if e.Points != want[i] {
			return fmt.Errorf("rank %d has %d points, want %d", e.Rank, e.Points, want[i])
		}
	}
	return nil
}
