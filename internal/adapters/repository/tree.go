package repository

import (
	"math/rand/v2"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// row is one stored entry plus its insertion time.
type row struct {
	entry   model.Entry
	created time.Time
}

// before reports whether a ranks ahead of b: points desc, tie-breaker desc,
// user id desc, creation time asc.
func before(a, b *row) bool {
	switch {
	case a.entry.Points != b.entry.Points:
		return a.entry.Points > b.entry.Points
	case a.entry.TieBreaker != b.entry.TieBreaker:
		return a.entry.TieBreaker > b.entry.TieBreaker
	case a.entry.UserID != b.entry.UserID:
		return a.entry.UserID > b.entry.UserID
	default:
		return a.created.Before(b.created)
	}
}

// node is a treap node sized for order-statistic queries. An in-order walk
// yields rows best first.
type node struct {
	row   *row
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, r *row) *node {
	if n == nil {
		return &node{row: r, prio: rand.Uint64(), size: 1}
	}
	if before(r, n.row) {
		n.left = insert(n.left, r)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, r)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// remove deletes r, which must still hold the values it was inserted with.
func remove(n *node, r *row) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.row == r:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, r)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, r)
		}
	case before(r, n.row):
		n.left = remove(n.left, r)
	default:
		n.right = remove(n.right, r)
	}
	fix(n)
	return n
}

// collect appends up to limit rows in rank order, starting after skip rows.
func collect(n *node, skip, limit int, out *[]*row) {
	if n == nil || len(*out) >= limit {
		return
	}
	ls := nsize(n.left)
	if skip < ls {
		collect(n.left, skip, limit, out)
	}
	if len(*out) >= limit {
		return
	}
	if skip <= ls {
		*out = append(*out, n.row)
	}
	collect(n.right, max(0, skip-ls-1), limit, out)
}

// walk visits every row in rank order.
func walk(n *node, fn func(*row)) {
	if n == nil {
		return
	}
	walk(n.left, fn)
	fn(n.row)
	walk(n.right, fn)
}
