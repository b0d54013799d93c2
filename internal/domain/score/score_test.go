package score_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/score"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormat(t *testing.T) {
	Convey("Given points and a tie-breaker", t, func() {
		Convey("Then the tie-breaker is zero padded to ten digits", func() {
			So(score.Format(100, 42).String(), ShouldEqual, "100.0000000042")
			So(score.Format(0, 0).String(), ShouldEqual, "0.0000000000")
			So(score.Format(7, 2147483647).String(), ShouldEqual, "7.2147483647")
		})

		Convey("Then out of range tie-breakers are clamped", func() {
			So(score.Format(1, -5).String(), ShouldEqual, "1.0000000000")
			So(score.Format(1, 99_999_999_999).String(), ShouldEqual, "1.9999999999")
		})

		Convey("Then fractional points are rejected", func() {
			_, err := score.FormatNumber(10.5, 1)
			So(errors.Is(err, score.ErrNonInteger), ShouldBeTrue)
			_, err = score.FormatNumber(math.NaN(), 1)
			So(errors.Is(err, score.ErrNonInteger), ShouldBeTrue)
			k, err := score.FormatNumber(10, 1)
			So(err, ShouldBeNil)
			So(k.String(), ShouldEqual, "10.0000000001")
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given encoded keys", t, func() {
		Convey("Then round-trips hold across the valid range", func() {
			r := rand.New(rand.NewPCG(1, 2))
			for i := 0; i < 5000; i++ {
				p := r.Int64N(1_000_000_000_000)
				tb := r.Int64N(score.MaxTieBreaker + 1)
				gotP, gotT, err := score.Parse(score.Format(p, tb).String())
				So(err, ShouldBeNil)
				So(gotP, ShouldEqual, p)
				So(gotT, ShouldEqual, tb)
			}
			p, tb, err := score.Parse(score.Format(0, score.MaxTieBreaker).String())
			So(err, ShouldBeNil)
			So(p, ShouldEqual, 0)
			So(tb, ShouldEqual, score.MaxTieBreaker)
		})

		Convey("Then short fractions are right padded", func() {
			p, tb, err := score.Parse("100.123456789")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, 100)
			So(tb, ShouldEqual, 1234567890)
		})

		Convey("Then long fractions are truncated", func() {
			_, tb, err := score.Parse("3.12345678901234")
			So(err, ShouldBeNil)
			So(tb, ShouldEqual, 1234567890)
		})

		Convey("Then whole numbers carry a zero tie-breaker", func() {
			p, tb, err := score.Parse("55")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, 55)
			So(tb, ShouldEqual, 0)
		})

		Convey("Then garbage is rejected", func() {
			for _, raw := range []string{"", "abc", "1e5", "1.x"} {
				_, _, err := score.Parse(raw)
				So(errors.Is(err, score.ErrMalformed), ShouldBeTrue)
			}
		})
	})

	Convey("Given scores read back as floats", t, func() {
		Convey("Then the shortest rendering recovers the digits", func() {
			k := score.Format(100, 2147483000)
			f, err := k.Float()
			So(err, ShouldBeNil)
			p, tb, err := score.ParseFloat(f)
			So(err, ShouldBeNil)
			So(p, ShouldEqual, 100)
			So(tb, ShouldEqual, 2147483000)
		})

		Convey("Then every key within the encodable range survives the float", func() {
			r := rand.New(rand.NewPCG(3, 4))
			check := func(p, tb int64) {
				f, err := score.Format(p, tb).Float()
				So(err, ShouldBeNil)
				gotP, gotT, err := score.ParseFloat(f)
				So(err, ShouldBeNil)
				So(gotP, ShouldEqual, p)
				So(gotT, ShouldEqual, tb)
			}
			for i := 0; i < 5000; i++ {
				check(r.Int64N(score.MaxPoints+1), r.Int64N(score.MaxTieBreaker+1))
			}
			check(score.MaxPoints, score.MaxTieBreaker)
			check(score.MaxPoints, 0)
			check(-score.MaxPoints, 387483647)
		})

		Convey("Then non-finite scores are rejected", func() {
			_, _, err := score.ParseFloat(math.Inf(1))
			So(errors.Is(err, score.ErrMalformed), ShouldBeTrue)
		})
	})
}

func TestCheckRange(t *testing.T) {
	Convey("Given scores around the encodable bound", t, func() {
		Convey("Then values within it are accepted", func() {
			So(score.CheckRange(0), ShouldBeNil)
			So(score.CheckRange(score.MaxPoints), ShouldBeNil)
			So(score.CheckRange(-score.MaxPoints), ShouldBeNil)
		})

		Convey("Then values beyond it are rejected", func() {
			So(errors.Is(score.CheckRange(score.MaxPoints+1), score.ErrOutOfRange), ShouldBeTrue)
			So(errors.Is(score.CheckRange(-score.MaxPoints-1), score.ErrOutOfRange), ShouldBeTrue)
			So(errors.Is(score.CheckRange(10_000_000), score.ErrOutOfRange), ShouldBeTrue)
		})
	})
}

func TestOrdering(t *testing.T) {
	Convey("Given two entries with equal points", t, func() {
		early := score.TieBreaker(time.Unix(3, 0))
		late := score.TieBreaker(time.Unix(5, 0))

		Convey("Then the earlier timestamp has the larger tie-breaker", func() {
			So(early, ShouldEqual, score.TieBreakBase-3)
			So(late, ShouldEqual, score.TieBreakBase-5)
			So(early, ShouldBeGreaterThan, late)
		})

		Convey("Then the earlier timestamp sorts first", func() {
			a, err := score.Format(100, late).Float()
			So(err, ShouldBeNil)
			b, err := score.Format(100, early).Float()
			So(err, ShouldBeNil)
			So(b, ShouldBeGreaterThan, a)
		})

		Convey("Then adjacent tie-breakers stay ordered at the largest points", func() {
			a, err := score.Format(score.MaxPoints, 387483646).Float()
			So(err, ShouldBeNil)
			b, err := score.Format(score.MaxPoints, 387483647).Float()
			So(err, ShouldBeNil)
			So(b, ShouldBeGreaterThan, a)
		})

		Convey("Then more points always beat any tie-breaker", func() {
			low, _ := score.Format(99, score.MaxTieBreaker).Float()
			high, _ := score.Format(100, 0).Float()
			So(high, ShouldBeGreaterThan, low)
		})
	})

	Convey("Given no timestamp", t, func() {
		Convey("Then now is used", func() {
			now := score.TieBreaker(time.Now())
			got := score.TieBreaker(time.Time{})
			So(math.Abs(float64(got-now)), ShouldBeLessThanOrEqualTo, 1)
		})
	})
}

func TestBounds(t *testing.T) {
	Convey("Given whole point bounds", t, func() {
		Convey("Then non-negative bounds cover every tie-breaker", func() {
			So(score.LowerBound(10), ShouldEqual, "10")
			So(score.UpperBound(10), ShouldEqual, "(11")
		})

		Convey("Then negative bounds follow the reversed fraction", func() {
			So(score.LowerBound(-5), ShouldEqual, "(-6")
			So(score.UpperBound(-5), ShouldEqual, "-5")
		})
	})
}
