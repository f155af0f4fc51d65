package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/killwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func km(id int64, receivedAgo time.Duration, scaled float64) model.Killmail {
	return model.Killmail{
		ID:          id,
		Time:        base.Add(-receivedAgo - time.Second),
		ReceivedAt:  base.Add(-receivedAgo),
		TotalValue:  scaled * 100_000_000,
		ScaledValue: scaled,
	}
}

func TestRetentionStore_InsertAndRead(t *testing.T) {
	Convey("Given an empty retention store", t, func() {
		ctx := context.Background()
		s := NewRetentionStore()

		So(s.Count(ctx), ShouldEqual, 0)
		So(s.All(ctx), ShouldBeEmpty)
		So(s.NormalAge(), ShouldEqual, 45*time.Second)

		Convey("When a killmail is inserted", func() {
			s.Insert(ctx, km(1, 0, 1))

			Convey("Then it should be retained and readable", func() {
				So(s.Contains(ctx, 1), ShouldBeTrue)
				So(s.Count(ctx), ShouldEqual, 1)
				got, err := s.Get(ctx, 1)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, 1)
			})
		})

		Convey("When the same id is inserted twice", func() {
			s.Insert(ctx, km(1, 0, 1))
			second := km(1, 0, 3)
			s.Insert(ctx, second)

			Convey("Then the last write should win without duplicating", func() {
				So(s.Count(ctx), ShouldEqual, 1)
				got, _ := s.Get(ctx, 1)
				So(got.ScaledValue, ShouldEqual, 3.0)
			})
		})

		Convey("When reading an unknown id", func() {
			_, err := s.Get(ctx, 42)

			Convey("Then ErrNotFound should be returned", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(s.Contains(ctx, 42), ShouldBeFalse)
			})
		})

		Convey("When listing several killmails", func() {
			s.Insert(ctx, km(1, 30*time.Second, 1))
			s.Insert(ctx, km(2, 10*time.Second, 1))
			s.Insert(ctx, km(3, 10*time.Second, 1))
			s.Insert(ctx, km(4, 20*time.Second, 1))

			Convey("Then newest received should come first, ties by id desc", func() {
				all := s.All(ctx)
				ids := make([]int64, len(all))
				for i, k := range all {
					ids[i] = k.ID
				}
				So(ids, ShouldResemble, []int64{3, 2, 4, 1})
			})

			Convey("And mutating the snapshot should not affect the store", func() {
				all := s.All(ctx)
				all[0].ScaledValue = 99
				got, _ := s.Get(ctx, all[0].ID)
				So(got.ScaledValue, ShouldEqual, 1.0)
			})
		})
	})
}

func TestRetentionStore_Trim(t *testing.T) {
	Convey("Given a store with a 45s normal age", t, func() {
		ctx := context.Background()
		s := NewRetentionStore(WithNormalAge(45 * time.Second))

		Convey("When a scale-1 killmail is 44s old", func() {
			s.Insert(ctx, km(1, 44*time.Second, 1))

			Convey("Then trim should keep it", func() {
				So(s.Trim(ctx, base), ShouldEqual, 0)
				So(s.Contains(ctx, 1), ShouldBeTrue)
			})
		})

		Convey("When a scale-1 killmail is exactly 45s old", func() {
			s.Insert(ctx, km(1, 45*time.Second, 1))

			Convey("Then trim should remove it", func() {
				So(s.Trim(ctx, base), ShouldEqual, 1)
				So(s.Contains(ctx, 1), ShouldBeFalse)
			})
		})

		Convey("When a scale-2 killmail is 60s old", func() {
			s.Insert(ctx, km(1, 60*time.Second, 2))

			Convey("Then it should live until 90s", func() {
				So(s.Trim(ctx, base), ShouldEqual, 0)
				So(s.Trim(ctx, base.Add(29*time.Second)), ShouldEqual, 0)
				So(s.Trim(ctx, base.Add(30*time.Second)), ShouldEqual, 1)
			})
		})

		Convey("When a killmail's scaled value is huge", func() {
			s.Insert(ctx, km(1, 0, 1))
			s.Insert(ctx, km(2, 0, 1e9))

			Convey("Then it should outlive the scale-1 killmail", func() {
				So(s.Trim(ctx, base.Add(time.Second)), ShouldEqual, 0)
				So(s.Trim(ctx, base.Add(45*time.Second)), ShouldEqual, 1)
				So(s.Contains(ctx, 1), ShouldBeFalse)
				So(s.Contains(ctx, 2), ShouldBeTrue)
				So(s.Trim(ctx, base.Add(24*365*time.Hour)), ShouldEqual, 0)
			})
		})

		Convey("When a killmail has a zero scaled value", func() {
			s.Insert(ctx, km(1, -time.Minute, 0))

			Convey("Then the next trim should remove it regardless of age", func() {
				So(s.Trim(ctx, base), ShouldEqual, 1)
				So(s.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the focused killmail expires", func() {
			s.Insert(ctx, km(1, 50*time.Second, 1))
			s.Insert(ctx, km(2, 0, 1))
			s.Focus(ctx, 1)
			_, focused := s.Focused(ctx)
			So(focused, ShouldBeTrue)

			Convey("Then trim should clear the focus with the entry", func() {
				So(s.Trim(ctx, base), ShouldEqual, 1)
				_, focused = s.Focused(ctx)
				So(focused, ShouldBeFalse)
			})
		})

		Convey("When a surviving killmail is focused", func() {
			s.Insert(ctx, km(1, 50*time.Second, 1))
			s.Insert(ctx, km(2, 0, 1))
			s.Focus(ctx, 2)

			Convey("Then trim should keep the focus", func() {
				So(s.Trim(ctx, base), ShouldEqual, 1)
				got, focused := s.Focused(ctx)
				So(focused, ShouldBeTrue)
				So(got.ID, ShouldEqual, 2)
			})
		})
	})
}

func TestRetentionStore_Focus(t *testing.T) {
	Convey("Given a store with two killmails", t, func() {
		ctx := context.Background()
		s := NewRetentionStore()
		s.Insert(ctx, km(1, 0, 1))
		s.Insert(ctx, km(2, 0, 1))

		Convey("When focusing a present id", func() {
			s.Focus(ctx, 1)

			Convey("Then it should be focused", func() {
				got, ok := s.Focused(ctx)
				So(ok, ShouldBeTrue)
				So(got.ID, ShouldEqual, 1)
			})

			Convey("And focusing an absent id should clear the focus", func() {
				s.Focus(ctx, 99)
				_, ok := s.Focused(ctx)
				So(ok, ShouldBeFalse)
			})

			Convey("And unfocusing another id should keep it", func() {
				s.Unfocus(ctx, 2)
				got, ok := s.Focused(ctx)
				So(ok, ShouldBeTrue)
				So(got.ID, ShouldEqual, 1)
			})

			Convey("And unfocusing it should clear the focus", func() {
				s.Unfocus(ctx, 1)
				_, ok := s.Focused(ctx)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestRetentionStore_Concurrency(t *testing.T) {
	Convey("Given concurrent writers, trimmers and readers", t, func() {
		ctx := context.Background()
		s := NewRetentionStore(WithNormalAge(time.Second))

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					id := int64(w*1000 + i)
					s.Insert(ctx, km(id, time.Duration(i%3)*time.Second, 1))
					s.Focus(ctx, id)
					_ = s.All(ctx)
				}
			}(w)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Trim(ctx, base)
			}
		}()
		wg.Wait()

		Convey("Then a final trim should leave only live entries and no dangling focus", func() {
			s.Trim(ctx, base)
			for _, k := range s.All(ctx) {
				So(k.Expired(base, time.Second), ShouldBeFalse)
			}
			if f, ok := s.Focused(ctx); ok {
				So(s.Contains(ctx, f.ID), ShouldBeTrue)
			}
		})
	})
}
