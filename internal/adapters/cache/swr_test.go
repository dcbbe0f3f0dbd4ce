package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestSWR(t *testing.T) {
	Convey("Given a cache with a counting loader", t, func() {
		ctx := context.Background()
		clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		var calls atomic.Int32
		version := atomic.Int32{}
		load := func(_ context.Context, key string) (string, error) {
			calls.Add(1)
			if key == "broken" {
				return "", errors.New("backend down")
			}
			return key + "@" + string(rune('0'+version.Load())), nil
		}
		c := New[string]("test", load,
			WithTTL[string](time.Minute),
			WithStaleTTL[string](time.Hour),
			WithClock[string](clock.Now),
		)

		Convey("When a key is read twice while fresh", func() {
			v1, err1 := c.Get(ctx, "p")
			v2, err2 := c.Get(ctx, "p")

			Convey("Then it is loaded once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(v1, ShouldEqual, "p@0")
				So(v2, ShouldEqual, "p@0")
				So(calls.Load(), ShouldEqual, 1)
				So(c.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a key goes stale", func() {
			_, _ = c.Get(ctx, "p")
			version.Store(1)
			clock.Advance(2 * time.Minute)
			v, err := c.Get(ctx, "p")

			Convey("Then the stale value is served and refreshed in the background", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "p@0")
				So(waitFor(func() bool { return calls.Load() == 2 }), ShouldBeTrue)
				So(waitFor(func() bool {
					it, _ := c.entries.Load("p")
					return it.value == "p@1"
				}), ShouldBeTrue)
			})
		})

		Convey("When a key is older than the stale window", func() {
			_, _ = c.Get(ctx, "p")
			version.Store(2)
			clock.Advance(2 * time.Hour)
			v, err := c.Get(ctx, "p")

			Convey("Then it is loaded synchronously", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "p@2")
			})
		})

		Convey("When a key is invalidated", func() {
			_, _ = c.Get(ctx, "p")
			version.Store(3)
			c.Invalidate("p")
			v, _ := c.Get(ctx, "p")

			Convey("Then the next read reloads it", func() {
				So(v, ShouldEqual, "p@3")
				So(calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the loader fails", func() {
			_, err := c.Get(ctx, "broken")

			Convey("Then the error is returned and nothing is cached", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "backend down")
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("When everything is purged", func() {
			_, _ = c.Get(ctx, "a")
			_, _ = c.Get(ctx, "b")
			c.Purge()

			Convey("Then the cache is empty", func() {
				So(c.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSWRCoalescing(t *testing.T) {
	Convey("Given many concurrent readers of a missing key", t, func() {
		release := make(chan struct{})
		var calls atomic.Int32
		c := New[int]("coalesce", func(_ context.Context, _ string) (int, error) {
			calls.Add(1)
			<-release
			return 42, nil
		})

		var wg sync.WaitGroup
		results := make([]int, 20)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = c.Get(context.Background(), "k")
			}(i)
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		Convey("Then the loader runs once and everyone gets the value", func() {
			So(calls.Load(), ShouldEqual, 1)
			for _, r := range results {
				So(r, ShouldEqual, 42)
			}
		})
	})
}

func TestSWRInvalidateDuringLoad(t *testing.T) {
	Convey("Given a load in flight when its key is invalidated", t, func() {
		ctx := context.Background()
		entered := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int32
		c := New[string]("inflight", func(_ context.Context, _ string) (string, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
				return "old", nil
			}
			return "new", nil
		})

		first := make(chan string, 1)
		go func() {
			v, _ := c.Get(ctx, "p")
			first <- v
		}()
		<-entered
		c.Invalidate("p")

		Convey("Then a later miss loads again and the earlier load does not overwrite it", func() {
			v, err := c.Get(ctx, "p")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "new")
			So(calls.Load(), ShouldEqual, 2)

			close(release)
			So(<-first, ShouldEqual, "old")

			it, ok := c.entries.Load("p")
			So(ok, ShouldBeTrue)
			So(it.value, ShouldEqual, "new")
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
