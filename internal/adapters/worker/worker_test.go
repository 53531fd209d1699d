package worker_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/huddle/internal/adapters/worker"
	"github.com/okian/huddle/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestNewPool(t *testing.T) {
	Convey("Given pool constructors", t, func() {
		Convey("When size is positive", func() {
			p := worker.NewPool(3, worker.WithName("resolve"))

			Convey("Then it is kept", func() {
				So(p.Size(), ShouldEqual, 3)
				So(p.Name(), ShouldEqual, "resolve")
			})
		})

		Convey("When size is zero", func() {
			p := worker.NewPool(0)

			Convey("Then it defaults to a CPU multiple", func() {
				So(p.Size(), ShouldEqual, runtime.NumCPU()*4)
				So(p.Name(), ShouldEqual, "fanout")
			})
		})
	})
}

func TestPool_Each(t *testing.T) {
	Convey("Given a pool of two workers", t, func() {
		p := worker.NewPool(2)
		ctx := context.Background()

		Convey("When running ten tasks", func() {
			var inFlight, peak int32
			var mu sync.Mutex
			seen := map[int]bool{}

			err := p.Each(ctx, 10, func(ctx context.Context, i int) error {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				mu.Lock()
				seen[i] = true
				mu.Unlock()
				return nil
			})

			Convey("Then every index runs once within the limit", func() {
				So(err, ShouldBeNil)
				So(len(seen), ShouldEqual, 10)
				So(atomic.LoadInt32(&peak), ShouldBeLessThanOrEqualTo, 2)
			})
		})

		Convey("When a task fails", func() {
			boom := errors.New("boom")
			err := p.Each(ctx, 5, func(ctx context.Context, i int) error {
				if i == 0 {
					return boom
				}
				return nil
			})

			Convey("Then the error is returned wrapped", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
			})
		})

		Convey("When there is nothing to do", func() {
			called := false
			err := p.Each(ctx, 0, func(context.Context, int) error { called = true; return nil })

			Convey("Then fn is never called", func() {
				So(err, ShouldBeNil)
				So(called, ShouldBeFalse)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			var calls int32
			err := p.Each(cctx, 100, func(context.Context, int) error {
				atomic.AddInt32(&calls, 1)
				return nil
			})

			Convey("Then the context error is returned and no task is started", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(atomic.LoadInt32(&calls), ShouldEqual, 0)
			})
		})
	})
}
