package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/ladle/internal/adapters/mq/worker"
	model "github.com/okian/ladle/internal/domain/model"
	logging "github.com/okian/ladle/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	noticeChan chan worker.Notice
	closeError error
	closeOnce  sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		noticeChan: make(chan worker.Notice, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan worker.Notice {
	return mq.noticeChan
}

func (mq *mockQueue) Close() error {
	mq.closeOnce.Do(func() {
		close(mq.noticeChan)
	})
	return mq.closeError
}

func (mq *mockQueue) addNotice(n worker.Notice) {
	mq.noticeChan <- n
}

type mockRanker struct {
	totals map[string]int64
	mu     sync.RWMutex
}

func newMockRanker() *mockRanker {
	return &mockRanker{
		totals: make(map[string]int64),
	}
}

func (mr *mockRanker) Apply(ctx context.Context, n worker.Notice) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.totals[n.UserID] = n.NewTotal
}

func (mr *mockRanker) getTotal(userID string) (int64, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	total, exists := mr.totals[userID]
	return total, exists
}

func notice(userID string, delta, total int64) model.RankNotice {
	return model.RankNotice{
		UserID:     userID,
		Delta:      delta,
		NewTotal:   total,
		OccurredAt: time.Now(),
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		queue := newMockQueue()
		ranker := newMockRanker()

		convey.Convey("When creating a worker with default options", func() {
			worker := worker.NewInMemoryWorker(queue, ranker)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(worker, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a worker with custom options", func() {
			worker := worker.NewInMemoryWorker(
				queue, ranker,
				worker.WithName("test-ranker"),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(worker, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			worker := worker.NewInMemoryWorker(queue, ranker)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Start worker in goroutine
			go worker.Run(ctx)

			// Give worker time to start
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And when processing notices", func() {
				queue.addNotice(notice("user-1", 50, 150))

				// Give worker time to process
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it should fold the total into the board", func() {
					total, applied := ranker.getTotal("user-1")
					convey.So(applied, convey.ShouldBeTrue)
					convey.So(total, convey.ShouldEqual, 150)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := worker.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When context is cancelled", func() {
			worker := worker.NewInMemoryWorker(queue, ranker)
			ctx, cancel := context.WithCancel(context.Background())

			// Start worker in goroutine
			go worker.Run(ctx)

			// Give worker time to start
			time.Sleep(10 * time.Millisecond)

			// Cancel context
			cancel()

			// Give worker time to stop
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then a late notice should not be applied", func() {
				select {
				case queue.noticeChan <- notice("user-late", 10, 10):
				default:
				}
				time.Sleep(50 * time.Millisecond)

				_, applied := ranker.getTotal("user-late")
				convey.So(applied, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the queue channel is closed", func() {
			worker := worker.NewInMemoryWorker(queue, ranker)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go worker.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			_ = queue.Close()
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then shutdown should return promptly", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				convey.So(worker.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new worker pool", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		queue := newMockQueue()
		ranker := newMockRanker()

		convey.Convey("When creating a worker pool with default count", func() {
			pool := worker.NewPool(0, queue, ranker)

			convey.Convey("Then it should size itself from the CPU count", func() {
				convey.So(pool, convey.ShouldNotBeNil)
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When creating a worker pool with custom count", func() {
			pool := worker.NewPool(3, queue, ranker)

			convey.Convey("Then it should run exactly that many workers", func() {
				convey.So(pool.Size(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When starting a worker pool", func() {
			pool := worker.NewPool(2, queue, ranker)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)

			// Give workers time to start
			time.Sleep(20 * time.Millisecond)

			convey.Convey("And when processing multiple notices", func() {
				notices := []model.RankNotice{
					notice("user-1", 100, 100),
					notice("user-2", 95, 95),
					notice("user-3", 90, 90),
				}

				for _, n := range notices {
					queue.addNotice(n)
				}

				// Give workers time to process
				time.Sleep(100 * time.Millisecond)

				convey.Convey("Then all notices should be applied", func() {
					for _, n := range notices {
						total, applied := ranker.getTotal(n.UserID)
						convey.So(applied, convey.ShouldBeTrue)
						convey.So(total, convey.ShouldEqual, n.NewTotal)
					}
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()

				err := pool.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When stopping a worker pool", func() {
			pool := worker.NewPool(2, queue, ranker)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)

			// Give workers time to start
			time.Sleep(20 * time.Millisecond)

			pool.Stop()

			convey.Convey("Then workers should no longer drain the queue", func() {
				queue.addNotice(notice("user-after-stop", 10, 10))
				time.Sleep(50 * time.Millisecond)

				_, applied := ranker.getTotal("user-after-stop")
				convey.So(applied, convey.ShouldBeFalse)
			})
		})
	})
}

func TestWorkerConcurrency(t *testing.T) {
	convey.Convey("Given a worker pool with multiple workers", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		queue := newMockQueue()
		ranker := newMockRanker()

		pool := worker.NewPool(4, queue, ranker)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool.Start(ctx)

		// Give workers time to start
		time.Sleep(20 * time.Millisecond)

		convey.Convey("When processing many concurrent notices", func() {
			const noticeCount = 100
			var wg sync.WaitGroup

			// Start multiple goroutines adding notices
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(producerID int) {
					defer wg.Done()
					for j := 0; j < noticeCount/5; j++ {
						userID := fmt.Sprintf("user-%d-%d", producerID, j)
						queue.addNotice(notice(userID, int64(10+j), int64(100+j)))
					}
				}(i)
			}

			// Wait for all notices to be added
			wg.Wait()

			// Give workers time to process
			time.Sleep(200 * time.Millisecond)

			convey.Convey("Then all notices should be applied", func() {
				appliedCount := 0
				for i := 0; i < 5; i++ {
					for j := 0; j < noticeCount/5; j++ {
						userID := fmt.Sprintf("user-%d-%d", i, j)
						if _, applied := ranker.getTotal(userID); applied {
							appliedCount++
						}
					}
				}
				convey.So(appliedCount, convey.ShouldEqual, noticeCount)
			})
		})
	})
}
