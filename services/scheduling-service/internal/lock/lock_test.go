package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalMutualExclusion(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "2030-01-15")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxInside)
	}
	if len(l.keys) != 0 {
		t.Fatalf("expected keys to be cleaned up, got %d", len(l.keys))
	}
}

func TestLocalAcquireHonorsContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "day")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "day"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	other, err := l.Acquire(context.Background(), "other-day")
	if err != nil {
		t.Fatalf("different keys must not block: %v", err)
	}
	other()
}

func newRedisLock(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedis(rdb, ttl, nil)
	l.retry = 5 * time.Millisecond
	return l, mr
}

func TestRedisSecondHolderWaits(t *testing.T) {
	l, _ := newRedisLock(t, 5*time.Second)

	release, err := l.Acquire(context.Background(), "2030-01-15")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "2030-01-15"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	release()
	release()

	second, err := l.Acquire(context.Background(), "2030-01-15")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	second()
}

func TestRedisLockExpires(t *testing.T) {
	l, mr := newRedisLock(t, time.Second)

	stale, err := l.Acquire(context.Background(), "day")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(context.Background(), "day")
	if err != nil {
		t.Fatalf("Acquire after ttl: %v", err)
	}
	defer fresh()

	stale()
	if !mr.Exists("slotbook:lock:day") {
		t.Fatalf("stale release removed the new holder's lock")
	}
}
