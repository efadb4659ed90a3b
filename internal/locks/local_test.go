package locks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/errs"
)

func TestLocalLockerSerializesPerInstance(t *testing.T) {
	locker := NewLocalLocker(2 * time.Second)
	ctx := context.Background()
	id := uuid.New()

	release, err := locker.Acquire(ctx, id, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r2, err := locker.Acquire(ctx, id, time.Minute)
		if err != nil {
			t.Errorf("second Acquire: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		r2()
	}()

	select {
	case <-acquired:
		t.Fatalf("second Acquire succeeded while lock held")
	case <-time.After(100 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second Acquire never completed after release")
	}
}

func TestLocalLockerIndependentInstances(t *testing.T) {
	locker := NewLocalLocker(time.Second)
	ctx := context.Background()

	r1, err := locker.Acquire(ctx, uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("Acquire A: %v", err)
	}
	defer r1()
	r2, err := locker.Acquire(ctx, uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("Acquire B: %v", err)
	}
	r2()
}

func TestLocalLockerTimeout(t *testing.T) {
	locker := NewLocalLocker(100 * time.Millisecond)
	ctx := context.Background()
	id := uuid.New()

	release, err := locker.Acquire(ctx, id, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	_, err = locker.Acquire(ctx, id, time.Minute)
	if !errors.Is(err, errs.ErrLockTimeout) {
		t.Fatalf("want=ErrLockTimeout got=%v", err)
	}
}

func TestLocalLockerReleaseIsIdempotent(t *testing.T) {
	locker := NewLocalLocker(time.Second)
	id := uuid.New()

	release, err := locker.Acquire(context.Background(), id, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
	release() // second call must not panic or free someone else's lock

	again, err := locker.Acquire(context.Background(), id, time.Minute)
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	again()
}

func TestLocalLockerManyWaiters(t *testing.T) {
	locker := NewLocalLocker(3 * time.Second)
	ctx := context.Background()
	id := uuid.New()

	var held int32
	var mu sync.Mutex
	maxHeld := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, id, time.Minute)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			held++
			if int(held) > maxHeld {
				maxHeld = int(held)
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			held--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	if maxHeld != 1 {
		t.Fatalf("lock held by %d goroutines at once", maxHeld)
	}
}
