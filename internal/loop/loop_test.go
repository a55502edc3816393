package loop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAfterFuncOrder(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var order []int
	l.AfterFunc(30*time.Millisecond, func() {
		order = append(order, 3)
		cancel()
	})
	l.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	l.AfterFunc(20*time.Millisecond, func() { order = append(order, 2) })

	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
		}
	}
}

func TestAfterFuncCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := false
	stop := l.AfterFunc(10*time.Millisecond, func() { fired = true })
	stop()
	stop()
	l.AfterFunc(40*time.Millisecond, cancel)

	l.Run(ctx)

	if fired {
		t.Error("Cancelled callback should not run")
	}
	if l.Pending() != 0 {
		t.Errorf("Expected no pending callbacks, got %d", l.Pending())
	}
}

func TestRescheduleFromCallback(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count := 0
	var frame func()
	frame = func() {
		count++
		if count == 5 {
			cancel()
			return
		}
		l.AfterFunc(time.Millisecond, frame)
	}
	l.AfterFunc(time.Millisecond, frame)

	l.Run(ctx)

	if count != 5 {
		t.Errorf("Expected 5 frames, got %d", count)
	}
}

func TestPostFromAnotherGoroutine(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ran := false
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Post(func() {
			ran = true
			cancel()
		})
	}()

	l.Run(ctx)

	if !ran {
		t.Error("Expected posted func to run on the loop")
	}
	if ctx.Err() == context.DeadlineExceeded {
		t.Error("Loop did not wake for posted work")
	}
}

func TestRunReturnsWhenDone(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l.AfterFunc(time.Hour, func() {})
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
