// Package loop provides a single-goroutine event loop for driving the timer
// without a terminal UI. Every callback runs on the goroutine that called
// Run, one at a time.
package loop

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Loop runs timed callbacks and posted work in order.
type Loop struct {
	mu     sync.Mutex
	tasks  taskHeap
	seq    uint64
	posted []func()
	wake   chan struct{}
}

type task struct {
	id    uint64
	due   time.Time
	fn    func()
	index int
}

// New creates an idle Loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// AfterFunc schedules fn to run on the loop after d. The returned func
// cancels it if it has not run yet.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	l.mu.Lock()
	l.seq++
	t := &task{id: l.seq, due: time.Now().Add(d), fn: fn}
	heap.Push(&l.tasks, t)
	l.mu.Unlock()
	l.signal()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if t.index >= 0 {
			heap.Remove(&l.tasks, t.index)
		}
	}
}

// Post runs fn on the loop as soon as possible. It is safe to call from
// any goroutine, such as a signal handler.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.signal()
}

// Pending returns the number of scheduled callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Run processes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, fn := range l.takePosted() {
			fn()
		}

		fn, wait := l.next(time.Now())
		if fn != nil {
			fn()
			continue
		}

		var timer *time.Timer
		var timeout <-chan time.Time
		if wait > 0 {
			timer = time.NewTimer(wait)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
		case <-l.wake:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (l *Loop) takePosted() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	posted := l.posted
	l.posted = nil
	return posted
}

// next pops the earliest due callback, or reports how long until one is due.
// A zero wait with no callback means nothing is scheduled.
func (l *Loop) next(now time.Time) (func(), time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, 0
	}
	t := l.tasks[0]
	if t.due.After(now) {
		return nil, t.due.Sub(now)
	}
	heap.Pop(&l.tasks)
	return t.fn, 0
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].id < h[j].id
	}
	return h[i].due.Before(h[j].due)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
