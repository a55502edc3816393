package timer

import "time"

// Scheduler runs fn once after d. Callbacks must run on the goroutine that
// owns the Timer. The returned func cancels a callback that has not run yet;
// calling it more than once is harmless.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}
