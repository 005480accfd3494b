package service

import (
	"sync"
	"time"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}
