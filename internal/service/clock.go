package service

import "time"

// Clock returns the current time. Tests substitute a fixed sequence.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
