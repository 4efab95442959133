package httpapi

import "github.com/jonboulle/clockwork"

// clock times requests. Tests swap it for a fake via SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the request clock. Passing nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
