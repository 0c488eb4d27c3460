package clock

import (
	"time"
)

// Clock provides a clock service as an alternative to using the standard
// time package.  The intention is that testing and production code be
// 'plug compatible'.  The NTRIP client polls its connection and paces its
// position reports by calling Sleep between polls, so a test can drive the
// client through hundreds of ticks without waiting for them.
//
// Known types that respect this interface are:
// SystemClock
//     whose Now() returns the system time and whose Sleep() really sleeps.
// StoppedClock
//     whose Now() always returns the same time and whose Sleep() returns
//     immediately.
// SteppingClock
//     whose Now() returns each of a given series of times in turn.
//
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}
