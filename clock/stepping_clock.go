package clock

import (
	"sync"
	"time"
)

// SteppingClock is a Clock that returns a given series of time values,
// one at a time.  It's useful in a test case that makes a series of calls
// to get the current time, for example to check the timestamps in a run
// of position reports.
//
// NewSteppingClock takes a slice of time values.  Each call of Now()
// returns the next one of these.  Once Now() has returned all the values,
// any subsequent call returns the last value.  Sleep returns immediately.
//
type SteppingClock struct {
	mutex    sync.Mutex
	nextTime int         // The next time to be returned.
	times    []time.Time // The list of times to be returned.
}

// This is a compile-time check that SteppingClock implements Clock.
var _ Clock = (*SteppingClock)(nil)

// NewSteppingClock creates a SteppingClock.
//
func NewSteppingClock(timeList []time.Time) *SteppingClock {
	return &SteppingClock{times: timeList}
}

// SetTimes sets the list of times to return and starts again at the
// beginning of it.
//
func (c *SteppingClock) SetTimes(times []time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.times = times
	c.nextTime = 0
}

// Now returns the next time value from the given list.  If
// previous calls have reached the end of the list, it returns
// the last time value again. If the list has not been set, it
// returns the UNIX Epoch.
//
func (c *SteppingClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.times) == 0 {
		return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.nextTime == len(c.times) {
		// We have reached the end of the list.
		return c.times[len(c.times)-1]
	}

	// Return the next time value.
	result := c.times[c.nextTime]
	c.nextTime++
	return result
}

// Sleep returns immediately.
func (c *SteppingClock) Sleep(d time.Duration) {}
