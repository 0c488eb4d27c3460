package clock

import (
	"sync"
	"time"
)

// StoppedClock is a Clock that implements unchanging time.  Sleep doesn't
// pause, it just counts the calls and adds up the time that would have
// been spent sleeping.
//
type StoppedClock struct {
	mutex  sync.Mutex
	time   time.Time
	sleeps int
	slept  time.Duration
}

var _ Clock = (*StoppedClock)(nil) // Ensure that StoppedClock implements Clock.

// NewStoppedClock creates a StoppedClock.
//
func NewStoppedClock(year int, month time.Month, day, hour, minute, second, nanosecond int, location *time.Location) *StoppedClock {
	time := time.Date(year, month, day, hour, minute, second, nanosecond, location)
	return &StoppedClock{time: time}
}

// SetTime sets a new unchanging time.
//
func (c *StoppedClock) SetTime(time time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.time = time
}

// Now always returns the same time.
//
func (c *StoppedClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.time
}

// Sleep records the call and returns immediately.
func (c *StoppedClock) Sleep(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sleeps++
	c.slept += d
}

// Sleeps returns the number of calls of Sleep so far.
func (c *StoppedClock) Sleeps() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.sleeps
}

// Slept returns the total duration passed to Sleep so far.
func (c *StoppedClock) Slept() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.slept
}
