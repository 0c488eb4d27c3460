// Package asyncio provides a non-blocking, poll-based view of a TCP
// connection.
//
// A Channel never blocks its caller.  Write hands the data to a background
// writer and returns straight away.  The caller polls Check until the write
// is no longer in progress and then calls End to reclaim it.  Incoming data
// is polled with Available, which returns the number of bytes that can be
// read without blocking, and collected with Read.
//
// Only one write may be in flight at a time.  Starting a second write
// before the first has been ended is a programming error and causes a
// panic.
package asyncio

import (
	"errors"
	"io"
	"net"
	"time"
)

// peekTimeout is how long Available waits for data when the number of
// readable bytes can't be found by asking the operating system.
const peekTimeout = time.Millisecond

// peekBufferSize is the size of the buffer used to peek at a connection.
const peekBufferSize = 4096

// errHungUp is reported when the other end has closed the connection and
// there is nothing left to read.
var errHungUp = errors.New("connection closed by peer")

// writeResult is the outcome of a background write.
type writeResult struct {
	n   int
	err error
}

// Channel wraps a connected socket.
type Channel struct {
	conn net.Conn

	// inFlight is set when a write has been submitted and not yet ended.
	// The background writer sends its result on it.
	inFlight chan writeResult
	// result is set once the background writer has finished.
	result *writeResult

	// pending holds bytes taken off a connection by a peek, waiting to
	// be read.
	pending []byte
	// readErr is the error (typically EOF) seen by a peek after the data
	// that's now pending.
	readErr error

	closed bool
}

// New creates a Channel for the given connection.  The Channel owns the
// connection from now on.
func New(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// Write submits a send of the given data and returns without waiting for
// it to finish.  It returns Success if the send was started and Error if it
// could not be.  The data is copied, so the caller may reuse the buffer.
func (c *Channel) Write(data []byte) Status {
	if c.inFlight != nil {
		panic("asyncio: write started while another is in flight")
	}

	if c.conn == nil || c.closed {
		return Error
	}

	buffer := make([]byte, len(data))
	copy(buffer, data)

	// The result channel is buffered so the writer never blocks, even if
	// the Channel is closed before the result is collected.
	done := make(chan writeResult, 1)
	c.inFlight = done
	c.result = nil
	go func(conn net.Conn) {
		n, err := conn.Write(buffer)
		done <- writeResult{n: n, err: err}
	}(c.conn)

	return Success
}

// Check polls the write in flight.  It returns InProgress while the write is
// pending, Success once it has completed and Error if it failed.  If there
// is no write in flight, it returns Success.
func (c *Channel) Check() Status {
	if c.inFlight == nil {
		return Success
	}

	if c.result == nil {
		select {
		case r := <-c.inFlight:
			c.result = &r
		default:
			return InProgress
		}
	}

	if c.result.err != nil {
		return Error
	}

	return Success
}

// End finalises a completed write and returns the number of bytes written,
// or -1 if the write failed.  With no write to end, it returns 0.  Calling
// End while Check still reports InProgress is a programming error.
func (c *Channel) End() int {
	if c.inFlight == nil {
		return 0
	}

	if c.Check() == InProgress {
		panic("asyncio: End called while the write is in progress")
	}

	result := c.result
	c.inFlight = nil
	c.result = nil

	if result.err != nil {
		return -1
	}

	return result.n
}

// Available returns the number of bytes that can be read without blocking,
// 0 if there are none and -1 if the connection has failed or the other end
// has closed it and everything it sent has been read.
func (c *Channel) Available() int {
	if c.conn == nil || c.closed {
		return -1
	}

	if len(c.pending) > 0 {
		return len(c.pending)
	}

	if c.readErr != nil {
		return -1
	}

	n, supported, err := socketReadable(c.conn)
	if supported {
		if err != nil {
			return -1
		}
		return n
	}

	if err := c.peek(); err != nil {
		return -1
	}

	return len(c.pending)
}

// Read consumes up to n bytes that Available has reported as readable.
func (c *Channel) Read(n int) []byte {
	if n <= 0 || c.conn == nil || c.closed {
		return nil
	}

	buffer := make([]byte, n)
	got := copy(buffer, c.pending)
	c.pending = c.pending[got:]
	if got == n {
		return buffer
	}

	if len(c.pending) == 0 && c.readErr != nil {
		return buffer[:got]
	}

	m, _ := io.ReadFull(c.conn, buffer[got:])
	return buffer[:got+m]
}

// Close closes the connection.  A write in flight fails.
func (c *Channel) Close() error {
	if c.conn == nil || c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// peek waits very briefly for data and holds anything that arrives in the
// pending buffer.  It's used when the operating system can't tell us how
// many bytes are waiting, for example on an in-memory connection.
func (c *Channel) peek() error {
	buffer := make([]byte, peekBufferSize)
	c.conn.SetReadDeadline(time.Now().Add(peekTimeout))
	n, err := c.conn.Read(buffer)
	c.conn.SetReadDeadline(time.Time{})

	c.pending = append(c.pending, buffer[:n]...)

	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		// Nothing to read just now.
		return nil
	}

	if len(c.pending) > 0 {
		// Deliver what we have first and report the error next time.
		c.readErr = err
		return nil
	}

	return err
}
