// Package tcpclient makes the TCP connection to an NTRIP caster.
package tcpclient

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/goblimey/go-ntrip-client/asyncio"
)

// DefaultDialTimeout limits the time spent resolving the caster's name and
// connecting to it.
const DefaultDialTimeout = 10 * time.Second

// Connector resolves a host name and connects to it.  There are no retries.
type Connector struct {
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// New creates a Connector.  The logger may be nil.
func New(dialTimeout time.Duration, logger *slog.Logger) *Connector {
	return &Connector{DialTimeout: dialTimeout, Logger: logger}
}

// Connect resolves the address and connects to the given port, blocking
// until the connection is made or fails.  On success it returns the
// connection and Success, otherwise nil and Error.
func (c *Connector) Connect(address string, port int) (net.Conn, asyncio.Status) {
	if len(address) == 0 || port <= 0 || port > 65535 {
		c.log("invalid caster address", "address", address, "port", port)
		return nil, asyncio.Error
	}

	dialer := net.Dialer{Timeout: c.DialTimeout}
	target := net.JoinHostPort(address, strconv.Itoa(port))
	conn, err := dialer.Dial("tcp", target)
	if err != nil {
		c.log("cannot connect to caster", "target", target, "error", err)
		return nil, asyncio.Error
	}

	if c.Logger != nil {
		c.Logger.Debug("connected to caster", "target", target)
	}

	return conn, asyncio.Success
}

// Connect connects to the given address and port using the default dial
// timeout.
func Connect(address string, port int) (net.Conn, asyncio.Status) {
	return New(DefaultDialTimeout, nil).Connect(address, port)
}

func (c *Connector) log(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Error(msg, args...)
	}
}
