// Package ntrip is the client side of the Networked Transport of RTCM via
// Internet Protocol.
//
// An NTRIP caster offers a set of named mount points, each carrying a
// stream of corrections from a base station.  The client connects to the
// caster, asks for a mount point with an HTTP/1.0 style GET request and,
// if the caster answers "ICY 200 OK", receives the stream on the same
// connection.  A rover that uses a Virtual Reference Station also sends its
// position to the caster as a GGA sentence every few seconds so that the
// caster can compute corrections for that spot.  Asking for the empty mount
// point gets the caster's source table, the list of its mount points.
//
// The client never blocks for long.  It polls its connection every
// PollInterval and gives up on a response after PollLimit polls.  All the
// waiting is done by the Clock it's given, so tests can run the client
// without waiting.
package ntrip

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/goblimey/go-ntrip-client/asyncio"
	"github.com/goblimey/go-ntrip-client/clock"
	"github.com/goblimey/go-ntrip-client/gga"
	"github.com/goblimey/go-ntrip-client/position"
	"github.com/goblimey/go-ntrip-client/sourcetable"
	"github.com/goblimey/go-ntrip-client/tcpclient"
)

// PollInterval is the time between polls of the connection.
const PollInterval = 100 * time.Millisecond

// PollLimit is the number of polls to wait for a response, giving a 5
// second timeout.
const PollLimit = 50

// Responses from the caster.
const (
	ResponseOK           = "ICY 200 OK\r\n"
	ResponseUnauthorized = "HTTP/1.1 401 Unauthorized\r\n"
	endOfHeader          = "\r\n\r\n"
)

// ErrPositionReport is returned by IsSending when the last position report
// failed to go.
var ErrPositionReport = errors.New("ntrip: position report failed")

// Login holds everything needed to connect to a mount point.
type Login struct {
	Address    string
	Port       int
	MountPoint string
	Username   string
	Password   string
	Location   position.Location
}

// Channel is the non-blocking connection that the client uses.
// asyncio.Channel satisfies it.
type Channel interface {
	Write(data []byte) asyncio.Status
	Check() asyncio.Status
	End() int
	Available() int
	Read(n int) []byte
	Close() error
}

// DialFunc connects to a caster.
type DialFunc func(address string, port int) (Channel, asyncio.Status)

// TCPDialer returns a DialFunc that makes a TCP connection using the
// connector and wraps it in an asyncio.Channel.
func TCPDialer(connector *tcpclient.Connector) DialFunc {
	return func(address string, port int) (Channel, asyncio.Status) {
		conn, status := connector.Connect(address, port)
		if status != asyncio.Success {
			return nil, status
		}
		return asyncio.New(conn), asyncio.Success
	}
}

// Client talks to one caster.  It holds at most one session at a time.
type Client struct {
	dial   DialFunc
	clock  clock.Clock
	logger *slog.Logger

	channel Channel
	state   State
}

// New creates a client.  The logger may be nil.
func New(dial DialFunc, clk clock.Clock, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{dial: dial, clock: clk, logger: logger, state: Disconnected}
}

// NewTCPClient creates a client that makes TCP connections and runs on the
// system clock.
func NewTCPClient(logger *slog.Logger) *Client {
	connector := tcpclient.New(tcpclient.DefaultDialTimeout, logger)
	return New(TCPDialer(connector), clock.NewSystemClock(), logger)
}

// State returns the state of the client's session.
func (c *Client) State() State {
	return c.state
}

// Connect connects to the mount point given by the login and waits for the
// caster's response.  On ConnectionOK the session is streaming and the
// corrections can be collected with Available and Receive.  On any other
// result the connection is closed.
//
// Calling Connect while a session is active is a programming error and
// causes a panic.
func (c *Client) Connect(login Login) ConnectionStatus {
	if c.channel != nil {
		panic("ntrip: Connect called while a session is active")
	}

	c.state = Connecting
	channel, status := c.dial(login.Address, login.Port)
	if status != asyncio.Success {
		c.state = Failed
		return ConnectionError
	}
	c.channel = channel

	request := BuildRequest(login.MountPoint, login.Username, login.Password)
	if c.channel.Write(request) != asyncio.Success {
		c.logger.Error("cannot send request", "mountpoint", login.MountPoint)
		c.endSession(Failed)
		return ConnectionError
	}

	c.state = AwaitingResponse
	response, status := c.awaitResponse(c.channel, responseComplete)
	if status != asyncio.Success {
		if status == asyncio.InProgress {
			c.logger.Error("no complete response from caster", "polls", PollLimit,
				"received", len(response))
		} else {
			c.logger.Error("connection failed while waiting for response")
		}
		c.endSession(Failed)
		return ConnectionError
	}

	switch {
	case bytes.HasPrefix(response, []byte(ResponseUnauthorized)):
		c.logger.Error("caster refused credentials", "user", login.Username)
		c.endSession(AuthFailed)
		return ConnectionAuthFailure
	case bytes.HasPrefix(response, []byte(ResponseOK)):
		if !c.reclaimRequest() {
			c.logger.Error("request was not sent", "mountpoint", login.MountPoint)
			c.endSession(Failed)
			return ConnectionError
		}
		c.state = Streaming
		c.logger.Info("streaming", "mountpoint", login.MountPoint)
		return ConnectionOK
	}

	c.logger.Error("unexpected response from caster", "response", firstLine(response))
	c.endSession(Failed)
	return ConnectionError
}

// MountPoints fetches the caster's source table over a connection of its
// own.  It doesn't disturb any active session.
func (c *Client) MountPoints(address string, port int, username, password string) TableResult {
	channel, status := c.dial(address, port)
	if status != asyncio.Success {
		return TableResult{Status: asyncio.Error}
	}
	defer channel.Close()

	if channel.Write(BuildRequest("", username, password)) != asyncio.Success {
		c.logger.Error("cannot send source table request")
		return TableResult{Status: asyncio.Error}
	}

	response, _ := c.awaitResponse(channel, sourcetable.HasTableEnding)
	if !sourcetable.HasTableEnding(response) {
		c.logger.Error("no source table from caster", "received", len(response),
			"response", firstLine(response))
		return TableResult{Status: asyncio.Error}
	}

	return TableResult{MountPoints: sourcetable.Parse(response), Status: asyncio.Success}
}

// SendPosition starts sending a GGA sentence giving the location at the
// given time.  The result says whether the send was started.  Use IsSending
// to find out when it has finished.
func (c *Client) SendPosition(location position.Location, timestamp time.Time) asyncio.Status {
	c.mustHaveSession("SendPosition")
	return c.channel.Write([]byte(gga.Build(location, timestamp)))
}

// IsSending returns true while a position report is still being sent.
// Once the report has gone it's finalised and IsSending returns false.  If
// the report failed, IsSending returns false and ErrPositionReport.
func (c *Client) IsSending() (bool, error) {
	c.mustHaveSession("IsSending")
	switch c.channel.Check() {
	case asyncio.InProgress:
		return true, nil
	case asyncio.Success:
		c.channel.End()
		return false, nil
	default:
		c.channel.End()
		return false, ErrPositionReport
	}
}

// Available returns the number of bytes of correction data waiting to be
// received, or a negative number if the connection has failed.
func (c *Client) Available() int {
	c.mustHaveSession("Available")
	return c.channel.Available()
}

// Receive returns up to size bytes of correction data.  size should be no
// more than Available returned.
func (c *Client) Receive(size int) []byte {
	c.mustHaveSession("Receive")
	return c.channel.Read(size)
}

// Close ends the session, if there is one.
func (c *Client) Close() error {
	if c.channel == nil {
		return nil
	}
	err := c.channel.Close()
	c.channel = nil
	c.state = Disconnected
	return err
}

// awaitResponse polls the channel, collecting the response until the
// given function says that it's complete.  The status is Success if the
// response is complete, Error if the channel failed and InProgress if it
// ran out of time.
func (c *Client) awaitResponse(channel Channel, complete func([]byte) bool) ([]byte, asyncio.Status) {
	var response bytes.Buffer
	for i := 0; i < PollLimit; i++ {
		c.clock.Sleep(PollInterval)
		available := channel.Available()
		if available < 0 {
			return response.Bytes(), asyncio.Error
		}
		if available > 0 {
			response.Write(channel.Read(available))
			if complete(response.Bytes()) {
				return response.Bytes(), asyncio.Success
			}
		}
	}

	return response.Bytes(), asyncio.InProgress
}

// reclaimRequest waits for the write of the request to finish and ends it,
// so that the channel is free for position reports.  It returns false if
// the write failed or didn't finish.
func (c *Client) reclaimRequest() bool {
	status := c.channel.Check()
	for i := 0; status == asyncio.InProgress; i++ {
		if i == PollLimit {
			return false
		}
		c.clock.Sleep(PollInterval)
		status = c.channel.Check()
	}
	c.channel.End()
	return status == asyncio.Success
}

// endSession closes the channel and sets the final state.
func (c *Client) endSession(state State) {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	c.state = state
}

func (c *Client) mustHaveSession(operation string) {
	if c.channel == nil {
		panic("ntrip: " + operation + " called with no active session")
	}
}

// responseComplete returns true if the response ends with the blank line
// that ends a header, or with the end of a source table.
func responseComplete(response []byte) bool {
	return bytes.HasSuffix(response, []byte(endOfHeader)) ||
		sourcetable.HasTableEnding(response)
}

// firstLine returns the first line of the response, for logging.
func firstLine(response []byte) string {
	const maxLength = 80
	line := response
	if i := bytes.Index(line, []byte("\r\n")); i >= 0 {
		line = line[:i]
	}
	if len(line) > maxLength {
		line = line[:maxLength]
	}
	return string(line)
}
