package ntrip

import (
	"github.com/goblimey/go-ntrip-client/asyncio"
	"github.com/goblimey/go-ntrip-client/sourcetable"
)

// ConnectionStatus is the outcome of a connection attempt.
type ConnectionStatus int

const (
	// ConnectionOK means that the caster accepted the request and is
	// sending corrections.
	ConnectionOK ConnectionStatus = iota
	// ConnectionError covers everything from a failure to connect to an
	// unexpected response or no response within the time limit.
	ConnectionError
	// ConnectionAuthFailure means that the caster refused the user name
	// and password.
	ConnectionAuthFailure
)

// String returns the name of the status.
func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionOK:
		return "ok"
	case ConnectionError:
		return "error"
	case ConnectionAuthFailure:
		return "authentication failure"
	default:
		return "unknown"
	}
}

// State is the state of the client's session with a caster.
type State int

const (
	Disconnected State = iota
	Connecting
	AwaitingResponse
	Streaming
	AuthFailed
	Failed
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingResponse:
		return "awaiting response"
	case Streaming:
		return "streaming"
	case AuthFailed:
		return "authentication failed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// TableResult is the result of fetching a source table.  If Status is
// Success, MountPoints holds the table, otherwise it's nil.
type TableResult struct {
	MountPoints []sourcetable.MountPoint
	Status      asyncio.Status
}

// OK returns true if the table was fetched.
func (r TableResult) OK() bool {
	return r.Status == asyncio.Success
}
