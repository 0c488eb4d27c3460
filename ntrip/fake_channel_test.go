package ntrip

import (
	"github.com/goblimey/go-ntrip-client/asyncio"
)

// fakeChannel is a scripted Channel.  Each poll of Available that finds
// nothing left over takes the next chunk from the script.  Once the chunks
// are used up, Available returns 0, or -1 if failAfterChunks is set.
type fakeChannel struct {
	chunks          [][]byte
	failAfterChunks bool

	// writeStatus is returned by Write.
	writeStatus asyncio.Status
	// checks is the series of results returned by Check.  The last one
	// repeats.
	checks []asyncio.Status

	current []byte
	written [][]byte
	ends    int
	closed  bool
}

var _ Channel = (*fakeChannel)(nil)

func newFakeChannel(chunks ...string) *fakeChannel {
	channel := fakeChannel{writeStatus: asyncio.Success}
	for _, chunk := range chunks {
		channel.chunks = append(channel.chunks, []byte(chunk))
	}
	return &channel
}

func (f *fakeChannel) Write(data []byte) asyncio.Status {
	f.written = append(f.written, data)
	return f.writeStatus
}

func (f *fakeChannel) Check() asyncio.Status {
	if len(f.checks) == 0 {
		return asyncio.Success
	}
	status := f.checks[0]
	if len(f.checks) > 1 {
		f.checks = f.checks[1:]
	}
	return status
}

func (f *fakeChannel) End() int {
	f.ends++
	return 0
}

func (f *fakeChannel) Available() int {
	if len(f.current) > 0 {
		return len(f.current)
	}
	if len(f.chunks) > 0 {
		f.current = f.chunks[0]
		f.chunks = f.chunks[1:]
		return len(f.current)
	}
	if f.failAfterChunks {
		return -1
	}
	return 0
}

func (f *fakeChannel) Read(n int) []byte {
	if n > len(f.current) {
		n = len(f.current)
	}
	result := f.current[:n]
	f.current = f.current[n:]
	return result
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

// dialTo returns a DialFunc that hands out the given channel.
func dialTo(channel *fakeChannel) DialFunc {
	return func(address string, port int) (Channel, asyncio.Status) {
		return channel, asyncio.Success
	}
}

// failingDial is a DialFunc that can't connect.
func failingDial(address string, port int) (Channel, asyncio.Status) {
	return nil, asyncio.Error
}
