package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goblimey/go-ntrip-client/asyncio"
	"github.com/goblimey/go-ntrip-client/clock"
	"github.com/goblimey/go-ntrip-client/ntrip"
	"github.com/goblimey/go-ntrip-client/position"
)

var testLocation = position.New(51.5, -0.1, 12.5)

// fakeSession is a Session whose position reports take a given number of
// IsSending calls to complete.  Data is delivered from a script, one entry
// per call of Available.
type fakeSession struct {
	sendTicks   int // number of IsSending calls that report true after a send.
	sendStatus  asyncio.Status
	sendError   error // returned once by IsSending when a send completes.
	data        [][]byte
	available   []int // overrides for Available, used first.
	sends       []time.Time
	sendingLeft int
	pending     bool
	received    int
}

func (f *fakeSession) IsSending() (bool, error) {
	if f.sendingLeft > 0 {
		f.sendingLeft--
		return true, nil
	}
	if f.pending {
		f.pending = false
		return false, f.sendError
	}
	return false, nil
}

func (f *fakeSession) SendPosition(location position.Location, timestamp time.Time) asyncio.Status {
	f.sends = append(f.sends, timestamp)
	if f.sendStatus != asyncio.Success {
		return f.sendStatus
	}
	f.sendingLeft = f.sendTicks
	f.pending = true
	return asyncio.Success
}

func (f *fakeSession) Available() int {
	if len(f.available) > 0 {
		n := f.available[0]
		f.available = f.available[1:]
		return n
	}
	if len(f.data) == 0 {
		return 0
	}
	return len(f.data[0])
}

func (f *fakeSession) Receive(size int) []byte {
	chunk := f.data[0]
	f.data = f.data[1:]
	f.received++
	return chunk[:size]
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("device unplugged")
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClock() *clock.StoppedClock {
	return clock.NewStoppedClock(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

// TestFirstReport checks that the first position report goes out on the
// third tick and the next one a full interval later.
func TestFirstReport(t *testing.T) {
	session := &fakeSession{sendStatus: asyncio.Success}
	clk := newTestClock()
	relay := New(session, &bytes.Buffer{}, testLocation, 10, clk, silentLogger())

	for i := 1; i <= 2; i++ {
		relay.Tick()
		if len(session.sends) != 0 {
			t.Fatalf("tick %d: want no report, got %d", i, len(session.sends))
		}
	}
	relay.Tick()
	if len(session.sends) != 1 {
		t.Fatalf("tick 3: want 1 report, got %d", len(session.sends))
	}
	for i := 4; i <= 12; i++ {
		relay.Tick()
	}
	if len(session.sends) != 1 {
		t.Fatalf("tick 12: want 1 report, got %d", len(session.sends))
	}
	relay.Tick()
	if len(session.sends) != 2 {
		t.Fatalf("tick 13: want 2 reports, got %d", len(session.sends))
	}

	if clk.Sleeps() != 13 {
		t.Errorf("want 13 sleeps, got %d", clk.Sleeps())
	}
	if clk.Slept() != 13*TickInterval {
		t.Errorf("want %v slept, got %v", 13*TickInterval, clk.Slept())
	}
	if relay.Stats().ReportsSent != 2 {
		t.Errorf("want 2 reports counted, got %d", relay.Stats().ReportsSent)
	}
}

// TestSlowReport checks that a report which takes several ticks to go is
// never repeated while it's in flight and that the next report follows as
// soon as it has gone.
func TestSlowReport(t *testing.T) {
	const interval = 4
	session := &fakeSession{sendStatus: asyncio.Success, sendTicks: 7}
	relay := New(session, &bytes.Buffer{}, testLocation, interval, newTestClock(), silentLogger())

	// The first report is sent on tick 3.  It's still going on ticks 7 to
	// 13, so the second is sent on tick 14.
	sentOn := make([]int, 0)
	for tick := 1; tick <= 14; tick++ {
		before := len(session.sends)
		if err := relay.Tick(); err != nil {
			t.Fatal(err)
		}
		if len(session.sends) > before {
			sentOn = append(sentOn, tick)
		}
	}

	want := []int{3, 14}
	if !cmp.Equal(want, sentOn) {
		t.Error(cmp.Diff(want, sentOn))
	}
}

// TestReportFailure checks that failed reports are counted and don't stop
// the relay.
func TestReportFailure(t *testing.T) {
	session := &fakeSession{sendStatus: asyncio.Error}
	relay := New(session, &bytes.Buffer{}, testLocation, 2, newTestClock(), silentLogger())

	for i := 0; i < 9; i++ {
		if err := relay.Tick(); err != nil {
			t.Fatal(err)
		}
	}

	// Attempts on ticks 3, 5, 7 and 9.
	stats := relay.Stats()
	if len(session.sends) != 4 {
		t.Errorf("want 4 attempts, got %d", len(session.sends))
	}
	if stats.ReportsSent != 0 || stats.ReportErrors != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestReportCompletesWithError checks that a report that fails in flight is
// counted and the next report is still sent.
func TestReportCompletesWithError(t *testing.T) {
	session := &fakeSession{sendStatus: asyncio.Success, sendError: ntrip.ErrPositionReport}
	relay := New(session, &bytes.Buffer{}, testLocation, 3, newTestClock(), silentLogger())

	// Reports on ticks 3 and 6.
	for i := 0; i < 6; i++ {
		relay.Tick()
	}

	stats := relay.Stats()
	if stats.ReportsSent != 2 || stats.ReportErrors != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestRelayData checks that data is written to the sink unchanged, as soon
// as it arrives.
func TestRelayData(t *testing.T) {
	chunks := [][]byte{
		{0xd3, 0x00, 0x13, 0x3e},
		{0xd0, 0x00, 0x03},
		[]byte("ICY"),
	}
	session := &fakeSession{
		sendStatus: asyncio.Success,
		data:       append([][]byte{}, chunks...),
		available:  []int{0},
	}
	var sink bytes.Buffer
	clk := newTestClock()
	relay := New(session, &sink, testLocation, 0, clk, silentLogger())

	// First tick: nothing available.
	relay.Tick()
	if sink.Len() != 0 {
		t.Fatalf("want nothing relayed, got %d bytes", sink.Len())
	}

	var want []byte
	for i, chunk := range chunks {
		relay.Tick()
		want = append(want, chunk...)
		if !bytes.Equal(want, sink.Bytes()) {
			t.Fatalf("tick %d: want %v got %v", i+2, want, sink.Bytes())
		}
	}

	stats := relay.Stats()
	if stats.BytesRelayed != uint64(len(want)) {
		t.Errorf("want %d bytes counted, got %d", len(want), stats.BytesRelayed)
	}
	if !stats.LastData.Equal(clk.Now()) {
		t.Errorf("want last data at %v got %v", clk.Now(), stats.LastData)
	}
	if stats.Ticks != 4 {
		t.Errorf("want 4 ticks got %d", stats.Ticks)
	}
}

// TestConnectionLost checks that a negative Available is fatal.
func TestConnectionLost(t *testing.T) {
	session := &fakeSession{sendStatus: asyncio.Success, available: []int{0, -1}}
	relay := New(session, &bytes.Buffer{}, testLocation, 0, newTestClock(), silentLogger())

	err := relay.Run(context.Background())
	if !errors.Is(err, ErrConnectionLost) {
		t.Errorf("want ErrConnectionLost got %v", err)
	}
	if relay.Stats().Ticks != 2 {
		t.Errorf("want 2 ticks got %d", relay.Stats().Ticks)
	}
}

// TestSinkFailure checks that a failure to write to the sink is fatal.
func TestSinkFailure(t *testing.T) {
	session := &fakeSession{sendStatus: asyncio.Success, data: [][]byte{{1, 2, 3}}}
	relay := New(session, failingWriter{}, testLocation, 0, newTestClock(), silentLogger())

	if err := relay.Tick(); err == nil {
		t.Error("want an error")
	}
}

// TestRunCancelled checks that Run stops when the context is cancelled.
func TestRunCancelled(t *testing.T) {
	session := &fakeSession{sendStatus: asyncio.Success}
	relay := New(session, &bytes.Buffer{}, testLocation, 0, newTestClock(), silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := relay.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled got %v", err)
	}
}
