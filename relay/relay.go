// Package relay runs an NTRIP session once it's connected.  Every tick it
// sends the rover's position to the caster when a report is due and copies
// whatever correction data has arrived to the sink.
//
// A position report is due when ReportInterval ticks have passed since the
// last one.  The report is sent asynchronously and may take more than one
// tick to go.  No new report is started until the previous one has
// finished, so a slow connection delays the next report rather than piling
// them up.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/goblimey/go-ntrip-client/asyncio"
	"github.com/goblimey/go-ntrip-client/clock"
	"github.com/goblimey/go-ntrip-client/position"
)

// TickInterval is the time between ticks.
const TickInterval = 100 * time.Millisecond

// DefaultReportInterval is the number of ticks between position reports,
// giving one report every ten seconds.
const DefaultReportInterval = 100

// firstReportTick is the tick on which the first report is sent.
const firstReportTick = 3

// ErrConnectionLost is returned when the connection to the caster fails.
var ErrConnectionLost = errors.New("relay: connection to caster lost")

// Session is the connected NTRIP client.
type Session interface {
	IsSending() (bool, error)
	SendPosition(location position.Location, timestamp time.Time) asyncio.Status
	Available() int
	Receive(size int) []byte
}

// Stats counts what the relay has done.
type Stats struct {
	Ticks        uint64
	ReportsSent  uint64
	ReportErrors uint64
	BytesRelayed uint64
	LastData     time.Time
}

// Relay copies correction data from a session to a sink.
type Relay struct {
	session        Session
	sink           io.Writer
	location       position.Location
	reportInterval int
	clock          clock.Clock
	logger         *slog.Logger

	// ticksSinceReport counts the ticks since the last report was started.
	ticksSinceReport int

	// reportingErrors is false while a run of position report failures
	// is in progress, so that only the first is logged.
	reportingErrors bool

	statsMutex sync.Mutex
	stats      Stats
}

// New creates a Relay.  A reportInterval of zero or less gives the
// default.
func New(session Session, sink io.Writer, location position.Location, reportInterval int, clk clock.Clock, logger *slog.Logger) *Relay {
	if reportInterval <= 0 {
		reportInterval = DefaultReportInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Relay{
		session:          session,
		sink:             sink,
		location:         location,
		reportInterval:   reportInterval,
		clock:            clk,
		logger:           logger,
		ticksSinceReport: reportInterval - firstReportTick,
		reportingErrors:  true,
	}
}

// Run ticks until the connection fails, the sink fails or the context is
// cancelled.  On cancellation it returns the context's error.
func (r *Relay) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Tick(); err != nil {
			return err
		}
	}
}

// Tick does one round of work: send a position report if one is due, wait
// for TickInterval and then relay any data that has arrived.
func (r *Relay) Tick() error {
	r.ticksSinceReport++
	if r.ticksSinceReport >= r.reportInterval {
		r.report()
	}

	r.clock.Sleep(TickInterval)

	r.statsMutex.Lock()
	r.stats.Ticks++
	r.statsMutex.Unlock()

	available := r.session.Available()
	if available < 0 {
		r.logger.Error("connection to caster lost")
		return ErrConnectionLost
	}
	if available == 0 {
		return nil
	}

	data := r.session.Receive(available)
	if _, err := r.sink.Write(data); err != nil {
		return fmt.Errorf("relay: writing corrections: %w", err)
	}

	r.statsMutex.Lock()
	r.stats.BytesRelayed += uint64(len(data))
	r.stats.LastData = r.clock.Now()
	r.statsMutex.Unlock()

	r.logger.Debug("relayed", "bytes", len(data))
	return nil
}

// Stats returns a copy of the statistics.
func (r *Relay) Stats() Stats {
	r.statsMutex.Lock()
	defer r.statsMutex.Unlock()
	return r.stats
}

// report starts a position report unless the last one is still going.
func (r *Relay) report() {
	sending, err := r.session.IsSending()
	if err != nil {
		r.reportError(err)
	}
	if sending {
		return
	}

	r.ticksSinceReport = 0
	status := r.session.SendPosition(r.location, r.clock.Now())
	if status != asyncio.Success {
		r.reportError(fmt.Errorf("relay: position report not sent: %s", status))
		return
	}

	r.statsMutex.Lock()
	r.stats.ReportsSent++
	r.statsMutex.Unlock()

	if !r.reportingErrors {
		r.logger.Info("position report sent after failure")
		r.reportingErrors = true
	}
}

func (r *Relay) reportError(err error) {
	r.statsMutex.Lock()
	r.stats.ReportErrors++
	r.statsMutex.Unlock()

	// Only report repeated failures once.
	if r.reportingErrors {
		r.logger.Error(err.Error())
		r.reportingErrors = false
	}
}
