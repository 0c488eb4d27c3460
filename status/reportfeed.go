// Package status serves a status page showing how the session is going:
// how much data has been relayed, the position reports sent and the RTCM
// messages seen recently.  The server also accepts requests to change the
// log level:
//
//	/status/report
//	/status/loglevel/0
//	/status/loglevel/1
package status

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goblimey/go-ntrip-client/relay"
	"github.com/goblimey/go-ntrip-client/rtcmframe"
)

// timeFormat is used to display timestamps.
const timeFormat = "Mon Jan _2 15:04:05 2006"

// RelaySource supplies the relay statistics.
type RelaySource interface {
	Stats() relay.Stats
}

// FrameSource supplies the statistics about the RTCM frames.
type FrameSource interface {
	Stats() rtcmframe.Stats
	Recent() []rtcmframe.Summary
}

// ReportFeed supplies the status page and handles log level changes.
type ReportFeed struct {
	mutex      sync.Mutex
	mountPoint string
	relay      RelaySource
	frames     FrameSource
	level      *slog.LevelVar
}

// New creates a ReportFeed.  level is the level of the event logger, which
// SetLogLevel changes.  It may be nil.
func New(mountPoint string, level *slog.LevelVar) *ReportFeed {
	return &ReportFeed{mountPoint: mountPoint, level: level}
}

// SetSources sets the sources of the figures shown in the report.  Until
// it's called the report says that the session hasn't started.
func (rf *ReportFeed) SetSources(relay RelaySource, frames FrameSource) {
	rf.mutex.Lock()
	defer rf.mutex.Unlock()
	rf.relay = relay
	rf.frames = frames
}

// SetLogLevel sets the level of the event log.  Level 0 is quiet, anything
// else is verbose.
func (rf *ReportFeed) SetLogLevel(level uint8) {
	if rf.level == nil {
		return
	}
	if level == 0 {
		rf.level.Set(slog.LevelInfo)
	} else {
		rf.level.Set(slog.LevelDebug)
	}
}

// Status returns the status page.
func (rf *ReportFeed) Status() []byte {
	rf.mutex.Lock()
	defer rf.mutex.Unlock()

	if rf.relay == nil {
		return []byte(fmt.Sprintf(waitingFormat, Sanitise(rf.mountPoint)))
	}

	relayStats := rf.relay.Stats()
	lastData := "never"
	if !relayStats.LastData.IsZero() {
		lastData = relayStats.LastData.Format(timeFormat)
	}

	frameDisplay := "no frame scanner\n"
	messageDisplay := ""
	if rf.frames != nil {
		frameStats := rf.frames.Stats()
		frameDisplay = fmt.Sprintf("frames %d\nCRC failures %d\nbytes discarded %d\n",
			frameStats.Frames, frameStats.CRCFailures, frameStats.DiscardedBytes)
		for _, messageType := range frameStats.MessageTypeList() {
			frameDisplay += fmt.Sprintf("type %d: %d\n", messageType, frameStats.MessageTypes[messageType])
		}
		for _, summary := range rf.frames.Recent() {
			messageDisplay += fmt.Sprintf("%s type %d length %d\n",
				summary.Received.Format(timeFormat), summary.MessageType, summary.Length)
		}
	}

	report := fmt.Sprintf(reportFormat,
		Sanitise(rf.mountPoint),
		relayStats.Ticks,
		relayStats.BytesRelayed,
		lastData,
		relayStats.ReportsSent,
		relayStats.ReportErrors,
		frameDisplay,
		messageDisplay,
	)

	return []byte(report)
}

// Sanitise edits a string, replacing some dangerous HTML characters.
func Sanitise(s string) string {
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	return s
}
