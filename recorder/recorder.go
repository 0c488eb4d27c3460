// Package recorder keeps a copy of the correction data.  The GNSS community
// call this a log.  The day's data goes into "corrections.rtcm" and at the
// start of a new day that file is set aside under a timestamped name.  The
// copy can be replayed later or converted into RINEX format for
// post-processing.
//
// The Recorder is a tap on the stream.  A failure to record never stops the
// corrections flowing.
package recorder

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goblimey/go-ntrip-client/clock"
	"github.com/goblimey/go-ntrip-client/dailyfile"
)

// FileName is the name of the file holding the current day's data.  Earlier
// days are kept in files like "corrections-2024-03-01T00-00-00.123.rtcm".
const FileName = "corrections.rtcm"

// Recorder is an io.Writer that copies data to a daily file.
type Recorder struct {
	writer io.Writer
	logger *slog.Logger

	// reportingErrors is false while a run of write failures is in
	// progress.
	reportingErrors bool
}

// New creates a Recorder that writes into the given directory, creating
// it if necessary.  The clock decides when a new day starts.
func New(directory string, clk clock.Clock, logger *slog.Logger) (*Recorder, error) {
	if err := os.MkdirAll(directory, os.ModePerm); err != nil {
		return nil, fmt.Errorf("recorder: cannot create directory %s: %w", directory, err)
	}
	return newRecorder(dailyfile.New(directory, FileName, clk), logger), nil
}

func newRecorder(writer io.Writer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{writer: writer, logger: logger, reportingErrors: true}
}

// Write copies the data to today's file.  It always reports success.
func (r *Recorder) Write(data []byte) (int, error) {
	_, err := r.writer.Write(data)
	if err != nil {
		if r.reportingErrors {
			r.logger.Error("cannot record corrections", "error", err)
			// Only report repeated failures once.
			r.reportingErrors = false
		}
	} else if !r.reportingErrors {
		r.logger.Info("recording corrections again after failure")
		r.reportingErrors = true
	}
	return len(data), nil
}
