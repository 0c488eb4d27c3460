// Package dailyfile provides a Writer for a file that's rolled over each
// day.  The current day's data goes into a file with a fixed name, for
// example "corrections.rtcm".  On the first write of a new day that file
// is renamed with a timestamp ("corrections-2024-03-01T00-00-00.123.rtcm")
// and a new one is started.  If the program is restarted during the day it
// appends to the existing file, so nothing is lost.
package dailyfile

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/goblimey/go-ntrip-client/clock"
)

// maxSizeMegabytes is large enough that the file is only ever rolled over
// by the change of day.
const maxSizeMegabytes = 4096

const dayFormat = "2006-01-02"

// Writer writes to the daily file.  It's safe for concurrent use.
type Writer struct {
	mutex sync.Mutex
	clock clock.Clock
	file  *lumberjack.Logger
	day   string
}

// New creates a Writer for the named file in the given directory.  The
// directory is created when the file is first written.  The clock decides
// when the day changes.
func New(directory, name string, clk clock.Clock) *Writer {
	file := lumberjack.Logger{
		Filename: filepath.Join(directory, name),
		MaxSize:  maxSizeMegabytes,
	}
	return &Writer{clock: clk, file: &file}
}

// Write writes the data to today's file.
func (w *Writer) Write(data []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	today := w.clock.Now().UTC().Format(dayFormat)
	if w.day == "" {
		// First write.  The file may be left over from an earlier day.
		if info, err := os.Stat(w.file.Filename); err == nil {
			w.day = info.ModTime().UTC().Format(dayFormat)
		} else {
			w.day = today
		}
	}
	if today != w.day {
		if err := w.file.Rotate(); err != nil {
			return 0, err
		}
		w.day = today
	}

	return w.file.Write(data)
}

// Close closes the current file.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.file.Close()
}

// Filename returns the name of the current file.
func (w *Writer) Filename() string {
	return w.file.Filename
}

// Day returns the day of the data in the current file, or the empty string
// if nothing has been written yet.
func (w *Writer) Day() string {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.day
}
