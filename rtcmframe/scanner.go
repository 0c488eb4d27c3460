// Package rtcmframe watches a stream of RTCM3 data and picks out the
// message frames so that the client can report what it's relaying.  It
// doesn't change the stream.
//
// An RTCM3 message frame starts with 0xd3.  That's the start of a 24-bit
// header.  Bits 8-13 are always zero and bits 14-23 are a 10-bit unsigned
// value giving the length in bytes of the embedded message.  The message
// comes next, followed by a 24-bit CRC-24Q value calculated over the
// header and the message:
//
//     < message frame  >
//     header message CRC
//
// The first 12 bits of the message give its type.
//
// The message is binary so it may contain 0xd3 by coincidence.  A 0xd3 is
// only taken as the start of a frame if the header is sensible and the CRC
// matches.  Anything else is skipped.
package rtcmframe

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/goblimey/go-crc24q/crc24q"

	"github.com/goblimey/go-ntrip-client/clock"
)

// StartOfMessageFrame is the first byte of an RTCM3 message frame.
const StartOfMessageFrame byte = 0xd3

// LeaderLengthBytes is the length of the frame header.
const LeaderLengthBytes = 3

// CRCLengthBytes is the length of the CRC at the end of the frame.
const CRCLengthBytes = 3

// maxRecent is the number of recent frames kept for display.
const maxRecent = 20

// Summary describes one frame.
type Summary struct {
	MessageType int
	Length      int
	Received    time.Time
}

// Stats is a snapshot of what the scanner has seen.
type Stats struct {
	Frames         uint64
	CRCFailures    uint64
	DiscardedBytes uint64
	MessageTypes   map[int]uint64
}

// Scanner is an io.Writer that finds the RTCM3 frames in the data written
// to it.  It's safe to read the statistics while data is being written.
type Scanner struct {
	mutex  sync.Mutex
	clock  clock.Clock
	buffer []byte
	stats  Stats
	recent []Summary
}

// New creates a Scanner.  The clock timestamps the frames.
func New(clk clock.Clock) *Scanner {
	return &Scanner{
		clock: clk,
		stats: Stats{MessageTypes: make(map[int]uint64)},
	}
}

// Write scans the data.  It never fails.
func (s *Scanner) Write(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.buffer = append(s.buffer, p...)
	s.scan()
	return len(p), nil
}

// Stats returns a copy of the statistics.
func (s *Scanner) Stats() Stats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	stats := s.stats
	stats.MessageTypes = make(map[int]uint64, len(s.stats.MessageTypes))
	for messageType, count := range s.stats.MessageTypes {
		stats.MessageTypes[messageType] = count
	}
	return stats
}

// Recent returns the most recent frames, oldest first.
func (s *Scanner) Recent() []Summary {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	recent := make([]Summary, len(s.recent))
	copy(recent, s.recent)
	return recent
}

// MessageTypeList returns the message types seen so far in ascending order.
func (stats Stats) MessageTypeList() []int {
	types := make([]int, 0, len(stats.MessageTypes))
	for messageType := range stats.MessageTypes {
		types = append(types, messageType)
	}
	sort.Ints(types)
	return types
}

// scan removes the complete frames from the buffer, along with any junk in
// front of them.  An incomplete frame at the end is left for next time.
func (s *Scanner) scan() {
	for {
		start := bytes.IndexByte(s.buffer, StartOfMessageFrame)
		if start < 0 {
			s.discard(len(s.buffer))
			return
		}
		s.discard(start)

		if len(s.buffer) < LeaderLengthBytes {
			return
		}

		// Bits 8-13 of the header must be zero.
		if s.buffer[1]&0xfc != 0 {
			s.discard(1)
			continue
		}

		messageLength := int(s.buffer[1]&0x03)<<8 | int(s.buffer[2])
		frameLength := LeaderLengthBytes + messageLength + CRCLengthBytes
		if len(s.buffer) < frameLength {
			// Wait for the rest of the frame.
			return
		}

		frame := s.buffer[:frameLength]
		if !CheckCRC(frame) {
			s.stats.CRCFailures++
			s.discard(1)
			continue
		}

		s.record(getMessageType(frame), messageLength)
		s.buffer = s.buffer[frameLength:]
	}
}

func (s *Scanner) record(messageType, length int) {
	s.stats.Frames++
	s.stats.MessageTypes[messageType]++
	s.recent = append(s.recent, Summary{MessageType: messageType, Length: length, Received: s.clock.Now()})
	if len(s.recent) > maxRecent {
		s.recent = s.recent[len(s.recent)-maxRecent:]
	}
}

func (s *Scanner) discard(n int) {
	s.stats.DiscardedBytes += uint64(n)
	s.buffer = s.buffer[n:]
}

// CheckCRC returns true if the CRC at the end of the frame matches the
// one calculated from the rest of it.
func CheckCRC(frame []byte) bool {
	if len(frame) < LeaderLengthBytes+CRCLengthBytes {
		return false
	}
	startOfCRC := len(frame) - CRCLengthBytes
	crc := crc24q.Hash(frame[:startOfCRC])
	return crc24q.HiByte(crc) == frame[startOfCRC] &&
		crc24q.MiByte(crc) == frame[startOfCRC+1] &&
		crc24q.LoByte(crc) == frame[startOfCRC+2]
}

// getMessageType returns the message type from the first 12 bits of the
// message, or 0 if the message is too short to have one.
func getMessageType(frame []byte) int {
	if len(frame) < LeaderLengthBytes+2+CRCLengthBytes {
		return 0
	}
	return int(frame[3])<<4 | int(frame[4])>>4
}
