// Package serialout sends the correction data to a GNSS receiver on a
// serial line, for example "/dev/ttyACM0" on Linux or "COM4" on Windows.
package serialout

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// DefaultSpeed is the line speed used when none is given.
const DefaultSpeed = 9600

// Settings describes the serial line.
type Settings struct {
	// Device is the name of the serial device.
	Device string `json:"device" yaml:"device"`

	// Speed is the line speed in bits per second.
	Speed int `json:"speed" yaml:"speed"`

	// Parity is no_parity (default), odd_parity, even_parity,
	// mark_parity or space_parity.
	Parity string `json:"parity" yaml:"parity"`

	// DataBits is the number of data bits in the byte: 5-8.
	DataBits int `json:"data_bits" yaml:"data_bits"`

	// StopBits is the number of stop bits 1, 1.5 or 2.
	StopBits float32 `json:"stop_bits" yaml:"stop_bits"`

	// InitialStatusBits contains zero to two values, "dtr" and/or "rts",
	// which set DataTerminalReady and ReadyToSend.  The default is both
	// true.
	InitialStatusBits []string `json:"initial_status_bits" yaml:"initial_status_bits"`
}

// Mode converts the settings into the mode used to open the port.
func (s *Settings) Mode() (*serial.Mode, error) {
	mode := serial.Mode{BaudRate: DefaultSpeed}
	if s.Speed != 0 {
		mode.BaudRate = s.Speed
	}

	switch s.Parity {
	case "", "no_parity":
		mode.Parity = serial.NoParity
	case "odd_parity":
		mode.Parity = serial.OddParity
	case "even_parity":
		mode.Parity = serial.EvenParity
	case "mark_parity":
		mode.Parity = serial.MarkParity
	case "space_parity":
		mode.Parity = serial.SpaceParity
	default:
		return nil, errors.New("serialout: illegal parity value " + s.Parity)
	}

	// Must be 5-8.
	if s.DataBits > 0 {
		if s.DataBits < 5 || s.DataBits > 8 {
			return nil, fmt.Errorf("serialout: data bits must be 5-8, got %d", s.DataBits)
		}
		mode.DataBits = s.DataBits
	}

	switch s.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 1.5:
		mode.StopBits = serial.OnePointFiveStopBits
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("serialout: stop bit value must be 1, 1.5 or 2.  Got %f", s.StopBits)
	}

	if len(s.InitialStatusBits) > 0 {
		var bits serial.ModemOutputBits
		for _, b := range s.InitialStatusBits {
			switch strings.ToLower(b) {
			case "dtr":
				bits.DTR = true
			case "rts":
				bits.RTS = true
			default:
				return nil, errors.New("serialout: illegal initial status bit value " + b)
			}
		}
		mode.InitialStatusBits = &bits
	}

	return &mode, nil
}

// Open opens the serial device.  The result can be used as the sink for
// the corrections.
func Open(settings *Settings) (serial.Port, error) {
	if len(settings.Device) == 0 {
		return nil, errors.New("serialout: no device given")
	}
	mode, err := settings.Mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(settings.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("serialout: cannot open %s: %w", settings.Device, err)
	}
	return port, nil
}
