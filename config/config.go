// Package config reads the client's config file.  The file is JSON unless
// its name ends in ".yaml" or ".yml".  An example JSON config:
//
//	{
//		"caster_host": "caster.example.com",
//		"caster_port": 2101,
//		"mount_point": "MP1",
//		"username": "user",
//		"password": "password",
//		"latitude": 51.5,
//		"longitude": -0.1,
//		"elevation": 35.2,
//		"report_interval_ticks": 100,
//		"serial": {"device": "/dev/ttyACM0", "speed": 115200},
//		"record_messages": true,
//		"message_log_directory": "corrections",
//		"log_events": true,
//		"event_log_directory": "logs",
//		"control_host": "localhost",
//		"control_port": 4001,
//		"stats_schedule": "@every 1m"
//	}
//
// Values given on the command line override the ones in the file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goblimey/go-ntrip-client/ntrip"
	"github.com/goblimey/go-ntrip-client/position"
	"github.com/goblimey/go-ntrip-client/serialout"
)

// DefaultCasterPort is the usual NTRIP port.
const DefaultCasterPort = 2101

// DefaultStatsSchedule is the cron schedule for logging the statistics.
const DefaultStatsSchedule = "@every 1m"

// Config holds the client's settings.
type Config struct {
	CasterHost string `json:"caster_host" yaml:"caster_host"`
	CasterPort int    `json:"caster_port" yaml:"caster_port"`
	MountPoint string `json:"mount_point" yaml:"mount_point"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`

	// The position sent to the caster.
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Elevation float64 `json:"elevation" yaml:"elevation"`

	// LatitudeGiven and LongitudeGiven say whether the file or the
	// command line supplied the coordinates.  Without them the client
	// would report 0°N 0°E.
	LatitudeGiven  bool `json:"-" yaml:"-"`
	LongitudeGiven bool `json:"-" yaml:"-"`

	// ReportIntervalTicks is the number of 100 millisecond ticks between
	// position reports.  Zero gives the default of ten seconds.
	ReportIntervalTicks int `json:"report_interval_ticks" yaml:"report_interval_ticks"`

	// Serial is the serial device that receives the corrections.  If no
	// device is named, they go to stdout.
	Serial serialout.Settings `json:"serial" yaml:"serial"`

	// RecordMessages turns on the daily copy of the corrections.
	RecordMessages      bool   `json:"record_messages" yaml:"record_messages"`
	MessageLogDirectory string `json:"message_log_directory" yaml:"message_log_directory"`

	// LogEvents sends the event log to a daily file rather than stderr.
	LogEvents         bool   `json:"log_events" yaml:"log_events"`
	EventLogDirectory string `json:"event_log_directory" yaml:"event_log_directory"`

	// If ControlPort is set, a status page is served there.
	ControlHost string `json:"control_host" yaml:"control_host"`
	ControlPort int    `json:"control_port" yaml:"control_port"`

	// StatsSchedule is a cron spec saying when to log the statistics.
	StatsSchedule string `json:"stats_schedule" yaml:"stats_schedule"`
}

// New returns a Config containing the default values.
func New() *Config {
	return &Config{
		CasterPort:          DefaultCasterPort,
		MessageLogDirectory: ".",
		EventLogDirectory:   ".",
		StatsSchedule:       DefaultStatsSchedule,
	}
}

// GetConfig gets the config from the given file.  Values missing from the
// file take the defaults.
func GetConfig(configFileName string) (*Config, error) {
	data, err := os.ReadFile(configFileName)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	config, err := parseConfigFromBytes(data, isYAML(configFileName))
	if err != nil {
		return nil, fmt.Errorf("not a valid config file %s: %w", configFileName, err)
	}

	return config, nil
}

func isYAML(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func parseConfigFromBytes(data []byte, yamlFormat bool) (*Config, error) {
	config := New()
	var err error
	if yamlFormat {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, err
	}

	keys, err := topLevelKeys(data, yamlFormat)
	if err != nil {
		return nil, err
	}
	_, config.LatitudeGiven = keys["latitude"]
	_, config.LongitudeGiven = keys["longitude"]

	return config, nil
}

// topLevelKeys returns the names of the values set in the file.
func topLevelKeys(data []byte, yamlFormat bool) (map[string]any, error) {
	keys := make(map[string]any)
	var err error
	if yamlFormat {
		err = yaml.Unmarshal(data, &keys)
	} else {
		err = json.Unmarshal(data, &keys)
	}
	return keys, err
}

// Location returns the position sent to the caster.
func (c *Config) Location() position.Location {
	return position.New(c.Latitude, c.Longitude, c.Elevation)
}

// Login returns the details needed to connect to the mount point.
func (c *Config) Login() ntrip.Login {
	return ntrip.Login{
		Address:    c.CasterHost,
		Port:       c.CasterPort,
		MountPoint: c.MountPoint,
		Username:   c.Username,
		Password:   c.Password,
		Location:   c.Location(),
	}
}

// CheckDiscovery checks that there is enough to fetch the source table.
func (c *Config) CheckDiscovery() error {
	if len(c.CasterHost) == 0 {
		return errors.New("no caster address")
	}
	if c.CasterPort <= 0 || c.CasterPort > 65535 {
		return fmt.Errorf("illegal caster port %d", c.CasterPort)
	}
	return nil
}

// CheckStreaming checks that there is enough to connect to a mount point.
func (c *Config) CheckStreaming() error {
	if err := c.CheckDiscovery(); err != nil {
		return err
	}
	if len(c.MountPoint) == 0 {
		return errors.New("no mount point")
	}
	if !c.LatitudeGiven || !c.LongitudeGiven {
		return errors.New("no position: latitude and longitude are needed")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range", c.Longitude)
	}
	if c.RecordMessages && len(c.MessageLogDirectory) == 0 {
		return errors.New("record_messages is set but there is no message_log_directory")
	}
	return nil
}
