// The ntripclient fetches RTK corrections from an NTRIP caster.
//
// In discovery mode it fetches the caster's source table and prints the
// names of the mount points, one per line:
//
//	ntripclient -a caster.example.com -p 2101 -g yes
//
// Otherwise it connects to a mount point, reports the given position to
// the caster every ten seconds and writes the correction data to stdout
// until it's stopped or the caster goes away:
//
//	ntripclient -a caster.example.com -p 2101 -m MP1 -u user -pw secret \
//	    -la 51.5 -lo -0.1 -el 35.2 >/dev/ttyACM0
//
// The settings can also be given in a JSON or YAML config file (-c).  The
// command line overrides the file.  The config file can also send the
// corrections to a serial device, keep a daily copy of them, send the
// event log to a daily file and run a status page.
//
// The event log goes to stderr unless the config says otherwise, so it
// doesn't get mixed up with the corrections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dolmen-go/contextio"
	"github.com/robfig/cron"

	"github.com/goblimey/go-ntrip-client/clock"
	"github.com/goblimey/go-ntrip-client/config"
	"github.com/goblimey/go-ntrip-client/dailyfile"
	"github.com/goblimey/go-ntrip-client/ntrip"
	"github.com/goblimey/go-ntrip-client/recorder"
	"github.com/goblimey/go-ntrip-client/relay"
	"github.com/goblimey/go-ntrip-client/rtcmframe"
	"github.com/goblimey/go-ntrip-client/serialout"
	"github.com/goblimey/go-ntrip-client/sourcetable"
	"github.com/goblimey/go-ntrip-client/status"
)

const usage = `usage:
  ntripclient -a address [-p port] [-u user] [-pw password] -g yes
  ntripclient -a address [-p port] -m mountpoint [-u user] [-pw password]
      -la latitude -lo longitude [-el elevation]
  ntripclient -c configfile [options]

options:
  -a, --address    caster address
  -p, --port       caster port (default 2101)
  -m, --mount      mount point
  -u, --user       username
  -pw, --password  password
  -la, --latitude  latitude in degrees, north positive
  -lo, --longitude longitude in degrees, east positive
  -el, --elevation elevation in metres
  -g, --get        "y" or "yes" to list the mount points
  -c, --config     JSON or YAML config file
  -v, --verbose    verbose logging
`

// eventLogName is the name of the event log file when it's written to a
// directory.
const eventLogName = "ntripclient.log"

// commandLine holds the results of parsing the command line.
type commandLine struct {
	config    *config.Config
	discovery bool
	verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitStatus := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitStatus)
}

// run runs the client and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cl, err := parseCommandLine(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "ntripclient: %v\n%s", err, usage)
		}
		return 1
	}

	cfg := cl.config

	var level slog.LevelVar
	if cl.verbose {
		level.Set(slog.LevelDebug)
	}
	var logWriter io.Writer = stderr
	if cfg.LogEvents {
		// The event log switches to a new file each day.
		if err := os.MkdirAll(cfg.EventLogDirectory, os.ModePerm); err != nil {
			fmt.Fprintf(stderr, "ntripclient: cannot create event log directory: %v\n", err)
			return 1
		}
		eventLog := dailyfile.New(cfg.EventLogDirectory, eventLogName, clock.NewSystemClock())
		defer eventLog.Close()
		logWriter = eventLog
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: &level}))

	if cl.discovery {
		return listMountPoints(cfg, logger, stdout)
	}

	return stream(ctx, cfg, &level, logger, stdout)
}

// parseCommandLine parses the command line, reading the config file if
// there is one.  Flags that are given override the values from the file.
func parseCommandLine(args []string, stderr io.Writer) (*commandLine, error) {
	flags := flag.NewFlagSet("ntripclient", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(stderr, usage) }

	var address, mount, user, password, get, configFileName string
	var port int
	var latitude, longitude, elevation float64
	var verbose bool

	flags.StringVar(&address, "a", "", "caster address")
	flags.StringVar(&address, "address", "", "caster address")
	flags.IntVar(&port, "p", config.DefaultCasterPort, "caster port")
	flags.IntVar(&port, "port", config.DefaultCasterPort, "caster port")
	flags.StringVar(&mount, "m", "", "mount point")
	flags.StringVar(&mount, "mount", "", "mount point")
	flags.StringVar(&user, "u", "", "username")
	flags.StringVar(&user, "user", "", "username")
	flags.StringVar(&password, "pw", "", "password")
	flags.StringVar(&password, "password", "", "password")
	flags.Float64Var(&latitude, "la", 0, "latitude")
	flags.Float64Var(&latitude, "latitude", 0, "latitude")
	flags.Float64Var(&longitude, "lo", 0, "longitude")
	flags.Float64Var(&longitude, "longitude", 0, "longitude")
	flags.Float64Var(&elevation, "el", 0, "elevation")
	flags.Float64Var(&elevation, "elevation", 0, "elevation")
	flags.StringVar(&get, "g", "", "list the mount points")
	flags.StringVar(&get, "get", "", "list the mount points")
	flags.StringVar(&configFileName, "c", "", "config file")
	flags.StringVar(&configFileName, "config", "", "config file")
	flags.BoolVar(&verbose, "v", false, "verbose logging")
	flags.BoolVar(&verbose, "verbose", false, "verbose logging")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %s", flags.Arg(0))
	}

	cfg := config.New()
	if len(configFileName) > 0 {
		var err error
		cfg, err = config.GetConfig(configFileName)
		if err != nil {
			return nil, err
		}
	}

	overrides := map[string]func(){
		"a":         func() { cfg.CasterHost = address },
		"p":         func() { cfg.CasterPort = port },
		"m":         func() { cfg.MountPoint = mount },
		"u":         func() { cfg.Username = user },
		"pw":        func() { cfg.Password = password },
		"la":        func() { cfg.Latitude, cfg.LatitudeGiven = latitude, true },
		"lo":        func() { cfg.Longitude, cfg.LongitudeGiven = longitude, true },
		"el":        func() { cfg.Elevation = elevation },
		"address":   func() { cfg.CasterHost = address },
		"port":      func() { cfg.CasterPort = port },
		"mount":     func() { cfg.MountPoint = mount },
		"user":      func() { cfg.Username = user },
		"password":  func() { cfg.Password = password },
		"latitude":  func() { cfg.Latitude, cfg.LatitudeGiven = latitude, true },
		"longitude": func() { cfg.Longitude, cfg.LongitudeGiven = longitude, true },
		"elevation": func() { cfg.Elevation = elevation },
	}
	flags.Visit(func(f *flag.Flag) {
		if override, ok := overrides[f.Name]; ok {
			override()
		}
	})

	discovery := false
	switch strings.ToLower(get) {
	case "y", "yes":
		discovery = true
	case "", "n", "no":
	default:
		return nil, fmt.Errorf("-g must be yes or no, got %s", get)
	}

	if discovery {
		if err := cfg.CheckDiscovery(); err != nil {
			return nil, err
		}
	} else if err := cfg.CheckStreaming(); err != nil {
		return nil, err
	}

	return &commandLine{config: cfg, discovery: discovery, verbose: verbose}, nil
}

// listMountPoints fetches the source table and writes the names of the
// mount points to stdout.
func listMountPoints(cfg *config.Config, logger *slog.Logger, stdout io.Writer) int {
	client := ntrip.NewTCPClient(logger)
	result := client.MountPoints(cfg.CasterHost, cfg.CasterPort, cfg.Username, cfg.Password)
	if !result.OK() {
		logger.Error("cannot get the source table", "caster", cfg.CasterHost, "port", cfg.CasterPort)
		return 1
	}

	for _, mp := range result.MountPoints {
		fmt.Fprintln(stdout, mp.Name)
	}

	if cfg.LatitudeGiven && cfg.LongitudeGiven {
		nearest, found := sourcetable.Nearest(result.MountPoints, cfg.Location())
		if found {
			logger.Info("nearest mount point", "name", nearest.Name,
				"distance_km", cfg.Location().DistanceTo(nearest.Reference)/1000)
		}
	}

	return 0
}

// stream connects to the mount point and relays the corrections until the
// context is cancelled or something goes wrong.
func stream(ctx context.Context, cfg *config.Config, level *slog.LevelVar, logger *slog.Logger, stdout io.Writer) int {

	systemClock := clock.NewSystemClock()

	var feed *status.ReportFeed
	if cfg.ControlPort > 0 {
		feed = status.New(cfg.MountPoint, level)
		address := net.JoinHostPort(cfg.ControlHost, strconv.Itoa(cfg.ControlPort))
		go func() {
			if err := status.Serve(ctx, address, feed); err != nil && ctx.Err() == nil {
				logger.Error("status page stopped", "address", address, "error", err)
			}
		}()
	}

	client := ntrip.NewTCPClient(logger)
	switch client.Connect(cfg.Login()) {
	case ntrip.ConnectionOK:
	case ntrip.ConnectionAuthFailure:
		logger.Error("the caster refused the username and password", "user", cfg.Username)
		return 1
	default:
		logger.Error("cannot connect to mount point", "caster", cfg.CasterHost,
			"port", cfg.CasterPort, "mountpoint", cfg.MountPoint)
		return 1
	}
	defer client.Close()

	output := stdout
	if len(cfg.Serial.Device) > 0 {
		port, err := serialout.Open(&cfg.Serial)
		if err != nil {
			logger.Error(err.Error())
			return 1
		}
		defer port.Close()
		output = port
	}

	// The writes to the output stop when the context is cancelled.
	scanner := rtcmframe.New(systemClock)
	writers := []io.Writer{contextio.NewWriter(ctx, output), scanner}
	if cfg.RecordMessages {
		rec, err := recorder.New(cfg.MessageLogDirectory, systemClock, logger)
		if err != nil {
			logger.Error(err.Error())
			return 1
		}
		writers = append(writers, rec)
	}

	r := relay.New(client, io.MultiWriter(writers...), cfg.Location(),
		cfg.ReportIntervalTicks, systemClock, logger)

	if feed != nil {
		feed.SetSources(r, scanner)
	}

	statsLogger := cron.New()
	err := statsLogger.AddFunc(cfg.StatsSchedule, func() { logStats(logger, r, scanner) })
	if err != nil {
		logger.Error("bad stats schedule", "schedule", cfg.StatsSchedule, "error", err)
		return 1
	}
	statsLogger.Start()
	defer statsLogger.Stop()

	err = r.Run(ctx)
	logStats(logger, r, scanner)
	if ctx.Err() != nil {
		logger.Info("stopped", "reason", ctx.Err())
		return 0
	}
	logger.Error("stream ended", "error", err)
	return 1
}

// logStats writes a summary of the session to the event log.
func logStats(logger *slog.Logger, r *relay.Relay, scanner *rtcmframe.Scanner) {
	relayStats := r.Stats()
	frameStats := scanner.Stats()
	logger.Info("stats",
		"bytes", relayStats.BytesRelayed,
		"reports", relayStats.ReportsSent,
		"report_errors", relayStats.ReportErrors,
		"frames", frameStats.Frames,
		"crc_failures", frameStats.CRCFailures,
		"message_types", frameStats.MessageTypeList(),
	)
}
