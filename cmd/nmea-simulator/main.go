package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"go-nmea-simulator/gpx"
	"go-nmea-simulator/sim"
)

// Version information - populated at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// configPathFromArgs resolves -config before the other flags are defined so
// the file can supply their defaults; explicit flags then override the file.
func configPathFromArgs(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

func loadConfig(path string, cfg *sim.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadTrack(path string) (*gpx.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gpx: %w", err)
	}
	track, err := gpx.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse gpx %s: %w", path, err)
	}
	return track, nil
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := sim.DefaultConfig()
	if path := configPathFromArgs(os.Args[1:]); path != "" {
		if err := loadConfig(path, &cfg); err != nil {
			log.Fatal().Err(err).Msg("configuration")
		}
	}

	var (
		showVersion bool
		quiet       bool
		duration    time.Duration
		gpxFile     string
		gpxOffset   = math.NaN()
		gpxFraction = math.NaN()
	)

	flag.String("config", "", "YAML configuration file (flags override file values)")
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
	flag.BoolVar(&quiet, "quiet", false, "Only log warnings and errors")
	flag.DurationVar(&duration, "duration", 0, "How long to run (e.g. 30s, 5m). Default is indefinite")

	flag.StringVar(&cfg.UDPHost, "udp-host", cfg.UDPHost, "UDP destination host (0.0.0.0 or empty means 127.0.0.1)")
	flag.IntVar(&cfg.UDPPort, "udp-port", cfg.UDPPort, "UDP destination port")
	flag.StringVar(&cfg.TCPHost, "tcp-host", cfg.TCPHost, "TCP listen address")
	flag.IntVar(&cfg.TCPPort, "tcp-port", cfg.TCPPort, "TCP listen port (0 disables the listener)")
	flag.Float64Var(&cfg.IntervalS, "interval", cfg.IntervalS, "Seconds between sentence batches")
	flag.StringVar(&cfg.StartDatetime, "start", cfg.StartDatetime, "Simulated start time, ISO-8601 UTC. Empty uses the wall clock")

	flag.Float64Var(&cfg.Lat, "lat", cfg.Lat, "Initial latitude (decimal degrees)")
	flag.Float64Var(&cfg.Lon, "lon", cfg.Lon, "Initial longitude (decimal degrees)")
	flag.Float64Var(&cfg.SOGKn, "sog", cfg.SOGKn, "Initial speed over ground (knots)")
	flag.Float64Var(&cfg.COGDeg, "cog", cfg.COGDeg, "Initial course over ground (degrees true)")
	flag.Float64Var(&cfg.MagVarDeg, "magvar", cfg.MagVarDeg, "Magnetic variation (degrees, east positive)")

	flag.BoolVar(&cfg.WindEnabled, "wind", cfg.WindEnabled, "Emit MWD/MWV wind sentences")
	flag.Float64Var(&cfg.TWSKn, "tws", cfg.TWSKn, "True wind speed (knots)")
	flag.Float64Var(&cfg.TWDDeg, "twd", cfg.TWDDeg, "True wind direction (degrees true)")
	flag.BoolVar(&cfg.HeadingEnabled, "heading", cfg.HeadingEnabled, "Emit HDT heading sentences")
	flag.BoolVar(&cfg.DepthEnabled, "depth", cfg.DepthEnabled, "Emit DPT/DBT depth sentences")
	flag.Float64Var(&cfg.DepthM, "depth-m", cfg.DepthM, "Initial depth below transducer (metres)")
	flag.BoolVar(&cfg.WaterTempEnabled, "water-temp", cfg.WaterTempEnabled, "Emit MTW water temperature sentences")
	flag.BoolVar(&cfg.BatteryEnabled, "battery", cfg.BatteryEnabled, "Emit XDR battery voltage sentences")
	flag.BoolVar(&cfg.AirTempEnabled, "air-temp", cfg.AirTempEnabled, "Emit XDR air temperature sentences")
	flag.BoolVar(&cfg.TanksEnabled, "tanks", cfg.TanksEnabled, "Emit XDR tank level sentences")

	flag.IntVar(&cfg.AIS.NumTargets, "ais-targets", cfg.AIS.NumTargets, "Number of simulated AIS contacts")
	flag.Float64Var(&cfg.AIS.DistributionRadius, "ais-radius", cfg.AIS.DistributionRadius, "Contact distribution radius (nautical miles)")

	flag.StringVar(&gpxFile, "gpx", "", "GPX file to play back instead of the random walk")
	flag.Float64Var(&gpxOffset, "gpx-offset", gpxOffset, "Start offset into the track (seconds)")
	flag.Float64Var(&gpxFraction, "gpx-start-fraction", gpxFraction, "Start position as a fraction of the track (0..1)")

	flag.StringVar(&cfg.SerialDevice, "serial", cfg.SerialDevice, "Serial port for NMEA output (e.g. /dev/ttyUSB0)")
	flag.IntVar(&cfg.SerialBaud, "baud", cfg.SerialBaud, "Serial port baud rate")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed for reproducible runs (0 seeds from the clock)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMarine NMEA 0183 instrument simulator\n")
		fmt.Fprintf(os.Stderr, "Emits GPS, wind, depth, environment and AIS sentences over UDP, TCP and serial.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		if Version != "dev" {
			fmt.Printf("v%s\n", Version)
		} else {
			fmt.Printf("%s\n", Commit)
		}
		os.Exit(0)
	}
	if quiet {
		log = log.Level(zerolog.WarnLevel)
	}

	if gpxFile != "" {
		track, err := loadTrack(gpxFile)
		if err != nil {
			log.Fatal().Err(err).Msg("gpx")
		}
		cfg.Track = track
		log.Info().Str("file", gpxFile).Str("name", track.Name).
			Int("points", len(track.Points)).Float64("length_nm", track.LengthNM).
			Msg("track loaded")
	}
	if !math.IsNaN(gpxOffset) {
		cfg.GPXOffsetS = &gpxOffset
	}
	if !math.IsNaN(gpxFraction) {
		cfg.GPXStartFraction = &gpxFraction
	}

	engine := sim.New(log)
	if err := engine.Start(cfg); err != nil {
		log.Fatal().Err(err).Msg("start")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if duration > 0 {
		select {
		case <-time.After(duration):
		case <-sigChan:
		}
	} else {
		<-sigChan
	}

	if err := engine.Stop(); err != nil {
		log.Error().Err(err).Msg("stop")
	}
}
