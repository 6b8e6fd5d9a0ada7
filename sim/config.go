package sim

import (
	"time"

	"go-nmea-simulator/gpx"
)

// Config holds all options for one engine run. The YAML tags match the
// configuration file read by the CLI; the track itself is injected by the
// caller because the core only accepts parsed byte buffers.
type Config struct {
	UDPHost string `yaml:"udp_host"`
	UDPPort int    `yaml:"udp_port"`
	TCPHost string `yaml:"tcp_host"`
	TCPPort int    `yaml:"tcp_port"` // 0 disables the listener

	IntervalS     float64 `yaml:"interval_s"`
	StartDatetime string  `yaml:"start_datetime"` // ISO-8601, UTC assumed; empty = wall clock

	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	SOGKn     float64 `yaml:"sog_kn"`
	COGDeg    float64 `yaml:"cog_deg"`
	MagVarDeg float64 `yaml:"magvar_deg"`

	WindEnabled bool    `yaml:"wind_enabled"`
	TWSKn       float64 `yaml:"tws_kn"`
	TWDDeg      float64 `yaml:"twd_deg"`

	HeadingEnabled bool `yaml:"heading_enabled"`

	DepthEnabled     bool    `yaml:"depth_enabled"`
	DepthM           float64 `yaml:"depth_m"`
	DepthOffsetM     float64 `yaml:"depth_offset_m"`
	WaterTempEnabled bool    `yaml:"water_temp_enabled"`
	WaterTempC       float64 `yaml:"water_temp_c"`
	BatteryEnabled   bool    `yaml:"battery_enabled"`
	BatteryV         float64 `yaml:"battery_v"`
	AirTempEnabled   bool    `yaml:"air_temp_enabled"`
	AirTempC         float64 `yaml:"air_temp_c"`
	TanksEnabled     bool    `yaml:"tanks_enabled"`
	TankFreshWater   float64 `yaml:"tank_fresh_water"`
	TankFuel         float64 `yaml:"tank_fuel"`
	TankWaste        float64 `yaml:"tank_waste"`

	AIS FleetConfig `yaml:"ais"`

	// Track is the parsed GPX timeline; nil selects manual random-walk
	// mode. At most one anchor may be set; with none, playback starts at
	// the beginning of the track.
	Track            *gpx.Track `yaml:"-"`
	GPXOffsetS       *float64   `yaml:"gpx_offset_s"`
	GPXStartFraction *float64   `yaml:"gpx_start_fraction"`

	SerialDevice string `yaml:"serial_port"`
	SerialBaud   int    `yaml:"baud_rate"`

	// Seed fixes the RNG for reproducible runs; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a configuration matching a small sailing vessel
// near Graz (47.0707 N, 15.4395 E) on a calm day.
func DefaultConfig() Config {
	return Config{
		UDPHost:   "127.0.0.1",
		UDPPort:   10110,
		TCPHost:   "0.0.0.0",
		TCPPort:   10111,
		IntervalS: 1.0,

		Lat:       47.0707,
		Lon:       15.4395,
		SOGKn:     5.0,
		COGDeg:    45.0,
		MagVarDeg: -2.5,

		TWSKn: 10.0,
		TWDDeg: 270.0,

		DepthM:         12.0,
		DepthOffsetM:   0.4,
		WaterTempC:     18.0,
		BatteryV:       12.6,
		AirTempC:       22.0,
		TankFreshWater: 80.0,
		TankFuel:       65.0,
		TankWaste:      10.0,

		AIS: FleetConfig{
			NumTargets:         0,
			MaxCOGOffset:       20,
			MaxSOGOffset:       2,
			DistributionRadius: 1.0,
		},

		SerialBaud: 4800,
	}
}

// Interval returns the tick period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalS * float64(time.Second))
}

// StartTime parses the configured start datetime. A zero time selects the
// wall clock at start.
func (c *Config) StartTime() (time.Time, error) {
	if c.StartDatetime == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, c.StartDatetime); err == nil {
		return t.UTC(), nil
	}
	// Timezone-less timestamps are taken as UTC.
	if t, err := time.Parse("2006-01-02T15:04:05", c.StartDatetime); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidStartTime
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidLatitude
	}
	if c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidLongitude
	}
	if c.IntervalS <= 0 {
		return ErrInvalidInterval
	}
	if c.SOGKn < 0 {
		return ErrInvalidSpeed
	}
	if c.UDPPort < 1 || c.UDPPort > 65535 {
		return ErrInvalidUDPPort
	}
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		return ErrInvalidTCPPort
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if c.AIS.NumTargets < 0 {
		return ErrInvalidTargetCount
	}
	if c.AIS.DistributionRadius < 0 {
		return ErrInvalidRadius
	}
	if c.SerialDevice != "" && c.SerialBaud <= 0 {
		return ErrInvalidBaudRate
	}
	if c.GPXOffsetS != nil && c.GPXStartFraction != nil {
		return ErrConflictingAnchors
	}
	if c.Track == nil && (c.GPXOffsetS != nil || c.GPXStartFraction != nil) {
		return ErrAnchorWithoutTrack
	}
	return nil
}
