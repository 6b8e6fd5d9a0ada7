package sim

import (
	"fmt"
	"math/rand"
	"time"

	"go-nmea-simulator/geo"
)

// mmsiBase is the first MMSI issued to a simulated contact. Contacts are
// numbered sequentially from here within one fleet epoch.
const mmsiBase = 999000001

// staticInterval is the simulated time between Type 24A static reports per
// contact.
const staticInterval = 60 * time.Second

// namePool supplies display names for the first contacts; later ones get a
// name synthesised from their MMSI.
var namePool = []string{
	"WANDERING STAR",
	"NORTHERN LIGHT",
	"SEA OTTER",
	"BLUE HERON",
	"MISTRAL",
	"PELICAN",
	"TERN",
	"AURORA",
	"KINGFISHER",
	"DRIFTWOOD",
}

// Contact is one simulated AIS target. Identity and offsets are fixed for
// the fleet's lifetime; the pose is updated every tick.
type Contact struct {
	MMSI uint32
	Name string

	Lat float64
	Lon float64
	SOG float64
	COG float64

	sogOffset  float64
	cogOffset  float64
	timeOffset time.Duration // GPX binding, timed tracks
	fracOffset float64       // GPX binding, untimed tracks

	lastStatic time.Time
	sentStatic bool
}

// StaticDue reports whether a Type 24A is due at the given simulated time,
// and records the emission when it is.
func (c *Contact) StaticDue(now time.Time) bool {
	if c.sentStatic && now.Sub(c.lastStatic) < staticInterval {
		return false
	}
	c.lastStatic = now
	c.sentStatic = true
	return true
}

// FleetConfig is the AIS block of the engine configuration.
type FleetConfig struct {
	NumTargets         int     `yaml:"num_targets"`
	MaxCOGOffset       float64 `yaml:"max_cog_offset"`
	MaxSOGOffset       float64 `yaml:"max_sog_offset"`
	DistributionRadius float64 `yaml:"distribution_radius_nm"`
}

// Fleet is the set of simulated AIS contacts for one engine run.
type Fleet struct {
	Contacts []*Contact
}

// NewFleet builds the contact set around the own-ship position. Identities
// and offsets are drawn once; restarting the engine re-rolls them.
func NewFleet(cfg FleetConfig, rng *rand.Rand, own *OwnShip, trackPoints int) *Fleet {
	f := &Fleet{Contacts: make([]*Contact, 0, cfg.NumTargets)}
	for i := 0; i < cfg.NumTargets; i++ {
		mmsi := uint32(mmsiBase + i)
		c := &Contact{
			MMSI:      mmsi,
			Name:      contactName(i, mmsi),
			sogOffset: uniform(rng, -cfg.MaxSOGOffset, cfg.MaxSOGOffset),
			cogOffset: uniform(rng, -cfg.MaxCOGOffset, cfg.MaxCOGOffset),
		}

		bearing := uniform(rng, 0, 360)
		rangeNM := uniform(rng, 0, cfg.DistributionRadius)
		c.Lat, c.Lon = geo.Destination(own.Lat, own.Lon, bearing, rangeNM)
		c.SOG = clamp(own.SOG+c.sogOffset, 0, maxManualSOG)
		c.COG = geo.NormalizeAngle(own.COG + c.cogOffset)

		// GPX bindings: a time delta for timed tracks, a point-count
		// delta translated to arc fraction otherwise.
		off := uniform(rng, 30, 300)
		if rng.Intn(2) == 0 {
			off = -off
		}
		c.timeOffset = time.Duration(off * float64(time.Second))
		if trackPoints > 1 {
			c.fracOffset = uniform(rng, -50, 50) / float64(trackPoints-1)
		}

		f.Contacts = append(f.Contacts, c)
	}
	return f
}

// Step updates every contact pose for one tick. cur is nil in manual mode;
// with a track the contacts ride the same timeline shifted by their binding
// offset.
func (f *Fleet) Step(own *OwnShip, cur *TrackCursor, dt time.Duration) {
	for _, c := range f.Contacts {
		c.COG = geo.NormalizeAngle(own.COG + c.cogOffset)
		c.SOG = clamp(own.SOG+c.sogOffset, 0, maxManualSOG)

		if cur == nil {
			distNM := c.SOG * dt.Hours()
			c.Lat, c.Lon = geo.Destination(c.Lat, c.Lon, c.COG, distNM)
			continue
		}

		shifted := TrackCursor{
			Track:    cur.Track,
			Offset:   cur.Offset + c.timeOffset,
			Fraction: cur.Fraction + c.fracOffset,
		}
		lat, lon, sog, cog := shifted.Sample()
		c.Lat, c.Lon, c.COG = lat, lon, cog
		if sog > 0 {
			c.SOG = sog
		}
	}
}

func contactName(i int, mmsi uint32) string {
	if i < len(namePool) {
		return namePool[i]
	}
	return fmt.Sprintf("SIM %03d", mmsi%1000)
}
