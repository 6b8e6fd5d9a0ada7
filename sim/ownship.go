// Package sim holds the simulation models and the engine that drives them:
// own-ship kinematics, the AIS contact fleet, the GNSS synthesizer and the
// tick scheduler.
package sim

import (
	"math"
	"math/rand"
	"time"

	"go-nmea-simulator/geo"
)

// Sensor plausibility bounds. Perturbations are re-clamped into these each
// tick so long runs cannot drift into nonsense values.
const (
	minDepthM    = 1.0
	maxDepthM    = 200.0
	minWaterC    = -2.0
	maxWaterC    = 35.0
	minAirC      = -20.0
	maxAirC      = 45.0
	minBatteryV  = 11.5
	maxBatteryV  = 14.8
	maxManualSOG = 40.0
	maxTWS       = 30.0
)

// Per-tick tank rates in percent. Fresh water and fuel drain, waste fills.
const (
	freshWaterRate = 0.003
	fuelRate       = 0.002
	wasteWaterRate = 0.0025
)

// OwnShip is the simulated vessel state. It is owned by the scheduler
// goroutine; the engine copies it out under lock for status reporting.
type OwnShip struct {
	Lat float64
	Lon float64
	SOG float64 // knots
	COG float64 // degrees true

	TWS    float64 // true wind speed, knots
	TWD    float64 // true wind direction, degrees true
	MagVar float64 // degrees, east positive

	DepthM       float64
	DepthOffsetM float64
	WaterTempC   float64
	AirTempC     float64
	BatteryV     float64

	FreshWaterPct float64
	FuelPct       float64
	WasteWaterPct float64

	Clock time.Time // simulated UTC, advances by interval per tick
}

// StepManual applies one tick of random-walk evolution and dead-reckons the
// position.
func (s *OwnShip) StepManual(rng *rand.Rand, dt time.Duration) {
	s.SOG = clamp(s.SOG+uniform(rng, -0.2, 0.2), 0, maxManualSOG)
	s.COG = geo.NormalizeAngle(s.COG + uniform(rng, -2, 2))
	s.TWS = clamp(s.TWS+uniform(rng, -0.3, 0.3), 0, maxTWS)
	s.TWD = geo.NormalizeAngle(s.TWD + uniform(rng, -3, 3))

	distNM := s.SOG * dt.Hours()
	s.Lat, s.Lon = geo.Destination(s.Lat, s.Lon, s.COG, distNM)
}

// StepTrack advances the vessel along a GPX cursor and adopts the
// timeline's pose. Wind still random-walks.
func (s *OwnShip) StepTrack(rng *rand.Rand, cur *TrackCursor, dt time.Duration) {
	s.TWS = clamp(s.TWS+uniform(rng, -0.3, 0.3), 0, maxTWS)
	s.TWD = geo.NormalizeAngle(s.TWD + uniform(rng, -3, 3))

	cur.Advance(dt, s.SOG)
	lat, lon, sog, cog := cur.Sample()
	s.Lat, s.Lon, s.COG = lat, lon, cog
	if sog > 0 {
		s.SOG = sog
	}
}

// StepSensors perturbs every environmental reading and evolves the tanks.
func (s *OwnShip) StepSensors(rng *rand.Rand) {
	s.DepthM = clamp(s.DepthM+uniform(rng, -0.1, 0.1), minDepthM, maxDepthM)
	s.WaterTempC = clamp(s.WaterTempC+uniform(rng, -0.05, 0.05), minWaterC, maxWaterC)
	s.AirTempC = clamp(s.AirTempC+uniform(rng, -0.05, 0.05), minAirC, maxAirC)
	s.BatteryV = clamp(s.BatteryV+uniform(rng, -0.01, 0.01), minBatteryV, maxBatteryV)

	s.FreshWaterPct = clamp(s.FreshWaterPct-freshWaterRate, 0, 100)
	s.FuelPct = clamp(s.FuelPct-fuelRate, 0, 100)
	s.WasteWaterPct = clamp(s.WasteWaterPct+wasteWaterRate, 0, 100)
}

// MagneticCOG returns the course over ground corrected for variation.
func (s *OwnShip) MagneticCOG() float64 {
	return geo.NormalizeAngle(s.COG - s.MagVar)
}

// MagneticTWD returns the wind direction corrected for variation.
func (s *OwnShip) MagneticTWD() float64 {
	return geo.NormalizeAngle(s.TWD - s.MagVar)
}

// Wind holds the per-tick derived wind values.
type Wind struct {
	TWA float64 // true wind angle off the bow, degrees in (-180, 180]
	AWA float64 // apparent wind angle off the bow
	AWS float64 // apparent wind speed, knots
}

// DeriveWind computes the true wind angle and the apparent wind from the
// true-wind vector and the vessel velocity.
func (s *OwnShip) DeriveWind() Wind {
	twa := wrap180(s.TWD - s.COG)

	rad := twa * math.Pi / 180
	// Bow-relative components of the apparent wind: head component grows
	// with boat speed, beam component is untouched.
	x := s.TWS*math.Cos(rad) + s.SOG
	y := s.TWS * math.Sin(rad)

	aws := math.Hypot(x, y)
	awa := math.Atan2(y, x) * 180 / math.Pi
	return Wind{TWA: twa, AWA: awa, AWS: aws}
}

// wrap180 maps an angle into (-180, 180].
func wrap180(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
