package sim

import (
	"math"
	"math/rand"
	"sort"

	"go-nmea-simulator/nmea"
)

// GNSS constellation shaping.
const (
	minSatsInView = 8
	maxSatsInView = 14
	minSatsUsed   = 6
	maxSatsUsed   = 10
	churnChance   = 0.05 // per-tick probability of swapping one satellite
)

// GNSS synthesises a plausible satellite picture. PRNs persist across ticks
// with slow churn so consumers see a stable constellation.
type GNSS struct {
	rng  *rand.Rand
	sats []nmea.Satellite
}

// GNSSSnapshot is the per-tick constellation handed to the codec.
type GNSSSnapshot struct {
	Satellites []nmea.Satellite
	UsedPRNs   []int
	PDOP       float64
	HDOP       float64
	VDOP       float64
}

// NewGNSS seeds an initial constellation.
func NewGNSS(rng *rand.Rand) *GNSS {
	g := &GNSS{rng: rng}
	count := minSatsInView + rng.Intn(maxSatsInView-minSatsInView+1)
	for _, prn := range g.pickPRNs(count, nil) {
		g.sats = append(g.sats, g.newSatellite(prn))
	}
	return g
}

// Step jitters the constellation and returns this tick's snapshot.
func (g *GNSS) Step() GNSSSnapshot {
	// Occasionally a satellite sets and another rises.
	if g.rng.Float64() < churnChance && len(g.sats) > minSatsInView {
		i := g.rng.Intn(len(g.sats))
		g.sats = append(g.sats[:i], g.sats[i+1:]...)
	}
	if g.rng.Float64() < churnChance && len(g.sats) < maxSatsInView {
		if prn := g.freePRN(); prn != 0 {
			g.sats = append(g.sats, g.newSatellite(prn))
		}
	}

	for i := range g.sats {
		g.sats[i].Elevation = clampInt(g.sats[i].Elevation+g.rng.Intn(3)-1, 5, 85)
		g.sats[i].Azimuth = (g.sats[i].Azimuth + g.rng.Intn(3) - 1 + 360) % 360
		g.sats[i].SNR = clampInt(g.sats[i].SNR+g.rng.Intn(3)-1, 20, 48)
	}

	used := minSatsUsed + g.rng.Intn(maxSatsUsed-minSatsUsed+1)
	if used > len(g.sats) {
		used = len(g.sats)
	}

	snap := GNSSSnapshot{Satellites: make([]nmea.Satellite, len(g.sats))}
	copy(snap.Satellites, g.sats)
	for i := range snap.Satellites {
		snap.Satellites[i].Used = i < used
	}
	for _, s := range snap.Satellites[:used] {
		snap.UsedPRNs = append(snap.UsedPRNs, s.PRN)
	}
	sort.Ints(snap.UsedPRNs)

	snap.HDOP = round1(uniform(g.rng, 0.6, 2.5))
	snap.VDOP = round1(uniform(g.rng, 1.0, 3.0))
	// PDOP^2 = HDOP^2 + VDOP^2 keeps the three DOPs mutually consistent.
	snap.PDOP = round1(math.Hypot(snap.HDOP, snap.VDOP))
	return snap
}

func (g *GNSS) newSatellite(prn int) nmea.Satellite {
	return nmea.Satellite{
		PRN:       prn,
		Elevation: 5 + g.rng.Intn(81),
		Azimuth:   g.rng.Intn(360),
		SNR:       20 + g.rng.Intn(29),
	}
}

// pickPRNs draws count distinct PRNs from 1-32, excluding any in taken.
func (g *GNSS) pickPRNs(count int, taken []int) []int {
	pool := make([]int, 0, 32)
	for prn := 1; prn <= 32; prn++ {
		used := false
		for _, t := range taken {
			if t == prn {
				used = true
				break
			}
		}
		if !used {
			pool = append(pool, prn)
		}
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count]
}

func (g *GNSS) freePRN() int {
	taken := make([]int, len(g.sats))
	for i, s := range g.sats {
		taken[i] = s.PRN
	}
	if prns := g.pickPRNs(1, taken); len(prns) == 1 {
		return prns[0]
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
