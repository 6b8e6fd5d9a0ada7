package ais

import (
	"math"

	"go-nmea-simulator/geo"
)

// Type18 encodes a Class-B position report (message 18), 168 bits.
// sogKn is clamped to the 0.1-knot field range, position is packed as
// two's-complement 1/10000 arc-minutes, heading is reported unavailable
// and tsSec carries the UTC second of the report.
func Type18(mmsi uint32, lat, lon, sogKn, cogDeg float64, tsSec int) ([]byte, int) {
	sog := uint32(sogKn*10 + 0.5)
	if sog > 1022 {
		sog = 1022
	}
	cog := uint32(geo.NormalizeAngle(cogDeg)*10 + 0.5)
	if cog >= 3600 {
		cog = 0
	}
	if tsSec < 0 || tsSec > 59 {
		tsSec = 60
	}

	var w Writer
	w.Uint(18, 6)                    // message type
	w.Uint(0, 2)                     // repeat indicator
	w.Uint(mmsi, 30)                 // MMSI
	w.Uint(0, 8)                     // regional reserved
	w.Uint(sog, 10)                  // SOG, 0.1 kn
	w.Uint(1, 1)                     // position accuracy
	w.Int(int32(math.Round(lon*600000)), 28) // longitude, 1/10000 arc-min
	w.Int(int32(math.Round(lat*600000)), 27) // latitude, 1/10000 arc-min
	w.Uint(cog, 12)                  // COG, 0.1 deg
	w.Uint(511, 9)                   // true heading, unavailable
	w.Uint(uint32(tsSec), 6)         // UTC second
	w.Uint(0, 2)                     // regional reserved
	w.Uint(1, 1)                     // CS unit, carrier sense
	w.Uint(0, 1)                     // no display
	w.Uint(1, 1)                     // DSC capable
	w.Uint(1, 1)                     // whole marine band
	w.Uint(1, 1)                     // accepts message 22
	w.Uint(0, 1)                     // autonomous mode
	w.Uint(0, 1)                     // RAIM not in use
	w.Uint(0, 20)                    // radio status
	return w.Bytes(), w.Len()
}
