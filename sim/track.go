package sim

import (
	"time"

	"go-nmea-simulator/gpx"
)

// TrackCursor walks a parsed GPX track. Timed tracks advance on the time
// axis; untimed tracks advance on arc length at the vessel's own speed.
// The cursor clamps at the end of the track and does not loop.
type TrackCursor struct {
	Track    *gpx.Track
	Offset   time.Duration // position on the time axis for timed tracks
	Fraction float64       // position on the arc-length axis otherwise
}

// Advance moves the cursor by dt. sogKn is only consulted on untimed
// tracks, where distance covered is sogKn x dt.
func (c *TrackCursor) Advance(dt time.Duration, sogKn float64) {
	if c.Track.HasTime {
		c.Offset += dt
		if max := c.Track.Duration(); c.Offset > max {
			c.Offset = max
		}
		return
	}

	if c.Track.LengthNM > 0 {
		c.Fraction += sogKn * dt.Hours() / c.Track.LengthNM
	}
	if c.Fraction > 1 {
		c.Fraction = 1
	}
}

// Sample returns the pose at the cursor. SOG is zero on untimed tracks.
func (c *TrackCursor) Sample() (lat, lon, sog, cog float64) {
	if c.Track.HasTime {
		lat, lon = c.Track.PositionAt(c.Offset)
		sog, cog = c.Track.SegmentAt(c.Offset)
		return lat, lon, sog, cog
	}
	lat, lon = c.Track.PositionAtFraction(c.Fraction)
	sog, cog = c.Track.SegmentAtFraction(c.Fraction)
	return lat, lon, sog, cog
}

// Done reports whether the cursor has reached the end of the track.
func (c *TrackCursor) Done() bool {
	if c.Track.HasTime {
		return c.Offset >= c.Track.Duration()
	}
	return c.Fraction >= 1
}
