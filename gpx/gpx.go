// Package gpx parses GPX documents into an immutable track timeline with
// interpolation queries used to drive simulated vessels along a route.
package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"time"

	"go-nmea-simulator/geo"
)

// ErrTooFewPoints is returned when a document holds fewer than two track
// points, which is not enough to derive a course.
var ErrTooFewPoints = errors.New("gpx: track needs at least 2 points")

// maxSegmentSOG caps the speed derived from timestamped segments so that
// bad fixes in a recorded track cannot produce implausible speeds.
const maxSegmentSOG = 40.0

type gpxDoc struct {
	XMLName xml.Name   `xml:"gpx"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64   `xml:"lat,attr"`
	Lon  float64   `xml:"lon,attr"`
	Time time.Time `xml:"time"`
}

// Point is one track point. Time is zero when the source point carried no
// timestamp.
type Point struct {
	Lat  float64
	Lon  float64
	Time time.Time
}

// Track is a parsed, validated GPX track. All fields are set by Parse and
// never mutated afterwards.
type Track struct {
	Name     string
	Points   []Point
	HasTime  bool    // every point timed, timestamps non-decreasing
	LengthNM float64 // sum of great-circle segment lengths

	cum []float64 // cumulative arc length in nm per point
}

// Parse reads a GPX document and returns the first track with all its
// segments concatenated in order.
func Parse(data []byte) (*Track, error) {
	var doc gpxDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("gpx: parse: %w", err)
	}

	var trk gpxTrack
	if len(doc.Tracks) > 0 {
		trk = doc.Tracks[0]
	}

	var points []Point
	for _, seg := range trk.Segments {
		for _, p := range seg.Points {
			points = append(points, Point{Lat: p.Lat, Lon: p.Lon, Time: p.Time})
		}
	}
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}

	t := &Track{
		Name:    trk.Name,
		Points:  points,
		HasTime: true,
		cum:     make([]float64, len(points)),
	}
	for i, p := range points {
		if p.Time.IsZero() || (i > 0 && p.Time.Before(points[i-1].Time)) {
			t.HasTime = false
		}
		if i > 0 {
			prev := points[i-1]
			t.cum[i] = t.cum[i-1] + geo.Distance(prev.Lat, prev.Lon, p.Lat, p.Lon)
		}
	}
	t.LengthNM = t.cum[len(t.cum)-1]
	return t, nil
}

// Start returns the first point's timestamp. Zero for untimed tracks.
func (t *Track) Start() time.Time {
	if !t.HasTime {
		return time.Time{}
	}
	return t.Points[0].Time
}

// End returns the last point's timestamp. Zero for untimed tracks.
func (t *Track) End() time.Time {
	if !t.HasTime {
		return time.Time{}
	}
	return t.Points[len(t.Points)-1].Time
}

// Duration returns the recorded track duration. Zero for untimed tracks.
func (t *Track) Duration() time.Duration {
	return t.End().Sub(t.Start())
}

// PositionAt returns the interpolated position at the given offset from the
// track start. Offsets are clamped to the recorded span. Untimed tracks
// report their first point.
func (t *Track) PositionAt(offset time.Duration) (float64, float64) {
	if !t.HasTime {
		return t.Points[0].Lat, t.Points[0].Lon
	}
	i, frac := t.bracketAt(offset)
	return lerpPoints(t.Points[i], t.Points[i+1], frac)
}

// PositionAtFraction returns the position at fraction f of the track's arc
// length. f is clamped to [0, 1].
func (t *Track) PositionAtFraction(f float64) (float64, float64) {
	i, frac := t.bracketAtFraction(f)
	return lerpPoints(t.Points[i], t.Points[i+1], frac)
}

// SegmentAt returns the SOG and COG of the segment enclosing the given time
// offset. SOG comes from segment distance over duration, capped to keep bad
// fixes from exploding; zero-duration segments report zero SOG.
func (t *Track) SegmentAt(offset time.Duration) (float64, float64) {
	if !t.HasTime {
		return t.segment(0)
	}
	i, _ := t.bracketAt(offset)
	return t.segment(i)
}

// SegmentAtFraction returns the SOG and COG of the segment enclosing
// fraction f of the arc length. Untimed segments report zero SOG; callers
// keep their own speed.
func (t *Track) SegmentAtFraction(f float64) (float64, float64) {
	i, _ := t.bracketAtFraction(f)
	return t.segment(i)
}

// bracketAt finds the segment index and intra-segment fraction for a time
// offset, clamped to the track span.
func (t *Track) bracketAt(offset time.Duration) (int, float64) {
	target := t.Points[0].Time.Add(offset)
	last := len(t.Points) - 1

	if !target.After(t.Points[0].Time) {
		return 0, 0
	}
	if !target.Before(t.Points[last].Time) {
		return last - 1, 1
	}

	// First point with Time > target; the segment starts one before it.
	i := sort.Search(len(t.Points), func(i int) bool {
		return t.Points[i].Time.After(target)
	}) - 1

	span := t.Points[i+1].Time.Sub(t.Points[i].Time)
	if span <= 0 {
		return i, 0
	}
	frac := float64(target.Sub(t.Points[i].Time)) / float64(span)
	return i, frac
}

// bracketAtFraction finds the segment index and intra-segment fraction for
// an arc-length fraction, clamped to [0, 1].
func (t *Track) bracketAtFraction(f float64) (int, float64) {
	last := len(t.Points) - 1
	if f <= 0 || t.LengthNM == 0 {
		return 0, 0
	}
	if f >= 1 {
		return last - 1, 1
	}

	target := f * t.LengthNM
	i := sort.Search(len(t.cum), func(i int) bool {
		return t.cum[i] > target
	}) - 1
	if i >= last {
		return last - 1, 1
	}

	span := t.cum[i+1] - t.cum[i]
	if span <= 0 {
		return i, 0
	}
	return i, (target - t.cum[i]) / span
}

// segment returns SOG and COG for segment i.
func (t *Track) segment(i int) (float64, float64) {
	a, b := t.Points[i], t.Points[i+1]
	cog := geo.Bearing(a.Lat, a.Lon, b.Lat, b.Lon)

	sog := 0.0
	if t.HasTime {
		if dt := b.Time.Sub(a.Time).Hours(); dt > 0 {
			sog = geo.Distance(a.Lat, a.Lon, b.Lat, b.Lon) / dt
			if sog > maxSegmentSOG {
				sog = maxSegmentSOG
			}
		}
	}
	return sog, cog
}

func lerpPoints(a, b Point, frac float64) (float64, float64) {
	lat := a.Lat + (b.Lat-a.Lat)*frac
	lon := a.Lon + (b.Lon-a.Lon)*frac
	return lat, geo.WrapLongitude(lon)
}
