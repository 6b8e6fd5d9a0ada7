// Package nmea generates NMEA 0183 talker sentences and AIVDM framing for
// the instrument simulator. All functions are pure; callers supply every
// value that appears on the wire.
package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go-nmea-simulator/geo"
)

// Satellite describes one GNSS satellite in view for GSA/GSV generation.
type Satellite struct {
	PRN       int
	Elevation int // degrees above horizon
	Azimuth   int // degrees from north
	SNR       int // dB
	Used      bool
}

// Measurement is one transducer tuple for an XDR sentence.
type Measurement struct {
	Type      string  // transducer type (U, C, V, ...)
	Value     float64 // measured value
	Unit      string  // unit of measure (V, C, P, ...)
	ID        string  // transducer identifier (MAIN, AIR, FUEL, ...)
	Precision int     // decimal places for the value field
}

// Checksum calculates the NMEA checksum over a sentence body (the text
// between '$' or '!' and '*'), returned as two uppercase hex digits.
func Checksum(body string) string {
	var checksum byte
	for i := 0; i < len(body); i++ {
		checksum ^= body[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// Sentence wraps a body into a complete talker sentence with checksum and
// CRLF termination.
func Sentence(body string) string {
	return fmt.Sprintf("$%s*%s\r\n", body, Checksum(body))
}

// FormatLat converts a decimal latitude to NMEA ddmm.mmmm,H form.
func FormatLat(lat float64) string {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
	}
	abs := math.Abs(lat)
	deg := int(abs)
	min := (abs - float64(deg)) * 60
	return fmt.Sprintf("%02d%07.4f,%s", deg, min, hemi)
}

// FormatLon converts a decimal longitude to NMEA dddmm.mmmm,H form.
func FormatLon(lon float64) string {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
	}
	abs := math.Abs(lon)
	deg := int(abs)
	min := (abs - float64(deg)) * 60
	return fmt.Sprintf("%03d%07.4f,%s", deg, min, hemi)
}

// FormatTime renders a UTC timestamp as HHMMSS.ss.
func FormatTime(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("%02d%02d%02d.%02d",
		utc.Hour(), utc.Minute(), utc.Second(), utc.Nanosecond()/10000000)
}

// RMC creates a GPRMC sentence (recommended minimum navigation data).
func RMC(t time.Time, lat, lon, sogKn, cogDeg, magvarDeg float64) string {
	timeStr := FormatTime(t)
	dateStr := t.UTC().Format("020106")

	magvarDir := "E"
	if magvarDeg < 0 {
		magvarDir = "W"
	}

	body := fmt.Sprintf("GPRMC,%s,A,%s,%s,%.1f,%.1f,%s,%.1f,%s,A",
		timeStr, FormatLat(lat), FormatLon(lon),
		sogKn, cogDeg, dateStr,
		math.Abs(magvarDeg), magvarDir)
	return Sentence(body)
}

// GGA creates a GPGGA sentence (fix data). Altitude is metres above MSL.
func GGA(t time.Time, lat, lon float64, satsUsed int, hdop, altitudeM float64) string {
	body := fmt.Sprintf("GPGGA,%s,%s,%s,1,%02d,%.1f,%.1f,M,0.0,M,,",
		FormatTime(t), FormatLat(lat), FormatLon(lon),
		satsUsed, hdop, altitudeM)
	return Sentence(body)
}

// VTG creates a GPVTG sentence (track made good and ground speed).
func VTG(cogTrueDeg, cogMagDeg, sogKn float64) string {
	body := fmt.Sprintf("GPVTG,%.1f,T,%.1f,M,%.1f,N,%.1f,K,A",
		cogTrueDeg, cogMagDeg, sogKn, sogKn*geo.KnotsToKMH)
	return Sentence(body)
}

// GSA creates a GPGSA sentence from the PRNs used in the fix. At most 12
// PRNs are emitted; missing slots stay empty.
func GSA(usedPRNs []int, pdop, hdop, vdop float64) string {
	fields := make([]string, 0, 12)
	for i, prn := range usedPRNs {
		if i >= 12 {
			break
		}
		fields = append(fields, fmt.Sprintf("%02d", prn))
	}
	for len(fields) < 12 {
		fields = append(fields, "")
	}

	body := fmt.Sprintf("GPGSA,A,3,%s,%.1f,%.1f,%.1f",
		strings.Join(fields, ","), pdop, hdop, vdop)
	return Sentence(body)
}

// GSV creates GPGSV sentences for the satellites in view, four per sentence.
func GSV(sats []Satellite) []string {
	total := len(sats)
	count := (total + 3) / 4
	if count == 0 {
		count = 1
	}

	sentences := make([]string, 0, count)
	for msg := 1; msg <= count; msg++ {
		start := (msg - 1) * 4
		end := start + 4
		if end > total {
			end = total
		}

		body := fmt.Sprintf("GPGSV,%d,%d,%02d", count, msg, total)
		for _, sat := range sats[start:end] {
			body += fmt.Sprintf(",%02d,%d,%d,%d", sat.PRN, sat.Elevation, sat.Azimuth, sat.SNR)
		}
		sentences = append(sentences, Sentence(body))
	}
	return sentences
}

// MWD creates a WIMWD sentence (true wind direction and speed).
func MWD(twdTrueDeg, twdMagDeg, twsKn float64) string {
	body := fmt.Sprintf("WIMWD,%.1f,T,%.1f,M,%.1f,N,%.1f,M",
		twdTrueDeg, twdMagDeg, twsKn, twsKn*geo.KnotsToMPS)
	return Sentence(body)
}

// MWV creates a WIMWV sentence. reference is 'T' for true wind or 'R' for
// relative (apparent) wind; the angle is relative to the bow.
func MWV(angleDeg float64, reference byte, speedKn float64) string {
	body := fmt.Sprintf("WIMWV,%.1f,%c,%.1f,N,A", math.Abs(angleDeg), reference, speedKn)
	return Sentence(body)
}

// HDT creates a HCHDT sentence (heading, degrees true).
func HDT(headingDeg float64) string {
	body := fmt.Sprintf("HCHDT,%.1f,T", headingDeg)
	return Sentence(body)
}

// DPT creates an SDDPT sentence (depth below transducer plus offset).
func DPT(depthM, offsetM float64) string {
	body := fmt.Sprintf("SDDPT,%.1f,%.1f", depthM, offsetM)
	return Sentence(body)
}

// DBT creates an SDDBT sentence (depth below transducer in ft, m, fathoms).
func DBT(depthM float64) string {
	body := fmt.Sprintf("SDDBT,%.1f,f,%.1f,M,%.1f,F",
		depthM*geo.MetersToFeet, depthM, depthM*geo.MetersToFathoms)
	return Sentence(body)
}

// MTW creates a WIMTW sentence (water temperature, Celsius).
func MTW(tempC float64) string {
	body := fmt.Sprintf("WIMTW,%.1f,C", tempC)
	return Sentence(body)
}

// XDR creates an IIXDR sentence from transducer measurements.
func XDR(measurements []Measurement) string {
	var b strings.Builder
	b.WriteString("IIXDR")
	for _, m := range measurements {
		b.WriteString(",")
		b.WriteString(m.Type)
		b.WriteString(",")
		b.WriteString(strconv.FormatFloat(m.Value, 'f', m.Precision, 64))
		b.WriteString(",")
		b.WriteString(m.Unit)
		b.WriteString(",")
		b.WriteString(m.ID)
	}
	return Sentence(b.String())
}
