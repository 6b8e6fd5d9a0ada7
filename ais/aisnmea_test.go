package ais_test

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	goais "github.com/BertoldVdb/go-ais"
	"github.com/BertoldVdb/go-ais/aisnmea"

	"go-nmea-simulator/ais"
	"go-nmea-simulator/nmea"
)

// decodeOne runs an AIVDM line through the reference decoder and returns
// the packet's type name and its fields as a JSON map.
func decodeOne(t *testing.T, line string) (string, map[string]interface{}) {
	t.Helper()

	nm := aisnmea.NMEACodecNew(goais.CodecNew(false, false))
	decoded, err := nm.ParseSentence(strings.TrimSpace(line))
	if err != nil {
		t.Fatalf("ParseSentence(%q): %v", line, err)
	}
	if decoded == nil || decoded.Packet == nil {
		t.Fatalf("decoder returned no packet for %q", line)
	}

	typeName := fmt.Sprintf("%T", decoded.Packet)
	if i := strings.LastIndex(typeName, "."); i >= 0 {
		typeName = typeName[i+1:]
	}

	b, err := json.Marshal(decoded.Packet)
	if err != nil {
		t.Fatalf("marshal packet: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("unmarshal packet: %v", err)
	}
	return typeName, fields
}

func TestType18DecodesAsClassBReport(t *testing.T) {
	payload, bits := ais.Type18(999000001, 47.0707, 15.4395, 5.3, 185.2, 42)
	lines := nmea.AIVDM(payload, bits)
	if len(lines) != 1 {
		t.Fatalf("Type18 should frame as one fragment, got %d", len(lines))
	}

	typeName, fields := decodeOne(t, lines[0])
	if typeName != "StandardClassBPositionReport" {
		t.Fatalf("decoded type = %s, want StandardClassBPositionReport", typeName)
	}

	if mmsi, ok := fields["UserID"].(float64); !ok || uint32(mmsi) != 999000001 {
		t.Errorf("UserID = %v, want 999000001", fields["UserID"])
	}
	if lat, ok := fields["Latitude"].(float64); !ok || math.Abs(lat-47.0707) > 1e-5 {
		t.Errorf("Latitude = %v, want 47.0707", fields["Latitude"])
	}
	if lon, ok := fields["Longitude"].(float64); !ok || math.Abs(lon-15.4395) > 1e-5 {
		t.Errorf("Longitude = %v, want 15.4395", fields["Longitude"])
	}
	if sog, ok := fields["Sog"].(float64); !ok || math.Abs(sog-5.3) > 0.05 {
		t.Errorf("Sog = %v, want 5.3", fields["Sog"])
	}
	if cog, ok := fields["Cog"].(float64); !ok || math.Abs(cog-185.2) > 0.05 {
		t.Errorf("Cog = %v, want 185.2", fields["Cog"])
	}
}

func TestType24ADecodesAsStaticReport(t *testing.T) {
	payload, bits := ais.Type24A(999000007, "Wandering Star")
	lines := nmea.AIVDM(payload, bits)
	if len(lines) != 1 {
		t.Fatalf("Type24A should frame as one fragment, got %d", len(lines))
	}

	typeName, fields := decodeOne(t, lines[0])
	if typeName != "StaticDataReport" {
		t.Fatalf("decoded type = %s, want StaticDataReport", typeName)
	}

	if mmsi, ok := fields["UserID"].(float64); !ok || uint32(mmsi) != 999000007 {
		t.Errorf("UserID = %v, want 999000007", fields["UserID"])
	}

	reportA, ok := fields["ReportA"].(map[string]interface{})
	if !ok {
		t.Fatalf("packet has no ReportA part: %v", fields)
	}
	name, _ := reportA["Name"].(string)
	if got := strings.TrimRight(name, "@ "); got != "WANDERING STAR" {
		t.Errorf("Name = %q, want WANDERING STAR", name)
	}
}
