package sim

import (
	"math/rand"
	"testing"
	"time"

	"go-nmea-simulator/geo"
)

func testFleetConfig(n int) FleetConfig {
	return FleetConfig{
		NumTargets:         n,
		MaxCOGOffset:       20,
		MaxSOGOffset:       2,
		DistributionRadius: 1.0,
	}
}

func TestNewFleetIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	own := testShip()
	f := NewFleet(testFleetConfig(12), rng, own, 0)

	if len(f.Contacts) != 12 {
		t.Fatalf("contacts = %d, want 12", len(f.Contacts))
	}
	for i, c := range f.Contacts {
		want := uint32(999000001 + i)
		if c.MMSI != want {
			t.Errorf("contact %d MMSI = %d, want %d", i, c.MMSI, want)
		}
		if c.Name == "" {
			t.Errorf("contact %d has no name", i)
		}
	}
	// Beyond the name pool the name is synthesised from the MMSI.
	if got := f.Contacts[11].Name; got != "SIM 012" {
		t.Errorf("contact 11 name = %q, want SIM 012", got)
	}
}

func TestNewFleetPlacement(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	own := testShip()
	cfg := testFleetConfig(30)
	f := NewFleet(cfg, rng, own, 0)

	for i, c := range f.Contacts {
		d := geo.Distance(own.Lat, own.Lon, c.Lat, c.Lon)
		if d > cfg.DistributionRadius+0.01 {
			t.Errorf("contact %d placed %f nm out, radius is %f", i, d, cfg.DistributionRadius)
		}
		if c.SOG < 0 {
			t.Errorf("contact %d SOG negative: %f", i, c.SOG)
		}
		if c.COG < 0 || c.COG >= 360 {
			t.Errorf("contact %d COG not normalised: %f", i, c.COG)
		}
	}
}

func TestFleetStepManual(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	own := testShip()
	f := NewFleet(testFleetConfig(3), rng, own, 0)

	before := make([]struct{ lat, lon float64 }, len(f.Contacts))
	for i, c := range f.Contacts {
		before[i].lat, before[i].lon = c.Lat, c.Lon
	}

	f.Step(own, nil, time.Second)

	for i, c := range f.Contacts {
		if c.Lat == before[i].lat && c.Lon == before[i].lon {
			t.Errorf("contact %d did not move", i)
		}
		wantCOG := geo.NormalizeAngle(own.COG + c.cogOffset)
		if c.COG != wantCOG {
			t.Errorf("contact %d COG = %f, want own + offset = %f", i, c.COG, wantCOG)
		}
	}
}

func TestFleetStepNeverNegativeSOG(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	own := testShip()
	own.SOG = 0.5 // offsets reach +-2, so raw sums go negative
	f := NewFleet(testFleetConfig(20), rng, own, 0)

	f.Step(own, nil, time.Second)
	for i, c := range f.Contacts {
		if c.SOG < 0 {
			t.Errorf("contact %d SOG = %f, want clamped at 0", i, c.SOG)
		}
	}
}

func TestStaticDue(t *testing.T) {
	c := &Contact{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	if !c.StaticDue(now) {
		t.Fatal("first static report should be due immediately")
	}
	if c.StaticDue(now.Add(30 * time.Second)) {
		t.Error("static report due again after only 30s")
	}
	if !c.StaticDue(now.Add(60 * time.Second)) {
		t.Error("static report should be due after 60s")
	}
	if c.StaticDue(now.Add(61 * time.Second)) {
		t.Error("static report due 1s after the previous one")
	}
}
