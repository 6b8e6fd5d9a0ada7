package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"go-nmea-simulator/ais"
	"go-nmea-simulator/nmea"
	"go-nmea-simulator/publish"
)

// Engine owns one simulation run: the models, the tick scheduler and the
// output sinks. All mutable state is guarded by mu; the scheduler goroutine
// takes the lock once per tick, copies what it needs and does the sentence
// work on the copies.
type Engine struct {
	log zerolog.Logger

	mu    sync.Mutex
	state State
	cfg   Config

	own    *OwnShip
	fleet  *Fleet
	gnss   *GNSS
	cursor *TrackCursor
	rng    *rand.Rand

	lastGNSS GNSSSnapshot

	udp    *publish.UDP
	tcp    *publish.TCP
	serial *publish.Serial
	ring   *publish.Ring

	startedAt   time.Time
	driftEvents int

	stop chan struct{}
	done chan struct{}
}

// New creates an idle engine.
func New(log zerolog.Logger) *Engine {
	return &Engine{log: log, ring: publish.NewRing(0)}
}

// Start validates the configuration, binds the sinks and launches the
// scheduler. A failed bind closes anything already opened and leaves the
// engine idle.
func (e *Engine) Start(cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Idle {
		return ErrAlreadyRunning
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.state = Starting

	udp, err := publish.NewUDP(publish.NormalizeUDPHost(cfg.UDPHost), cfg.UDPPort, e.log)
	if err != nil {
		e.state = Idle
		return err
	}
	var tcp *publish.TCP
	if cfg.TCPPort > 0 {
		if tcp, err = publish.NewTCP(cfg.TCPHost, cfg.TCPPort, e.log); err != nil {
			udp.Close()
			e.state = Idle
			return err
		}
	}
	var ser *publish.Serial
	if cfg.SerialDevice != "" {
		if ser, err = publish.NewSerial(cfg.SerialDevice, cfg.SerialBaud, e.log); err != nil {
			udp.Close()
			if tcp != nil {
				tcp.Close()
			}
			e.state = Idle
			return err
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	start, _ := cfg.StartTime()
	if start.IsZero() {
		start = time.Now().UTC()
	}

	own := &OwnShip{
		Lat: cfg.Lat, Lon: cfg.Lon, SOG: cfg.SOGKn, COG: cfg.COGDeg,
		TWS: cfg.TWSKn, TWD: cfg.TWDDeg, MagVar: cfg.MagVarDeg,
		DepthM: cfg.DepthM, DepthOffsetM: cfg.DepthOffsetM,
		WaterTempC: cfg.WaterTempC, AirTempC: cfg.AirTempC, BatteryV: cfg.BatteryV,
		FreshWaterPct: cfg.TankFreshWater, FuelPct: cfg.TankFuel, WasteWaterPct: cfg.TankWaste,
		Clock: start,
	}

	var cursor *TrackCursor
	trackPoints := 0
	if cfg.Track != nil {
		trackPoints = len(cfg.Track.Points)
		cursor = &TrackCursor{Track: cfg.Track}
		switch {
		case cfg.GPXOffsetS != nil:
			off := time.Duration(*cfg.GPXOffsetS * float64(time.Second))
			if cfg.Track.HasTime {
				cursor.Offset = off
			} else if cfg.Track.LengthNM > 0 {
				cursor.Fraction = cfg.SOGKn * off.Hours() / cfg.Track.LengthNM
			}
		case cfg.GPXStartFraction != nil:
			if cfg.Track.HasTime {
				cursor.Offset = time.Duration(*cfg.GPXStartFraction * float64(cfg.Track.Duration()))
			} else {
				cursor.Fraction = *cfg.GPXStartFraction
			}
		}
		lat, lon, sog, cog := cursor.Sample()
		own.Lat, own.Lon, own.COG = lat, lon, cog
		if sog > 0 {
			own.SOG = sog
		}
	}

	e.cfg = cfg
	e.own = own
	e.cursor = cursor
	e.rng = rng
	e.fleet = NewFleet(cfg.AIS, rng, own, trackPoints)
	e.gnss = NewGNSS(rng)
	e.lastGNSS = GNSSSnapshot{}
	e.ring = publish.NewRing(0)
	e.udp, e.tcp, e.serial = udp, tcp, ser
	e.startedAt = time.Now().UTC()
	e.driftEvents = 0
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.state = Running

	ev := e.log.Info().
		Str("udp", udp.Addr()).
		Float64("interval_s", cfg.IntervalS).
		Int("ais_targets", cfg.AIS.NumTargets)
	if tcp != nil {
		ev = ev.Str("tcp", tcp.Addr())
	}
	if ser != nil {
		ev = ev.Str("serial", cfg.SerialDevice)
	}
	ev.Msg("simulator started")

	go e.run(cfg.Interval(), e.stop, e.done)
	return nil
}

// Stop halts the scheduler and closes the sinks. The stream ring survives so
// the last emitted lines stay observable.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.state = Stopping
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done

	e.mu.Lock()
	defer e.mu.Unlock()
	e.udp.Close()
	if e.tcp != nil {
		e.tcp.Close()
	}
	if e.serial != nil {
		e.serial.Close()
	}
	e.udp, e.tcp, e.serial = nil, nil, nil
	e.state = Idle
	e.log.Info().Msg("simulator stopped")
	return nil
}

// Restart stops a running engine if needed and starts it with the new
// configuration. A fresh start re-seeds the models and re-rolls the fleet.
func (e *Engine) Restart(cfg Config) error {
	if err := e.Stop(); err != nil && err != ErrNotRunning {
		return err
	}
	return e.Start(cfg)
}

// Stream returns up to limit recent output lines, oldest first.
func (e *Engine) Stream(limit int) []string {
	e.mu.Lock()
	ring := e.ring
	e.mu.Unlock()
	return ring.Tail(limit)
}

// Status reports a snapshot of the engine and its models.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Running:     e.state == Running,
		StreamLines: e.ring.Len(),
		DriftEvents: e.driftEvents,
	}
	if e.own == nil {
		return st
	}

	st.StartedAt = formatRFC3339(e.startedAt)
	st.SimTime = formatRFC3339(e.own.Clock)
	st.Lat, st.Lon = e.own.Lat, e.own.Lon
	st.SOGKn, st.COGDeg = e.own.SOG, e.own.COG

	cfg := e.cfg
	st.WindEnabled = cfg.WindEnabled
	st.HeadingEnabled = cfg.HeadingEnabled
	st.DepthEnabled = cfg.DepthEnabled
	st.WaterTempEnabled = cfg.WaterTempEnabled
	st.BatteryEnabled = cfg.BatteryEnabled
	st.AirTempEnabled = cfg.AirTempEnabled
	st.TanksEnabled = cfg.TanksEnabled
	if cfg.WindEnabled {
		st.TWSKn, st.TWDDeg = e.own.TWS, e.own.TWD
	}
	if cfg.DepthEnabled {
		st.DepthM = e.own.DepthM
	}
	if cfg.WaterTempEnabled {
		st.WaterTempC = e.own.WaterTempC
	}
	if cfg.BatteryEnabled {
		st.BatteryV = e.own.BatteryV
	}
	if cfg.AirTempEnabled {
		st.AirTempC = e.own.AirTempC
	}
	if cfg.TanksEnabled {
		st.TankFreshWater = e.own.FreshWaterPct
		st.TankFuel = e.own.FuelPct
		st.TankWaste = e.own.WasteWaterPct
	}

	st.SatellitesInView = len(e.lastGNSS.Satellites)
	st.SatellitesUsed = len(e.lastGNSS.UsedPRNs)
	st.HDOP = e.lastGNSS.HDOP

	if e.fleet != nil && len(e.fleet.Contacts) > 0 {
		st.AISTargets = len(e.fleet.Contacts)
		st.AISFirstMMSI = e.fleet.Contacts[0].MMSI
		st.AISLastMMSI = e.fleet.Contacts[len(e.fleet.Contacts)-1].MMSI
	}

	if e.udp != nil {
		st.UDPEndpoint = e.udp.Addr()
	}
	if e.tcp != nil {
		st.TCPEndpoint = e.tcp.Addr()
		st.TCPClients = e.tcp.Clients()
		st.TCPOverflowEvents = e.tcp.Overflow()
	}
	st.SerialDevice = cfg.SerialDevice

	if e.cursor != nil {
		t := e.cursor.Track
		g := &GPXStatus{
			Name:     t.Name,
			Points:   len(t.Points),
			LengthNM: t.LengthNM,
			Done:     e.cursor.Done(),
		}
		if t.HasTime {
			g.Duration = t.Duration().String()
			if d := t.Duration(); d > 0 {
				g.Progress = float64(e.cursor.Offset) / float64(d)
			}
		} else {
			g.Progress = e.cursor.Fraction
		}
		st.GPX = g
	}
	return st
}

// run is the scheduler loop. Ticks fire at t0 + k x interval so cadence does
// not accumulate per-tick processing delay. Falling behind by more than one
// interval skips ahead instead of bursting.
func (e *Engine) run(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	t0 := time.Now()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for k := 1; ; k++ {
		target := t0.Add(time.Duration(k) * interval)
		wait := time.Until(target)
		if wait < -interval {
			missed := int(-wait / interval)
			k += missed
			e.mu.Lock()
			e.driftEvents++
			e.mu.Unlock()
			e.log.Warn().Int("missed_ticks", missed).Msg("scheduler fell behind, skipping ahead")
			target = t0.Add(time.Duration(k) * interval)
			wait = time.Until(target)
		}
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)

		select {
		case <-stop:
			return
		case <-timer.C:
		}
		e.tick(interval)
	}
}

// aisEmit is a per-contact snapshot taken under lock for payload building.
type aisEmit struct {
	mmsi      uint32
	name      string
	lat, lon  float64
	sog, cog  float64
	staticDue bool
}

// tick advances every model one step under lock, then builds and publishes
// the sentence batch from the copies.
func (e *Engine) tick(dt time.Duration) {
	e.mu.Lock()
	ts := e.own.Clock
	if e.cursor != nil {
		e.own.StepTrack(e.rng, e.cursor, dt)
	} else {
		e.own.StepManual(e.rng, dt)
	}
	e.own.StepSensors(e.rng)
	e.fleet.Step(e.own, e.cursor, dt)
	snap := e.gnss.Step()
	e.lastGNSS = snap

	own := *e.own
	cfg := e.cfg
	emits := make([]aisEmit, 0, len(e.fleet.Contacts))
	for _, c := range e.fleet.Contacts {
		emits = append(emits, aisEmit{
			mmsi: c.MMSI, name: c.Name,
			lat: c.Lat, lon: c.Lon, sog: c.SOG, cog: c.COG,
			staticDue: c.StaticDue(ts),
		})
	}
	e.own.Clock = e.own.Clock.Add(dt)
	udp, tcp, ser, ring := e.udp, e.tcp, e.serial, e.ring
	e.mu.Unlock()

	for _, line := range buildBatch(cfg, own, ts, snap, emits) {
		udp.Publish(line)
		if tcp != nil {
			tcp.Publish(line)
		}
		if ser != nil {
			ser.Publish(line)
		}
		ring.Append(line)
	}
}

// buildBatch assembles one tick's sentences in fixed order.
func buildBatch(cfg Config, own OwnShip, ts time.Time, gnss GNSSSnapshot, emits []aisEmit) []string {
	lines := make([]string, 0, 16+2*len(emits))

	lines = append(lines, nmea.RMC(ts, own.Lat, own.Lon, own.SOG, own.COG, own.MagVar))
	lines = append(lines, nmea.GGA(ts, own.Lat, own.Lon, len(gnss.UsedPRNs), gnss.HDOP, 0.0))
	lines = append(lines, nmea.VTG(own.COG, own.MagneticCOG(), own.SOG))
	lines = append(lines, nmea.GSA(gnss.UsedPRNs, gnss.PDOP, gnss.HDOP, gnss.VDOP))
	lines = append(lines, nmea.GSV(gnss.Satellites)...)

	if cfg.HeadingEnabled {
		lines = append(lines, nmea.HDT(own.COG))
	}
	if cfg.WindEnabled {
		wind := own.DeriveWind()
		lines = append(lines, nmea.MWD(own.TWD, own.MagneticTWD(), own.TWS))
		lines = append(lines, nmea.MWV(wind.TWA, 'T', own.TWS))
		lines = append(lines, nmea.MWV(wind.AWA, 'R', wind.AWS))
	}
	if cfg.DepthEnabled {
		lines = append(lines, nmea.DPT(own.DepthM, own.DepthOffsetM))
		lines = append(lines, nmea.DBT(own.DepthM))
	}
	if cfg.WaterTempEnabled {
		lines = append(lines, nmea.MTW(own.WaterTempC))
	}
	if cfg.BatteryEnabled {
		lines = append(lines, nmea.XDR([]nmea.Measurement{
			{Type: "U", Value: own.BatteryV, Unit: "V", ID: "MAIN", Precision: 2},
		}))
	}
	if cfg.AirTempEnabled {
		lines = append(lines, nmea.XDR([]nmea.Measurement{
			{Type: "C", Value: own.AirTempC, Unit: "C", ID: "AIR", Precision: 1},
		}))
	}
	if cfg.TanksEnabled {
		lines = append(lines, nmea.XDR([]nmea.Measurement{
			{Type: "V", Value: own.FreshWaterPct, Unit: "P", ID: "FRESHWATER", Precision: 1},
			{Type: "V", Value: own.FuelPct, Unit: "P", ID: "FUEL", Precision: 1},
			{Type: "V", Value: own.WasteWaterPct, Unit: "P", ID: "WASTEWATER", Precision: 1},
		}))
	}

	sec := ts.UTC().Second()
	for _, em := range emits {
		payload, bits := ais.Type18(em.mmsi, em.lat, em.lon, em.sog, em.cog, sec)
		lines = append(lines, nmea.AIVDM(payload, bits)...)
	}
	for _, em := range emits {
		if !em.staticDue {
			continue
		}
		payload, bits := ais.Type24A(em.mmsi, em.name)
		lines = append(lines, nmea.AIVDM(payload, bits)...)
	}
	return lines
}
