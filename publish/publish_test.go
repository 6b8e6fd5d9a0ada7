package publish

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNormalizeUDPHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "127.0.0.1"},
		{"0.0.0.0", "127.0.0.1"},
		{"127.0.0.1", "127.0.0.1"},
		{"192.168.1.50", "192.168.1.50"},
	}
	for _, tt := range tests {
		if got := NormalizeUDPHost(tt.in); got != tt.want {
			t.Errorf("NormalizeUDPHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUDPPublish(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	u, err := NewUDP("127.0.0.1", port, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer u.Close()

	want := "$GPRMC,120000.00,A*7F\r\n"
	u.Publish(want)

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != want {
		t.Errorf("datagram = %q, want %q", got, want)
	}
}

func TestUDPPublishNoReceiver(t *testing.T) {
	u, err := NewUDP("127.0.0.1", 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer u.Close()

	// Nothing listens on the port; sends must not panic or block.
	for i := 0; i < 10; i++ {
		u.Publish("$GPRMC,test*00\r\n")
	}
}

func dialTCP(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn
}

func waitForClients(t *testing.T, srv *TCP, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(srv.Clients()) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d, have %d", want, len(srv.Clients()))
}

func TestTCPFanOut(t *testing.T) {
	srv, err := NewTCP("127.0.0.1", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer srv.Close()

	c1 := dialTCP(t, srv.Addr())
	defer c1.Close()
	c2 := dialTCP(t, srv.Addr())
	defer c2.Close()
	waitForClients(t, srv, 2)

	want := "$GPGGA,fanout*00\r\n"
	srv.Publish(want)

	for i, conn := range []net.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if line != want {
			t.Errorf("client %d got %q, want %q", i, line, want)
		}
	}
}

func TestTCPDeadClientIsolated(t *testing.T) {
	srv, err := NewTCP("127.0.0.1", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer srv.Close()

	dead := dialTCP(t, srv.Addr())
	live := dialTCP(t, srv.Addr())
	defer live.Close()
	waitForClients(t, srv, 2)

	dead.Close()

	// Keep publishing; the live client must continue receiving.
	reader := bufio.NewReader(live)
	for i := 0; i < 20; i++ {
		srv.Publish("$GPRMC,alive*00\r\n")
		time.Sleep(5 * time.Millisecond)
	}

	live.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("live client read: %v", err)
	}
	if !strings.Contains(line, "alive") {
		t.Errorf("live client got %q", line)
	}
}

func TestTCPSlowClientOverflow(t *testing.T) {
	srv, err := NewTCP("127.0.0.1", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer srv.Close()

	slow := dialTCP(t, srv.Addr())
	defer slow.Close()
	waitForClients(t, srv, 1)

	// Flood a non-reading client with enough data to fill the socket
	// buffers and then the queue.
	pad := strings.Repeat("x", 512)
	const total = 8000
	for i := 0; i < total; i++ {
		srv.Publish(fmt.Sprintf("$GPXTE,%06d,%s*00\r\n", i, pad))
	}
	if srv.Overflow() == 0 {
		t.Fatal("no overflow counted after flooding a stalled client")
	}

	// Draining now must yield the newest line but not everything: the
	// oldest queued lines were dropped to make room.
	slow.SetReadDeadline(time.Now().Add(5 * time.Second))
	scanner := bufio.NewScanner(slow)
	received := 0
	last := -1
	for scanner.Scan() {
		received++
		fmt.Sscanf(scanner.Text(), "$GPXTE,%06d", &last)
		if last == total-1 {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if last != total-1 {
		t.Fatalf("newest line missing, last seq %d", last)
	}
	if received >= total {
		t.Errorf("received all %d lines, expected drops", received)
	}
}

func TestTCPSlowClientEvicted(t *testing.T) {
	srv, err := NewTCP("127.0.0.1", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer srv.Close()

	slow := dialTCP(t, srv.Addr())
	defer slow.Close()
	live := dialTCP(t, srv.Addr())
	defer live.Close()
	waitForClients(t, srv, 2)

	var liveLines int64
	go func() {
		scanner := bufio.NewScanner(live)
		for scanner.Scan() {
			atomic.AddInt64(&liveLines, 1)
		}
	}()

	// Keep publishing until the stalled client blows its write deadline
	// and is evicted. The reading client must survive the whole time.
	line := "$GPXTE," + strings.Repeat("x", 1024) + "*00\r\n"
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) && len(srv.Clients()) == 2 {
		srv.Publish(line)
		time.Sleep(time.Millisecond)
	}
	if n := len(srv.Clients()); n != 1 {
		t.Fatalf("slow client not evicted, %d clients", n)
	}
	if srv.Overflow() == 0 {
		t.Error("no overflow recorded while the slow client stalled")
	}

	before := atomic.LoadInt64(&liveLines)
	for i := 0; i < 20; i++ {
		srv.Publish(line)
		time.Sleep(5 * time.Millisecond)
	}
	evDeadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(evDeadline) && atomic.LoadInt64(&liveLines) <= before {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt64(&liveLines) <= before {
		t.Error("live client stopped receiving after the eviction")
	}
}

func TestTCPClientsSnapshot(t *testing.T) {
	srv, err := NewTCP("127.0.0.1", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer srv.Close()

	if n := len(srv.Clients()); n != 0 {
		t.Errorf("fresh listener reports %d clients", n)
	}

	conn := dialTCP(t, srv.Addr())
	defer conn.Close()
	waitForClients(t, srv, 1)

	clients := srv.Clients()
	if clients[0] != conn.LocalAddr().String() {
		t.Errorf("snapshot endpoint = %q, want %q", clients[0], conn.LocalAddr().String())
	}
}

func TestTCPCloseDisconnectsClients(t *testing.T) {
	srv, err := NewTCP("127.0.0.1", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}

	conn := dialTCP(t, srv.Addr())
	defer conn.Close()
	waitForClients(t, srv, 1)

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := bufio.NewReader(conn).ReadString('\n'); err == nil {
		t.Error("client connection should be closed after server Close")
	}

	// Second close is a no-op.
	if err := srv.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
