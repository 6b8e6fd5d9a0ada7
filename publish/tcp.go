package publish

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	clientQueueCap = 1024
	writeDeadline  = 2 * time.Second
)

// TCP accepts raw-NMEA stream clients and fans every published line out to
// each of them. Every client drains its own bounded queue in its own
// goroutine, so a slow or dead client only loses its own lines.
type TCP struct {
	ln  net.Listener
	log zerolog.Logger

	mu       sync.Mutex
	clients  map[*tcpClient]struct{}
	closed   bool
	overflow int

	wg sync.WaitGroup
}

type tcpClient struct {
	conn        net.Conn
	queue       chan string
	connectedAt time.Time
}

// NewTCP starts a listener on host:port and begins accepting clients.
func NewTCP(host string, port int, log zerolog.Logger) (*TCP, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen %s: %w", addr, err)
	}

	t := &TCP{
		ln:      ln,
		log:     log,
		clients: make(map[*tcpClient]struct{}),
	}
	t.wg.Add(1)
	go t.acceptLoop()
	log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")
	return t, nil
}

func (t *TCP) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			return
		}

		c := &tcpClient{
			conn:        conn,
			queue:       make(chan string, clientQueueCap),
			connectedAt: time.Now(),
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.clients[c] = struct{}{}
		t.mu.Unlock()

		t.log.Info().Str("client", conn.RemoteAddr().String()).Msg("tcp client connected")
		t.wg.Add(1)
		go t.writeLoop(c)
	}
}

func (t *TCP) writeLoop(c *tcpClient) {
	defer t.wg.Done()
	for line := range c.queue {
		c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if _, err := c.conn.Write([]byte(line)); err != nil {
			t.log.Info().Str("client", c.conn.RemoteAddr().String()).
				Err(err).Msg("tcp client dropped")
			t.remove(c)
			return
		}
	}
	c.conn.Close()
}

// Publish enqueues the line for every connected client. A full queue drops
// that client's oldest line to make room and counts the overflow.
func (t *TCP) Publish(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for c := range t.clients {
		select {
		case c.queue <- line:
		default:
			t.overflow++
			select {
			case <-c.queue:
			default:
			}
			select {
			case c.queue <- line:
			default:
			}
		}
	}
}

// Overflow reports how many lines were dropped from full client queues.
func (t *TCP) Overflow() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overflow
}

// Clients returns a snapshot of the connected client endpoints.
func (t *TCP) Clients() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.clients))
	for c := range t.clients {
		out = append(out, c.conn.RemoteAddr().String())
	}
	return out
}

// Addr returns the listener address, useful when port 0 was requested.
func (t *TCP) Addr() string {
	return t.ln.Addr().String()
}

// Close stops accepting, disconnects every client and waits for the
// workers to finish.
func (t *TCP) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	err := t.ln.Close()
	for c := range t.clients {
		close(c.queue)
		delete(t.clients, c)
	}
	t.mu.Unlock()

	t.wg.Wait()
	return err
}

func (t *TCP) remove(c *tcpClient) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.clients[c]; ok {
		delete(t.clients, c)
		close(c.queue)
	}
	c.conn.Close()
}
