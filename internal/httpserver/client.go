package httpserver

import (
	"bytes"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"mjpegcam/internal/frame"
)

type clientState int

const (
	stateIdle clientState = iota
	stateReadingRequest
	stateReadingHeaders
	stateStreaming
	stateServingFavicon
)

// boundary is the fixed MJPEG multipart boundary string, sent bit-exact on
// every part.
const boundary = "mjpeg-over-http-boundary"

// clientSlot is one live connection's state. A slot is allocated on accept
// and released once the reactor reaps it; the mailbox gives it its own
// newest-wins pending-frame cell exactly like the server's latest-frame
// cell.
type clientSlot struct {
	id      uint64
	conn    net.Conn
	mailbox *frame.Mailbox
	stop    chan struct{}
	stopOne sync.Once
	done    chan struct{}
	logger  zerolog.Logger
	favicon func() []byte

	mu           sync.Mutex
	state        clientState
	httpVersion  string
	responseCode int
	path         string
	reqBuf       bytes.Buffer
}

func newClientSlot(id uint64, conn net.Conn, logger zerolog.Logger, favicon func() []byte) *clientSlot {
	return &clientSlot{
		id:      id,
		conn:    conn,
		mailbox: frame.NewMailbox(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
		favicon: favicon,
		state:   stateReadingRequest,
	}
}

// signalStop requests the worker to terminate; safe to call more than once
// or concurrently.
func (c *clientSlot) signalStop() {
	c.stopOne.Do(func() { close(c.stop) })
}

// run is the per-client worker: parse the request, send the response, and,
// for the two streaming routes, push frames as they arrive until told to
// stop or the socket errors out.
func (c *clientSlot) run(onSelfStop func(*clientSlot)) {
	defer close(c.done)
	defer func() { onSelfStop(c) }()

	if !c.readRequest() {
		return
	}

	c.mu.Lock()
	code := c.responseCode
	path := c.path
	version := c.httpVersion
	c.mu.Unlock()

	switch {
	case code == 404:
		writeNotFound(c.conn, version)
		c.closeConn()
		return
	case path == "/favicon.ico":
		c.serveFavicon(version)
		c.closeConn()
		return
	default: // "/" or "/video.mjpeg"
		if !writeStreamHeader(c.conn, version) {
			c.closeConn()
			return
		}
		c.mu.Lock()
		c.state = stateStreaming
		c.mu.Unlock()
		c.streamLoop()
	}
}

// readRequest accumulates bytes into reqBuf until the request line and the
// full header block are available, parsing the request line as soon as it
// can. Returns false if the socket errors or closes before a request is
// ever completed.
func (c *clientSlot) readRequest() bool {
	buf := make([]byte, 4096)
	parsedLine := false

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.reqBuf.Write(buf[:n])
			data := c.reqBuf.Bytes()
			c.mu.Unlock()

			if !parsedLine {
				if end := findRequestLine(data); end >= 0 {
					rl, ok := parseRequestLine(data[:end])
					if !ok {
						// Malformed first line: leave state unchanged and
						// keep waiting for more data.
					} else {
						c.mu.Lock()
						c.responseCode = routeFor(rl.Path)
						c.httpVersion = httpVersionFor(rl.Version)
						c.path = rl.Path
						c.state = stateReadingHeaders
						c.mu.Unlock()
						parsedLine = true
					}
				}
			}

			if parsedLine {
				c.mu.Lock()
				complete := headersComplete(c.reqBuf.Bytes()) >= 0
				c.mu.Unlock()
				if complete {
					return true
				}
			}
		}
		if err != nil {
			return false
		}
	}
}

func (c *clientSlot) serveFavicon(version string) {
	c.mu.Lock()
	c.state = stateServingFavicon
	c.mu.Unlock()

	var data []byte
	if c.favicon != nil {
		data = c.favicon()
	}
	if len(data) == 0 {
		writeNotFound(c.conn, version)
		return
	}
	writeFavicon(c.conn, version, data)
}

// streamLoop drains newly posted frames and writes MJPEG parts until the
// stop event fires or a write fails. A second goroutine watches the socket
// for close/EOF, the Go-idiomatic counterpart to multiplexing stop-event,
// data-event, and client-socket in a single poll.
func (c *clientSlot) streamLoop() {
	go c.watchForClose()

	// One buffer for the whole stream: it grows to the largest frame seen
	// and is reused for every part after that. The generation stamp guards
	// against a wake that arrives after its frame was already drained and
	// sent; writing on such a wake would deliver the same part twice.
	var buf frame.Buffer
	var lastGen uint64
	for {
		select {
		case <-c.stop:
			c.closeConn()
			return
		case <-c.mailbox.Ready():
			n, gen := c.mailbox.Drain(&buf)
			if n == 0 || gen == lastGen {
				continue
			}
			lastGen = gen
			if !writeFramePart(c.conn, buf.Bytes()) {
				c.closeConn()
				c.signalStop()
				return
			}
		}
	}
}

// watchForClose blocks on a read; browsers don't send further bytes on an
// MJPEG stream, so anything readable here means EOF or client close. Any
// failed read signals stop.
func (c *clientSlot) watchForClose() {
	scratch := make([]byte, 64)
	for {
		n, err := c.conn.Read(scratch)
		if n <= 0 || err != nil {
			c.signalStop()
			return
		}
		select {
		case <-c.stop:
			return
		default:
		}
	}
}

func (c *clientSlot) closeConn() {
	_ = c.conn.Close()
}

// deliver copies src into the client's mailbox and wakes its streaming
// loop, the per-client half of fan-out. It does not check the client's
// state itself; the caller filters on state before calling this.
func (c *clientSlot) deliver(src []byte) {
	c.mailbox.Post(src)
}

func (c *clientSlot) isStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateStreaming
}

func (c *clientSlot) String() string {
	return fmt.Sprintf("client[%d]", c.id)
}
