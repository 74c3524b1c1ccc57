// Package httpserver implements the MJPEG-over-HTTP fan-out server: a
// reactor that accepts connections, a hand-rolled HTTP request parser, and
// per-client workers that stream whatever frame was last posted to at most
// five concurrent clients, newest-wins.
//
// A single-threaded poll() loop multiplexing a stop-event, a data-event,
// and a client socket translates naturally into goroutines and channels:
// goroutines stand in for the thread, buffered channels of capacity one
// stand in for the eventfd-style wake primitives, and net.Listener/net.Conn
// stand in for the raw sockets — the invariants (mailbox newest-wins,
// 5-client cap with oldest-first eviction, orderly join on stop) carry over
// unchanged.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"mjpegcam/internal/frame"
)

// MaxClients is the fixed cardinality of the client slot array.
const MaxClients = 5

// Server is the MJPEG fan-out reactor. It implements engine.Sink so the
// capture engine can post frames directly into it.
type Server struct {
	bindAddr string
	logger   zerolog.Logger
	favicon  func() []byte

	latest *frame.Mailbox

	listener   net.Listener
	shutdownCh chan struct{}
	closeOnce  sync.Once
	reapCh     chan *clientSlot
	wg         sync.WaitGroup
	nextID     uint64

	mu      sync.Mutex
	clients []*clientSlot
}

// NewServer returns a Server bound to addr (e.g. "0.0.0.0:8080"). favicon,
// if non-nil, is consulted on every /favicon.ico request; a nil result (or
// nil func) yields 404 for that route.
func NewServer(bindAddr string, logger zerolog.Logger, favicon func() []byte) *Server {
	return &Server{
		bindAddr: bindAddr,
		logger:   logger,
		favicon:  favicon,
		latest:   frame.NewMailbox(),
		reapCh:   make(chan *clientSlot, MaxClients*2),
	}
}

// Start binds the listening socket (with SO_REUSEADDR so a restart can
// rebind immediately) and launches the accept loop and the reaper loop.
func (s *Server) Start() error {
	lc := net.ListenConfig{Control: setReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", s.bindAddr)
	if err != nil {
		return fmt.Errorf("mjpeg server: listen %s: %w", s.bindAddr, err)
	}
	s.listener = ln
	s.shutdownCh = make(chan struct{})

	s.wg.Add(2)
	go s.acceptLoop()
	go s.reapLoop()

	s.logger.Info().Str("addr", s.bindAddr).Msg("mjpeg server listening")
	return nil
}

// Stop closes the listener, reaps every live client, and waits for the
// accept and reap goroutines to exit. Safe to call more than once.
func (s *Server) Stop() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdownCh)
		if s.listener != nil {
			err = s.listener.Close()
		}
	})

	s.wg.Wait()

	s.mu.Lock()
	remaining := append([]*clientSlot(nil), s.clients...)
	s.clients = nil
	s.mu.Unlock()
	for _, c := range remaining {
		s.reap(c)
	}

	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				return
			default:
				s.logger.Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		s.admit(conn)
	}
}

func (s *Server) reapLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdownCh:
			return
		case c := <-s.reapCh:
			s.reap(c)
		}
	}
}

// admit places conn in the lowest free slot, evicting the oldest client
// (index 0) first if all five are occupied.
func (s *Server) admit(conn net.Conn) {
	id := atomic.AddUint64(&s.nextID, 1)
	client := newClientSlot(id, conn, s.logger, s.favicon)

	var evict *clientSlot
	s.mu.Lock()
	if len(s.clients) >= MaxClients {
		evict = s.clients[0]
		s.clients = s.clients[1:]
	}
	s.clients = append(s.clients, client)
	s.mu.Unlock()

	if evict != nil {
		s.logger.Info().Stringer("client", evict).Msg("evicting oldest client to admit new connection")
		evict.signalStop()
		s.reap(evict)
	}

	go client.run(func(c *clientSlot) {
		select {
		case s.reapCh <- c:
		case <-s.shutdownCh:
		}
	})
}

// reap signals stop, joins the worker, and compacts the slot array so
// live clients stay contiguous at the low end.
func (s *Server) reap(c *clientSlot) {
	c.signalStop()
	c.closeConn()
	<-c.done

	s.mu.Lock()
	for i, x := range s.clients {
		if x == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

// Post implements engine.Sink: copy the frame into the server's
// latest-frame mailbox, then fan it out to every currently streaming
// client's own mailbox. The server-level iteration happens under s.mu;
// the actual socket send happens later, on each client's own worker
// goroutine.
func (s *Server) Post(data []byte) {
	s.latest.Post(data)

	s.mu.Lock()
	targets := make([]*clientSlot, 0, len(s.clients))
	for _, c := range s.clients {
		if c.isStreaming() {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.deliver(data)
	}
}

// ClientCount reports the number of live client slots, for diagnostics and
// tests.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Addr returns the bound listener address. Valid only after Start succeeds.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
