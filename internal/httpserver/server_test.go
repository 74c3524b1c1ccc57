package httpserver

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func startServer(t *testing.T, favicon func() []byte) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", zerolog.Nop(), favicon)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads from conn until marker has been seen and returns
// everything read; if the deadline passes first, the test fails.
func readUntil(t *testing.T, conn net.Conn, marker string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got []byte
	buf := make([]byte, 4096)
	for !bytes.Contains(got, []byte(marker)) {
		n, err := conn.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			t.Fatalf("read (have %q): %v", got, err)
		}
	}
	return got
}

func streamingCount(s *Server) int {
	s.mu.Lock()
	clients := append([]*clientSlot(nil), s.clients...)
	s.mu.Unlock()
	n := 0
	for _, c := range clients {
		if c.isStreaming() {
			n++
		}
	}
	return n
}

func waitForStreaming(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if streamingCount(s) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("streaming clients = %d, want %d", streamingCount(s), want)
}

// openStream connects, requests path, and reads through the opening
// boundary so the connection is known to be in streaming mode on the wire.
func openStream(t *testing.T, s *Server, path string) net.Conn {
	t.Helper()
	conn := dial(t, s)
	if _, err := conn.Write([]byte("GET " + path + " HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	readUntil(t, conn, "--"+boundary+"\r\n")
	return conn
}

func TestUnknownPathReturns404(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	if _, err := conn.Write([]byte("GET /no HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("HTTP/1.1 404 Not Found\r\n")) {
		t.Fatalf("response = %q, want HTTP/1.1 404 prefix", got)
	}
	if !bytes.Contains(got, []byte("Content-Length: 0\r\n")) {
		t.Fatalf("response %q missing Content-Length: 0", got)
	}
}

func TestRootStreamsMultipartWithExactFraming(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	head := readUntil(t, conn, "--"+boundary+"\r\n")
	if !bytes.HasPrefix(head, []byte("HTTP/1.1 200 OK\r\n")) {
		t.Fatalf("response = %q, want HTTP/1.1 200 prefix", head)
	}
	if !bytes.Contains(head, []byte("multipart/x-mixed-replace; boundary="+boundary)) {
		t.Fatalf("response %q missing multipart content type", head)
	}

	waitForStreaming(t, s, 1)
	s.Post([]byte{0xff, 0xd8, 0xff, 0xd9})

	want := "Content-Type: image/jpeg\r\nContent-Length: 4\r\n\r\n\xff\xd8\xff\xd9\r\n--" + boundary + "\r\n"
	got := readUntil(t, conn, "--"+boundary+"\r\n")
	if string(got) != want {
		t.Fatalf("frame part = %q, want %q", got, want)
	}
}

func TestHTTPVersionEchoed(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	if _, err := conn.Write([]byte("GET /video.mjpeg HTTP/1.0\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	got := readUntil(t, conn, "\r\n")
	if !bytes.HasPrefix(got, []byte("HTTP/1.0 200 OK\r\n")) {
		t.Fatalf("status line = %q, want HTTP/1.0 200 OK", got)
	}
}

func TestRequestSplitAcrossWrites(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	for _, chunk := range []string{"GET / HT", "TP/1.1\r\n", "Host: x\r\n", "\r\n"} {
		if _, err := conn.Write([]byte(chunk)); err != nil {
			t.Fatalf("write chunk %q: %v", chunk, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := readUntil(t, conn, "--"+boundary+"\r\n")
	if !bytes.HasPrefix(got, []byte("HTTP/1.1 200 OK\r\n")) {
		t.Fatalf("response = %q, want HTTP/1.1 200 prefix", got)
	}
}

func TestFaviconServed(t *testing.T) {
	icon := []byte{0x00, 0x00, 0x01, 0x00, 0x01}
	s := startServer(t, func() []byte { return icon })
	conn := dial(t, s)

	if _, err := conn.Write([]byte("GET /favicon.ico HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("HTTP/1.1 200 OK\r\n")) {
		t.Fatalf("response = %q, want 200", got)
	}
	if !bytes.Contains(got, []byte("Content-Type: image/x-icon\r\n")) {
		t.Fatalf("response %q missing icon content type", got)
	}
	if !bytes.HasSuffix(got, icon) {
		t.Fatalf("response %q does not end with icon bytes", got)
	}
}

func TestFaviconMissingReturns404(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	if _, err := conn.Write([]byte("GET /favicon.ico HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("HTTP/1.1 404 Not Found\r\n")) {
		t.Fatalf("response = %q, want 404", got)
	}
}

func TestSixthClientEvictsOldest(t *testing.T) {
	s := startServer(t, nil)

	conns := make([]net.Conn, 0, MaxClients)
	for i := 0; i < MaxClients; i++ {
		conns = append(conns, openStream(t, s, "/"))
	}
	waitForStreaming(t, s, MaxClients)

	sixth := openStream(t, s, "/video.mjpeg")

	// The oldest connection must be closed by the server within a second.
	_ = conns[0].SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadAll(conns[0]); err != nil {
		t.Fatalf("evicted client read: %v, want clean EOF", err)
	}

	if n := s.ClientCount(); n != MaxClients {
		t.Fatalf("ClientCount() = %d, want %d", n, MaxClients)
	}

	// The survivors, including the newcomer, still receive frames.
	waitForStreaming(t, s, MaxClients)
	s.Post([]byte{0xff, 0xd8, 0xff, 0xd9})
	for i, conn := range append(conns[1:], sixth) {
		got := readUntil(t, conn, "--"+boundary+"\r\n")
		if !bytes.Contains(got, []byte("Content-Length: 4\r\n")) {
			t.Fatalf("survivor %d part = %q, want a 4-byte frame", i, got)
		}
	}
}

func TestNewestWinsPerClient(t *testing.T) {
	s := startServer(t, nil)
	conn := openStream(t, s, "/")
	waitForStreaming(t, s, 1)

	const posted = 100
	for i := 0; i < posted; i++ {
		s.Post([]byte{byte(i)})
	}

	// Read parts until the final posted frame arrives; the mailbox retains
	// it, so it must be delivered eventually.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw []byte
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		raw = append(raw, buf[:n]...)
		if payloadsOf(raw, 1) != nil && payloadsOf(raw, 1)[len(payloadsOf(raw, 1))-1] == posted-1 {
			break
		}
		if err != nil {
			t.Fatalf("read (have %d bytes): %v", len(raw), err)
		}
	}

	frames := payloadsOf(raw, 1)
	if len(frames) > posted {
		t.Fatalf("received %d frames, posted only %d", len(frames), posted)
	}
	for i := 1; i < len(frames); i++ {
		if frames[i] <= frames[i-1] {
			t.Fatalf("frames out of order: %v", frames)
		}
	}
	if frames[len(frames)-1] != posted-1 {
		t.Fatalf("last frame = %d, want %d", frames[len(frames)-1], posted-1)
	}
}

// payloadsOf extracts every single-byte frame payload from a raw multipart
// stream whose parts all carry size-byte bodies.
func payloadsOf(raw []byte, size int) []byte {
	var result []byte
	parts := strings.Split(string(raw), "\r\n--"+boundary+"\r\n")
	for _, part := range parts {
		i := strings.Index(part, "\r\n\r\n")
		if i < 0 {
			continue
		}
		body := part[i+4:]
		if len(body) == size {
			result = append(result, body[0])
		}
	}
	return result
}

func TestStopJoinsAllClients(t *testing.T) {
	s := NewServer("127.0.0.1:0", zerolog.Nop(), nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	conn := openStream(t, s, "/")
	waitForStreaming(t, s, 1)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if n := s.ClientCount(); n != 0 {
		t.Fatalf("ClientCount() after Stop = %d, want 0", n)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadAll(conn); err != nil {
		t.Fatalf("client read after Stop: %v, want clean EOF", err)
	}

	// A second Stop is a no-op.
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop() = %v", err)
	}
}
