package engine

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"mjpegcam/internal/frame"
)

type fakeSink struct {
	posts [][]byte
}

func (f *fakeSink) Post(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.posts = append(f.posts, cp)
}

func TestStartFailsOnMissingDevice(t *testing.T) {
	e := New(Config{
		DevicePath: "/dev/mjpegcam-test-device-does-not-exist",
		Width:      1920,
		Height:     1080,
		Sink:       &fakeSink{},
		Logger:     zerolog.Nop(),
	})

	err := e.Start()
	if err == nil {
		t.Fatal("Start() on a nonexistent device path succeeded, want error")
	}
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("Start() error = %v, want wrapped ErrStartFailed", err)
	}
	if e.Running() {
		t.Fatal("Running() = true after a failed Start()")
	}
}

func TestStopOnNeverStartedEngineIsNoop(t *testing.T) {
	e := New(Config{DevicePath: "/dev/null", Sink: &fakeSink{}, Logger: zerolog.Nop()})
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() on a never-started engine = %v, want nil", err)
	}
}

func TestDefaultBufferCountApplied(t *testing.T) {
	e := New(Config{DevicePath: "/dev/null", Sink: &fakeSink{}})
	if e.cfg.BufferCount != DefaultBufferCount {
		t.Fatalf("BufferCount = %d, want default %d", e.cfg.BufferCount, DefaultBufferCount)
	}
}

func TestFakeSinkIntoMailbox(t *testing.T) {
	mbx := frame.NewMailbox()
	sink := mailboxSink{mailbox: mbx}
	sink.Post([]byte{0xff, 0xd8, 0xff, 0xd9})

	var dst frame.Buffer
	if n, _ := mbx.Drain(&dst); n != 4 {
		t.Fatalf("Drain() = %d bytes, want 4", n)
	}
}

// mailboxSink is the minimal adapter used by tests to confirm Sink wiring
// into a frame.Mailbox behaves like the real cmd/mjpegcam wiring.
type mailboxSink struct {
	mailbox *frame.Mailbox
}

func (s mailboxSink) Post(data []byte) {
	s.mailbox.Post(data)
}
