// Package engine implements the V4L2 capture engine: it owns the device
// file descriptor, negotiates a fixed MJPEG format, maps a ring of
// driver-owned buffers, and runs the DQBUF -> sink -> QBUF loop on a
// dedicated goroutine until stopped. One device, one fixed resolution,
// MJPEG only, no fallback.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	sys "golang.org/x/sys/unix"

	"mjpegcam/v4l2"
)

// ErrStartFailed is the sentinel wrapped by every failure during Start:
// open/format/mmap failures are all collapsed into a single start-failure
// outcome with no partial success exposed.
var ErrStartFailed = errors.New("capture engine: start failed")

// DefaultBufferCount is the ring cardinality requested from the driver; the
// driver is free to return fewer, and the engine uses whatever count N (1 <=
// N <= 256) comes back from REQBUFS.
const DefaultBufferCount = 256

// Sink receives frames produced by the capture loop. Post runs on the
// capture goroutine and must not retain data past return: the bytes are
// only valid until the slot is re-queued to the driver.
type Sink interface {
	Post(data []byte)
}

// Config describes the fixed capture parameters for one device.
type Config struct {
	DevicePath  string
	Width       uint32
	Height      uint32
	BufferCount uint32
	Sink        Sink
	Logger      zerolog.Logger
}

type ringSlot struct {
	mem []byte
}

// Engine owns a single open V4L2 capture device and its streaming ring.
// Zero value is not usable; construct with New.
type Engine struct {
	cfg Config

	mu       sync.Mutex
	fd       uintptr
	ring     []ringSlot
	cap      v4l2.Capability
	format   v4l2.PixFormat
	running  bool
	stopping bool
	wg       sync.WaitGroup
}

// New returns an Engine for the given configuration. It does not open the
// device; call Start for that.
func New(cfg Config) *Engine {
	if cfg.BufferCount == 0 {
		cfg.BufferCount = DefaultBufferCount
	}
	return &Engine{cfg: cfg}
}

// Capability returns the capability block learned from QUERYCAP during
// Start. Valid only after a successful Start.
func (e *Engine) Capability() v4l2.Capability {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cap
}

// Format returns the negotiated pixel format. Valid only after a successful
// Start.
func (e *Engine) Format() v4l2.PixFormat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format
}

// Start executes the open sequence: open device, negotiate
// MJPEG at the configured resolution (no fallback), request and map the
// buffer ring, queue every slot, and turn the stream on. Any failure unwinds
// everything already acquired, in reverse order, and returns a wrapped
// ErrStartFailed.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("%w: already running", ErrStartFailed)
	}

	fd, err := v4l2.OpenDevice(e.cfg.DevicePath, sys.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrStartFailed, e.cfg.DevicePath, err)
	}

	cap, err := v4l2.GetCapability(fd)
	if err != nil {
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: query capability: %w", ErrStartFailed, err)
	}
	if !cap.IsVideoCaptureSupported() {
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: %s does not support video capture", ErrStartFailed, e.cfg.DevicePath)
	}
	if !cap.IsStreamingSupported() {
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: %s does not support streaming I/O", ErrStartFailed, e.cfg.DevicePath)
	}

	wantFmt := v4l2.PixFormat{
		Width:       e.cfg.Width,
		Height:      e.cfg.Height,
		PixelFormat: v4l2.PixelFmtMJPEG,
		Field:       v4l2.FieldAny,
	}
	if err := v4l2.SetPixFormat(fd, wantFmt); err != nil {
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: set format: %w", ErrStartFailed, err)
	}
	gotFmt, err := v4l2.GetPixFormat(fd)
	if err != nil {
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: confirm format: %w", ErrStartFailed, err)
	}
	if gotFmt.PixelFormat != v4l2.PixelFmtMJPEG {
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: device returned %s, not MJPEG; no fallback", ErrStartFailed, v4l2.PixelFormatName(gotFmt.PixelFormat))
	}

	reqBuf, err := v4l2.InitBuffers(fd, e.cfg.BufferCount)
	if err != nil {
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: request buffers: %w", ErrStartFailed, err)
	}

	ring := make([]ringSlot, 0, reqBuf.Count)
	for i := uint32(0); i < reqBuf.Count; i++ {
		buf, err := v4l2.GetBuffer(fd, i)
		if err != nil {
			unmapAll(ring)
			_ = v4l2.CloseDevice(fd)
			return fmt.Errorf("%w: query buffer %d: %w", ErrStartFailed, i, err)
		}
		mem, err := v4l2.MapMemoryBuffer(fd, int64(buf.Info.Offset), int(buf.Length))
		if err != nil {
			unmapAll(ring)
			_ = v4l2.CloseDevice(fd)
			return fmt.Errorf("%w: mmap buffer %d: %w", ErrStartFailed, i, err)
		}
		ring = append(ring, ringSlot{mem: mem})
	}

	for i := range ring {
		if _, err := v4l2.QueueBuffer(fd, uint32(i)); err != nil {
			unmapAll(ring)
			_ = v4l2.CloseDevice(fd)
			return fmt.Errorf("%w: queue buffer %d: %w", ErrStartFailed, i, err)
		}
	}

	if err := v4l2.StreamOn(fd); err != nil {
		unmapAll(ring)
		_ = v4l2.CloseDevice(fd)
		return fmt.Errorf("%w: stream on: %w", ErrStartFailed, err)
	}

	e.fd = fd
	e.ring = ring
	e.cap = cap
	e.format = gotFmt
	e.stopping = false
	e.running = true

	e.wg.Add(1)
	go e.runLoop()

	e.cfg.Logger.Info().
		Str("device", e.cfg.DevicePath).
		Uint32("width", gotFmt.Width).
		Uint32("height", gotFmt.Height).
		Int("buffers", len(ring)).
		Msg("capture started")

	return nil
}

func unmapAll(ring []ringSlot) {
	for _, slot := range ring {
		if slot.mem != nil {
			_ = v4l2.UnmapMemoryBuffer(slot.mem)
		}
	}
}

// runLoop is the dedicated capture thread: DQBUF, hand the frame to the
// sink, QBUF, repeat. EAGAIN is retried; any other ioctl error terminates
// the loop without attempting to reopen.
func (e *Engine) runLoop() {
	defer e.wg.Done()

	fd := e.fd
	for {
		if e.isStopping() {
			return
		}

		// The bounded wait keeps the loop re-checking the stop predicate
		// even when the device produces nothing.
		if err := v4l2.WaitForDeviceRead(fd, 2*time.Second); err != nil {
			continue
		}

		buf, err := v4l2.DequeueBuffer(fd)
		if err != nil {
			if errors.Is(err, sys.EAGAIN) {
				continue
			}
			e.cfg.Logger.Error().Err(err).Msg("capture loop terminated: dequeue failed")
			return
		}

		if int(buf.Index) < len(e.ring) {
			e.cfg.Sink.Post(e.ring[buf.Index].mem[:buf.BytesUsed])
		}

		if _, err := v4l2.QueueBuffer(fd, buf.Index); err != nil {
			e.cfg.Logger.Error().Err(err).Uint32("index", buf.Index).Msg("capture loop terminated: requeue failed")
			return
		}
	}
}

func (e *Engine) isStopping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopping
}

// Stop executes the stop sequence: flip the stopping flag,
// join the capture goroutine, switch the driver stream off, unmap every
// slot, close the device. Idempotent; a second call is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.stopping = true
	fd := e.fd
	ring := e.ring
	e.mu.Unlock()

	e.wg.Wait()

	var err error
	if serr := v4l2.StreamOff(fd); serr != nil {
		err = fmt.Errorf("stream off: %w", serr)
	}
	unmapAll(ring)
	if cerr := v4l2.CloseDevice(fd); cerr != nil && err == nil {
		err = fmt.Errorf("close device: %w", cerr)
	}

	e.mu.Lock()
	e.running = false
	e.ring = nil
	e.mu.Unlock()

	return err
}

// Running reports whether the capture goroutine is currently active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
