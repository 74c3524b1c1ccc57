// Package frame implements the reusable byte-buffer and newest-wins mailbox
// primitives shared by the capture engine and the MJPEG fan-out server.
package frame

// Buffer is a growable byte region with length <= capacity. It never
// shrinks on its own; Set grows the backing array only when the incoming
// payload no longer fits, so a buffer reused across frames settles at the
// largest frame seen and stops allocating.
type Buffer struct {
	data []byte
}

// Len reports the number of valid bytes currently held.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap reports the buffer's current backing capacity.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Bytes returns the valid portion of the buffer. The returned slice aliases
// the buffer's storage and is only valid until the next Set call.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Set copies src into the buffer, growing the backing array in place if
// necessary. Capacity is never reduced.
func (b *Buffer) Set(src []byte) {
	n := len(src)
	if cap(b.data) < n {
		b.data = make([]byte, n)
	} else {
		b.data = b.data[:n]
	}
	copy(b.data, src)
}

// Reset sets the length to zero without releasing the backing array.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

// Event is a level-triggered, coalescing wake signal: one buffered slot,
// and a second Signal while the first is still pending is a no-op. A
// receive drains the pending wake, so a waiter observes "something arrived
// since I last looked" rather than a count of arrivals.
type Event struct {
	ch chan struct{}
}

// NewEvent returns a ready-to-use Event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Signal wakes a waiter exactly once; redundant signals before the waiter
// drains are coalesced, never queued.
func (e *Event) Signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// C returns the channel to select on. A receive from C drains the pending
// signal, if any.
func (e *Event) C() <-chan struct{} {
	return e.ch
}
