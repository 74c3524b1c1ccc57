package frame

import "sync"

// Mailbox is a one-producer, many-consumer overwritable cell holding the
// latest complete frame. A producer that posts while a consumer has not yet
// drained simply overwrites the prior content: there is no queue, so the
// producer never blocks on a slow or absent reader and the reader only
// ever sees the newest frame.
//
// The same type backs both the server's single latest-frame cell and each
// client's per-client pending-frame cell; only the wiring of who posts and
// who drains differs.
type Mailbox struct {
	mu    sync.Mutex
	buf   Buffer
	gen   uint64
	ready *Event
}

// NewMailbox returns an empty mailbox with its own wake event.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: NewEvent()}
}

// Ready returns the channel that becomes readable after a Post. Posts that
// land while a wake is still pending coalesce into that single wake.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready.C()
}

// Post copies src into the mailbox, replacing whatever was pending,
// advances the generation stamp, and signals the wake event. Post never
// blocks on a consumer.
func (m *Mailbox) Post(src []byte) {
	m.mu.Lock()
	m.buf.Set(src)
	m.gen++
	m.mu.Unlock()
	m.ready.Signal()
}

// Drain copies the mailbox's current contents into dst and reports the
// number of bytes copied along with the generation stamp of that content.
// dst is grown in place if undersized. A mailbox that has never been
// posted to drains as zero bytes at generation zero.
//
// The stamp lets a consumer tell a fresh frame from a stale wake: a post
// that lands between the consumer's wake and its Drain is observed by that
// Drain, yet leaves the coalescing event armed, so the next wake would
// re-read the same content. An unchanged stamp identifies that case.
func (m *Mailbox) Drain(dst *Buffer) (int, uint64) {
	m.mu.Lock()
	dst.Set(m.buf.Bytes())
	gen := m.gen
	m.mu.Unlock()
	return dst.Len(), gen
}
