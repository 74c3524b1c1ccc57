package frame

import (
	"bytes"
	"sync"
	"testing"
)

func TestMailboxDrainEmpty(t *testing.T) {
	m := NewMailbox()
	var dst Buffer
	n, gen := m.Drain(&dst)
	if n != 0 {
		t.Fatalf("Drain() on empty mailbox = %d bytes, want 0", n)
	}
	if gen != 0 {
		t.Fatalf("Drain() on empty mailbox generation = %d, want 0", gen)
	}
}

func TestMailboxPostThenDrain(t *testing.T) {
	m := NewMailbox()
	m.Post([]byte{0xff, 0xd8, 0xff, 0xd9})

	select {
	case <-m.Ready():
	default:
		t.Fatal("expected Ready() to be signaled after Post")
	}

	var dst Buffer
	n, _ := m.Drain(&dst)
	if n != 4 {
		t.Fatalf("Drain() = %d bytes, want 4", n)
	}
	if !bytes.Equal(dst.Bytes(), []byte{0xff, 0xd8, 0xff, 0xd9}) {
		t.Fatalf("Drain() content = %x, want ffd8ffd9", dst.Bytes())
	}
}

// TestMailboxGenerationAdvancesPerPost checks the stamp a consumer uses to
// recognize a wake for a frame it has already read: repeated drains with no
// post in between see the same generation, and every post advances it.
func TestMailboxGenerationAdvancesPerPost(t *testing.T) {
	m := NewMailbox()
	var dst Buffer

	m.Post([]byte("one"))
	_, g1 := m.Drain(&dst)
	_, g2 := m.Drain(&dst)
	if g1 != g2 {
		t.Fatalf("generation changed without a post: %d then %d", g1, g2)
	}

	m.Post([]byte("two"))
	_, g3 := m.Drain(&dst)
	if g3 <= g2 {
		t.Fatalf("generation after post = %d, want > %d", g3, g2)
	}
}

// TestMailboxNewestWins posts many frames back-to-back with no draining in
// between and checks that only the last one survives.
func TestMailboxNewestWins(t *testing.T) {
	m := NewMailbox()
	for i := 0; i < 100; i++ {
		m.Post([]byte{byte(i)})
	}

	var dst Buffer
	n, _ := m.Drain(&dst)
	if n != 1 {
		t.Fatalf("Drain() = %d bytes, want 1", n)
	}
	if dst.Bytes()[0] != 99 {
		t.Fatalf("Drain() = %d, want 99 (newest-wins)", dst.Bytes()[0])
	}
}

func TestMailboxCapacityMonotoneNonDecreasing(t *testing.T) {
	m := NewMailbox()
	var dst Buffer

	m.Post(bytes.Repeat([]byte("a"), 256))
	m.Drain(&dst)
	grown := dst.Cap()

	m.Post([]byte("tiny"))
	m.Drain(&dst)
	if dst.Cap() < grown {
		t.Fatalf("per-client buffer capacity shrank from %d to %d", grown, dst.Cap())
	}
}

func TestMailboxConcurrentPostAndDrain(t *testing.T) {
	m := NewMailbox()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Post([]byte{byte(i)})
		}
	}()

	var dst Buffer
	for i := 0; i < 1000; i++ {
		m.Drain(&dst)
	}
	wg.Wait()
}
