package notify

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestHubPublishReachesSubscribers(t *testing.T) {
	h := NewHub()

	var a, b atomic.Int64
	unsubA := h.Subscribe("session:7421", func() { a.Add(1) })
	defer unsubA()
	unsubB := h.Subscribe("session:7421", func() { b.Add(1) })
	defer unsubB()

	h.Publish("session:7421")

	waitFor(t, func() bool { return a.Load() >= 1 && b.Load() >= 1 })
}

func TestHubScopesAreIsolated(t *testing.T) {
	h := NewHub()

	var other atomic.Int64
	unsub := h.Subscribe("board:1111", func() { other.Add(1) })
	defer unsub()

	var hit atomic.Int64
	unsub2 := h.Subscribe("session:2222", func() { hit.Add(1) })
	defer unsub2()

	h.Publish("session:2222")
	waitFor(t, func() bool { return hit.Load() >= 1 })

	if other.Load() != 0 {
		t.Fatalf("board subscriber observed a session publish %d times", other.Load())
	}
}

func TestHubCoalescesBursts(t *testing.T) {
	h := NewHub()

	block := make(chan struct{})
	var calls atomic.Int64
	unsub := h.Subscribe("session:AAAA", func() {
		<-block
		calls.Add(1)
	})
	defer unsub()

	// the handler is stuck on the first delivery; further publishes coalesce
	for i := 0; i < 10; i++ {
		h.Publish("session:AAAA")
	}
	close(block)

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n > 10 {
		t.Fatalf("expected at most one call per publish, got %d", n)
	}
	if n := calls.Load(); n < 1 {
		t.Fatalf("expected at least one delivery, got %d", n)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()

	var calls atomic.Int64
	unsub := h.Subscribe("session:BBBB", func() { calls.Add(1) })

	h.Publish("session:BBBB")
	waitFor(t, func() bool { return calls.Load() >= 1 })

	unsub()
	before := calls.Load()
	h.Publish("session:BBBB")
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != before {
		t.Fatal("handler fired after unsubscribe returned")
	}
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	unsub := h.Subscribe("session:CCCC", func() {})
	unsub()
	unsub() // must not panic or block
}
