// Package notify carries change notifications between decoupled observers.
// A scope is an opaque string naming one record (a session, a roster, a
// board); publishing a scope tells every subscriber that the record may have
// changed, not what changed. Subscribers re-read and re-derive.
package notify

import "sync"

// Notifier is the pub/sub capability the store and sync layer build on. Any
// fan-out mechanism can satisfy it; delivery is at-least-once per publish.
type Notifier interface {
	Publish(scope string)
	// Subscribe registers handler for scope and returns an unsubscribe
	// function. Unsubscribe is safe to call more than once; once it returns,
	// the handler will not be invoked again.
	Subscribe(scope string, handler func()) (unsubscribe func())
}

// Hub is an in-process Notifier. Each subscriber gets its own pump goroutine
// so a slow handler cannot block publishers or other subscribers.
type Hub struct {
	mu     sync.Mutex
	scopes map[string]map[int]*subscriber
	nextID int
}

type subscriber struct {
	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{scopes: make(map[string]map[int]*subscriber)}
}

func (h *Hub) Publish(scope string) {
	h.mu.Lock()
	for _, sub := range h.scopes[scope] {
		select {
		case sub.wake <- struct{}{}:
		default:
			// a wake-up is already pending; notifications coalesce
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribe(scope string, handler func()) func() {
	sub := &subscriber{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.scopes[scope] == nil {
		h.scopes[scope] = make(map[int]*subscriber)
	}
	id := h.nextID
	h.nextID++
	h.scopes[scope][id] = sub
	h.mu.Unlock()

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-sub.stop:
				return
			case <-sub.wake:
				select {
				case <-sub.stop:
					return
				default:
				}
				handler()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if subs := h.scopes[scope]; subs != nil {
				delete(subs, id)
				if len(subs) == 0 {
					delete(h.scopes, scope)
				}
			}
			h.mu.Unlock()
			close(sub.stop)
			// wait for an in-flight handler call to finish so no callback
			// fires after unsubscribe returns
			<-sub.done
		})
	}
}
