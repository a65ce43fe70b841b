package whatsapp

import (
	"sync"
	"time"
)

// deliveryTracker remembers recently handled inbound message ids. Meta
// redelivers webhooks it considers unacknowledged, and each redelivery would
// otherwise trigger another reply.
type deliveryTracker struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func newDeliveryTracker(ttl time.Duration) *deliveryTracker {
	return &deliveryTracker{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

// firstDelivery records id and reports whether it was not seen within the TTL.
func (t *deliveryTracker) firstDelivery(id string) bool {
	if id == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, at := range t.seen {
		if now.Sub(at) > t.ttl {
			delete(t.seen, key)
		}
	}
	if _, dup := t.seen[id]; dup {
		return false
	}
	t.seen[id] = now
	return true
}
