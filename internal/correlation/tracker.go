// Package correlation maps provider-issued request identifiers to the chat
// that submitted them, so asynchronous callbacks can be routed back.
package correlation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	chatID   int64
	deadline time.Time
}

// ExpireFunc is invoked for each entry removed by the TTL sweep, with the
// chat that was awaiting the callback.
type ExpireFunc func(requestID string, chatID int64)

// Tracker is a mutex-guarded map of pending request correlations. Entries
// expire after a TTL so a provider that never calls back cannot leak map
// entries for the process lifetime.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]entry
	ttl     time.Duration
	logger  *slog.Logger
}

// NewTracker creates a tracker whose entries expire after ttl.
func NewTracker(ttl time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		pending: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
	}
}

// Register associates a request with its origin chat. An existing entry for
// the same request ID is silently replaced.
func (t *Tracker) Register(requestID string, chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[requestID] = entry{chatID: chatID, deadline: time.Now().Add(t.ttl)}
}

// Resolve returns the chat registered for a request. found is false for
// unknown IDs; the caller falls back to its default recipient rather than
// dropping the result.
func (t *Tracker) Resolve(requestID string) (chatID int64, found bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[requestID]
	return e.chatID, ok
}

// Release removes a correlation. Safe to call for unknown IDs.
func (t *Tracker) Release(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, requestID)
}

// Len returns the number of pending correlations.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Sweep removes entries whose deadline has passed, invoking onExpire for
// each outside the lock.
func (t *Tracker) Sweep(now time.Time, onExpire ExpireFunc) {
	type expired struct {
		requestID string
		chatID    int64
	}

	t.mu.Lock()
	var dead []expired
	for id, e := range t.pending {
		if now.After(e.deadline) {
			dead = append(dead, expired{requestID: id, chatID: e.chatID})
			delete(t.pending, id)
		}
	}
	t.mu.Unlock()

	for _, d := range dead {
		t.logger.Warn("lookup expired awaiting callback", "request_id", d.requestID, "chat_id", d.chatID)
		if onExpire != nil {
			onExpire(d.requestID, d.chatID)
		}
	}
}

// Run sweeps periodically until the context is cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, onExpire ExpireFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Sweep(now, onExpire)
		}
	}
}
