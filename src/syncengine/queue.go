package syncengine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mlevan/parley/src/chatmsg"
)

const (
	// MaxAttempts is the retry ceiling per pending item. After this many
	// failed delivery attempts the item is dropped and the user notified.
	MaxAttempts = 5

	// BaseDelay is the first retry delay; each subsequent retry doubles it.
	BaseDelay = 4 * time.Second

	// MaxJitter is added uniformly at random to every retry delay to avoid
	// synchronized retry bursts across sessions.
	MaxJitter = 300 * time.Millisecond
)

// PendingItem is a queued, not-yet-acknowledged request to persist one
// message to the remote service.
type PendingItem struct {
	Message        *chatmsg.Message
	ConversationID string // local conversation id
	Attempts       int
	NextRetryAt    time.Time
}

// Queue is the ordered list of pending message deliveries. Items are
// processed strictly in FIFO order: an ineligible head blocks the rest of
// the queue so per-conversation delivery order is preserved.
type Queue struct {
	mu    sync.Mutex
	items []*PendingItem
}

// NewQueue creates an empty pending sync queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a new item for the message unless one is already queued
// for the same message id (idempotent).
func (q *Queue) Enqueue(msg *chatmsg.Message, conversationID string, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.Message.ID == msg.ID {
			return
		}
	}
	q.items = append(q.items, &PendingItem{
		Message:        msg,
		ConversationID: conversationID,
		NextRetryAt:    now,
	})
}

// EligibleHead returns the head item if it is eligible at now. When the head
// exists but is not yet eligible, it returns the remaining wait. The queue is
// never reordered.
func (q *Queue) EligibleHead(now time.Time) (item *PendingItem, wait time.Duration, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, 0, false
	}
	head := q.items[0]
	if now.Before(head.NextRetryAt) {
		return nil, head.NextRetryAt.Sub(now), false
	}
	return head, 0, true
}

// Remove deletes the item for the given message id.
func (q *Queue) Remove(messageID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.Message.ID == messageID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// RemoveConversation deletes all items referencing the given local
// conversation, used when the conversation itself is deleted.
func (q *Queue) RemoveConversation(conversationID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	removed := 0
	for _, item := range q.items {
		if item.ConversationID == conversationID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	return removed
}

// Reschedule applies retry accounting after a failed attempt. It increments
// the attempt count and either removes the item permanently (attempt ceiling
// reached, dropped=true) or computes the next eligibility time with
// exponential backoff plus jitter, keeping the item in place. An item that
// was removed while its delivery was in flight is left untouched and
// reported with queued=false.
func (q *Queue) Reschedule(item *PendingItem, now time.Time) (dropped, queued bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i, it := range q.items {
		if it == item {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, false
	}

	item.Attempts++
	if item.Attempts >= MaxAttempts {
		q.items = append(q.items[:idx], q.items[idx+1:]...)
		return true, true
	}

	delay := BaseDelay << (item.Attempts - 1)
	delay += time.Duration(rand.Int63n(int64(MaxJitter)))
	item.NextRetryAt = now.Add(delay)
	return false, true
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a snapshot of the queue, head first.
func (q *Queue) Items() []*PendingItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*PendingItem, len(q.items))
	copy(out, q.items)
	return out
}
