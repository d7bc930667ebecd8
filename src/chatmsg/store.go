package chatmsg

import (
	"sync"
	"time"
)

// Store is the in-memory ordered message list for the conversation currently
// displayed. It is the single source of truth for rendering. All methods are
// safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	messages []*Message
}

// NewStore creates an empty message store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a message to the end of the list.
func (s *Store) Append(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns a copy of the current message list.
func (s *Store) Messages() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message, or nil if the store is empty.
func (s *Store) Last() *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

// FinalizeLast replaces the last message's parts, error flag and thinking
// duration. This is the only permitted in-place mutation; it is used to
// finalize a streaming response. Returns false if the store is empty.
func (s *Store) FinalizeLast(parts []Part, isError bool, thinking time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return false
	}
	last := s.messages[len(s.messages)-1]
	last.Parts = parts
	last.IsError = isError
	last.ThinkingDuration = thinking
	return true
}

// Reset replaces the whole list, used when switching conversations.
func (s *Store) Reset(messages []*Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]*Message, len(messages))
	copy(s.messages, messages)
}

// Clear removes all messages.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
