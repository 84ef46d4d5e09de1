package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"sync"

	"github.com/samber/lo"
)

// Sessions is the directory of open connections and their outbound sinks.
// A connection is present from transport connect until transport disconnect,
// whether or not it holds a nickname.
type Sessions struct {
	mu    sync.RWMutex
	sinks map[domain.ConnectionID]contract.EventSink
}

func NewSessions() *Sessions {
	return &Sessions{sinks: make(map[domain.ConnectionID]contract.EventSink)}
}

func (s *Sessions) Subscribe(id domain.ConnectionID, sink contract.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks[id] = sink
}

func (s *Sessions) Unsubscribe(id domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sinks, id)
}

// Targets resolves an audience against the connections open right now.
// Returns nil when nobody matches.
func (s *Sessions) Targets(audience event.Audience) []contract.EventSink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if audience.Kind == event.Direct {
		if sink, ok := s.sinks[audience.Connection]; ok {
			return []contract.EventSink{sink}
		}
		return nil
	}

	matching := lo.PickBy(s.sinks, func(id domain.ConnectionID, _ contract.EventSink) bool {
		return audience.Includes(id)
	})
	if len(matching) == 0 {
		return nil
	}
	return lo.Values(matching)
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks)
}
