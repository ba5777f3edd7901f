// Package memory keeps per-identity conversation history in process-local
// state. Reads are clipped to the most recent turns; storage is truncated
// to the same window to bound growth.
package memory

import (
	"sync"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
)

// HistoryWindow is the maximum number of turns a read returns.
const HistoryWindow = 20

// Store maps an identity (email or user id) to its ordered turn log.
// Safe for concurrent use; same-identity races are last-writer-wins.
type Store struct {
	mu    sync.Mutex
	turns map[string][]contractx.Turn
}

func NewStore() *Store {
	return &Store{turns: make(map[string][]contractx.Turn)}
}

// History returns up to the HistoryWindow most recent turns for identity.
// A first access for an unseen identity creates the slot and returns an
// empty sequence.
func (s *Store) History(identity string) []contractx.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.turns[identity]
	if !ok {
		s.turns[identity] = nil
		return nil
	}
	start := 0
	if len(turns) > HistoryWindow {
		start = len(turns) - HistoryWindow
	}
	out := make([]contractx.Turn, len(turns)-start)
	copy(out, turns[start:])
	return out
}

// Append records a turn for identity, truncating storage to the read
// window so older turns do not accumulate.
func (s *Store) Append(identity string, turn contractx.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[identity], turn)
	if len(turns) > HistoryWindow {
		turns = turns[len(turns)-HistoryWindow:]
	}
	s.turns[identity] = turns
}
