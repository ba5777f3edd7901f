package memory

import (
	"fmt"
	"testing"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
)

func TestHistoryUnseenIdentityIsEmpty(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if got := s.History("fresh@example.com"); len(got) != 0 {
		t.Fatalf("History() = %d turns for unseen identity, want 0", len(got))
	}
}

func TestAppendThenHistory(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Append("a@example.com", contractx.Turn{Role: contractx.RoleAssistant, Content: "hi"})

	got := s.History("a@example.com")
	if len(got) != 1 {
		t.Fatalf("History() = %d turns, want 1", len(got))
	}
	if got[0].Content != "hi" || got[0].Role != contractx.RoleAssistant {
		t.Fatalf("History()[0] = %+v, want assistant hi", got[0])
	}
}

func TestHistoryClipsToWindow(t *testing.T) {
	t.Parallel()

	s := NewStore()
	for i := 0; i < HistoryWindow+15; i++ {
		s.Append("a@example.com", contractx.Turn{
			Role:    contractx.RoleAssistant,
			Content: fmt.Sprintf("turn-%d", i),
		})
	}

	got := s.History("a@example.com")
	if len(got) != HistoryWindow {
		t.Fatalf("History() = %d turns, want %d", len(got), HistoryWindow)
	}
	if got[0].Content != "turn-15" {
		t.Fatalf("History()[0] = %q, want oldest surviving turn %q", got[0].Content, "turn-15")
	}
	if got[len(got)-1].Content != fmt.Sprintf("turn-%d", HistoryWindow+14) {
		t.Fatalf("History() last = %q, want most recent turn", got[len(got)-1].Content)
	}
}

func TestIdentitiesAreIsolated(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Append("a@example.com", contractx.Turn{Role: contractx.RoleUser, Content: "hello"})

	if got := s.History("b@example.com"); len(got) != 0 {
		t.Fatalf("History() leaked %d turns across identities", len(got))
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Append("a@example.com", contractx.Turn{Role: contractx.RoleUser, Content: "hello"})

	got := s.History("a@example.com")
	got[0].Content = "mutated"

	if again := s.History("a@example.com"); again[0].Content != "hello" {
		t.Fatalf("History() exposed internal state: %q", again[0].Content)
	}
}
