package sessionlog

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
)

type addCall struct {
	collection string
	fields     map[string]any
}

type fakeStore struct {
	addErr error
	adds   []addCall
}

func (f *fakeStore) AddDocument(ctx context.Context, collection string, fields map[string]any) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.adds = append(f.adds, addCall{collection: collection, fields: fields})
	return nil
}

func (f *fakeStore) SetDocument(ctx context.Context, path string, fields map[string]any, merge bool) error {
	return nil
}

func TestExtractKeywords(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("I need help with React and databases")

	seen := map[string]int{}
	for _, kw := range got {
		seen[kw]++
	}
	if seen["react"] != 1 {
		t.Fatalf("ExtractKeywords() = %v, want exactly one %q", got, "react")
	}
	if seen["database"] != 1 {
		t.Fatalf("ExtractKeywords() = %v, want exactly one %q", got, "database")
	}
	for kw, n := range seen {
		if n > 1 {
			t.Fatalf("ExtractKeywords() duplicated %q", kw)
		}
	}
}

func TestExtractKeywordsCaseInsensitive(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("PYTHON and Machine Learning, please")
	seen := map[string]bool{}
	for _, kw := range got {
		seen[kw] = true
	}
	if !seen["python"] || !seen["machine learning"] {
		t.Fatalf("ExtractKeywords() = %v, want python and machine learning", got)
	}
}

func TestExtractKeywordsEmpty(t *testing.T) {
	t.Parallel()

	if got := ExtractKeywords("how do I bake bread"); len(got) != 0 {
		t.Fatalf("ExtractKeywords() = %v, want none", got)
	}
}

func TestRecordWritesSessionDocument(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r := NewRecorder(store)
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	r.now = func() time.Time { return now }

	req := contractx.DispatchRequest{
		UserID:   "u1",
		Question: "teach me react",
	}
	outcomes := []contractx.AgentOutcome{
		{AgentID: "GoalClarifier", Text: "answer", Succeeded: true},
		{AgentID: "SkillMap", Text: "SkillMap is currently unavailable.", Succeeded: false},
	}

	if err := r.Record(context.Background(), req, outcomes); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(store.adds) != 1 {
		t.Fatalf("Record() wrote %d documents, want 1", len(store.adds))
	}

	doc := store.adds[0]
	if doc.collection != "sessions" {
		t.Fatalf("collection = %q, want sessions", doc.collection)
	}
	if doc.fields["userId"] != "u1" {
		t.Fatalf("userId = %v, want u1", doc.fields["userId"])
	}
	if doc.fields["isTechnical"] != true {
		t.Fatalf("isTechnical = %v, want true (one outcome succeeded)", doc.fields["isTechnical"])
	}
	agents, ok := doc.fields["agents"].([]string)
	if !ok || len(agents) != 2 || agents[0] != "GoalClarifier" {
		t.Fatalf("agents = %v, want dispatch-ordered ids", doc.fields["agents"])
	}
	responses, ok := doc.fields["responses"].(map[string]any)
	if !ok || responses["SkillMap"] != "SkillMap is currently unavailable." {
		t.Fatalf("responses = %v, want placeholder preserved", doc.fields["responses"])
	}
	if doc.fields["createdAt"] != now {
		t.Fatalf("createdAt = %v, want %v", doc.fields["createdAt"], now)
	}
}

func TestRecordAllFailedIsNotTechnical(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r := NewRecorder(store)

	outcomes := []contractx.AgentOutcome{
		{AgentID: "A", Text: "A is currently unavailable.", Succeeded: false},
	}
	if err := r.Record(context.Background(), contractx.DispatchRequest{UserID: "u"}, outcomes); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if store.adds[0].fields["isTechnical"] != false {
		t.Fatalf("isTechnical = %v, want false when no outcome succeeded", store.adds[0].fields["isTechnical"])
	}
}

func TestRecordNilStoreIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil)
	if err := r.Record(context.Background(), contractx.DispatchRequest{}, nil); err != nil {
		t.Fatalf("Record() error = %v with nil store, want nil", err)
	}
}

func TestRecordSurfacesStoreError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{addErr: errors.New("boom")}
	r := NewRecorder(store)
	if err := r.Record(context.Background(), contractx.DispatchRequest{UserID: "u"}, nil); err == nil {
		t.Fatalf("Record() error = nil, want store error passed up for the caller to swallow")
	}
}
