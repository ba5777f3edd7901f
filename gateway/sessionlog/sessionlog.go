// Package sessionlog persists completed dispatch rounds and derives
// coarse topic keywords from the question.
package sessionlog

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
)

// techTerms is the fixed vocabulary matched (case-insensitive, substring)
// against the question text.
var techTerms = []string{
	"python", "javascript", "react", "node", "django", "flask",
	"machine learning", "ai", "data science", "database",
	"frontend", "backend", "fullstack", "devops",
}

const collection = "sessions"

// Recorder writes session documents to the document store. A nil store
// turns Record into a no-op so the gateway keeps serving without
// persistence.
type Recorder struct {
	store contractx.DocumentStore
	now   func() time.Time
}

func NewRecorder(store contractx.DocumentStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record persists one round. The isTechnical aggregate is the OR of the
// per-outcome Succeeded flags: the source system used the call-succeeded
// signal as its "technical" marker, and that literal meaning is kept.
func (r *Recorder) Record(ctx context.Context, req contractx.DispatchRequest, outcomes []contractx.AgentOutcome) error {
	if r == nil || r.store == nil {
		return nil
	}

	agents := make([]string, len(outcomes))
	responses := make(map[string]any, len(outcomes))
	isTechnical := false
	for i, o := range outcomes {
		agents[i] = o.AgentID
		responses[o.AgentID] = o.Text
		if o.Succeeded {
			isTechnical = true
		}
	}

	fields := map[string]any{
		"userId":            req.UserID,
		"question":          req.Question,
		"agents":            agents,
		"responses":         responses,
		"createdAt":         r.now().UTC(),
		"isTechnical":       isTechnical,
		"technicalKeywords": ExtractKeywords(req.Question),
	}

	if err := r.store.AddDocument(ctx, collection, fields); err != nil {
		log.Warn().Err(err).Str("userId", req.UserID).Msg("session logging failed")
		return err
	}
	return nil
}

// ExtractKeywords returns the deduplicated vocabulary terms found in text.
// Matching is substring-based; order is not significant.
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range techTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}
