package contract

import (
	"bytes"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversational exchange entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AgentPersona is a named system-instruction profile. Personas are defined
// at process start and never mutated.
type AgentPersona struct {
	ID        string
	Name      string
	Focus     string
	Technical string
}

// DispatchRequest is a multi-agent invocation round.
type DispatchRequest struct {
	UserID        string   `json:"userId"`
	Question      string   `json:"question"`
	Agents        []string `json:"agents"`
	Email         string   `json:"email,omitempty"`
	WantsFollowUp bool     `json:"send_email,omitempty"`
}

// AgentOutcome is the settled result of one agent invocation. Text is
// always non-empty: failures surface as a placeholder, never as an empty
// string. Succeeded is true only when the backend produced a model answer
// within its deadline.
type AgentOutcome struct {
	AgentID   string
	Text      string
	Succeeded bool
}

type DispatchStatus string

const (
	StatusSuccess DispatchStatus = "success"
	StatusFailure DispatchStatus = "failure"
)

// DispatchResult is always well-formed: every dispatched agent id appears
// exactly once in Responses, in dispatch order. Failure is reserved for
// round-level errors; a single agent's failure never flips the status.
type DispatchResult struct {
	Status    DispatchStatus `json:"status"`
	SessionID string         `json:"sessionId,omitempty"`
	Responses ResponseMap    `json:"responses"`
}

// AgentReply is one entry of the ordered response map.
type AgentReply struct {
	AgentID string
	Text    string
}

// ResponseMap serializes as a JSON object keyed by agent id while keeping
// dispatch order, which a plain Go map would lose.
type ResponseMap []AgentReply

func (m ResponseMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.AgentID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the response text for an agent id.
func (m ResponseMap) Get(agentID string) (string, bool) {
	for _, r := range m {
		if r.AgentID == agentID {
			return r.Text, true
		}
	}
	return "", false
}

// Fields flattens the map for document persistence.
func (m ResponseMap) Fields() map[string]any {
	out := make(map[string]any, len(m))
	for _, r := range m {
		out[r.AgentID] = r.Text
	}
	return out
}

// ActionDefinition describes a side-effecting action the completion
// backend may request instead of answering in plain text.
type ActionDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ActionRequest is the backend asking the caller to perform an action.
type ActionRequest struct {
	Name      string
	Arguments map[string]any
}

// Completion carries either plain reply text or an action request.
type Completion struct {
	Text   string
	Action *ActionRequest
}

// CompletionOptions tune a single backend call. A zero Temperature or
// MaxTokens leaves the backend default in place.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int64
	Actions     []ActionDefinition
}
