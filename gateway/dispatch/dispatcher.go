// Package dispatch fans a user question out to the requested agent
// personas concurrently and aggregates their outcomes into a single
// well-formed result.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
	"github.com/dhraviq/agent-gateway/gateway/notify"
	"github.com/dhraviq/agent-gateway/gateway/persona"
	"github.com/dhraviq/agent-gateway/gateway/sessionlog"
)

const (
	// maxFanOut is a hard cap: only the first two requested agents are
	// ever dispatched.
	maxFanOut = 2

	agentTimeout  = 15 * time.Second
	temperature   = 0.3
	maxTokens     = 150
	usersPath     = "users"
	systemAgentID = "System"
)

// Dispatcher runs multi-agent invocation rounds. Every collaborator
// except the registry and backend is best-effort: persistence and
// notification failures are logged and swallowed.
type Dispatcher struct {
	registry *persona.Registry
	backend  contractx.Completer
	sessions *sessionlog.Recorder
	store    contractx.DocumentStore
	trigger  *notify.Trigger

	timeout time.Duration
	now     func() time.Time
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout overrides the per-agent call deadline.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithClock overrides the dispatcher's clock.
func WithClock(now func() time.Time) Option {
	return func(dp *Dispatcher) {
		if now != nil {
			dp.now = now
		}
	}
}

func New(
	registry *persona.Registry,
	backend contractx.Completer,
	sessions *sessionlog.Recorder,
	store contractx.DocumentStore,
	trigger *notify.Trigger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		backend:  backend,
		sessions: sessions,
		store:    store,
		trigger:  trigger,
		timeout:  agentTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch runs one round. It never returns an error and never panics
// outward: a round-level fault degrades to status=failure with a
// correlation id, and a single agent's fault degrades to a placeholder
// response for that agent only.
func (d *Dispatcher) Dispatch(ctx context.Context, req contractx.DispatchRequest) (result contractx.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = d.failureResult(r)
		}
	}()

	agents := req.Agents
	if len(agents) > maxFanOut {
		agents = agents[:maxFanOut]
	}

	outcomes := d.fanOut(ctx, agents, req.Question)

	responses := make(contractx.ResponseMap, len(outcomes))
	for i, o := range outcomes {
		responses[i] = contractx.AgentReply{AgentID: o.AgentID, Text: o.Text}
	}

	// The recorder logs its own failures; the round is unaffected either way.
	_ = d.sessions.Record(ctx, req, outcomes)

	if req.WantsFollowUp {
		d.saveReminder(ctx, req)
		d.trigger.Notify(req.UserID, req.Question, req.Email)
	}

	return contractx.DispatchResult{
		Status:    contractx.StatusSuccess,
		SessionID: d.now().UTC().Format(time.RFC3339Nano),
		Responses: responses,
	}
}

// fanOut launches one goroutine per agent and joins after all branches
// settle. Completion order is irrelevant: outcomes land in their original
// slot so the aggregate preserves dispatch order.
func (d *Dispatcher) fanOut(ctx context.Context, agents []string, question string) []contractx.AgentOutcome {
	outcomes := make([]contractx.AgentOutcome, len(agents))

	var wg sync.WaitGroup
	for i, agentID := range agents {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			outcomes[slot] = d.invokeAgent(ctx, id, question)
		}(i, agentID)
	}
	wg.Wait()

	return outcomes
}

// invokeAgent is one isolation boundary: any error, deadline breach, or
// panic inside it yields a placeholder outcome and must not disturb
// sibling invocations.
func (d *Dispatcher) invokeAgent(ctx context.Context, agentID, question string) (out contractx.AgentOutcome) {
	out = contractx.AgentOutcome{
		AgentID: agentID,
		Text:    fmt.Sprintf("%s is currently unavailable.", agentID),
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("agent", agentID).Interface("panic", r).Msg("agent invocation panicked")
			out.Text = fmt.Sprintf("%s is currently unavailable.", agentID)
			out.Succeeded = false
		}
	}()

	p := d.registry.Resolve(agentID)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := d.now()
	completion, err := d.backend.Complete(callCtx,
		persona.SystemPrompt(p),
		[]contractx.Turn{{Role: contractx.RoleUser, Content: strings.TrimSpace(question)}},
		contractx.CompletionOptions{
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
	)
	if err != nil {
		log.Warn().Str("agent", agentID).Err(err).Msg("agent invocation failed")
		return out
	}
	log.Debug().
		Str("agent", agentID).
		Dur("duration", d.now().Sub(start)).
		Msg("backend response received")

	text := strings.TrimSpace(completion.Text)
	if text == "" {
		text = "No response available."
	}
	out.Text = text
	out.Succeeded = true
	return out
}

// saveReminder merges the follow-up preference into the user document.
// Best-effort: a store failure is logged and swallowed.
func (d *Dispatcher) saveReminder(ctx context.Context, req contractx.DispatchRequest) {
	if d.store == nil {
		return
	}

	var email any
	if req.Email != "" {
		email = req.Email
	}
	fields := map[string]any{
		"reminderEnabled":  true,
		"reminderQuestion": strings.TrimSpace(req.Question),
		"lastUpdated":      d.now().UTC(),
		"email":            email,
	}
	path := usersPath + "/" + req.UserID
	if err := d.store.SetDocument(ctx, path, fields, true); err != nil {
		log.Warn().Err(err).Str("userId", req.UserID).Msg("reminder persistence failed")
	}
}

// failureResult converts a round-level fault into the caller-safe shape:
// a fresh correlation id, full detail in the server log only, and a single
// synthetic System entry.
func (d *Dispatcher) failureResult(cause any) contractx.DispatchResult {
	errorID := d.now().UTC().Format(time.RFC3339Nano)
	log.Error().
		Str("errorId", errorID).
		Interface("cause", cause).
		Msg("critical dispatch error")

	return contractx.DispatchResult{
		Status: contractx.StatusFailure,
		Responses: contractx.ResponseMap{{
			AgentID: systemAgentID,
			Text:    fmt.Sprintf("Internal error occurred. Try again. (Error ID: %s)", errorID),
		}},
	}
}
