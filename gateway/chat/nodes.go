package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	cachex "github.com/dhraviq/agent-gateway/gateway/cache"
	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
	"github.com/dhraviq/agent-gateway/gateway/prompt"
)

const saveTicketAction = "save_ticket"

var saveTicketDefinition = contractx.ActionDefinition{
	Name:        saveTicketAction,
	Description: "Save a user support request for follow-up",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"instagram_id":      map[string]any{"type": "string"},
			"issue_description": map[string]any{"type": "string"},
		},
		"required": []string{"instagram_id", "issue_description"},
	},
}

// graphState flows through the chat graph. Once settled is set (cache hit
// or ticket acknowledgement), later nodes pass the state through
// untouched: neither memory nor cache may change after that point.
type graphState struct {
	in GraphInput

	history    []contractx.Turn
	latestUser string
	coldStart  bool
	cacheKey   string

	completion contractx.Completion
	reply      string
	settled    bool
}

func validateTurn(in GraphInput) (*graphState, error) {
	if strings.TrimSpace(in.Identity) == "" {
		return nil, fmt.Errorf("%w: chat identity is empty", contractx.ErrValidation)
	}

	st := &graphState{in: in}

	// Most recent user-authored turn, searching from the end. It may be
	// absent; the flow then skips caching entirely.
	for i := len(in.Incoming) - 1; i >= 0; i-- {
		if in.Incoming[i].Role == contractx.RoleUser {
			st.latestUser = in.Incoming[i].Content
			break
		}
	}
	return st, nil
}

func (s *Service) loadHistory(st *graphState) (*graphState, error) {
	st.history = s.memory.History(st.in.Identity)
	st.coldStart = len(st.history) == 0
	return st, nil
}

// checkCache short-circuits cold-start turns only: once an identity has
// any history, the cache is bypassed for the rest of the process
// lifetime.
func (s *Service) checkCache(st *graphState) (*graphState, error) {
	if !st.coldStart || st.latestUser == "" {
		return st, nil
	}

	st.cacheKey = cachex.Key(st.latestUser)
	if cached, ok := s.cache.Get(st.cacheKey); ok {
		st.reply = cached
		st.settled = true
	}
	return st, nil
}

func (s *Service) invokeBackend(ctx context.Context, st *graphState) (*graphState, error) {
	if st.settled {
		return st, nil
	}

	conversation := make([]contractx.Turn, 0, len(st.history)+len(st.in.Incoming))
	conversation = append(conversation, st.history...)
	conversation = append(conversation, st.in.Incoming...)

	completion, err := s.backend.Complete(ctx,
		prompt.Support(st.in.Name),
		conversation,
		contractx.CompletionOptions{
			Actions: []contractx.ActionDefinition{saveTicketDefinition},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrBackend, err)
	}
	st.completion = completion
	return st, nil
}

// applyOutcome handles an action request from the backend. A ticket save
// ends the turn with the fixed acknowledgement and leaves memory and
// cache untouched.
func (s *Service) applyOutcome(ctx context.Context, st *graphState) (*graphState, error) {
	if st.settled || st.completion.Action == nil {
		return st, nil
	}

	action := st.completion.Action
	if action.Name != saveTicketAction {
		return nil, fmt.Errorf("%w: backend requested unknown action %q", contractx.ErrValidation, action.Name)
	}

	s.saveTicket(ctx, st, action.Arguments)
	st.reply = Acknowledgement
	st.settled = true
	return st, nil
}

func (s *Service) saveTicket(ctx context.Context, st *graphState, args map[string]any) {
	if s.store == nil {
		log.Warn().Str("identity", st.in.Identity).Msg("ticket dropped: no document store")
		return
	}

	fields := map[string]any{
		"email":     st.in.Identity,
		"instagram": stringArg(args, "instagram_id"),
		"message":   stringArg(args, "issue_description"),
		"createdAt": s.now().UTC(),
		"status":    "open",
	}

	collection := "tickets"
	if st.in.UID != "" {
		collection = "users/" + st.in.UID + "/tickets"
	}

	if err := s.store.AddDocument(ctx, collection, fields); err != nil {
		log.Warn().Err(err).Str("identity", st.in.Identity).Msg("ticket persistence failed")
	}
}

func (s *Service) writeMemory(st *graphState) (*graphState, error) {
	if st.settled {
		return st, nil
	}

	reply := strings.TrimSpace(st.completion.Text)
	if reply == "" {
		return nil, contractx.ErrEmptyReply
	}

	s.memory.Append(st.in.Identity, contractx.Turn{
		Role:    contractx.RoleAssistant,
		Content: reply,
	})
	if st.coldStart && st.cacheKey != "" {
		s.cache.Put(st.cacheKey, reply)
	}
	st.reply = reply
	return st, nil
}

func finalizeReply(st *graphState) (GraphOutput, error) {
	if st == nil || strings.TrimSpace(st.reply) == "" {
		return GraphOutput{}, fmt.Errorf("%w: chat flow produced no reply", contractx.ErrValidation)
	}
	return GraphOutput{Reply: st.reply}, nil
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
