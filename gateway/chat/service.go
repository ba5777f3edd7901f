// Package chat implements the stateful customer-support flow: history,
// cold-start response cache, one backend call, and an optional
// save-ticket action.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	cachex "github.com/dhraviq/agent-gateway/gateway/cache"
	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
	memoryx "github.com/dhraviq/agent-gateway/gateway/memory"
)

// Acknowledgement is the fixed reply returned after a ticket action.
// The exact wording is part of the contract with the frontend.
const Acknowledgement = "We've received your request. Our team will contact you shortly."

// GraphInput is one incoming chat turn batch.
type GraphInput struct {
	Identity string
	Name     string
	UID      string
	Incoming []contractx.Turn
}

// GraphOutput carries the reply text back to the request surface.
type GraphOutput struct {
	Reply string
}

// Service orchestrates a single support-chat turn. State transitions per
// identity are one-way: once any history exists, the response cache is
// never consulted again for that identity.
type Service struct {
	memory  *memoryx.Store
	cache   *cachex.Cache
	backend contractx.Completer
	store   contractx.DocumentStore

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	now func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(
	memory *memoryx.Store,
	cache *cachex.Cache,
	backend contractx.Completer,
	store contractx.DocumentStore,
	opts ...Option,
) (*Service, error) {
	if memory == nil {
		return nil, errors.New("conversation memory is required")
	}
	if cache == nil {
		return nil, errors.New("response cache is required")
	}
	if backend == nil {
		return nil, errors.New("completion backend is required")
	}

	s := &Service{
		memory:  memory,
		cache:   cache,
		backend: backend,
		store:   store,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	graphRunner, err := s.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// Handle runs one chat turn and returns the reply text. Any error is a
// chat-turn failure: the request surface maps it to a generic server
// error without internal detail.
func (s *Service) Handle(ctx context.Context, identity, name, uid string, incoming []contractx.Turn) (string, error) {
	out, err := s.graphRunner.Invoke(ctx, GraphInput{
		Identity: identity,
		Name:     name,
		UID:      uid,
		Incoming: incoming,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}
