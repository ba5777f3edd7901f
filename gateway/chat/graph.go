package chat

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
)

func (s *Service) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*graphState, error) {
			return validateTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	if err := graph.AddLambdaNode("load_history",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return s.loadHistory(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_history: %w", err)
	}

	if err := graph.AddLambdaNode("check_cache",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return s.checkCache(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node check_cache: %w", err)
	}

	if err := graph.AddLambdaNode("invoke_backend",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return s.invokeBackend(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node invoke_backend: %w", err)
	}

	if err := graph.AddLambdaNode("apply_outcome",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return s.applyOutcome(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_outcome: %w", err)
	}

	if err := graph.AddLambdaNode("write_memory",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return s.writeMemory(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node write_memory: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (GraphOutput, error) {
			return finalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_turn"},
		{"validate_turn", "load_history"},
		{"load_history", "check_cache"},
		{"check_cache", "invoke_backend"},
		{"invoke_backend", "apply_outcome"},
		{"apply_outcome", "write_memory"},
		{"write_memory", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("chat.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile chat graph: %w", err)
	}
	return runner, nil
}
