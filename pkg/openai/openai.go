// Package openai adapts the OpenAI Chat Completions API to the gateway's
// Completer contract, including the optional side-effecting action the
// support chat offers the model.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
)

type Config struct {
	APIKey     string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true"`
	Model      string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
}

// NewClient creates an OpenAI SDK client. Returns nil when no API key is
// configured so callers can degrade explicitly.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// Backend implements contract.Completer on top of the SDK client.
type Backend struct {
	client *openaisdk.Client
	model  string
}

func NewBackend(client *openaisdk.Client, model string) *Backend {
	if strings.TrimSpace(model) == "" {
		model = openaisdk.ChatModelGPT4oMini
	}
	return &Backend{client: client, model: model}
}

func (b *Backend) Complete(
	ctx context.Context,
	system string,
	conversation []contractx.Turn,
	opts contractx.CompletionOptions,
) (contractx.Completion, error) {
	if b == nil || b.client == nil {
		return contractx.Completion{}, fmt.Errorf("%w: backend client is not configured", contractx.ErrBackend)
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(conversation)+1)
	messages = append(messages, openaisdk.SystemMessage(system))
	for _, turn := range conversation {
		switch turn.Role {
		case contractx.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openaisdk.UserMessage(turn.Content))
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Messages: messages,
		Model:    b.model,
	}
	if opts.Temperature > 0 {
		params.Temperature = openaisdk.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(opts.MaxTokens)
	}
	if len(opts.Actions) > 0 {
		tools := make([]openaisdk.ChatCompletionToolParam, len(opts.Actions))
		for i, action := range opts.Actions {
			tools[i] = openaisdk.ChatCompletionToolParam{
				Type: "function",
				Function: openaisdk.FunctionDefinitionParam{
					Name:        action.Name,
					Description: openaisdk.String(action.Description),
					Parameters:  openaisdk.FunctionParameters(action.Parameters),
				},
			}
		}
		params.Tools = tools
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.Completion{}, fmt.Errorf("%w: %v", contractx.ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.Completion{}, fmt.Errorf("%w: no choices returned", contractx.ErrBackend)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		var args map[string]any
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return contractx.Completion{}, fmt.Errorf("%w: decode action arguments: %v", contractx.ErrBackend, err)
			}
		}
		return contractx.Completion{
			Action: &contractx.ActionRequest{
				Name:      call.Function.Name,
				Arguments: args,
			},
		}, nil
	}

	return contractx.Completion{Text: msg.Content}, nil
}
