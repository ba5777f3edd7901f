package contract

import "context"

// Completer is the text-completion backend.
type Completer interface {
	Complete(ctx context.Context, system string, conversation []Turn, opts CompletionOptions) (Completion, error)
}

// DocumentStore is a key/document database. Callers treat every failure as
// best-effort: store errors are logged and swallowed, never surfaced.
type DocumentStore interface {
	AddDocument(ctx context.Context, collection string, fields map[string]any) error
	SetDocument(ctx context.Context, path string, fields map[string]any, merge bool) error
}

// Notifier delivers a fire-and-forget message to the out-of-band channel.
type Notifier interface {
	Send(ctx context.Context, message, title string, priority int) error
}
