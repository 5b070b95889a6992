package llm

import "context"

// Client is the remote-completion collaborator: it turns a submitted topic
// into generated Markdown text. Implementations make exactly one attempt per
// call; retry policy, if any, belongs to the caller (the session service
// never retries).
type Client interface {
	Complete(ctx context.Context, topic string) (string, error)
}
