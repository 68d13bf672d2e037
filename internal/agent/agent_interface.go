package agent

import (
	"context"
)

// Generator produces free text from a chat-completion request.
// Errors wrap ErrTransport or ErrMalformedResponse.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Ensure the implementations satisfy Generator.
var (
	_ Generator = (*Client)(nil)
	_ Generator = (*Service)(nil)
)
