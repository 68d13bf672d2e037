// Package agent talks to the generative language-model API.
package agent

import (
	"errors"
	"time"
)

var (
	// ErrTransport marks a request that never produced a usable HTTP response:
	// network failure, timeout or a non-2xx status.
	ErrTransport = errors.New("generative api transport error")

	// ErrMalformedResponse marks a response with unexpected shape: undecodable
	// JSON, no choices, or empty content.
	ErrMalformedResponse = errors.New("generative api malformed response")
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleSystem carries instructions for the model.
	RoleSystem Role = "system"
	// RoleUser carries the learner-facing request.
	RoleUser Role = "user"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a single chat-completion call.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	RequestID   string
}

// Config holds generative API configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	ModelName string
	Timeout   time.Duration
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://openrouter.ai/api/v1",
		ModelName: "openai/gpt-4o-mini",
		Timeout:   30 * time.Second,
	}
}
