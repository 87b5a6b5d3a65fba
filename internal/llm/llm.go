// Package llm wraps chat-completion providers behind a small interface so
// the script generator does not care which backend produces text.
package llm

import "context"

// Client is a chat-completion backend.
type Client interface {
	// CompleteJSON returns the assistant reply for a system/user prompt
	// pair with the provider's JSON output mode enabled. The returned
	// string is the raw JSON document.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
