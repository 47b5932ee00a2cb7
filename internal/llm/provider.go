// Package llm provides text generation for the review pipeline over
// OpenAI-compatible chat completion APIs (DeepSeek, OpenAI, and
// anything speaking the same wire format).
package llm

import "context"

// TextGenerator provides basic text generation capability.
// This is the minimal interface that any LLM backend must implement.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
