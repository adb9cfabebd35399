package ai

import "context"

// Client is the text-generation capability. One call, one complete response;
// no streaming and no internal retries.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
