// Package llm provides the model-provider clients used by the research,
// analysis, and report collaborators. All providers implement the same small
// interfaces and wrap their HTTP calls in a circuit breaker.
package llm

import "context"

// TextGenerator is the interface for single-string LLM completion.
// All collaborator prompts use completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// EmbeddingGenerator generates vector embeddings for insight similarity.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}
